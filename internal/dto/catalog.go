package dto

import (
	"time"

	"github.com/nordwell/ordercore/internal/entity"
)

// ProductResponse represents a catalog product over transport layers.
type ProductResponse struct {
	Article  string     `json:"article"`
	Name     string     `json:"name"`
	Price    int64      `json:"price"`
	Stock    int64      `json:"stock"`
	SyncedAt *time.Time `json:"synced_at,omitempty"`
}

// NewProductResponse maps a product entity onto its transport shape.
func NewProductResponse(product *entity.Product) ProductResponse {
	return ProductResponse{
		Article:  product.Article,
		Name:     product.Name,
		Price:    product.Price,
		Stock:    product.Stock,
		SyncedAt: product.SyncedAt,
	}
}

// NewProductResponses maps a slice of products.
func NewProductResponses(products []*entity.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		out = append(out, NewProductResponse(product))
	}
	return out
}

// SyncResultResponse summarises one catalog sync run.
type SyncResultResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}
