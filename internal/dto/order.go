package dto

import (
	"time"

	"github.com/nordwell/ordercore/internal/entity"
)

// OrderItemResponse is one snapshotted order line.
type OrderItemResponse struct {
	Article      string `json:"article"`
	ProductName  string `json:"product_name"`
	Quantity     int64  `json:"quantity"`
	PriceAtOrder int64  `json:"price_at_order"`
	Total        int64  `json:"total"`
}

// OrderResponse represents an order as exposed via transport layers.
// Money fields are in minor currency units.
type OrderResponse struct {
	ID              string              `json:"id"`
	Number          string              `json:"number"`
	Status          string              `json:"status"`
	Channel         string              `json:"channel"`
	CustomerName    string              `json:"customer_name,omitempty"`
	CustomerPhone   string              `json:"customer_phone,omitempty"`
	CustomerAddress string              `json:"customer_address,omitempty"`
	CustomerEmail   string              `json:"customer_email,omitempty"`
	TotalAmount     int64               `json:"total_amount"`
	DeliveryCost    int64               `json:"delivery_cost"`
	TrackingNumber  string              `json:"tracking_number,omitempty"`
	TransactionID   string              `json:"transaction_id,omitempty"`
	InvoiceExported bool                `json:"invoice_exported"`
	TelegramUserID  *int64              `json:"telegram_user_id,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []OrderItemResponse `json:"items"`
}

// NewOrderResponse maps an order entity onto its transport shape.
func NewOrderResponse(order *entity.Order) OrderResponse {
	resp := OrderResponse{
		ID:              order.ID.String(),
		Number:          order.Number,
		Status:          string(order.Status),
		Channel:         string(order.Channel),
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		CustomerAddress: order.CustomerAddress,
		CustomerEmail:   order.CustomerEmail,
		TotalAmount:     order.TotalAmount,
		DeliveryCost:    order.DeliveryCost,
		TrackingNumber:  order.TrackingNumber,
		TransactionID:   order.TransactionID,
		InvoiceExported: order.InvoiceExported,
		TelegramUserID:  order.TelegramUserID,
		PaidAt:          order.PaidAt,
		ShippedAt:       order.ShippedAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
		Items:           make([]OrderItemResponse, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			Article:      item.Article,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			PriceAtOrder: item.PriceAtOrder,
			Total:        item.Total,
		})
	}
	return resp
}

// NewOrderResponses maps a slice of orders.
func NewOrderResponses(orders []*entity.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, NewOrderResponse(order))
	}
	return out
}
