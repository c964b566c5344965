package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/config"
	"github.com/nordwell/ordercore/internal/entity"
)

var clientTracer = otel.Tracer("github.com/nordwell/ordercore/erp")

// CatalogProduct is a single product row as the ERP exposes it. Prices
// come in major units and are converted to minor units on our side.
type CatalogProduct struct {
	Article string  `json:"article"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Stock   int64   `json:"stock"`
}

// Client talks to the upstream ERP over HTTP with basic auth. It serves
// two flows: pulling the product catalog and pushing invoices for paid
// orders.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	catalog    string
	invoices   string
	logger     *zap.Logger
}

// NewClient builds an ERP client from configuration.
func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.ERP.Timeout},
		baseURL:    cfg.ERP.BaseURL,
		username:   cfg.ERP.Username,
		password:   cfg.ERP.Password,
		catalog:    cfg.ERP.CatalogPath,
		invoices:   cfg.ERP.InvoicePath,
		logger:     logger.Named("erp"),
	}
}

// FetchCatalog pulls the full product list from the ERP.
func (c *Client) FetchCatalog(ctx context.Context) ([]CatalogProduct, error) {
	ctx, span := clientTracer.Start(ctx, "ERPClient.FetchCatalog")
	defer span.End()

	if c.baseURL == "" {
		return nil, fmt.Errorf("erp: base URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.catalog, nil)
	if err != nil {
		return nil, fmt.Errorf("erp: build catalog request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog request failed")
		return nil, fmt.Errorf("erp: fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("erp: catalog request returned %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return nil, err
	}

	var products []CatalogProduct
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return nil, fmt.Errorf("erp: decode catalog: %w", err)
	}

	c.logger.Debug("fetched catalog from ERP", zap.Int("products", len(products)))
	return products, nil
}

type invoiceItem struct {
	Article      string `json:"article"`
	ProductName  string `json:"product_name"`
	Quantity     int64  `json:"quantity"`
	PriceAtOrder int64  `json:"price_at_order"`
	Total        int64  `json:"total"`
}

type invoicePayload struct {
	InvoiceNumber string        `json:"invoice_number"`
	OrderNumber   string        `json:"order_number"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	TotalAmount   int64         `json:"total_amount"`
	DeliveryCost  int64         `json:"delivery_cost"`
	Items         []invoiceItem `json:"items"`
}

type invoiceAck struct {
	InvoiceNumber string `json:"invoice_number"`
}

// ExportInvoice pushes an invoice for the order to the ERP and returns
// the invoice number the ERP registered it under.
func (c *Client) ExportInvoice(ctx context.Context, order *entity.Order) (string, error) {
	ctx, span := clientTracer.Start(ctx, "ERPClient.ExportInvoice")
	defer span.End()

	if c.baseURL == "" {
		return "", fmt.Errorf("erp: base URL is not configured")
	}

	payload := invoicePayload{
		InvoiceNumber: invoiceNumberFor(order.Number),
		OrderNumber:   order.Number,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		TotalAmount:   order.TotalAmount,
		DeliveryCost:  order.DeliveryCost,
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, invoiceItem{
			Article:      item.Article,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			PriceAtOrder: item.PriceAtOrder,
			Total:        item.Total,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("erp: encode invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.invoices, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("erp: build invoice request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invoice request failed")
		return "", fmt.Errorf("erp: export invoice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		err := fmt.Errorf("erp: invoice request returned %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return "", err
	}

	var ack invoiceAck
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ack); err != nil || ack.InvoiceNumber == "" {
		// Some ERP deployments answer with an empty body. The invoice
		// number we sent is still the registered one.
		ack.InvoiceNumber = payload.InvoiceNumber
	}

	c.logger.Info("exported invoice to ERP",
		zap.String("order_number", order.Number),
		zap.String("invoice_number", ack.InvoiceNumber),
	)
	return ack.InvoiceNumber, nil
}

// invoiceNumberFor derives the invoice number from the order number by
// swapping the prefix, so ORD-2026-0042 becomes INV-2026-0042.
func invoiceNumberFor(orderNumber string) string {
	if suffix, ok := strings.CutPrefix(orderNumber, "ORD-"); ok {
		return "INV-" + suffix
	}
	return "INV-" + orderNumber
}
