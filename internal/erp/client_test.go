package erp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/config"
	"github.com/nordwell/ordercore/internal/entity"
)

func newTestClient(baseURL string) *Client {
	cfg := config.Config{}
	cfg.ERP = config.ERP{
		BaseURL:     baseURL,
		Username:    "sync",
		Password:    "secret",
		CatalogPath: "/catalog/products",
		InvoicePath: "/invoices",
		Timeout:     5 * time.Second,
	}
	return NewClient(cfg, zap.NewNop())
}

func TestFetchCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "sync", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/catalog/products", r.URL.Path)

		_ = json.NewEncoder(w).Encode([]CatalogProduct{
			{Article: "TEA-001", Name: "Green tea 100g", Price: 450, Stock: 120},
		})
	}))
	defer server.Close()

	products, err := newTestClient(server.URL).FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "TEA-001", products[0].Article)
	assert.Equal(t, int64(120), products[0].Stock)
}

func TestFetchCatalogErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchCatalog(context.Background())
	assert.Error(t, err)
}

func TestExportInvoice(t *testing.T) {
	var received invoicePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/invoices", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(invoiceAck{InvoiceNumber: received.InvoiceNumber})
	}))
	defer server.Close()

	order := &entity.Order{
		ID:            uuid.New(),
		Number:        "ORD-2026-1000",
		CustomerName:  "Anna Petrova",
		CustomerPhone: "+79161234567",
		TotalAmount:   10200,
		DeliveryCost:  300,
		Items: []*entity.OrderItem{
			{Article: "TEA-001", ProductName: "Green tea 100g", Quantity: 2, PriceAtOrder: 1500, Total: 3000},
		},
	}

	number, err := newTestClient(server.URL).ExportInvoice(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-1000", number)
	assert.Equal(t, "ORD-2026-1000", received.OrderNumber)
	require.Len(t, received.Items, 1)
	assert.Equal(t, int64(3000), received.Items[0].Total)
}

func TestExportInvoiceEmptyAckFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	order := &entity.Order{ID: uuid.New(), Number: "ORD-2026-0042"}
	number, err := newTestClient(server.URL).ExportInvoice(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0042", number)
}

func TestUnconfiguredBaseURL(t *testing.T) {
	client := newTestClient("")

	_, err := client.FetchCatalog(context.Background())
	assert.Error(t, err)

	_, err = client.ExportInvoice(context.Background(), &entity.Order{Number: "ORD-2026-0001"})
	assert.Error(t, err)
}
