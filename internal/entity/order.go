package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Order represents a customer order tracked through the lifecycle.
// All money fields are in minor currency units.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID              uuid.UUID   `bun:"id,pk,type:uuid"`
	Number          string      `bun:"order_number,notnull"`
	Status          OrderStatus `bun:"status,notnull"`
	Channel         Channel     `bun:"channel,notnull"`
	CustomerName    string      `bun:"customer_name,nullzero"`
	CustomerPhone   string      `bun:"customer_phone,nullzero"`
	CustomerAddress string      `bun:"customer_address,nullzero"`
	CustomerEmail   string      `bun:"customer_email,nullzero"`
	TotalAmount     int64       `bun:"total_amount"`
	DeliveryCost    int64       `bun:"delivery_cost"`
	TrackingNumber  string      `bun:"tracking_number,nullzero"`
	TransactionID   string      `bun:"transaction_id,nullzero"`
	InvoiceExported bool        `bun:"invoice_exported"`
	TelegramUserID  *int64      `bun:"telegram_user_id,nullzero"`
	NotifiedAt      *time.Time  `bun:"notified_at,nullzero"`
	CreatedAt       time.Time   `bun:"created_at,notnull"`
	UpdatedAt       time.Time   `bun:"updated_at,notnull"`
	PaidAt          *time.Time  `bun:"paid_at,nullzero"`
	ShippedAt       *time.Time  `bun:"shipped_at,nullzero"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id"`
}

// ItemsTotal sums the line totals of all items.
func (o *Order) ItemsTotal() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += item.Total
	}
	return sum
}

// OrderItem is a single order line with the product name and price
// snapshotted at order time. Later catalog changes never alter it.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	OrderID      uuid.UUID `bun:"order_id,type:uuid,notnull"`
	Article      string    `bun:"article,notnull"`
	ProductName  string    `bun:"product_name,notnull"`
	Quantity     int64     `bun:"quantity,notnull"`
	PriceAtOrder int64     `bun:"price_at_order,notnull"`
	Total        int64     `bun:"total,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}
