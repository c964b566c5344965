// Package repository declares the persistence contracts consumed by the
// service layer. Implementations live in the per-aggregate subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nordwell/ordercore/internal/entity"
)

var (
	// ErrNotFound is returned when a referenced row is missing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a compare-and-set lost a race.
	ErrConflict = errors.New("conflict")
	// ErrDuplicate is returned on unique-constraint violations.
	ErrDuplicate = errors.New("duplicate")
	// ErrReferenced is returned when a product deletion is blocked by
	// existing order items.
	ErrReferenced = errors.New("referenced by order items")
)

// OrderFilter narrows order listings. Zero values mean "any".
type OrderFilter struct {
	Status   entity.OrderStatus
	Channel  entity.Channel
	Phone    string
	Page     int
	PageSize int
}

// StatusUpdate carries the fields written together with a status change.
// PaidAt and ShippedAt are applied as set-once (existing values win) so a
// retried transition never overwrites the original timestamp.
type StatusUpdate struct {
	UpdatedAt       time.Time
	PaidAt          *time.Time
	ShippedAt       *time.Time
	TrackingNumber  string
	TransactionID   string
	InvoiceExported bool
}

// CustomerUpdate patches customer fields on an existing order. Nil means
// leave unchanged.
type CustomerUpdate struct {
	UpdatedAt time.Time
	Name      *string
	Phone     *string
	Address   *string
}

// Orders is the order aggregate store. Create persists the order and its
// items atomically; UpdateStatus is a compare-and-set on the status
// column and fails with ErrConflict when the expected status no longer
// matches.
type Orders interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	List(ctx context.Context, f OrderFilter) ([]*entity.Order, int, error)
	ListByStatus(ctx context.Context, statuses []entity.OrderStatus, limit int) ([]*entity.Order, error)
	ListByPhone(ctx context.Context, phone string, telegramUserID *int64) ([]*entity.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next entity.OrderStatus, up StatusUpdate) error
	UpdateCustomer(ctx context.Context, id uuid.UUID, up CustomerUpdate) error
}

// Catalog is the product store. The order core only reads it; Upsert and
// Delete serve the external sync process.
type Catalog interface {
	GetByArticle(ctx context.Context, article string) (*entity.Product, error)
	List(ctx context.Context, page, pageSize int) ([]*entity.Product, int, error)
	Upsert(ctx context.Context, products []*entity.Product, syncedAt time.Time) (created, updated int, err error)
	Delete(ctx context.Context, article string) error
}

// TelegramUsers stores bot-channel identities.
type TelegramUsers interface {
	Upsert(ctx context.Context, user *entity.TelegramUser) error
	GetByID(ctx context.Context, telegramUserID int64) (*entity.TelegramUser, error)
	TouchActivity(ctx context.Context, telegramUserID int64, at time.Time) error
}

// ProductStat is an aggregated product row for dashboards.
type ProductStat struct {
	Article  string `bun:"article"`
	Name     string `bun:"product_name"`
	Quantity int64  `bun:"total_quantity"`
	Revenue  int64  `bun:"total_revenue"`
}

// DayRevenue is one day of order volume.
type DayRevenue struct {
	Day     time.Time `bun:"day"`
	Orders  int       `bun:"orders_count"`
	Revenue int64     `bun:"revenue"`
}

// Dashboard exposes read-only aggregates over orders.
type Dashboard interface {
	Totals(ctx context.Context, from, to time.Time) (orders int, revenue int64, err error)
	StatusCounts(ctx context.Context) (map[entity.OrderStatus]int, error)
	ChannelCounts(ctx context.Context, from time.Time) (map[entity.Channel]int, error)
	TopProducts(ctx context.Context, from time.Time, limit int) ([]ProductStat, error)
	DailyRevenue(ctx context.Context, days int) ([]DayRevenue, error)
	RepeatCustomers(ctx context.Context) (int, error)
}
