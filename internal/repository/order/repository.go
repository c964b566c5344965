package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordwell/ordercore/internal/database"
	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/repository"
)

var repoTracer = otel.Tracer("github.com/nordwell/ordercore/repository/order")

// Repository persists the order aggregate with bun.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create inserts the order and all of its items in one transaction. An
// order without items, or items without their order, is never persisted.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	if len(order.Items) == 0 {
		return errors.New("order has no items")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.number", order.Number)))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&order.Items).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
	}
	return err
}

// GetByID fetches an order with its items.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Items").
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, repository.ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns a page of orders matching the filter, newest first, along
// with the total match count.
func (r *Repository) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}

	q := r.reader.NewSelect().Model((*entity.Order)(nil)).Relation("Items")
	if f.Status != "" {
		q = q.Where("o.status = ?", f.Status)
	}
	if f.Channel != "" {
		q = q.Where("o.channel = ?", f.Channel)
	}
	if f.Phone != "" {
		q = q.Where("o.customer_phone = ?", f.Phone)
	}

	var orders []*entity.Order
	total, err := q.Order("o.created_at DESC").
		Limit(f.PageSize).
		Offset((f.Page - 1) * f.PageSize).
		ScanAndCount(ctx, &orders)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, 0, err
	}
	return orders, total, nil
}

// ListByStatus returns up to limit orders in any of the given statuses,
// newest first. Used by recovery and export workers.
func (r *Repository) ListByStatus(ctx context.Context, statuses []entity.OrderStatus, limit int) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByStatus")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}
	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Items").
		Where("o.status IN (?)", bun.In(statuses)).
		Order("o.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListByPhone returns all orders stored under a normalized phone across
// channels. When telegramUserID is set, chat-bot orders belonging to a
// different bot user are excluded.
func (r *Repository) ListByPhone(ctx context.Context, phone string, telegramUserID *int64) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByPhone")
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.Order)(nil)).
		Relation("Items").
		Where("o.customer_phone = ?", phone)
	if telegramUserID != nil {
		q = q.Where("(o.channel != ? OR o.telegram_user_id = ?)", entity.ChannelChatBot, *telegramUserID)
	}

	var orders []*entity.Order
	if err := q.Order("o.created_at DESC").Scan(ctx, &orders); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// UpdateStatus performs an optimistic compare-and-set on the status
// column. paid_at and shipped_at are written with COALESCE so an already
// set timestamp is never overwritten. Returns repository.ErrConflict when
// the row exists but the expected status no longer matches.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next entity.OrderStatus, up repository.StatusUpdate) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.String("order.id", id.String()),
		attribute.String("order.status", string(next)),
	))
	defer span.End()

	q := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", next).
		Set("updated_at = ?", up.UpdatedAt).
		Where("id = ?", id).
		Where("status = ?", expected)
	if up.PaidAt != nil {
		q = q.Set("paid_at = COALESCE(paid_at, ?)", *up.PaidAt)
	}
	if up.ShippedAt != nil {
		q = q.Set("shipped_at = COALESCE(shipped_at, ?)", *up.ShippedAt)
	}
	if up.TrackingNumber != "" {
		q = q.Set("tracking_number = ?", up.TrackingNumber)
	}
	if up.TransactionID != "" {
		q = q.Set("transaction_id = ?", up.TransactionID)
	}
	if up.InvoiceExported {
		q = q.Set("invoice_exported = TRUE")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		exists, err := r.writer.NewSelect().Model((*entity.Order)(nil)).Where("id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return repository.ErrNotFound
		}
		span.SetStatus(codes.Error, "status conflict")
		return repository.ErrConflict
	}
	return nil
}

// UpdateCustomer patches customer fields through the single write path so
// updated_at always advances with the change.
func (r *Repository) UpdateCustomer(ctx context.Context, id uuid.UUID, up repository.CustomerUpdate) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateCustomer", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	q := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("updated_at = ?", up.UpdatedAt).
		Where("id = ?", id)
	if up.Name != nil {
		q = q.Set("customer_name = ?", *up.Name)
	}
	if up.Phone != nil {
		q = q.Set("customer_phone = ?", *up.Phone)
	}
	if up.Address != nil {
		q = q.Set("customer_address = ?", *up.Address)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "not found")
		return repository.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
