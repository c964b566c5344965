package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/messaging"
	"github.com/nordwell/ordercore/internal/ordernum"
	"github.com/nordwell/ordercore/internal/repository"
	"github.com/nordwell/ordercore/internal/tracking"
	"github.com/nordwell/ordercore/pkg/clock"
	"github.com/nordwell/ordercore/pkg/errorbank"
	"github.com/nordwell/ordercore/pkg/phone"
)

var serviceTracer = otel.Tracer("github.com/nordwell/ordercore/service/order")

// Machine-readable error codes attached to AppErrors so clients can
// branch without parsing messages.
const (
	CodeValidation             = "validation_error"
	CodeProductNotFound        = "product_not_found"
	CodeInsufficientStock      = "insufficient_stock"
	CodeInvalidTransition      = "invalid_transition"
	CodeTrackingNotAllowed     = "tracking_not_allowed"
	CodeConcurrentModification = "concurrent_modification"
)

// Event names published to the message bus.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// InvoiceExporter pushes an invoice for a paid order to the ERP and
// returns the invoice number it was registered under.
type InvoiceExporter interface {
	ExportInvoice(ctx context.Context, order *entity.Order) (string, error)
}

// Service owns the order lifecycle: creation with snapshot pricing,
// status transitions, payment capture, and tracking issuance.
type Service struct {
	orders    repository.Orders
	catalog   repository.Catalog
	numbers   *ordernum.Generator
	tracking  *tracking.Generator
	exporter  InvoiceExporter
	clock     clock.Clock
	logger    *zap.Logger
	publisher messaging.Client
	publish   bool
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders    repository.Orders
	Catalog   repository.Catalog
	Numbers   *ordernum.Generator
	Tracking  *tracking.Generator
	Exporter  InvoiceExporter `optional:"true"`
	Clock     clock.Clock
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:    p.Orders,
		catalog:   p.Catalog,
		numbers:   p.Numbers,
		tracking:  p.Tracking,
		exporter:  p.Exporter,
		clock:     p.Clock,
		logger:    p.Logger,
		publisher: p.Publisher,
		publish:   p.Publisher != nil,
	}
}

// ItemInput is one requested order line.
type ItemInput struct {
	Article  string
	Quantity int64
}

// CreateInput carries everything needed to place an order.
type CreateInput struct {
	Channel         string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	CustomerEmail   string
	TelegramUserID  *int64
	DeliveryCost    int64
	Items           []ItemInput
}

// Create places a new order. Product names and prices are snapshotted
// from the catalog at this moment; later catalog changes never affect
// the order. The total is the sum of line totals plus delivery cost.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.String("order.channel", in.Channel)))
	defer span.End()

	channel, err := entity.ParseChannel(in.Channel)
	if err != nil {
		return nil, errorbank.BadRequest("unknown order channel", errorbank.WithCode(CodeValidation), errorbank.WithDetail("channel", in.Channel))
	}
	if len(in.Items) == 0 {
		return nil, errorbank.BadRequest("order must contain at least one item", errorbank.WithCode(CodeValidation))
	}
	if in.DeliveryCost < 0 {
		return nil, errorbank.BadRequest("delivery cost cannot be negative", errorbank.WithCode(CodeValidation))
	}

	normalizedPhone := ""
	if raw := strings.TrimSpace(in.CustomerPhone); raw != "" {
		p, ok := phone.Normalize(raw)
		if !ok {
			return nil, errorbank.BadRequest("customer phone has no digits", errorbank.WithCode(CodeValidation), errorbank.WithDetail("phone", raw))
		}
		normalizedPhone = p
	}

	now := s.clock.Now()
	order := &entity.Order{
		ID:              uuid.New(),
		Status:          entity.StatusNew,
		Channel:         channel,
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerPhone:   normalizedPhone,
		CustomerAddress: strings.TrimSpace(in.CustomerAddress),
		CustomerEmail:   strings.TrimSpace(in.CustomerEmail),
		DeliveryCost:    in.DeliveryCost,
		TelegramUserID:  in.TelegramUserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, errorbank.BadRequest("item quantity must be positive", errorbank.WithCode(CodeValidation), errorbank.WithDetail("article", item.Article))
		}
		product, err := s.catalog.GetByArticle(ctx, item.Article)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, errorbank.NotFound("product not found", errorbank.WithCode(CodeProductNotFound), errorbank.WithDetail("article", item.Article))
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "catalog lookup failed")
			return nil, errorbank.Internal("failed to resolve product", errorbank.WithCause(err))
		}
		if product.Stock < item.Quantity {
			return nil, errorbank.Unprocessable("insufficient stock",
				errorbank.WithCode(CodeInsufficientStock),
				errorbank.WithDetail("article", item.Article),
				errorbank.WithDetail("requested", item.Quantity),
				errorbank.WithDetail("available", product.Stock),
			)
		}
		order.Items = append(order.Items, &entity.OrderItem{
			ID:           uuid.New(),
			OrderID:      order.ID,
			Article:      product.Article,
			ProductName:  product.Name,
			Quantity:     item.Quantity,
			PriceAtOrder: product.Price,
			Total:        item.Quantity * product.Price,
			CreatedAt:    now,
		})
	}
	order.TotalAmount = order.ItemsTotal() + order.DeliveryCost

	number, err := s.numbers.Next(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order number generation failed")
		return nil, errorbank.Internal("failed to allocate order number", errorbank.WithCause(err))
	}
	order.Number = number

	if err := s.orders.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.Number),
		zap.String("channel", string(order.Channel)),
		zap.Int64("total_amount", order.TotalAmount),
	)
	s.publishEvent(ctx, EventOrderCreated, order, "", order.Status)
	return order, nil
}

// Get loads one order with its items.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

// List returns a filtered page of orders plus the total match count.
func (s *Service) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, int, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	// Stored phones are canonical, so the filter must match that form.
	if raw := strings.TrimSpace(f.Phone); raw != "" {
		normalized, ok := phone.Normalize(raw)
		if !ok {
			return nil, 0, errorbank.BadRequest("phone has no digits", errorbank.WithCode(CodeValidation))
		}
		f.Phone = normalized
	}

	orders, total, err := s.orders.List(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, 0, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, total, nil
}

// ListByPhone returns a customer's orders looked up by normalized phone.
// Bot-channel orders are only returned to the telegram identity that
// placed them.
func (s *Service) ListByPhone(ctx context.Context, rawPhone string, telegramUserID *int64) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListByPhone")
	defer span.End()

	normalized, ok := phone.Normalize(rawPhone)
	if !ok {
		return nil, errorbank.BadRequest("phone has no digits", errorbank.WithCode(CodeValidation))
	}
	orders, err := s.orders.ListByPhone(ctx, normalized, telegramUserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// Transition moves an order to the next lifecycle status. The move must
// be legal per the lifecycle graph, preconditions for the target status
// must hold, and the underlying write is a compare-and-set so exactly
// one of two racing transitions wins.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to entity.OrderStatus) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Transition", trace.WithAttributes(
		attribute.String("order.id", id.String()),
		attribute.String("order.to_status", string(to)),
	))
	defer span.End()

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, span, order, to, repository.StatusUpdate{})
}

// Cancel moves an order to cancelled from any non-terminal status.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	return s.Transition(ctx, id, entity.StatusCancelled)
}

// Pay captures payment for an order in invoice_created. The transaction
// id is stored once; a retried Pay with the same transaction id returns
// the already-paid order instead of failing.
func (s *Service) Pay(ctx context.Context, id uuid.UUID, transactionID string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Pay", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	transactionID = strings.TrimSpace(transactionID)
	if order.Status == entity.StatusPaid && (transactionID == "" || order.TransactionID == transactionID) {
		return order, nil
	}
	if transactionID == "" {
		transactionID = s.transactionID()
	}

	return s.transition(ctx, span, order, entity.StatusPaid, repository.StatusUpdate{
		TransactionID: transactionID,
	})
}

// IssueTracking assigns a tracking number and moves the order to
// tracking_issued. Allowed only from order_created_1c, and only once;
// an existing tracking number is immutable.
func (s *Service) IssueTracking(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.IssueTracking", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.TrackingNumber != "" {
		return nil, errorbank.Unprocessable("tracking number already issued",
			errorbank.WithCode(CodeTrackingNotAllowed),
			errorbank.WithDetail("tracking_number", order.TrackingNumber),
		)
	}
	if order.Status != entity.StatusOrderCreated1C {
		return nil, errorbank.Unprocessable("tracking can only be issued after the order is registered in 1C",
			errorbank.WithCode(CodeTrackingNotAllowed),
			errorbank.WithDetail("status", string(order.Status)),
		)
	}

	return s.transition(ctx, span, order, entity.StatusTrackingIssued, repository.StatusUpdate{
		TrackingNumber: s.tracking.Next(),
	})
}

// ProcessPaid runs the post-payment automation for one order: export
// the invoice to the ERP, mark the order registered in 1C, then issue
// a tracking number. Called by the worker on payment events.
func (s *Service) ProcessPaid(ctx context.Context, id uuid.UUID) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ProcessPaid", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != entity.StatusPaid {
		s.logger.Debug("skipping post-payment processing", zap.String("order_id", id.String()), zap.String("status", string(order.Status)))
		return nil
	}

	if s.exporter != nil {
		invoiceNumber, err := s.exporter.ExportInvoice(ctx, order)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invoice export failed")
			return errorbank.Internal("failed to export invoice", errorbank.WithCause(err))
		}
		s.logger.Info("invoice exported",
			zap.String("order_number", order.Number),
			zap.String("invoice_number", invoiceNumber),
		)
	}

	order, err = s.transition(ctx, span, order, entity.StatusOrderCreated1C, repository.StatusUpdate{
		InvoiceExported: true,
	})
	if err != nil {
		return err
	}

	_, err = s.IssueTracking(ctx, order.ID)
	return err
}

// UpdateCustomer patches customer contact fields on an order. Phones
// are normalized before writing.
func (s *Service) UpdateCustomer(ctx context.Context, id uuid.UUID, name, rawPhone, address *string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateCustomer", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	up := repository.CustomerUpdate{UpdatedAt: s.clock.Now(), Name: name, Address: address}
	if rawPhone != nil {
		normalized, ok := phone.Normalize(*rawPhone)
		if !ok {
			return nil, errorbank.BadRequest("phone has no digits", errorbank.WithCode(CodeValidation))
		}
		up.Phone = &normalized
	}

	if err := s.orders.UpdateCustomer(ctx, id, up); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update customer data", errorbank.WithCause(err))
	}
	return s.Get(ctx, id)
}

// transition performs the legality check, target preconditions, the CAS
// write with per-status side effects, and event publication.
func (s *Service) transition(ctx context.Context, span trace.Span, order *entity.Order, to entity.OrderStatus, up repository.StatusUpdate) (*entity.Order, error) {
	from := order.Status
	if !entity.CanTransition(from, to) {
		return nil, errorbank.Unprocessable(fmt.Sprintf("cannot transition order from %s to %s", from, to),
			errorbank.WithCode(CodeInvalidTransition),
			errorbank.WithDetail("from", string(from)),
			errorbank.WithDetail("to", string(to)),
		)
	}
	if err := s.checkPreconditions(order, to, up); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	up.UpdatedAt = now
	switch to {
	case entity.StatusPaid:
		up.PaidAt = &now
	case entity.StatusOrderCreated1C:
		up.InvoiceExported = true
	case entity.StatusShipped:
		up.ShippedAt = &now
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, from, to, up); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, errorbank.Conflict("order was modified concurrently",
				errorbank.WithCode(CodeConcurrentModification),
				errorbank.WithDetail("expected_status", string(from)),
			)
		case errors.Is(err, repository.ErrNotFound):
			return nil, errorbank.NotFound("order not found")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to update order status", errorbank.WithCause(err))
		}
	}

	s.logger.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.Number),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	updated, err := s.Get(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, EventOrderStatusChanged, updated, from, to)
	return updated, nil
}

// checkPreconditions enforces target-specific requirements beyond the
// lifecycle graph.
func (s *Service) checkPreconditions(order *entity.Order, to entity.OrderStatus, up repository.StatusUpdate) error {
	switch to {
	case entity.StatusValidated:
		var missing []string
		if order.CustomerName == "" {
			missing = append(missing, "customer_name")
		}
		if order.CustomerPhone == "" {
			missing = append(missing, "customer_phone")
		}
		if order.CustomerAddress == "" {
			missing = append(missing, "customer_address")
		}
		if len(missing) > 0 {
			return errorbank.Unprocessable("customer data is incomplete",
				errorbank.WithCode(CodeValidation),
				errorbank.WithDetail("missing", missing),
			)
		}
	case entity.StatusTrackingIssued:
		if order.TrackingNumber == "" && up.TrackingNumber == "" {
			return errorbank.Unprocessable("issue a tracking number instead of transitioning directly",
				errorbank.WithCode(CodeTrackingNotAllowed),
			)
		}
	}
	return nil
}

// transactionID generates a payment transaction reference when the
// gateway did not supply one.
func (s *Service) transactionID() string {
	now := s.clock.Now()
	return fmt.Sprintf("TXN-%s-%06d", now.Format("20060102-150405"), now.Nanosecond()/1000%1_000_000)
}

// Event is the envelope published for order lifecycle events.
type Event struct {
	Event       string             `json:"event"`
	OrderID     uuid.UUID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	From        entity.OrderStatus `json:"from,omitempty"`
	To          entity.OrderStatus `json:"to"`
	Total       int64              `json:"total_amount"`
	At          time.Time          `json:"at"`
}

func (s *Service) publishEvent(ctx context.Context, name string, order *entity.Order, from, to entity.OrderStatus) {
	if !s.publish {
		return
	}
	event := Event{
		Event:       name,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		From:        from,
		To:          to,
		Total:       order.TotalAmount,
		At:          s.clock.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(order.ID.String()), payload); err != nil {
		s.logger.Error("publish order event", zap.String("event", name), zap.Error(err))
	}
}
