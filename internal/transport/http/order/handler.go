package order

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordwell/ordercore/internal/dto"
	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/presentation/http/response"
	"github.com/nordwell/ordercore/internal/repository"
	service "github.com/nordwell/ordercore/internal/service/order"
	"github.com/nordwell/ordercore/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/nordwell/ordercore/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("/:id/transition", h.transition)
	g.POST("/:id/pay", h.pay)
	g.POST("/:id/tracking", h.issueTracking)
	g.POST("/:id/cancel", h.cancel)
	g.PATCH("/:id/customer", h.updateCustomer)
}

func orderID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errorbank.BadRequest("invalid order id", errorbank.WithCause(err))
	}
	return id, nil
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Channel         string `json:"channel"`
		CustomerName    string `json:"customer_name"`
		CustomerPhone   string `json:"customer_phone"`
		CustomerAddress string `json:"customer_address"`
		CustomerEmail   string `json:"customer_email"`
		TelegramUserID  *int64 `json:"telegram_user_id"`
		DeliveryCost    int64  `json:"delivery_cost"`
		Items           []struct {
			Article  string `json:"article"`
			Quantity int64  `json:"quantity"`
		} `json:"items"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	in := service.CreateInput{
		Channel:         payload.Channel,
		CustomerName:    payload.CustomerName,
		CustomerPhone:   payload.CustomerPhone,
		CustomerAddress: payload.CustomerAddress,
		CustomerEmail:   payload.CustomerEmail,
		TelegramUserID:  payload.TelegramUserID,
		DeliveryCost:    payload.DeliveryCost,
	}
	for _, item := range payload.Items {
		in.Items = append(in.Items, service.ItemInput{Article: item.Article, Quantity: item.Quantity})
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(attribute.String("order.channel", in.Channel)))
	defer span.End()

	order, err := h.svc.Create(ctx, in)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	filter := repository.OrderFilter{
		Phone: c.QueryParam("phone"),
	}
	if raw := c.QueryParam("status"); raw != "" {
		status, err := entity.ParseOrderStatus(raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid status filter", errorbank.WithCause(err))).Build()
		}
		filter.Status = status
	}
	if raw := c.QueryParam("channel"); raw != "" {
		channel, err := entity.ParseChannel(raw)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid channel filter", errorbank.WithCause(err))).Build()
		}
		filter.Channel = channel
	}
	filter.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filter.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, total, err := h.svc.List(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponses(orders)).WithMeta("total", total).Build()
}

func (h *Handler) transition(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	status, err := entity.ParseOrderStatus(payload.Status)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid target status", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.transition", trace.WithAttributes(
		attribute.String("order.id", id.String()),
		attribute.String("order.to_status", payload.Status),
	))
	defer span.End()

	order, err := h.svc.Transition(ctx, id, status)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) pay(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.pay", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := h.svc.Pay(ctx, id, payload.TransactionID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) issueTracking(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.issueTracking", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := h.svc.IssueTracking(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := h.svc.Cancel(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) updateCustomer(c echo.Context) error {
	b := response.New(c)

	id, err := orderID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload struct {
		Name    *string `json:"name"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if payload.Name == nil && payload.Phone == nil && payload.Address == nil {
		return b.WithError(errorbank.BadRequest("nothing to update")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateCustomer", trace.WithAttributes(attribute.String("order.id", id.String())))
	defer span.End()

	order, err := h.svc.UpdateCustomer(ctx, id, payload.Name, payload.Phone, payload.Address)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponse(order)).Build()
}
