package teleuser

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordwell/ordercore/internal/dto"
	"github.com/nordwell/ordercore/internal/presentation/http/response"
	orderservice "github.com/nordwell/ordercore/internal/service/order"
	service "github.com/nordwell/ordercore/internal/service/teleuser"
	"github.com/nordwell/ordercore/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/nordwell/ordercore/transport/http/teleuser")

// Handler exposes telegram identity endpoints over HTTP. The bot
// backend is its own process and talks to this API.
type Handler struct {
	svc    *service.Service
	orders *orderservice.Service
}

// NewHandler constructs a telegram user Handler.
func NewHandler(svc *service.Service, orders *orderservice.Service) *Handler {
	return &Handler{svc: svc, orders: orders}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/telegram-users")
	g.POST("", h.authorize)
	g.GET("/:id", h.getByID)
	g.GET("/:id/orders", h.listOrders)
	g.POST("/:id/activity", h.touch)
}

func telegramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid telegram user id", errorbank.WithCause(err))
	}
	return id, nil
}

func (h *Handler) authorize(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		TelegramUserID int64  `json:"telegram_user_id"`
		Phone          string `json:"phone"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		Username       string `json:"username"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "teleusers.authorize", trace.WithAttributes(attribute.Int64("telegram.user_id", payload.TelegramUserID)))
	defer span.End()

	user, err := h.svc.Authorize(ctx, service.AuthorizeInput{
		TelegramUserID: payload.TelegramUserID,
		Phone:          payload.Phone,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Username:       payload.Username,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewTelegramUserResponse(user)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := telegramID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "teleusers.getByID", trace.WithAttributes(attribute.Int64("telegram.user_id", id)))
	defer span.End()

	user, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewTelegramUserResponse(user)).Build()
}

// listOrders resolves the user's phone and returns their orders, so the
// bot never needs to hold phone numbers itself.
func (h *Handler) listOrders(c echo.Context) error {
	b := response.New(c)

	id, err := telegramID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "teleusers.listOrders", trace.WithAttributes(attribute.Int64("telegram.user_id", id)))
	defer span.End()

	user, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	orders, err := h.orders.ListByPhone(ctx, user.Phone, &user.TelegramUserID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewOrderResponses(orders)).Build()
}

func (h *Handler) touch(c echo.Context) error {
	b := response.New(c)

	id, err := telegramID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "teleusers.touch", trace.WithAttributes(attribute.Int64("telegram.user_id", id)))
	defer span.End()

	if err := h.svc.Touch(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.Build()
}
