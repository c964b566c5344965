package dashboard

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordwell/ordercore/internal/dto"
	"github.com/nordwell/ordercore/internal/presentation/http/response"
	service "github.com/nordwell/ordercore/internal/service/dashboard"
)

var httpTracer = otel.Tracer("github.com/nordwell/ordercore/transport/http/dashboard")

// Handler exposes dashboard endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a dashboard Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.GET("/dashboard/stats", h.stats)
}

func (h *Handler) stats(c echo.Context) error {
	b := response.New(c)

	days, _ := strconv.Atoi(c.QueryParam("days"))

	ctx, span := httpTracer.Start(c.Request().Context(), "dashboard.stats", trace.WithAttributes(attribute.Int("dashboard.days", days)))
	defer span.End()

	stats, err := h.svc.Stats(ctx, days)
	if err != nil {
		return b.WithError(err).Build()
	}

	resp := dto.DashboardResponse{
		PeriodDays:      stats.PeriodDays,
		Orders:          stats.Orders,
		Revenue:         stats.Revenue,
		StatusCounts:    make(map[string]int, len(stats.StatusCounts)),
		ChannelCounts:   make(map[string]int, len(stats.ChannelCounts)),
		RepeatCustomers: stats.RepeatCustomers,
		GeneratedAt:     stats.GeneratedAt,
	}
	for status, count := range stats.StatusCounts {
		resp.StatusCounts[string(status)] = count
	}
	for channel, count := range stats.ChannelCounts {
		resp.ChannelCounts[string(channel)] = count
	}
	for _, p := range stats.TopProducts {
		resp.TopProducts = append(resp.TopProducts, dto.ProductStatResponse{
			Article:  p.Article,
			Name:     p.Name,
			Quantity: p.Quantity,
			Revenue:  p.Revenue,
		})
	}
	for _, day := range stats.DailyRevenue {
		resp.DailyRevenue = append(resp.DailyRevenue, dto.DayRevenueResponse{
			Day:     day.Day,
			Orders:  day.Orders,
			Revenue: day.Revenue,
		})
	}
	return b.WithData(resp).Build()
}
