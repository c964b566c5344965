package catalog

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nordwell/ordercore/internal/dto"
	"github.com/nordwell/ordercore/internal/presentation/http/response"
	service "github.com/nordwell/ordercore/internal/service/catalog"
)

var httpTracer = otel.Tracer("github.com/nordwell/ordercore/transport/http/catalog")

// Handler exposes catalog endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a catalog Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/catalog")
	g.GET("", h.list)
	g.GET("/:article", h.getByArticle)
	g.POST("/sync", h.sync)
	g.DELETE("/:article", h.delete)
}

func (h *Handler) getByArticle(c echo.Context) error {
	b := response.New(c)

	article := c.Param("article")
	ctx, span := httpTracer.Start(c.Request().Context(), "catalog.getByArticle", trace.WithAttributes(attribute.String("product.article", article)))
	defer span.End()

	product, err := h.svc.Lookup(ctx, article)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewProductResponse(product)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, span := httpTracer.Start(c.Request().Context(), "catalog.list")
	defer span.End()

	products, total, err := h.svc.List(ctx, page, pageSize)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewProductResponses(products)).WithMeta("total", total).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	article := c.Param("article")
	ctx, span := httpTracer.Start(c.Request().Context(), "catalog.delete", trace.WithAttributes(attribute.String("product.article", article)))
	defer span.End()

	if err := h.svc.Delete(ctx, article); err != nil {
		return b.WithError(err).Build()
	}
	return b.Build()
}

func (h *Handler) sync(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "catalog.sync")
	defer span.End()

	result, err := h.svc.Sync(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.SyncResultResponse{
		Created: result.Created,
		Updated: result.Updated,
		Skipped: result.Skipped,
		Total:   result.Total,
	}).Build()
}
