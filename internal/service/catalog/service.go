package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/cache"
	"github.com/nordwell/ordercore/internal/config"
	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/erp"
	"github.com/nordwell/ordercore/internal/repository"
	"github.com/nordwell/ordercore/pkg/clock"
	"github.com/nordwell/ordercore/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/nordwell/ordercore/service/catalog")

const (
	cachePrefix           = "catalog:"
	codeProductNotFound   = "product_not_found"
	codeProductReferenced = "product_referenced"
)

// Source supplies the upstream product list for synchronization.
type Source interface {
	FetchCatalog(ctx context.Context) ([]erp.CatalogProduct, error)
}

// SyncResult summarises one catalog sync run.
type SyncResult struct {
	Created int
	Updated int
	Skipped int
	Total   int
}

// Service manages the local product catalog: cached lookups for order
// placement and periodic bulk synchronization from the ERP.
type Service struct {
	repo     repository.Catalog
	source   Source
	cache    cache.Store
	cacheTTL time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository repository.Catalog
	Source     Source `optional:"true"`
	Cache      cache.Store
	Config     config.Config
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:     p.Repository,
		source:   p.Source,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		clock:    p.Clock,
		logger:   p.Logger,
	}
}

// Lookup finds one product by article, consulting the cache first.
func (s *Service) Lookup(ctx context.Context, article string) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.Lookup", trace.WithAttributes(attribute.String("product.article", article)))
	defer span.End()

	article = strings.TrimSpace(article)
	if article == "" {
		return nil, errorbank.BadRequest("article is required")
	}

	if product, err := s.getFromCache(ctx, article); err == nil {
		return product, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("catalog cache read failed", zap.String("article", article), zap.Error(err))
	}

	product, err := s.repo.GetByArticle(ctx, article)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorbank.NotFound("product not found", errorbank.WithCode(codeProductNotFound), errorbank.WithDetail("article", article))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load product", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, product); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("article", article), zap.Error(err))
	}
	return product, nil
}

// List returns a page of products plus the total count.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]*entity.Product, int, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.List")
	defer span.End()

	products, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, 0, errorbank.Internal("failed to list products", errorbank.WithCause(err))
	}
	return products, total, nil
}

// Delete removes a product unless order items reference it.
func (s *Service) Delete(ctx context.Context, article string) error {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.Delete", trace.WithAttributes(attribute.String("product.article", article)))
	defer span.End()

	if err := s.repo.Delete(ctx, article); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return errorbank.NotFound("product not found", errorbank.WithCode(codeProductNotFound))
		case errors.Is(err, repository.ErrReferenced):
			return errorbank.Conflict("product is referenced by orders", errorbank.WithCode(codeProductReferenced))
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return errorbank.Internal("failed to delete product", errorbank.WithCause(err))
		}
	}
	s.invalidateCache(ctx)
	return nil
}

// Sync pulls the product list from the ERP, validates each row, and
// bulk-upserts the valid ones. Invalid rows are skipped and counted,
// never fatal. The cache is invalidated after a successful run.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	ctx, span := serviceTracer.Start(ctx, "CatalogService.Sync")
	defer span.End()

	if s.source == nil {
		return SyncResult{}, errorbank.Unprocessable("catalog source is not configured")
	}

	rows, err := s.source.FetchCatalog(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return SyncResult{}, errorbank.Internal("failed to fetch catalog", errorbank.WithCause(err))
	}

	result := SyncResult{Total: len(rows)}
	seen := make(map[string]struct{}, len(rows))
	products := make([]*entity.Product, 0, len(rows))
	for _, row := range rows {
		article := strings.TrimSpace(row.Article)
		name := strings.TrimSpace(row.Name)
		if article == "" || name == "" || row.Price < 0 || row.Stock < 0 {
			result.Skipped++
			s.logger.Warn("skipping invalid catalog row",
				zap.String("article", row.Article),
				zap.Float64("price", row.Price),
				zap.Int64("stock", row.Stock),
			)
			continue
		}
		if _, dup := seen[article]; dup {
			result.Skipped++
			continue
		}
		seen[article] = struct{}{}
		products = append(products, &entity.Product{
			Article: article,
			Name:    name,
			Price:   int64(math.Round(row.Price * 100)),
			Stock:   row.Stock,
		})
	}

	created, updated, err := s.repo.Upsert(ctx, products, s.clock.Now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return SyncResult{}, errorbank.Internal("failed to upsert catalog", errorbank.WithCause(err))
	}
	result.Created = created
	result.Updated = updated

	s.invalidateCache(ctx)
	s.logger.Info("catalog synced",
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *Service) cacheKey(article string) string {
	return cachePrefix + "article:" + article
}

func (s *Service) getFromCache(ctx context.Context, article string) (*entity.Product, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(article))
	if err != nil {
		return nil, err
	}
	var product entity.Product
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Service) storeInCache(ctx context.Context, product *entity.Product) error {
	if s.cache == nil || product == nil {
		return nil
	}
	raw, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(product.Article), raw, s.cacheTTL)
}

func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
