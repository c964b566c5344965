package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/nordwell/ordercore/internal/repository"
	"github.com/nordwell/ordercore/pkg/clock"
	"github.com/nordwell/ordercore/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/nordwell/ordercore/service/dashboard")

const cachePrefix = "dashboard:"

// Stats is the assembled dashboard snapshot for one reporting period.
type Stats struct {
	PeriodDays      int                        `json:"period_days"`
	Orders          int                        `json:"orders"`
	Revenue         int64                      `json:"revenue"`
	StatusCounts    map[entity.OrderStatus]int `json:"status_counts"`
	ChannelCounts   map[entity.Channel]int     `json:"channel_counts"`
	TopProducts     []repository.ProductStat   `json:"top_products"`
	DailyRevenue    []repository.DayRevenue    `json:"daily_revenue"`
	RepeatCustomers int                        `json:"repeat_customers"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

// Service assembles order statistics for the admin dashboard. Snapshots
// are cached per period because every query hits the orders table.
type Service struct {
	repo     repository.Dashboard
	cache    cache.Store
	cacheTTL time.Duration
	clock    clock.Clock
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository repository.Dashboard
	Cache      cache.Store
	Config     config.Config
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:     p.Repository,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		clock:    p.Clock,
		logger:   p.Logger,
	}
}

// Stats returns the dashboard snapshot covering the last days days.
func (s *Service) Stats(ctx context.Context, days int) (*Stats, error) {
	ctx, span := serviceTracer.Start(ctx, "DashboardService.Stats", trace.WithAttributes(attribute.Int("dashboard.days", days)))
	defer span.End()

	if days <= 0 {
		days = 30
	}

	key := fmt.Sprintf("%sstats:%d", cachePrefix, days)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var cached Stats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	now := s.clock.Now()
	from := now.AddDate(0, 0, -days)

	stats := &Stats{PeriodDays: days, GeneratedAt: now}

	var err error
	stats.Orders, stats.Revenue, err = s.repo.Totals(ctx, from, now)
	if err != nil {
		return nil, s.fail(span, "totals", err)
	}
	stats.StatusCounts, err = s.repo.StatusCounts(ctx)
	if err != nil {
		return nil, s.fail(span, "status counts", err)
	}
	stats.ChannelCounts, err = s.repo.ChannelCounts(ctx, from)
	if err != nil {
		return nil, s.fail(span, "channel counts", err)
	}
	stats.TopProducts, err = s.repo.TopProducts(ctx, from, 10)
	if err != nil {
		return nil, s.fail(span, "top products", err)
	}
	stats.DailyRevenue, err = s.repo.DailyRevenue(ctx, days)
	if err != nil {
		return nil, s.fail(span, "daily revenue", err)
	}
	stats.RepeatCustomers, err = s.repo.RepeatCustomers(ctx)
	if err != nil {
		return nil, s.fail(span, "repeat customers", err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// Invalidate drops all cached dashboard snapshots.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) fail(span trace.Span, what string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, what+" query failed")
	return errorbank.Internal("failed to load dashboard "+what, errorbank.WithCause(err))
}
