package dashboard

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/nordwell/ordercore/internal/database"
	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/repository"
)

var repoTracer = otel.Tracer("github.com/nordwell/ordercore/repository/dashboard")

// Repository runs read-only aggregate queries over orders. It only ever
// touches the read replica.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a repository on the reader connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// Totals returns order count and revenue for orders created in [from, to).
// Cancelled orders do not count towards revenue.
func (r *Repository) Totals(ctx context.Context, from, to time.Time) (int, int64, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.Totals")
	defer span.End()

	var row struct {
		Orders  int   `bun:"orders_count"`
		Revenue int64 `bun:"revenue"`
	}
	err := r.reader.NewRaw(`
		SELECT COUNT(*) AS orders_count,
		       COALESCE(SUM(total_amount) FILTER (WHERE status != ?), 0) AS revenue
		FROM orders
		WHERE created_at >= ? AND created_at < ?`,
		entity.StatusCancelled, from, to,
	).Scan(ctx, &row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return 0, 0, err
	}
	return row.Orders, row.Revenue, nil
}

// StatusCounts returns the number of orders currently in each status.
func (r *Repository) StatusCounts(ctx context.Context) (map[entity.OrderStatus]int, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.StatusCounts")
	defer span.End()

	var rows []struct {
		Status entity.OrderStatus `bun:"status"`
		Count  int                `bun:"orders_count"`
	}
	err := r.reader.NewRaw(`
		SELECT status, COUNT(*) AS orders_count
		FROM orders
		GROUP BY status`,
	).Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}

	counts := make(map[entity.OrderStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// ChannelCounts returns order counts per origin channel since from.
func (r *Repository) ChannelCounts(ctx context.Context, from time.Time) (map[entity.Channel]int, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.ChannelCounts")
	defer span.End()

	var rows []struct {
		Channel entity.Channel `bun:"channel"`
		Count   int            `bun:"orders_count"`
	}
	err := r.reader.NewRaw(`
		SELECT channel, COUNT(*) AS orders_count
		FROM orders
		WHERE created_at >= ?
		GROUP BY channel`,
		from,
	).Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}

	counts := make(map[entity.Channel]int, len(rows))
	for _, row := range rows {
		counts[row.Channel] = row.Count
	}
	return counts, nil
}

// TopProducts returns the best-selling articles since from, ranked by
// quantity sold. Snapshotted item rows are the source, so renamed or
// repriced products keep their historical identity.
func (r *Repository) TopProducts(ctx context.Context, from time.Time, limit int) ([]repository.ProductStat, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.TopProducts")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	var stats []repository.ProductStat
	err := r.reader.NewRaw(`
		SELECT oi.article, oi.product_name,
		       SUM(oi.quantity) AS total_quantity,
		       SUM(oi.total) AS total_revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= ? AND o.status != ?
		GROUP BY oi.article, oi.product_name
		ORDER BY total_quantity DESC
		LIMIT ?`,
		from, entity.StatusCancelled, limit,
	).Scan(ctx, &stats)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	return stats, nil
}

// DailyRevenue returns per-day order counts and revenue for the last
// days days, oldest first.
func (r *Repository) DailyRevenue(ctx context.Context, days int) ([]repository.DayRevenue, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.DailyRevenue")
	defer span.End()

	if days <= 0 {
		days = 30
	}
	var rows []repository.DayRevenue
	err := r.reader.NewRaw(`
		SELECT date_trunc('day', created_at) AS day,
		       COUNT(*) AS orders_count,
		       COALESCE(SUM(total_amount) FILTER (WHERE status != ?), 0) AS revenue
		FROM orders
		WHERE created_at >= now() - (? * interval '1 day')
		GROUP BY day
		ORDER BY day ASC`,
		entity.StatusCancelled, days,
	).Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}
	return rows, nil
}

// RepeatCustomers counts phones that placed more than one order.
func (r *Repository) RepeatCustomers(ctx context.Context) (int, error) {
	ctx, span := repoTracer.Start(ctx, "DashboardRepository.RepeatCustomers")
	defer span.End()

	var count int
	err := r.reader.NewRaw(`
		SELECT COUNT(*) FROM (
			SELECT customer_phone
			FROM orders
			WHERE customer_phone IS NOT NULL
			GROUP BY customer_phone
			HAVING COUNT(*) > 1
		) repeats`,
	).Scan(ctx, &count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return 0, err
	}
	return count, nil
}
