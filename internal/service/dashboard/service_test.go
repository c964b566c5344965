package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/config"
	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/internal/repository"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

type stubDashboard struct {
	totalsCalls int
}

func (s *stubDashboard) Totals(ctx context.Context, from, to time.Time) (int, int64, error) {
	s.totalsCalls++
	return 12, 450000, nil
}

func (s *stubDashboard) StatusCounts(context.Context) (map[entity.OrderStatus]int, error) {
	return map[entity.OrderStatus]int{entity.StatusNew: 3, entity.StatusShipped: 9}, nil
}

func (s *stubDashboard) ChannelCounts(context.Context, time.Time) (map[entity.Channel]int, error) {
	return map[entity.Channel]int{entity.ChannelChatBot: 7, entity.ChannelWebForm: 5}, nil
}

func (s *stubDashboard) TopProducts(context.Context, time.Time, int) ([]repository.ProductStat, error) {
	return []repository.ProductStat{{Article: "TEA-001", Name: "Green tea 100g", Quantity: 40, Revenue: 60000}}, nil
}

func (s *stubDashboard) DailyRevenue(context.Context, int) ([]repository.DayRevenue, error) {
	return []repository.DayRevenue{{Day: time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), Orders: 4, Revenue: 120000}}, nil
}

func (s *stubDashboard) RepeatCustomers(context.Context) (int, error) {
	return 2, nil
}

func TestStatsAssemblesSnapshot(t *testing.T) {
	repo := &stubDashboard{}
	svc := NewService(Params{
		Repository: repo,
		Cache:      nil,
		Config:     config.Config{},
		Clock:      fixedClock{t: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)},
		Logger:     zap.NewNop(),
	})

	stats, err := svc.Stats(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 30, stats.PeriodDays)
	assert.Equal(t, 12, stats.Orders)
	assert.Equal(t, int64(450000), stats.Revenue)
	assert.Equal(t, 3, stats.StatusCounts[entity.StatusNew])
	assert.Equal(t, 7, stats.ChannelCounts[entity.ChannelChatBot])
	require.Len(t, stats.TopProducts, 1)
	assert.Equal(t, "TEA-001", stats.TopProducts[0].Article)
	require.Len(t, stats.DailyRevenue, 1)
	assert.Equal(t, 2, stats.RepeatCustomers)
	assert.Equal(t, 1, repo.totalsCalls)
}
