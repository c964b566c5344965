package seeder

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nordwell/ordercore/internal/database"
	"github.com/nordwell/ordercore/internal/entity"
	"github.com/nordwell/ordercore/pkg/clock"
)

// Module provides the seeder.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	clock  clock.Clock
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, c clock.Clock, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, clock: c, logger: logger}
}

// Products seeds a handful of catalog products if they are missing.
// Prices are in minor currency units.
func (s *Seeder) Products(ctx context.Context) error {
	now := s.clock.Now()
	samples := []entity.Product{
		{Article: "TEA-001", Name: "Green tea 100g", Price: 45000, Stock: 120},
		{Article: "TEA-002", Name: "Black tea 100g", Price: 38000, Stock: 80},
		{Article: "MUG-010", Name: "Ceramic mug 300ml", Price: 69000, Stock: 35},
		{Article: "GIFT-100", Name: "Gift box small", Price: 150000, Stock: 12},
	}

	for _, sample := range samples {
		product := sample
		product.ID = uuid.New()
		product.CreatedAt = now
		product.UpdatedAt = now
		_, err := s.db.NewInsert().Model(&product).
			On("CONFLICT (article) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
	}

	s.logger.Info("seeded products", zap.Int("count", len(samples)))
	return nil
}
