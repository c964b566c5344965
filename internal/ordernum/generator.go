// Package ordernum produces human-readable order numbers from a durable
// global counter.
package ordernum

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/nordwell/ordercore/pkg/clock"
)

// Counter is an atomically incrementable, durable sequence. Next must be
// a single fetch-and-increment, never a read-then-write pair.
type Counter interface {
	Next(ctx context.Context) (int64, error)
}

// Module provides the Generator to the Fx graph.
var Module = fx.Provide(NewGenerator)

// Generator formats order numbers as ORD-<year>-<sequence>. The sequence
// comes from one global counter shared across years; only the year label
// changes on rollover.
type Generator struct {
	counter Counter
	clock   clock.Clock
}

// Params defines dependencies for constructing Generator.
type Params struct {
	fx.In

	Counter Counter
	Clock   clock.Clock
}

// NewGenerator wires a Generator.
func NewGenerator(p Params) *Generator {
	return &Generator{counter: p.Counter, clock: p.Clock}
}

// Next returns the next unique order number. Uniqueness holds under
// concurrent callers because the counter increment is atomic.
func (g *Generator) Next(ctx context.Context) (string, error) {
	seq, err := g.counter.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return fmt.Sprintf("ORD-%d-%04d", g.clock.Now().Year(), seq), nil
}
