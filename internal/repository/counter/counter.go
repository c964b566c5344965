// Package counter implements the durable order-number sequence.
package counter

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/nordwell/ordercore/internal/database"
	"github.com/nordwell/ordercore/internal/ordernum"
)

const counterName = "order_number"

// Module provides the counter as the order-number sequence.
var Module = fx.Provide(
	fx.Annotate(NewCounter, fx.As(new(ordernum.Counter))),
)

// Counter increments the order_counters row with a single UPDATE so the
// fetch-and-increment is atomic under concurrent order creation.
type Counter struct {
	db *bun.DB
}

// NewCounter wires a Counter on the writer connection.
func NewCounter(conns *database.Connections) *Counter {
	return &Counter{db: conns.Writer}
}

// Next returns the next sequence value.
func (c *Counter) Next(ctx context.Context) (int64, error) {
	var value int64
	err := c.db.NewRaw(
		"UPDATE order_counters SET value = value + 1 WHERE name = ? RETURNING value",
		counterName,
	).Scan(ctx, &value)
	if err != nil {
		return 0, fmt.Errorf("increment %s counter: %w", counterName, err)
	}
	return value, nil
}
