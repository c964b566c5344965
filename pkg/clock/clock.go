// Package clock abstracts wall-clock time so components that stamp
// records can be tested deterministically.
package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock yields the current time.
type Clock interface {
	Now() time.Time
}

// Module provides the system clock to the Fx graph.
var Module = fx.Provide(System)

// System returns a Clock backed by time.Now in UTC.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
