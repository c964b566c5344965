// Package tracking generates shipment tracking numbers.
package tracking

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"go.uber.org/fx"

	"github.com/nordwell/ordercore/pkg/clock"
)

// Module provides the Generator to the Fx graph.
var Module = fx.Provide(NewGenerator)

// Generator produces tracking numbers of the form TRACK-YYYYMMDD-XXXXXX
// with a random six-digit suffix.
type Generator struct {
	clock clock.Clock
}

// NewGenerator wires a Generator.
func NewGenerator(c clock.Clock) *Generator {
	return &Generator{clock: c}
}

// Next returns a fresh tracking number.
func (g *Generator) Next() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read only fails when the OS entropy source is
		// broken; nothing sensible to do but panic.
		panic(fmt.Sprintf("tracking: read random: %v", err))
	}
	suffix := binary.BigEndian.Uint64(buf[:]) % 1_000_000
	return fmt.Sprintf("TRACK-%s-%06d", g.clock.Now().Format("20060102"), suffix)
}
