package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Gate enforces a global minimum interval between provider requests.
// Concurrent callers serialize through Wait: the mutex is held for the
// remaining sleep so that no caller can slip past the interval. The gate
// owns its clock, so independent Geocoder instances (and tests) never share
// throttle state.
type Gate struct {
	interval time.Duration
	clock    clockwork.Clock

	mu   sync.Mutex
	last time.Time
}

// NewGate creates a throttle gate with the given minimum inter-request
// interval. A nil clock falls back to the real one.
func NewGate(interval time.Duration, clock clockwork.Clock) *Gate {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Gate{interval: interval, clock: clock}
}

// Wait blocks until at least the configured interval has passed since the
// previous successful Wait, or the context is cancelled.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		if remaining := g.interval - g.clock.Since(g.last); remaining > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-g.clock.After(remaining):
			}
		}
	}
	g.last = g.clock.Now()
	return nil
}
