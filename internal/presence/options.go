package presence

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithTTL sets how long a presence signal stays fresh. Non-positive values
// are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithClock substitutes the clock, primarily for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}
