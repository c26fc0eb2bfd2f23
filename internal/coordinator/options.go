package coordinator

import (
	"github.com/okian/mouton/internal/domain/types"
	"github.com/okian/mouton/pkg/logger"
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithResolutionBuffer sets the resolution channel capacity. Non-positive
// values are ignored.
func WithResolutionBuffer(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.resolutions = make(chan types.Resolution, n)
		}
	}
}

// WithLogger substitutes the coordinator's logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}
