// Package queue provides the bounded change-notification queue.
package queue

type queueConfig struct {
	capacity int
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*queueConfig)

// WithCapacity sets the maximum number of buffered change notifications.
func WithCapacity(capacity int) Option {
	return func(c *queueConfig) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}
