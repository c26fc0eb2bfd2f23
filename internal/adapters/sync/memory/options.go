// Package memory implements the sync boundary in-process.
package memory

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithChangeBuffer sets the per-subscriber change channel capacity.
func WithChangeBuffer(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.changeBuffer = size
		}
	}
}

// WithPresenceBuffer sets the per-subscriber presence channel capacity.
func WithPresenceBuffer(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.presenceBuffer = size
		}
	}
}
