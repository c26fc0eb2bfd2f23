package natskv

import (
	"github.com/nats-io/nats.go"
)

// clientConfig holds configuration for the NATS-backed client.
type clientConfig struct {
	url            string
	bucketPrefix   string
	presencePrefix string
	changeBuffer   int
	presenceBuffer int
	natsOpts       []nats.Option
	conn           *nats.Conn
}

// Option configures the client.
type Option func(*clientConfig)

// WithURL sets the NATS server URL.
func WithURL(url string) Option {
	return func(cfg *clientConfig) {
		if url != "" {
			cfg.url = url
		}
	}
}

// WithBucketPrefix sets the key-value bucket name prefix. Useful for
// running several isolated engines against one server.
func WithBucketPrefix(prefix string) Option {
	return func(cfg *clientConfig) {
		if prefix != "" {
			cfg.bucketPrefix = prefix
		}
	}
}

// WithPresencePrefix sets the subject prefix for presence broadcasts.
func WithPresencePrefix(prefix string) Option {
	return func(cfg *clientConfig) {
		if prefix != "" {
			cfg.presencePrefix = prefix
		}
	}
}

// WithChangeBuffer sets the change subscription channel capacity.
func WithChangeBuffer(n int) Option {
	return func(cfg *clientConfig) {
		if n > 0 {
			cfg.changeBuffer = n
		}
	}
}

// WithPresenceBuffer sets the presence subscription channel capacity.
func WithPresenceBuffer(n int) Option {
	return func(cfg *clientConfig) {
		if n > 0 {
			cfg.presenceBuffer = n
		}
	}
}

// WithNATSOptions appends extra connection options (auth, TLS).
func WithNATSOptions(opts ...nats.Option) Option {
	return func(cfg *clientConfig) {
		cfg.natsOpts = append(cfg.natsOpts, opts...)
	}
}

// WithConn reuses an existing connection instead of dialing. The client
// still closes it on Close.
func WithConn(nc *nats.Conn) Option {
	return func(cfg *clientConfig) {
		cfg.conn = nc
	}
}
