// Package config defines process configuration and its loading hooks.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the operational HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SyncBackend selects the sync client: "memory" or "nats".
	SyncBackend string `koanf:"sync_backend"`

	// NATSURL points at the NATS server when SyncBackend is "nats".
	NATSURL string `koanf:"nats_url"`

	// QueueSize bounds the in-memory change queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets the size of the resolution dedupe cache.
	DedupeSize int `koanf:"dedupe_size"`

	// PresenceTTLSeconds bounds how long a typing signal stays fresh.
	PresenceTTLSeconds int `koanf:"presence_ttl_seconds"`

	// Locale picks the prompt language shown by the demo tooling.
	Locale string `koanf:"locale"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		SyncBackend:        "memory",
		NATSURL:            "nats://127.0.0.1:4222",
		QueueSize:          1024,
		DedupeSize:         4096,
		PresenceTTLSeconds: 10,
		Locale:             "fr",
	}
}
