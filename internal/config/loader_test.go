package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/mouton/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"MOUTON_CONFIG",
		"MOUTON_LOG_LEVEL",
		"MOUTON_ADDR",
		"MOUTON_SYNC_BACKEND",
		"MOUTON_NATS_URL",
		"MOUTON_QUEUE_SIZE",
		"MOUTON_DEDUPE_SIZE",
		"MOUTON_PRESENCE_TTL_SECONDS",
		"MOUTON_LOCALE",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "mouton-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	_ = f.Close()
	return f.Name()
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.SyncBackend, convey.ShouldEqual, "memory")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 4096)
				convey.So(cfg.PresenceTTLSeconds, convey.ShouldEqual, 10)
				convey.So(cfg.Locale, convey.ShouldEqual, "fr")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MOUTON_ADDR", ":8080")
			_ = os.Setenv("MOUTON_SYNC_BACKEND", "nats")
			_ = os.Setenv("MOUTON_NATS_URL", "nats://nats.example:4222")
			_ = os.Setenv("MOUTON_QUEUE_SIZE", "2048")
			_ = os.Setenv("MOUTON_LOCALE", "es_mx")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SyncBackend, convey.ShouldEqual, "nats")
				convey.So(cfg.NATSURL, convey.ShouldEqual, "nats://nats.example:4222")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 2048)
				convey.So(cfg.Locale, convey.ShouldEqual, "es_mx")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 512
dedupe_size: 1024
presence_ttl_seconds: 5
locale: "en"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("MOUTON_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 512)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 1024)
				convey.So(cfg.PresenceTTLSeconds, convey.ShouldEqual, 5)
				convey.So(cfg.Locale, convey.ShouldEqual, "en")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 512
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("MOUTON_CONFIG", tmpFile)
			_ = os.Setenv("MOUTON_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars take precedence over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 512)
			})
		})

		convey.Convey("When configuration is invalid", func() {
			_ = os.Setenv("MOUTON_SYNC_BACKEND", "postgres")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails with an invalid-config error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
