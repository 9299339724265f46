package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/repute/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverSQLite)
				convey.So(cfg.VerifyCron, convey.ShouldEqual, "0 0 6 1 * *")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("REPUTE_ADDR", ":8080")
			_ = os.Setenv("REPUTE_VERIFY_BATCH_SIZE", "10")
			_ = os.Setenv("REPUTE_SHRINKAGE", "0.9")
			_ = os.Setenv("REPUTE_RATING_MULTIPLIERS__STRONG", "1.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.VerifyBatchSize, convey.ShouldEqual, 10)
				convey.So(cfg.Shrinkage, convey.ShouldEqual, 0.9)
				convey.So(cfg.RatingMultipliers["strong"], convey.ShouldEqual, 1.5)
				convey.So(cfg.RatingMultipliers["moderate"], convey.ShouldEqual, 0.8)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
# engine tuning
addr: ":9090"
store_driver: memory
verify_page_size: 500
debate_workers: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("REPUTE_CONFIG", tmpFile)
			_ = os.Setenv("REPUTE_DEBATE_WORKERS", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.VerifyPageSize, convey.ShouldEqual, 500)
				convey.So(cfg.DebateWorkers, convey.ShouldEqual, 8)
				convey.So(cfg.VerifyBatchSize, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When an explicit path is given", func() {
			tmpFile := createTempConfigFile("log_level: debug\n")
			defer func() { _ = os.Remove(tmpFile) }()
			clearConfigEnvVars()

			cfg, err := config.Load(ctx, tmpFile)

			convey.Convey("Then it is used without REPUTE_CONFIG", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("REPUTE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("REPUTE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("REPUTE_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an out of range shrinkage", func() {
			_ = os.Setenv("REPUTE_SHRINKAGE", "1.2")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("REPUTE_VERIFY_BATCH_SIZE", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"REPUTE_CONFIG",
		"REPUTE_ADDR",
		"REPUTE_VERIFY_BATCH_SIZE",
		"REPUTE_SHRINKAGE",
		"REPUTE_RATING_MULTIPLIERS__STRONG",
		"REPUTE_DEBATE_WORKERS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "repute-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
