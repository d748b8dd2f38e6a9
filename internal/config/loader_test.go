package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/openlot/settlement/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.CacheEnabled, convey.ShouldBeTrue)
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.OracleTimeoutMS, convey.ShouldEqual, 500)
				convey.So(cfg.FraudThreshold, convey.ShouldEqual, 0.5)
				convey.So(cfg.MaxBidsPerBidder, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SETTLE_CACHE_TTL_SECONDS", "120")
			_ = os.Setenv("SETTLE_ORACLE_TIMEOUT_MS", "250")
			_ = os.Setenv("SETTLE_FRAUD_THRESHOLD", "0.8")
			_ = os.Setenv("SETTLE_KYC_REQUIRED", "true")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 120)
				convey.So(cfg.OracleTimeoutMS, convey.ShouldEqual, 250)
				convey.So(cfg.FraudThreshold, convey.ShouldEqual, 0.8)
				convey.So(cfg.KYCRequired, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
log_level: "debug"
cache_enabled: false
cache_ttl_seconds: 30
oracle_timeout_ms: 750
disabled_rules:
  - kyc
  - geographic
blocked_regions:
  - XX
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SETTLE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.CacheEnabled, convey.ShouldBeFalse)
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 30)
				convey.So(cfg.OracleTimeoutMS, convey.ShouldEqual, 750)
				convey.So(cfg.DisabledRules, convey.ShouldResemble, []string{"kyc", "geographic"})
				convey.So(cfg.BlockedRegions, convey.ShouldResemble, []string{"XX"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
cache_ttl_seconds: 30
oracle_timeout_ms: 750
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SETTLE_CONFIG", tmpFile)
			_ = os.Setenv("SETTLE_CACHE_TTL_SECONDS", "90") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 90)  // Overridden by env
				convey.So(cfg.OracleTimeoutMS, convey.ShouldEqual, 750) // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			invalidYaml := `invalid: yaml: content: [`
			tmpFile := createTempConfigFile(invalidYaml)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SETTLE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SETTLE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a zero cache TTL", func() {
			_ = os.Setenv("SETTLE_CACHE_TTL_SECONDS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "cache_ttl_seconds must be positive")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an out-of-range fraud threshold", func() {
			_ = os.Setenv("SETTLE_FRAUD_THRESHOLD", "1.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "fraud_threshold must be in [0,1]")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a partial YAML file", func() {
			yamlContent := `
log_level: "warn"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SETTLE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should merge with defaults for missing fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn") // From file
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.OracleTimeoutMS, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SETTLE_CACHE_TTL_SECONDS", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

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
		"SETTLE_CONFIG",
		"SETTLE_LOG_LEVEL",
		"SETTLE_CACHE_ENABLED",
		"SETTLE_CACHE_TTL_SECONDS",
		"SETTLE_ORACLE_TIMEOUT_MS",
		"SETTLE_FRAUD_THRESHOLD",
		"SETTLE_KYC_REQUIRED",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "settlement-config-*.yaml")
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
