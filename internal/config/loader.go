package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if SETTLE_CONFIG is set
//  3. env (prefix SETTLE_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("SETTLE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: SETTLE_CACHE_TTL_SECONDS, SETTLE_LOG_LEVEL, ...
	// Map env keys like SETTLE_CACHE_TTL_SECONDS -> cache_ttl_seconds (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SETTLE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "settle_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configurations the core cannot run with.
func (c *Config) validate() error {
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	}
	if c.OracleTimeoutMS <= 0 {
		return fmt.Errorf("%w: oracle_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.FraudThreshold < 0 || c.FraudThreshold > 1 {
		return fmt.Errorf("%w: fraud_threshold must be in [0,1]", ErrInvalidConfig)
	}
	if c.EventBusCapacity <= 0 {
		return fmt.Errorf("%w: event_bus_capacity must be positive", ErrInvalidConfig)
	}
	return nil
}
