// Package config loads scout-server configuration by layering defaults,
// an optional YAML file, and SCOUT_-prefixed environment variables.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains scout-server process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MapsAPIKey enables geocoding (and the map page) when set.
	MapsAPIKey string `koanf:"maps_api_key"`

	// GeminiAPIKey enables AI report summaries when set.
	GeminiAPIKey string `koanf:"gemini_api_key"`
	GeminiModel  string `koanf:"gemini_model"`

	// CacheDir persists collaborator responses between restarts. Empty
	// keeps the cache memory-only.
	CacheDir string `koanf:"cache_dir"`

	// Deployment coordinates for sunset lookups; the sales territory is
	// fixed per deployment.
	Latitude  float64 `koanf:"latitude"`
	Longitude float64 `koanf:"longitude"`

	// CallIntervalMS is the minimum delay between external service calls.
	CallIntervalMS int `koanf:"call_interval_ms"`

	// RateLimitPerMinute caps uploads per client IP.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
}

// defaults returns the baseline configuration.
func defaults() *Config {
	return &Config{
		Addr:               ":8080",
		LogLevel:           "info",
		GeminiModel:        "gemini-2.5-flash-lite",
		Latitude:           44.9778,
		Longitude:          -93.2650,
		CallIntervalMS:     250,
		RateLimitPerMinute: 15,
	}
}

// Load builds a Config. Order of precedence (low -> high):
//  1. defaults
//  2. YAML file (path argument, or SCOUT_CONFIG)
//  3. env vars with prefix SCOUT_ (SCOUT_ADDR, SCOUT_MAPS_API_KEY, ...)
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("SCOUT_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	envProvider := env.Provider("SCOUT_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "scout_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, errors.New("rate_limit_per_minute must be positive")
	}
	return &cfg, nil
}
