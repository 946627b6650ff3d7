// Package config loads process configuration from defaults, an optional YAML
// file, and IRIS_-prefixed environment variables, in ascending priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the environment variable prefix. Sections are separated by a
// double underscore so keys may contain single underscores:
// IRIS_SERVER__READ_TIMEOUT maps to server.read_timeout.
const EnvPrefix = "IRIS_"

// Config is the full process configuration.
type Config struct {
	Service ServiceConfig `koanf:"service"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address      string        `koanf:"address"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	BodyLimit    int           `koanf:"body_limit"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig holds metrics settings. Buckets is the latency histogram
// ladder in seconds; it is a tuning input, not part of the metrics core.
type MetricsConfig struct {
	Buckets   []float64 `koanf:"buckets"`
	MaxSeries int       `koanf:"max_series"`
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			Name:        "iris-serving",
			Version:     "dev",
			Environment: "development",
		},
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			BodyLimit:    1 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			MaxSeries: 1000,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment variables. A missing file is only an error when the
// path was given explicitly.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformer), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise only fail deep inside the
// wiring.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("config: server address is required")
	}
	if len(c.Metrics.Buckets) == 0 {
		return errors.New("config: metrics buckets must not be empty")
	}
	for i := 1; i < len(c.Metrics.Buckets); i++ {
		if c.Metrics.Buckets[i-1] >= c.Metrics.Buckets[i] {
			return fmt.Errorf("config: metrics buckets must be strictly ascending, got %v after %v",
				c.Metrics.Buckets[i], c.Metrics.Buckets[i-1])
		}
	}
	if c.Metrics.MaxSeries <= 0 {
		return fmt.Errorf("config: metrics max_series must be positive, got %d", c.Metrics.MaxSeries)
	}
	return nil
}
