package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("IRIS_SERVER__ADDRESS", ":9090")
	t.Setenv("IRIS_SERVER__READ_TIMEOUT", "10s")
	t.Setenv("IRIS_LOGGING__LEVEL", "debug")
	t.Setenv("IRIS_SERVICE__NAME", "iris-staging")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "iris-staging", cfg.Service.Name)

	// Untouched values keep their defaults.
	assert.Equal(t, Default().Server.WriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, Default().Metrics.MaxSeries, cfg.Metrics.MaxSeries)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
service:
  name: iris-prod
  environment: production
server:
  address: ":9000"
  body_limit: 2048
metrics:
  buckets: [0.1, 0.5, 1]
  max_series: 500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "iris-prod", cfg.Service.Name)
	assert.Equal(t, "production", cfg.Service.Environment)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 2048, cfg.Server.BodyLimit)
	assert.Equal(t, []float64{0.1, 0.5, 1}, cfg.Metrics.Buckets)
	assert.Equal(t, 500, cfg.Metrics.MaxSeries)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9000\"\n"), 0o600))

	t.Setenv("IRIS_SERVER__ADDRESS", ":7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty address",
			mutate:  func(c *Config) { c.Server.Address = "  " },
			wantErr: "server address",
		},
		{
			name:    "empty buckets",
			mutate:  func(c *Config) { c.Metrics.Buckets = nil },
			wantErr: "buckets must not be empty",
		},
		{
			name:    "descending buckets",
			mutate:  func(c *Config) { c.Metrics.Buckets = []float64{1, 0.5} },
			wantErr: "strictly ascending",
		},
		{
			name:    "duplicate buckets",
			mutate:  func(c *Config) { c.Metrics.Buckets = []float64{0.5, 0.5} },
			wantErr: "strictly ascending",
		},
		{
			name:    "non-positive max series",
			mutate:  func(c *Config) { c.Metrics.MaxSeries = 0 },
			wantErr: "max_series",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
