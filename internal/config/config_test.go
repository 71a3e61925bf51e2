package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SEMAS_ENV", "test")
	t.Setenv("SEMAS_HTTP_ADDR", "")
	t.Setenv("SEMAS_DIRECTORY_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "memory", cfg.Directory.Driver)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TokenTTL)
	assert.False(t, cfg.Session.UnifiedDirectory)
	assert.Equal(t, int64(5*1024*1024), cfg.Avatar.MaxBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SEMAS_ENV", "test")
	t.Setenv("SEMAS_HTTP_ADDR", ":9090")
	t.Setenv("SEMAS_TOKEN_TTL", "2h")
	t.Setenv("SEMAS_UNIFIED_DIRECTORY", "true")
	t.Setenv("SEMAS_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 2*time.Hour, cfg.Session.TokenTTL)
	assert.True(t, cfg.Session.UnifiedDirectory)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory directory", func(c *Config) {}, false},
		{"sqlite without dsn", func(c *Config) { c.Directory.Driver = "sqlite" }, true},
		{"sqlite with dsn", func(c *Config) { c.Directory.Driver = "sqlite"; c.Directory.DSN = "file::memory:" }, false},
		{"unknown driver", func(c *Config) { c.Directory.Driver = "mongo" }, true},
		{"production default secret", func(c *Config) { c.Env = "production" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Env: "development"}
			cfg.Directory.Driver = "memory"
			cfg.Session.JWTSecret = "dev-secret-change-me"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
