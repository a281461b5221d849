package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Server.GetAddr())
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "public/images", cfg.Storage.ImagesDir)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.True(t, cfg.App.IsDevelopment())
}

func TestLoad_PortFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/site/data")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/site/data", cfg.Storage.DataDir)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "localhost:6380", cfg.Redis.GetAddr())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "port out of range",
			env:  map[string]string{"PORT": "70000"},
		},
		{
			name: "unknown session store",
			env:  map[string]string{"SESSION_STORE": "disk"},
		},
		{
			name: "bcrypt cost too high",
			env:  map[string]string{"BCRYPT_COST": "40"},
		},
		{
			name: "zero rate limit",
			env:  map[string]string{"RATE_LIMIT_REQUESTS": "0"},
		},
		{
			name: "trusted proxy not a range",
			env:  map[string]string{"TRUSTED_PROXIES": "10.0.0.1"},
		},
		{
			name: "default secret in production",
			env:  map[string]string{"APP_ENVIRONMENT": "production"},
		},
		{
			name: "short secret in production",
			env:  map[string]string{"APP_ENVIRONMENT": "production", "SESSION_SECRET": "too-short"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionWithStrongSecret(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "production")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsProduction())
}

func TestLoad_TrustedProxies(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Security.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.0.0/16")

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, cfg.Security.TrustedProxies)
}
