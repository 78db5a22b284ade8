package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"WARDEN_ADDR", "SESSION_BACKEND", "SESSION_TTL", "OTP_TTL",
		"OTP_MAX_ATTEMPTS", "PASSWORD_RESET_TTL", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.PasswordResetTTL)
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("WARDEN_ADDR", ":9090")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("BOOTSTRAP_ADMIN_EMAIL", "root@example.com")
	t.Setenv("BOOTSTRAP_ADMIN_PASSWORD", "s3cret-pass")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, BackendRedis, cfg.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.OTPMaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.Bootstrap.Enabled())
}

func TestFromEnvInvalidDurationFallsBack(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("OTP_TTL", "ten minutes")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultOTPTTL, cfg.OTPTTL)
}

func TestFromEnvRejectsBackendWithoutURL(t *testing.T) {
	t.Run("Given postgres backend When DATABASE_URL missing Then error", func(t *testing.T) {
		t.Setenv("SESSION_BACKEND", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("Given unknown backend Then error", func(t *testing.T) {
		t.Setenv("SESSION_BACKEND", "etcd")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("Given non-positive attempts Then error", func(t *testing.T) {
		t.Setenv("SESSION_BACKEND", "")
		t.Setenv("OTP_MAX_ATTEMPTS", "0")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
