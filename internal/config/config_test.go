package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	cfg := FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "telecomstore", cfg.DBName)
	assert.Equal(t, 20*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "9", cfg.MSISDNPrefix)
	assert.False(t, cfg.SMSSandbox)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OTP_TTL", "3")
	t.Setenv("OTP_MAX_ATTEMPTS", "2")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("SMS_SANDBOX", "true")
	t.Setenv("ACCESS_TOKEN_TTL", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, 3*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 2, cfg.OTPMaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.LogPretty)
	assert.True(t, cfg.SMSSandbox)
	assert.Equal(t, 20*time.Minute, cfg.AccessTokenTTL)
}

func TestValidateListsMissingKeys(t *testing.T) {
	cfg := Config{OTPMaxAttempts: 1, MSISDNPrefix: "0"}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI is required")
	assert.Contains(t, err.Error(), "JWT_SECRET is required")
	assert.Contains(t, err.Error(), "MSISDN_PREFIX")
}
