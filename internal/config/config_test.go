package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADMIN_COOKIE_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("MATCH_WINDOW_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "workshops_admin", cfg.AdminCookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.MatchWindow)
	assert.Equal(t, "grow", cfg.WebhookSource)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADMIN_COOKIE_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("MATCH_WINDOW_HOURS", "48")
	t.Setenv("PAYMENTS_API_URL", " https://pay.example.com/api/ ")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 48*time.Hour, cfg.MatchWindow)
	assert.Equal(t, "https://pay.example.com/api", cfg.PaymentsAPIURL)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoad_MissingCookieSecret(t *testing.T) {
	t.Setenv("ADMIN_COOKIE_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingCookieSecret)
}

func TestConfig_AmountScale(t *testing.T) {
	assert.Equal(t, int64(1), (&Config{AmountUnit: "major"}).AmountScale())
	assert.Equal(t, int64(100), (&Config{AmountUnit: "Minor"}).AmountScale())
	assert.Equal(t, int64(1), (&Config{}).AmountScale())
}
