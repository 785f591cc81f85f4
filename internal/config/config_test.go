package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "POSTGRESQL_HOST", "POSTGRESQL_USER", "POSTGRESQL_DBNAME",
		"GATEWAY_BASE_URL", "BOT_PLATFORM", "TELEGRAM_BOT_TOKEN", "DISCORD_BOT_TOKEN",
		"SESSION_IDLE_TIMEOUT", "DASHBOARD_CACHE_TTL", "DASHBOARD_SCAN_LIMIT",
		"RATE_LIMIT_LIMIT", "RATE_LIMIT_PERIOD", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func TestValidate_ListsEveryMissingVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_PLATFORM", "telegram")

	err := fromEnv().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "GATEWAY_BASE_URL")
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestValidate_DiscordNeedsDiscordToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/disaster")
	t.Setenv("GATEWAY_BASE_URL", "http://localhost:8080")
	t.Setenv("BOT_PLATFORM", "Discord")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-token")

	err := fromEnv().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_BOT_TOKEN")
	assert.NotContains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
}

func TestValidate_UnknownPlatform(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/disaster")
	t.Setenv("GATEWAY_BASE_URL", "http://localhost:8080")
	t.Setenv("BOT_PLATFORM", "irc")

	err := fromEnv().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_PLATFORM")
}

func TestValidate_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/disaster")
	t.Setenv("GATEWAY_BASE_URL", "not a url")
	t.Setenv("BOT_PLATFORM", "telegram")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-token")
	t.Setenv("SESSION_IDLE_TIMEOUT", "soon")

	cfg := fromEnv()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_IDLE_TIMEOUT")
	assert.Contains(t, err.Error(), "GATEWAY_BASE_URL")
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGRESQL_HOST", "db")
	t.Setenv("POSTGRESQL_USER", "app")
	t.Setenv("POSTGRESQL_DBNAME", "disaster")
	t.Setenv("GATEWAY_BASE_URL", "https://gateway.example.com/")
	t.Setenv("BOT_PLATFORM", "telegram")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tg-token")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com, https://b.example.com ,")

	cfg := fromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "postgres://app:@db:5432/disaster?sslmode=disable", cfg.DatabaseURL)
	assert.Equal(t, "https://gateway.example.com", cfg.GatewayBaseURL)
	assert.Equal(t, "tg-token", cfg.BotToken())
	assert.Equal(t, 10*time.Second, cfg.DashboardCacheTTL)
	assert.Equal(t, 1000, cfg.DashboardScanLimit)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}
