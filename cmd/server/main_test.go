package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/disaster-backend/internal/config"
	"github.com/ignatzorin/disaster-backend/internal/transport/discord"
	"github.com/ignatzorin/disaster-backend/internal/transport/telegram"
)

func TestVersionCmd(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.2.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "disaster-server 1.2.0 (commit: abc123, built: 2026-01-01)\n", buf.String())
}

func TestRootCmdRegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"serve", "migrate", "version"} {
		found, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, found.Name())
	}

	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("skip-migrations"))
}

func TestServeFailsOnMissingConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRESQL_HOST", "")
	t.Setenv("GATEWAY_BASE_URL", "")
	t.Setenv("BOT_PLATFORM", "telegram")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
	assert.Contains(t, err.Error(), "GATEWAY_BASE_URL")
}

func TestNewChatAdapter(t *testing.T) {
	adapter, err := newChatAdapter(&config.Config{BotPlatform: config.PlatformTelegram, TelegramBotToken: "token"})
	require.NoError(t, err)
	assert.IsType(t, &telegram.Adapter{}, adapter)

	adapter, err = newChatAdapter(&config.Config{BotPlatform: config.PlatformDiscord, DiscordBotToken: "token"})
	require.NoError(t, err)
	assert.IsType(t, &discord.Adapter{}, adapter)

	_, err = newChatAdapter(&config.Config{BotPlatform: "matrix"})
	assert.Error(t, err)

	_, err = newChatAdapter(&config.Config{BotPlatform: config.PlatformTelegram})
	assert.Error(t, err)
}
