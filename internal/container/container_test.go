package container

import (
	"testing"

	"hamsterhub/internal/services"

	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFillsDefaults(t *testing.T) {
	t.Setenv("API_MODE", "")
	t.Setenv("API_ORIGINS", "")
	t.Setenv("BOT_API_KEY", "k")

	injector := New(map[string]string{"DB_DSN": "postgres://localhost/hamster", "SESSION_SECRET": "s"})
	vs := do.MustInvokeNamed[map[string]string](injector, "envs")

	assert.Equal(t, "production", vs["API_MODE"])
	assert.Equal(t, "*", vs["API_ORIGINS"])
	assert.Equal(t, "k", vs["BOT_API_KEY"])
}

func TestNewProvidesOfflineServices(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	t.Setenv("AUDIT_WEBHOOK_URL", "")

	injector := New(map[string]string{"DB_DSN": "postgres://localhost/hamster", "SESSION_SECRET": "s"})

	bot, err := do.Invoke[*services.Bot](injector)
	require.NoError(t, err)
	assert.False(t, bot.Enabled())

	_, err = do.Invoke[*services.Authentication](injector)
	require.NoError(t, err)

	_, err = do.Invoke[*services.AuditWebhook](injector)
	require.NoError(t, err)
}

func TestGetenvFallback(t *testing.T) {
	t.Setenv("REDIS_LIMITER", "")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	assert.Equal(t, "redis://cache:6379/1", getenv("REDIS_LIMITER", "REDIS_URL"))
}
