package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := NewFromEnv()
		require.NoError(t, err)

		assert.Equal(t, "data/mealmapp.db", cfg.DatabasePath)
		assert.Equal(t, "data/recipes", cfg.RecipeStoragePath)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, 8080, cfg.HTTPPort)
		assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
		assert.Equal(t, 4, cfg.DefaultServingsPerMeal)
		assert.Zero(t, cfg.PlannerSeed)
		assert.False(t, cfg.EstimatorEnabled())
		assert.False(t, cfg.GhostEnabled())
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("DATABASE_PATH", "/tmp/test.db")
		t.Setenv("HTTP_PORT", "9090")
		t.Setenv("GEMINI_API_KEY", "gemini_key")
		t.Setenv("TELEGRAM_BOT_TOKEN", "token")
		t.Setenv("TELEGRAM_WEBHOOK_URL", "https://bot.example.com/hook")
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "11, 22")
		t.Setenv("ADMIN_TELEGRAM_ID", "99")
		t.Setenv("PLANNER_SEED", "42")

		cfg, err := NewFromEnv()
		require.NoError(t, err)

		assert.Equal(t, "/tmp/test.db", cfg.DatabasePath)
		assert.Equal(t, 9090, cfg.HTTPPort)
		assert.True(t, cfg.EstimatorEnabled())
		assert.Equal(t, []int64{11, 22}, cfg.TelegramAllowedUserIDs)
		assert.Equal(t, int64(99), cfg.AdminTelegramID)
		assert.Equal(t, uint64(42), cfg.PlannerSeed)

		assert.True(t, cfg.IsAllowedTelegramUser(22))
		assert.True(t, cfg.IsAllowedTelegramUser(99))
		assert.False(t, cfg.IsAllowedTelegramUser(33))
	})

	t.Run("InvalidPort", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "70000")
		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP_PORT")
	})

	t.Run("MissingWebhook", func(t *testing.T) {
		t.Setenv("TELEGRAM_BOT_TOKEN", "token")
		t.Setenv("TELEGRAM_WEBHOOK_URL", "")
		_, err := NewFromEnv()
		assert.EqualError(t, err, "TELEGRAM_WEBHOOK_URL environment variable not set")
	})

	t.Run("GhostWithoutKeys", func(t *testing.T) {
		t.Setenv("GHOST_URL", "https://blog.example.com")
		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GHOST_CONTENT_API_KEY")

		t.Setenv("GHOST_CONTENT_API_KEY", "content")
		cfg, err := NewFromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.GhostEnabled())
	})

	t.Run("InvalidAllowList", func(t *testing.T) {
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "11,abc")
		_, err := NewFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TELEGRAM_ALLOWED_USER_IDS")
	})
}
