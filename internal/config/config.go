package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath      string
	RecipeStoragePath string

	LogLevel       string
	LogFormat      string
	LogDevelopment bool

	HTTPPort  int
	JWTSecret string

	GeminiAPIKey string
	GeminiModel  string

	// Ghost blog used as a recipe source and menu publisher
	GhostURL        string
	GhostContentKey string
	GhostAdminKey   string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	DefaultServingsPerMeal int
	PlannerSeed            uint64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	allowed, err := parseIDList(v.GetString("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS environment variable is invalid: %w", err)
	}

	cfg := &Config{
		DatabasePath:           v.GetString("DATABASE_PATH"),
		RecipeStoragePath:      v.GetString("RECIPE_STORAGE_PATH"),
		LogLevel:               v.GetString("LOG_LEVEL"),
		LogFormat:              v.GetString("LOG_FORMAT"),
		LogDevelopment:         v.GetBool("LOG_DEVELOPMENT"),
		HTTPPort:               v.GetInt("HTTP_PORT"),
		JWTSecret:              v.GetString("JWT_SECRET"),
		GeminiAPIKey:           v.GetString("GEMINI_API_KEY"),
		GeminiModel:            v.GetString("GEMINI_MODEL"),
		GhostURL:               v.GetString("GHOST_URL"),
		GhostContentKey:        v.GetString("GHOST_CONTENT_API_KEY"),
		GhostAdminKey:          v.GetString("GHOST_ADMIN_API_KEY"),
		TelegramBotToken:       v.GetString("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     v.GetString("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        v.GetInt64("ADMIN_TELEGRAM_ID"),
		DefaultServingsPerMeal: v.GetInt("DEFAULT_SERVINGS_PER_MEAL"),
		PlannerSeed:            v.GetUint64("PLANNER_SEED"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_PATH", "data/mealmapp.db")
	v.SetDefault("RECIPE_STORAGE_PATH", "data/recipes")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_DEVELOPMENT", false)
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("ADMIN_TELEGRAM_ID", 0)
	v.SetDefault("DEFAULT_SERVINGS_PER_MEAL", 4)
	v.SetDefault("PLANNER_SEED", 0)
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT environment variable must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.DefaultServingsPerMeal <= 0 {
		return fmt.Errorf("DEFAULT_SERVINGS_PER_MEAL environment variable must be positive, got %d", c.DefaultServingsPerMeal)
	}
	if c.GhostURL != "" && c.GhostContentKey == "" && c.GhostAdminKey == "" {
		return fmt.Errorf("GHOST_CONTENT_API_KEY or GHOST_ADMIN_API_KEY environment variable not set")
	}
	if c.TelegramBotToken != "" && c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

// EstimatorEnabled reports whether an LLM key is configured.
func (c *Config) EstimatorEnabled() bool {
	return c.GeminiAPIKey != ""
}

// GhostEnabled reports whether a Ghost blog is configured.
func (c *Config) GhostEnabled() bool {
	return c.GhostURL != ""
}

// IsAllowedTelegramUser reports whether id may talk to the bot. An empty
// allow-list admits nobody.
func (c *Config) IsAllowedTelegramUser(id int64) bool {
	if id == c.AdminTelegramID && id != 0 {
		return true
	}
	for _, allowed := range c.TelegramAllowedUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

func parseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
