package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mealmapp/internal/clipper"
	"mealmapp/internal/config"
	"mealmapp/internal/metrics"
	"mealmapp/internal/planner"
	"mealmapp/internal/recipe"
	"mealmapp/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	callbackRegenerate = "regenerate"
	callbackKeep       = "keep"

	requestTimeout = 2 * time.Minute
)

// Service is the application surface the bot talks to.
type Service interface {
	GenerateWeeklyMenu(ctx context.Context, userID string, notifier planner.Notifier) (*planner.Menu, error)
	MenuExistsForNextWeek(ctx context.Context, userID string) (bool, time.Time, error)
	LatestMenu(ctx context.Context, userID string) (*planner.Menu, error)
	LatestShoppingList(ctx context.Context, userID string) (*shopping.ShoppingList, error)
	ClipRecipe(ctx context.Context, userID, url string) (*recipe.Recipe, error)
	Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	Health() metrics.SysHealth
}

// Sender delivers messages to Telegram. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wraps the Telegram API and the meal planning service.
type Bot struct {
	api Sender
	svc Service
	cfg *config.Config
	log *zap.Logger

	// async runs message handlers; tests replace it to run inline.
	async func(func())
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, svc Service, log *zap.Logger) (*Bot, error) {
	if log == nil {
		log = zap.NewNop()
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info("webhook set", zap.String("description", resp.Description))

	return newBot(api, cfg, svc, log), nil
}

func newBot(api Sender, cfg *config.Config, svc Service, log *zap.Logger) *Bot {
	return &Bot{
		api:   api,
		svc:   svc,
		cfg:   cfg,
		log:   log,
		async: func(f func()) { go f() },
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "system": b.svc.Health()})
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.log.Warn("error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	b.handleUpdate(update)
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if !b.allowed(query.From) {
			return
		}
		b.async(func() { b.handleCallbackQuery(query) })
	case update.Message != nil:
		msg := update.Message
		if !b.allowed(msg.From) {
			return
		}
		b.async(func() { b.processMessage(msg) })
	}
}

func (b *Bot) allowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if !b.cfg.IsAllowedTelegramUser(from.ID) {
		b.log.Warn("unauthorized access attempt", zap.Int64("telegram_id", from.ID), zap.String("username", from.UserName))
		return false
	}
	return true
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case msg.IsCommand() && msg.Command() == "menu":
		b.handleMenuCommand(msg)
	case msg.IsCommand() && msg.Command() == "shopping":
		b.handleShoppingCommand(msg)
	case msg.IsCommand() && msg.Command() == "metrics":
		b.handleMetricsRequest(msg)
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleClipperRequest(msg, text)
	default:
		b.sendMarkdown(msg.Chat.ID, helpText)
	}
}

const helpText = "👋 *Meal planner*\n\n" +
	"/menu - plan next week\n" +
	"/shopping - latest shopping list\n" +
	"Send a recipe link to add it to your recipes."

func userKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (b *Bot) handleMenuCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	userID := userKey(msg.From.ID)
	exists, weekStart, err := b.svc.MenuExistsForNextWeek(ctx, userID)
	if err != nil {
		b.log.Warn("failed to check existing menu", zap.String("user_id", userID), zap.Error(err))
	}
	if exists {
		prompt := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(
			"🗓️ A menu already exists for the week starting *%s*.\nGenerate a new one?", weekStart.Format(time.DateOnly)))
		prompt.ParseMode = tgbotapi.ModeMarkdown
		prompt.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔄 Regenerate", callbackRegenerate),
				tgbotapi.NewInlineKeyboardButtonData("✅ Keep it", callbackKeep),
			),
		)
		b.send(prompt)
		return
	}

	b.generateAndSendMenu(ctx, userID, msg.Chat.ID)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", zap.Error(err))
	}
	if query.Message == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	userID := userKey(query.From.ID)
	chatID := query.Message.Chat.ID
	switch query.Data {
	case callbackRegenerate:
		b.generateAndSendMenu(ctx, userID, chatID)
	case callbackKeep:
		menu, err := b.svc.LatestMenu(ctx, userID)
		if err != nil {
			b.sendMarkdown(chatID, "❌ Could not load your menu.")
			return
		}
		b.sendMarkdown(chatID, formatMenuMarkdown(menu))
	}
}

func (b *Bot) generateAndSendMenu(ctx context.Context, userID string, chatID int64) {
	status, err := b.api.Send(markdownMessage(chatID, "🧑‍🍳 *Planning your week...*"))
	if err != nil {
		b.log.Warn("failed to send initial reply", zap.Error(err))
		return
	}

	notifier := NewNotifier(b.api, chatID, status.MessageID, b.log)
	menu, err := b.svc.GenerateWeeklyMenu(ctx, userID, notifier)
	if err != nil {
		// The notifier already told the user.
		b.log.Warn("menu generation failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	b.sendMarkdown(chatID, formatMenuMarkdown(menu))
	if list, err := b.svc.LatestShoppingList(ctx, userID); err == nil {
		b.sendMarkdown(chatID, formatShoppingListMarkdown(list))
	}
}

func (b *Bot) handleShoppingCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	list, err := b.svc.LatestShoppingList(ctx, userKey(msg.From.ID))
	switch {
	case errors.Is(err, shopping.ErrNotFound):
		b.sendMarkdown(msg.Chat.ID, "🛒 No shopping list yet. Use /menu to plan your week.")
	case err != nil:
		b.log.Warn("failed to load shopping list", zap.Error(err))
		b.sendMarkdown(msg.Chat.ID, "❌ Could not load your shopping list.")
	default:
		b.sendMarkdown(msg.Chat.ID, formatShoppingListMarkdown(list))
	}
}

func (b *Bot) handleClipperRequest(msg *tgbotapi.Message, url string) {
	status, err := b.api.Send(markdownMessage(msg.Chat.ID, "✂️ *Clipping recipe...*"))
	if err != nil {
		b.log.Warn("failed to send initial reply", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var finalText string
	rec, err := b.svc.ClipRecipe(ctx, userKey(msg.From.ID), url)
	switch {
	case errors.Is(err, clipper.ErrNoRecipeData):
		finalText = "🤷 No recipe found on that page."
	case err != nil:
		b.log.Warn("error clipping recipe", zap.String("url", url), zap.Error(err))
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		finalText = fmt.Sprintf("❌ *Error clipping recipe:*\n```\n%v\n```", safeErr)
	default:
		finalText = formatClippedRecipe(rec)
	}
	b.editMarkdown(msg.Chat.ID, status.MessageID, finalText)
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if b.cfg.AdminTelegramID == 0 || msg.From.ID != b.cfg.AdminTelegramID {
		b.sendMarkdown(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	usage, err := b.svc.Usage(ctx, 7)
	if err != nil {
		b.log.Warn("failed to fetch metrics", zap.Error(err))
		b.sendMarkdown(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.sendMarkdown(msg.Chat.ID, formatUsageMarkdown(usage, b.svc.Health()))
}

func markdownMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	b.send(markdownMessage(chatID, text))
}

func (b *Bot) editMarkdown(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Warn("failed to send telegram message", zap.Error(err))
	}
}
