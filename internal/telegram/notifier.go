package telegram

import (
	"context"
	"fmt"

	"mealmapp/internal/planner"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Notifier shows planner notices by editing a status message in a chat.
type Notifier struct {
	api       Sender
	chatID    int64
	messageID int
	log       *zap.Logger
}

// NewNotifier creates a Notifier that edits messageID in chatID.
func NewNotifier(api Sender, chatID int64, messageID int, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{api: api, chatID: chatID, messageID: messageID, log: log}
}

// Notify implements planner.Notifier.
func (n *Notifier) Notify(_ context.Context, notice planner.Notice) {
	edit := tgbotapi.NewEditMessageText(n.chatID, n.messageID, noticeText(notice))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.api.Send(edit); err != nil {
		n.log.Warn("failed to deliver notice", zap.Int64("chat_id", n.chatID), zap.Error(err))
	}
}

func noticeText(n planner.Notice) string {
	switch n.Kind {
	case planner.NoticeSuccess:
		return fmt.Sprintf("✅ *%s* (%d meals)", escape(n.Message), n.Filled)
	case planner.NoticePartial:
		return "⚠️ " + escape(n.Message)
	default:
		return "❌ " + escape(n.Message)
	}
}
