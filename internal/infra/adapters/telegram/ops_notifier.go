package telegram

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aaftab343/dailyfruit-backend/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*OpsNotifier)(nil)

// telegram rejects messages longer than this.
const maxMessageLen = 4096

// sender is the part of *tgbotapi.BotAPI we use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// OpsNotifier posts operational alerts to one admin chat.
type OpsNotifier struct {
	bot    sender
	chatID int64
}

// NewOpsNotifier authenticates the bot token against the Bot API.
func NewOpsNotifier(token string, chatID int64) (*OpsNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, errors.New("telegram token and admin chat id are required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &OpsNotifier{bot: bot, chatID: chatID}, nil
}

func newOpsNotifierWith(bot sender, chatID int64) *OpsNotifier {
	return &OpsNotifier{bot: bot, chatID: chatID}
}

func (o *OpsNotifier) Name() string { return "telegram" }

// Send ignores n.To; every alert goes to the configured chat.
func (o *OpsNotifier) Send(ctx context.Context, n adapter.Notification) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	text := strings.TrimSpace(n.Text)
	if n.Subject != "" && !strings.HasPrefix(text, n.Subject) {
		text = "[" + n.Subject + "]\n" + text
	}
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen-3] + "..."
	}
	msg := tgbotapi.NewMessage(o.chatID, text)
	msg.DisableWebPagePreview = true
	_, err := o.bot.Send(msg)
	return err
}
