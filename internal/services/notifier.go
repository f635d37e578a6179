package services

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"
)

// TelegramNotifier pushes operational messages to an admin chat. With no
// token configured it constructs as nil and every send is skipped.
type TelegramNotifier struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramNotifier returns nil when token is empty so callers can wire
// the notifier unconditionally.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" {
		logrus.Info("Telegram notifications disabled, no bot token configured")
		return nil, nil
	}
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, message string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   message,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
