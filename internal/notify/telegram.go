package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram pushes dispatch problems to the operator's own chat. The
// process is designed to run unattended for days, so failures need a
// path out of the terminal.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

type TelegramConfig struct {
	Token  string
	ChatID int64
	Logger *slog.Logger
}

func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram notifier: token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram notifier: chat ID is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	cfg.Logger.Info("telegram notifier connected", "username", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: cfg.ChatID, logger: cfg.Logger}, nil
}

// Notify sends one plain-text message to the operator chat.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
