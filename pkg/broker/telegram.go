package broker

import (
	"context"
	"fmt"

	"github.com/ds124wfegd/eventbook/config"
	"github.com/ds124wfegd/eventbook/pkg/telegram"
)

// TelegramPublisher posts a one-line summary of each notification to a chat.
type TelegramPublisher struct {
	bot    *telegram.Bot
	chatID string
}

func NewTelegramPublisher(cfg config.TelegramConfig) *TelegramPublisher {
	return &TelegramPublisher{
		bot:    telegram.NewBot(cfg.BotToken, cfg.APIURL),
		chatID: cfg.ChatID,
	}
}

func (p *TelegramPublisher) Publish(ctx context.Context, topic string, payload any) error {
	msg, err := NewMessage(topic, payload)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("[%s] %s", msg.Topic, msg.Payload)
	if err := p.bot.SendMessage(ctx, p.chatID, text); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

func (p *TelegramPublisher) Close() error {
	return nil
}
