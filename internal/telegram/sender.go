package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// Sender — тонкая обёртка над API для фоновых рассылок.
type Sender struct {
	api API
}

func NewSender(api API) *Sender {
	return &Sender{api: api}
}

func (s *Sender) SendText(ctx context.Context, telegramID int64, text string) error {
	const op = "telegram.SendText"

	_, err := s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: telegramID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
