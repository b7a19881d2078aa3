// Package dialogue ведёт переписку пользователя с ботом: каждая реплика
// сохраняется в хранилище, окно последних реплик отдаётся для контекста.
package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/levkhmelev/psy-support-bot/internal/lib/sl"
	"github.com/levkhmelev/psy-support-bot/internal/models"
)

type Repository interface {
	AddDialogueMessage(ctx context.Context, msg models.DialogueMessage) error
	RecentDialogue(ctx context.Context, telegramID int64, limit int) ([]models.DialogueMessage, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Record сохраняет одну реплику с текущей меткой времени.
func (s *Service) Record(ctx context.Context, telegramID int64, text string, sender models.Sender) error {
	const op = "services.dialogue.Record"

	msg := models.DialogueMessage{
		TelegramID: telegramID,
		Text:       text,
		Timestamp:  time.Now(),
		Sender:     sender,
	}
	if err := s.repo.AddDialogueMessage(ctx, msg); err != nil {
		s.log.Error("failed to record dialogue message", sl.UserID(telegramID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecentHistory возвращает последние limit реплик пользователя
// в хронологическом порядке.
func (s *Service) RecentHistory(ctx context.Context, telegramID int64, limit int) ([]models.DialogueMessage, error) {
	const op = "services.dialogue.RecentHistory"

	history, err := s.repo.RecentDialogue(ctx, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return history, nil
}
