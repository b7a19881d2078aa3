package repository

import (
	"context"
	"fmt"

	"github.com/levkhmelev/psy-support-bot/internal/models"
)

// AddDialogueMessage добавляет одну запись диалога.
func (s *Storage) AddDialogueMessage(ctx context.Context, msg models.DialogueMessage) error {
	const op = "storage.AddDialogueMessage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO dialogues (telegram_id, message_text, timestamp, sender)
			  VALUES ($1, $2, $3, $4)`
	if _, err := s.DB.ExecContext(ctx, query,
		msg.TelegramID, msg.Text, msg.Timestamp, string(msg.Sender)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecentDialogue возвращает последние limit записей диалога пользователя
// в хронологическом порядке. Выборка идёт от новых к старым, затем
// порядок разворачивается, поскольку вызывающему нужен порядок воспроизведения.
func (s *Storage) RecentDialogue(ctx context.Context, telegramID int64, limit int) ([]models.DialogueMessage, error) {
	const op = "storage.RecentDialogue"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, message_text, timestamp, sender
			  FROM dialogues
			  WHERE telegram_id = $1
			  ORDER BY timestamp DESC, id DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.DialogueMessage
	for rows.Next() {
		var m models.DialogueMessage
		var sender string
		if err = rows.Scan(&m.ID, &m.TelegramID, &m.Text, &m.Timestamp, &sender); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		m.Sender = models.Sender(sender)
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}
