package repository

import (
	"context"
	"fmt"

	"github.com/levkhmelev/psy-support-bot/internal/models"
)

// AddPayment сохраняет запись аудита о платеже и возвращает её ID.
func (s *Storage) AddPayment(ctx context.Context, p models.Payment) (int64, error) {
	const op = "storage.AddPayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (telegram_id, amount, currency, status,
				  telegram_charge_id, provider_charge_id, invoice_payload, timestamp)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		p.TelegramID, p.Amount, p.Currency, p.Status,
		p.TelegramChargeID, p.ProviderChargeID, p.InvoicePayload, p.Timestamp).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListPayments возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, telegramID int64) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, amount, currency, status,
				  COALESCE(telegram_charge_id, ''), COALESCE(provider_charge_id, ''),
				  COALESCE(invoice_payload, ''), timestamp
			  FROM payments
			  WHERE telegram_id = $1
			  ORDER BY timestamp DESC`
	rows, err := s.DB.QueryContext(ctx, query, telegramID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.TelegramID, &p.Amount, &p.Currency, &p.Status,
			&p.TelegramChargeID, &p.ProviderChargeID, &p.InvoicePayload, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
