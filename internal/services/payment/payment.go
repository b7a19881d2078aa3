// Package payment фиксирует успешные платежи Telegram Payments и
// продлевает окно подписки на оплаченный период.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/levkhmelev/psy-support-bot/internal/lib/sl"
	"github.com/levkhmelev/psy-support-bot/internal/metrics"
	"github.com/levkhmelev/psy-support-bot/internal/models"
)

// ErrExtendAfterPayment означает, что платёж уже записан, но продлить
// подписку не удалось. Такой случай требует ручной сверки: деньги
// получены, доступ не выдан.
var ErrExtendAfterPayment = errors.New("subscription extension failed after payment was recorded")

type Repository interface {
	AddPayment(ctx context.Context, p models.Payment) (int64, error)
}

type Subscriptions interface {
	Extend(ctx context.Context, telegramID int64, days int) (time.Time, error)
}

type Service struct {
	repo        Repository
	subs        Subscriptions
	rec         metrics.Recorder
	renewalDays int
	log         *slog.Logger
}

func New(repo Repository, subs Subscriptions, rec metrics.Recorder, renewalDays int, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		subs:        subs,
		rec:         rec,
		renewalDays: renewalDays,
		log:         log,
	}
}

// RegisterSuccessfulPayment записывает подтверждённый платёж и продлевает
// подписку. Сначала фиксируется платёж: потерять запись о деньгах хуже,
// чем выдать доступ с задержкой.
func (s *Service) RegisterSuccessfulPayment(ctx context.Context, p models.Payment) (time.Time, error) {
	const op = "services.payment.RegisterSuccessfulPayment"

	p.Status = models.PaymentStatusSuccessful
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}

	id, err := s.repo.AddPayment(ctx, p)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	s.rec.RecordPayment(p.Currency)
	s.log.Info("recorded successful payment",
		sl.UserID(p.TelegramID),
		slog.Int64("payment_id", id),
		slog.Int64("amount", p.Amount),
		slog.String("currency", p.Currency))

	expiry, err := s.subs.Extend(ctx, p.TelegramID, s.renewalDays)
	if err != nil {
		s.log.Error("payment recorded but subscription not extended",
			sl.UserID(p.TelegramID),
			slog.Int64("payment_id", id),
			sl.Err(err))
		return time.Time{}, fmt.Errorf("%s: %w", op, errors.Join(ErrExtendAfterPayment, err))
	}

	return expiry, nil
}
