// Package subscription реализует календарную модель доступа:
// пробный период при первом контакте и продление окна после оплаты.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/levkhmelev/psy-support-bot/internal/lib/sl"
	"github.com/levkhmelev/psy-support-bot/internal/models"
	"github.com/levkhmelev/psy-support-bot/internal/storage/repository"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	ExtendSubscription(ctx context.Context, telegramID int64, days int) (time.Time, error)
}

type Service struct {
	repo      UserRepository
	trialDays int
	log       *slog.Logger
}

func New(repo UserRepository, trialDays int, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		trialDays: trialDays,
		log:       log,
	}
}

// Active сообщает, открыто ли окно подписки пользователя на момент now.
// Пустой срок означает, что доступа нет.
func Active(user *models.User, now time.Time) bool {
	return user != nil && user.SubscriptionExpiry != nil && user.SubscriptionExpiry.After(now)
}

// IsActive загружает пользователя и проверяет его окно подписки.
// Любая ошибка хранилища трактуется как отсутствие доступа.
func (s *Service) IsActive(ctx context.Context, telegramID int64) (bool, error) {
	const op = "services.subscription.IsActive"

	user, err := s.repo.GetUser(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Error("failed to load user for access check", sl.UserID(telegramID), sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return Active(user, time.Now()), nil
}

// RegisterFirstContact создаёт пользователя с пробным периодом. Если
// пользователь уже существует, повторная регистрация ничего не меняет:
// возвращается сохранённая запись и признак isNew = false.
func (s *Service) RegisterFirstContact(ctx context.Context, telegramID int64, fullName, username string) (*models.User, bool, error) {
	const op = "services.subscription.RegisterFirstContact"

	existing, err := s.repo.GetUser(ctx, telegramID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	trialExpiry := now.AddDate(0, 0, s.trialDays)
	user := models.User{
		TelegramID:         telegramID,
		FullName:           fullName,
		Username:           username,
		JoinDate:           now,
		SubscriptionExpiry: &trialExpiry,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("registered user with trial access",
		sl.UserID(telegramID),
		slog.Time("trial_expiry", trialExpiry))

	return &user, true, nil
}

// Extend продлевает окно подписки на days суток от большего из двух
// моментов: текущего срока и настоящего времени. Возвращает новый срок.
func (s *Service) Extend(ctx context.Context, telegramID int64, days int) (time.Time, error) {
	const op = "services.subscription.Extend"

	expiry, err := s.repo.ExtendSubscription(ctx, telegramID, days)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("extended subscription",
		sl.UserID(telegramID),
		slog.Int("days", days),
		slog.Time("new_expiry", expiry))

	return expiry, nil
}
