package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/levkhmelev/psy-support-bot/internal/models"
)

// CreateUser сохраняет нового пользователя с заданной датой истечения доступа.
// Повторная вставка той же записи не является ошибкой: запись уже есть,
// пробный период второй раз не выдаётся.
func (s *Storage) CreateUser(ctx context.Context, user models.User) error {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (telegram_id, full_name, username, join_date, subscription_expiry)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (telegram_id) DO NOTHING;`
	if _, err := s.DB.ExecContext(ctx, query,
		user.TelegramID, user.FullName, user.Username, user.JoinDate,
		user.SubscriptionExpiry); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по его телеграм-идентификатору.
// Если записи нет, возвращает ErrUserNotFound.
func (s *Storage) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT telegram_id, full_name, username, join_date, subscription_expiry
			  FROM users
			  WHERE telegram_id = $1`
	u := &models.User{}
	row := s.DB.QueryRowContext(ctx, query, telegramID)

	var username sql.NullString
	var subscriptionExpiry sql.NullTime
	if err := row.Scan(&u.TelegramID, &u.FullName, &username, &u.JoinDate,
		&subscriptionExpiry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if username.Valid {
		u.Username = username.String
	}
	if subscriptionExpiry.Valid {
		u.SubscriptionExpiry = &subscriptionExpiry.Time
	}
	return u, nil
}

// UpdateUserName обновляет отображаемое имя пользователя.
func (s *Storage) UpdateUserName(ctx context.Context, telegramID int64, newName string) error {
	const op = "storage.UpdateUserName"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET full_name = $1
			  WHERE telegram_id = $2`
	res, err := s.DB.ExecContext(ctx, query, newName, telegramID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// ExtendSubscription продлевает доступ пользователя на days дней одним
// атомарным запросом: новая дата = max(now, текущая дата истечения) + days,
// поэтому конкурентные продления складываются без потери обновлений.
func (s *Storage) ExtendSubscription(ctx context.Context, telegramID int64, days int) (time.Time, error) {
	const op = "storage.ExtendSubscription"
	select {
	case <-ctx.Done():
		return time.Time{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET subscription_expiry = GREATEST(COALESCE(subscription_expiry, NOW()), NOW())
			      + make_interval(days => $1)
			  WHERE telegram_id = $2
			  RETURNING subscription_expiry`
	var newExpiry time.Time
	err := s.DB.QueryRowContext(ctx, query, days, telegramID).Scan(&newExpiry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return newExpiry, nil
}

// FindSubscriptionExpiredToday находит пользователей, у которых доступ
// истёк сегодня. Используется планировщиком напоминаний об оплате.
func (s *Storage) FindSubscriptionExpiredToday(ctx context.Context) ([]*models.User, error) {
	const op = "storage.FindSubscriptionExpiredToday"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT telegram_id, full_name, username, join_date, subscription_expiry
			  FROM users
			  WHERE subscription_expiry::DATE = CURRENT_DATE
			    AND subscription_expiry <= NOW();`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	var result []*models.User
	for rows.Next() {
		var u models.User
		var username sql.NullString
		var subscriptionExpiry sql.NullTime
		if err = rows.Scan(&u.TelegramID, &u.FullName, &username, &u.JoinDate,
			&subscriptionExpiry); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if username.Valid {
			u.Username = username.String
		}
		if subscriptionExpiry.Valid {
			u.SubscriptionExpiry = &subscriptionExpiry.Time
		}
		result = append(result, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
