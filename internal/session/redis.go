// Package session хранит состояние диалога каждого пользователя в redis.
// Состояние нужно только одно: ждёт ли бот от пользователя ввода имени.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/levkhmelev/psy-support-bot/internal/config"
)

// State — состояние диалога пользователя.
type State string

const (
	// StateIdle — обычный режим, сообщения идут в основной обработчик.
	StateIdle State = "idle"
	// StateAwaitingName — бот ждёт от пользователя отображаемое имя.
	StateAwaitingName State = "awaiting_name"
)

// Незавершённый ввод имени протухает сам, чтобы пользователь
// не застревал в состоянии навсегда.
const stateTTL = 24 * time.Hour

// Store хранит состояния диалогов, ключ — телеграм-идентификатор.
type Store struct {
	db *redis.Client
}

// InitServer подключается к redis и возвращает хранилище состояний.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Store, error) {
	const op = "session.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{db: db}, nil
}

// Get возвращает состояние диалога пользователя.
// Отсутствие ключа означает StateIdle.
func (s *Store) Get(ctx context.Context, telegramID int64) (State, error) {
	const op = "session.Get"
	val, err := s.db.Get(ctx, key(telegramID)).Result()
	if errors.Is(err, redis.Nil) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, fmt.Errorf("%s: %w", op, err)
	}
	return State(val), nil
}

// Set сохраняет состояние диалога пользователя.
func (s *Store) Set(ctx context.Context, telegramID int64, state State) error {
	const op = "session.Set"
	if err := s.db.Set(ctx, key(telegramID), string(state), stateTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Clear сбрасывает состояние диалога пользователя в StateIdle.
func (s *Store) Clear(ctx context.Context, telegramID int64) error {
	const op = "session.Clear"
	if err := s.db.Del(ctx, key(telegramID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close закрывает соединение с redis.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(telegramID int64) string {
	return fmt.Sprintf("session:%d", telegramID)
}
