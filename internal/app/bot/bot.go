// Package bot собирает приложение: хранилище, сессии, клиент модели,
// Telegram-бот, напоминания и служебный HTTP-сервер.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/levkhmelev/psy-support-bot/internal/ai"
	"github.com/levkhmelev/psy-support-bot/internal/config"
	"github.com/levkhmelev/psy-support-bot/internal/metrics"
	"github.com/levkhmelev/psy-support-bot/internal/migrations"
	"github.com/levkhmelev/psy-support-bot/internal/ops"
	"github.com/levkhmelev/psy-support-bot/internal/services/conversation"
	"github.com/levkhmelev/psy-support-bot/internal/services/dialogue"
	"github.com/levkhmelev/psy-support-bot/internal/services/notifier"
	"github.com/levkhmelev/psy-support-bot/internal/services/payment"
	"github.com/levkhmelev/psy-support-bot/internal/services/subscription"
	"github.com/levkhmelev/psy-support-bot/internal/session"
	"github.com/levkhmelev/psy-support-bot/internal/storage/repository"
	"github.com/levkhmelev/psy-support-bot/internal/telegram"
)

// Частота сообщений на пользователя: одно в две секунды, всплеск до пяти.
const (
	messageRate  = rate.Limit(0.5)
	messageBurst = 5

	notifyInterval = time.Hour
)

type App struct {
	tgBot     *bot.Bot
	opsServer *http.Server
	notifier  *notifier.Notifier
	storage   *repository.Storage
	sessions  *session.Store
	logger    *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.bot.New"

	storage, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(storage.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sessions, err := session.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var completer conversation.Completer = ai.NewDisabled()
	if cfg.AI.Enabled() {
		client, err := ai.New(ctx, cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		completer = client
	} else {
		logger.Warn("gemini api key is not set, answering with a stub until it is configured")
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	subsService := subscription.New(storage, cfg.Subscription.TrialDays, logger)
	dialogueService := dialogue.New(storage, logger)
	paymentService := payment.New(storage, subsService, collector, cfg.Subscription.RenewalDays, logger)

	controller := conversation.New(
		sessions,
		storage,
		subsService,
		dialogueService,
		completer,
		conversation.NewLimiter(messageRate, messageBurst),
		collector,
		cfg.AI.HistoryLimit,
		logger,
	)

	handlers := telegram.NewHandlers(nil, controller, paymentService, cfg.Telegram, cfg.Subscription, logger)

	tgBot, err := bot.New(cfg.Telegram.Token, handlers.Options()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	handlers.Bind(tgBot)
	handlers.Register(tgBot)

	reminder := notifier.New(storage, telegram.NewSender(tgBot), notifyInterval, logger)

	opsServer := ops.NewServer(cfg.OpsServer, logger,
		func() error { return repository.CheckDatabaseReady(storage) },
		registry)

	return &App{
		tgBot:     tgBot,
		opsServer: opsServer,
		notifier:  reminder,
		storage:   storage,
		sessions:  sessions,
		logger:    logger,
	}, nil
}

// Run запускает бота, напоминания и служебный сервер и ждёт отмены
// контекста или падения служебного сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("ops server starting on", slog.String("address", a.opsServer.Addr))
		err := a.opsServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	go a.notifier.Run(ctx)

	go func() {
		a.logger.Info("telegram bot starting")
		a.tgBot.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down gracefully")
		err := a.opsServer.Shutdown(timeoutCtx)
		if closeErr := a.sessions.Close(); closeErr != nil {
			a.logger.Warn("failed to close session store", slog.Any("err", closeErr))
		}
		if closeErr := a.storage.DB.Close(); closeErr != nil {
			a.logger.Warn("failed to close storage", slog.Any("err", closeErr))
		}
		return err
	}
}
