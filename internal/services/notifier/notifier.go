// Package notifier раз в интервал проверяет, у кого подписка истекла
// сегодня, и напоминает об оплате.
package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/levkhmelev/psy-support-bot/internal/lib/sl"
	"github.com/levkhmelev/psy-support-bot/internal/models"
)

const msgExpiredToday = "Срок твоей подписки истек сегодня. " +
	"Продли её в меню «Подписка», чтобы продолжить общение."

type ExpiredUsersFinder interface {
	FindSubscriptionExpiredToday(ctx context.Context) ([]*models.User, error)
}

type Sender interface {
	SendText(ctx context.Context, telegramID int64, text string) error
}

type Notifier struct {
	finder   ExpiredUsersFinder
	sender   Sender
	interval time.Duration
	notified map[int64]time.Time
	log      *slog.Logger
}

func New(finder ExpiredUsersFinder, sender Sender, interval time.Duration, log *slog.Logger) *Notifier {
	return &Notifier{
		finder:   finder,
		sender:   sender,
		interval: interval,
		notified: make(map[int64]time.Time),
		log:      log,
	}
}

// Run крутит цикл напоминаний до отмены контекста. Каждому пользователю
// напоминание уходит не чаще раза в сутки.
func (n *Notifier) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.sweep(ctx)
		}
	}
}

func (n *Notifier) sweep(ctx context.Context) {
	users, err := n.finder.FindSubscriptionExpiredToday(ctx)
	if err != nil {
		n.log.Error("failed to find users with expired subscription", sl.Err(err))
		return
	}

	now := time.Now()
	for id, last := range n.notified {
		if !sameDay(last, now) {
			delete(n.notified, id)
		}
	}

	for _, user := range users {
		if last, ok := n.notified[user.TelegramID]; ok && sameDay(last, now) {
			continue
		}
		if err := n.sender.SendText(ctx, user.TelegramID, msgExpiredToday); err != nil {
			n.log.Warn("failed to send expiry reminder", sl.UserID(user.TelegramID), sl.Err(err))
			continue
		}
		n.notified[user.TelegramID] = now
		n.log.Info("sent expiry reminder", sl.UserID(user.TelegramID))
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
