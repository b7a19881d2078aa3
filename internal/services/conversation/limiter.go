package conversation

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter ограничивает частоту сообщений отдельно для каждого
// пользователя. Лимитеры создаются лениво при первом сообщении.
type Limiter struct {
	mu    sync.Mutex
	users map[int64]*rate.Limiter
	limit rate.Limit
	burst int
}

func NewLimiter(limit rate.Limit, burst int) *Limiter {
	return &Limiter{
		users: make(map[int64]*rate.Limiter),
		limit: limit,
		burst: burst,
	}
}

func (l *Limiter) Allow(telegramID int64) bool {
	l.mu.Lock()
	lim, ok := l.users[telegramID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.users[telegramID] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
