// Package conversation управляет диалогом пользователя с ботом:
// знакомство и выбор имени, проверка доступа, обращение к модели и
// запись обеих реплик в историю.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/levkhmelev/psy-support-bot/internal/ai"
	"github.com/levkhmelev/psy-support-bot/internal/lib/sl"
	"github.com/levkhmelev/psy-support-bot/internal/metrics"
	"github.com/levkhmelev/psy-support-bot/internal/models"
	"github.com/levkhmelev/psy-support-bot/internal/session"
)

// Границы длины имени пользователя в рунах.
const (
	minNameLen = 2
	maxNameLen = 50
)

// Action подсказывает транспортному слою, какую клавиатуру приложить
// к ответу.
type Action int

const (
	ActionNone Action = iota
	ActionMainMenu
	ActionPromptPayment
	ActionProfileMenu
)

// Reply — ответ бота, готовый к отправке.
type Reply struct {
	Text   string
	Action Action
}

type Sessions interface {
	Get(ctx context.Context, telegramID int64) (session.State, error)
	Set(ctx context.Context, telegramID int64, state session.State) error
	Clear(ctx context.Context, telegramID int64) error
}

type Users interface {
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	UpdateUserName(ctx context.Context, telegramID int64, name string) error
}

type Subscriptions interface {
	RegisterFirstContact(ctx context.Context, telegramID int64, fullName, username string) (*models.User, bool, error)
	IsActive(ctx context.Context, telegramID int64) (bool, error)
}

type Dialogues interface {
	Record(ctx context.Context, telegramID int64, text string, sender models.Sender) error
	RecentHistory(ctx context.Context, telegramID int64, limit int) ([]models.DialogueMessage, error)
}

type Completer interface {
	Generate(ctx context.Context, history []models.DialogueMessage, userMessage string) (string, error)
}

type Controller struct {
	sessions     Sessions
	users        Users
	subs         Subscriptions
	dialogues    Dialogues
	completer    Completer
	limiter      *Limiter
	rec          metrics.Recorder
	historyLimit int
	log          *slog.Logger
}

func New(
	sessions Sessions,
	users Users,
	subs Subscriptions,
	dialogues Dialogues,
	completer Completer,
	limiter *Limiter,
	rec metrics.Recorder,
	historyLimit int,
	log *slog.Logger,
) *Controller {
	return &Controller{
		sessions:     sessions,
		users:        users,
		subs:         subs,
		dialogues:    dialogues,
		completer:    completer,
		limiter:      limiter,
		rec:          rec,
		historyLimit: historyLimit,
		log:          log,
	}
}

// Start обрабатывает /start. Новый пользователь получает пробный доступ
// и приглашение представиться, знакомый — приветствие и главное меню.
func (c *Controller) Start(ctx context.Context, telegramID int64, fullName, username, text string) (Reply, error) {
	const op = "services.conversation.Start"

	user, isNew, err := c.subs.RegisterFirstContact(ctx, telegramID, fullName, username)
	if err != nil {
		return Reply{Text: msgDataUnavailable}, fmt.Errorf("%s: %w", op, err)
	}

	c.recordUserTurn(ctx, telegramID, text)

	if isNew {
		if err := c.sessions.Set(ctx, telegramID, session.StateAwaitingName); err != nil {
			return Reply{Text: msgDataUnavailable}, fmt.Errorf("%s: %w", op, err)
		}
		return Reply{Text: msgGreetingAskName}, nil
	}

	greeting := fmt.Sprintf(greetingBackFmt, user.FullName)
	c.recordBotTurn(ctx, telegramID, greeting)

	return Reply{Text: greeting, Action: ActionMainMenu}, nil
}

// AwaitingName сообщает, ждёт ли бот от пользователя ввода имени.
// При недоступном хранилище сессий считаем, что не ждёт.
func (c *Controller) AwaitingName(ctx context.Context, telegramID int64) bool {
	state, err := c.sessions.Get(ctx, telegramID)
	if err != nil {
		c.log.Warn("failed to read session state", sl.UserID(telegramID), sl.Err(err))
		return false
	}
	return state == session.StateAwaitingName
}

// RequestNameChange переводит пользователя в режим ввода нового имени.
func (c *Controller) RequestNameChange(ctx context.Context, telegramID int64) (Reply, error) {
	const op = "services.conversation.RequestNameChange"

	if err := c.sessions.Set(ctx, telegramID, session.StateAwaitingName); err != nil {
		return Reply{Text: msgDataUnavailable}, fmt.Errorf("%s: %w", op, err)
	}
	return Reply{Text: msgAskNewName}, nil
}

// SubmitName принимает введённое имя. Слишком короткое или длинное имя
// отклоняется, режим ввода при этом сохраняется.
func (c *Controller) SubmitName(ctx context.Context, telegramID int64, raw string) (Reply, error) {
	const op = "services.conversation.SubmitName"

	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return Reply{Text: msgNameInvalid}, nil
	}

	if err := c.users.UpdateUserName(ctx, telegramID, name); err != nil {
		if clearErr := c.sessions.Clear(ctx, telegramID); clearErr != nil {
			c.log.Warn("failed to clear session state", sl.UserID(telegramID), sl.Err(clearErr))
		}
		return Reply{Text: msgNameError}, fmt.Errorf("%s: %w", op, err)
	}

	c.recordUserTurn(ctx, telegramID, name)

	confirmation := fmt.Sprintf(nameConfirmedFmt, name)
	c.recordBotTurn(ctx, telegramID, confirmation)

	if err := c.sessions.Clear(ctx, telegramID); err != nil {
		c.log.Warn("failed to clear session state", sl.UserID(telegramID), sl.Err(err))
	}

	return Reply{Text: confirmation, Action: ActionMainMenu}, nil
}

// HandleIncoming — точка входа для обычного текстового сообщения.
// В режиме ввода имени текст трактуется как имя, иначе как вопрос.
func (c *Controller) HandleIncoming(ctx context.Context, telegramID int64, text string) (Reply, error) {
	if c.AwaitingName(ctx, telegramID) {
		return c.SubmitName(ctx, telegramID, text)
	}
	return c.Respond(ctx, telegramID, text)
}

// Respond отвечает на вопрос пользователя. Окно истории снимается до
// записи входящей реплики, чтобы вопрос не попал в контекст дважды.
// Подписка проверяется до обращения к модели: просроченным счёт,
// а не ответ.
func (c *Controller) Respond(ctx context.Context, telegramID int64, text string) (Reply, error) {
	const op = "services.conversation.Respond"

	if !c.limiter.Allow(telegramID) {
		return Reply{Text: msgTooManyMessages}, nil
	}

	history, err := c.dialogues.RecentHistory(ctx, telegramID, c.historyLimit)
	if err != nil {
		c.log.Warn("failed to load dialogue history, proceeding without context",
			sl.UserID(telegramID), sl.Err(err))
		history = nil
	}

	c.recordUserTurn(ctx, telegramID, text)

	active, err := c.subs.IsActive(ctx, telegramID)
	if err != nil {
		return Reply{Text: msgDataUnavailable}, fmt.Errorf("%s: %w", op, err)
	}
	if !active {
		c.rec.RecordAccessDenied()
		return Reply{Text: msgSubscriptionExpired, Action: ActionPromptPayment}, nil
	}

	start := time.Now()
	answer, err := c.completer.Generate(ctx, history, text)
	c.rec.RecordCompletionLatency(time.Since(start))
	if errors.Is(err, ai.ErrUnavailable) {
		c.log.Warn("completion service is not configured", sl.UserID(telegramID))
		return Reply{Text: msgCompleterUnavailable}, nil
	}
	if err != nil {
		c.rec.RecordCompletionFailure()
		c.log.Error("completion failed", sl.UserID(telegramID), sl.Err(err))
		return Reply{Text: msgCompletionFailed}, nil
	}

	c.recordBotTurn(ctx, telegramID, answer)

	return Reply{Text: answer}, nil
}

// Info отвечает на кнопку «Информация».
func (c *Controller) Info(ctx context.Context, telegramID int64, text string) Reply {
	c.recordUserTurn(ctx, telegramID, text)
	c.recordBotTurn(ctx, telegramID, msgInfo)
	return Reply{Text: msgInfo}
}

// Profile собирает карточку профиля с состоянием подписки.
func (c *Controller) Profile(ctx context.Context, telegramID int64) (Reply, error) {
	const op = "services.conversation.Profile"

	user, err := c.users.GetUser(ctx, telegramID)
	if err != nil {
		return Reply{Text: msgDataUnavailable}, fmt.Errorf("%s: %w", op, err)
	}

	subscriptionStatus := "Истекла"
	if user.SubscriptionExpiry != nil {
		expiry := user.SubscriptionExpiry.Format("02.01.2006 15:04")
		if user.SubscriptionExpiry.After(time.Now()) {
			subscriptionStatus = "Активна до " + expiry
		}
	}

	text := fmt.Sprintf(
		"👤 Твой профиль:\nИмя: %s\nДата присоединения: %s\nПодписка: %s",
		user.FullName,
		user.JoinDate.Format("02.01.2006 15:04"),
		subscriptionStatus,
	)

	return Reply{Text: text, Action: ActionProfileMenu}, nil
}

// recordUserTurn и recordBotTurn пишут реплики в историю. Отказ записи
// не прерывает диалог: ответить важнее, чем сохранить строку.
func (c *Controller) recordUserTurn(ctx context.Context, telegramID int64, text string) {
	if err := c.dialogues.Record(ctx, telegramID, text, models.SenderUser); err != nil {
		c.log.Warn("failed to record user turn", sl.UserID(telegramID), sl.Err(err))
		return
	}
	c.rec.RecordMessage(string(models.SenderUser))
}

func (c *Controller) recordBotTurn(ctx context.Context, telegramID int64, text string) {
	if err := c.dialogues.Record(ctx, telegramID, text, models.SenderBot); err != nil {
		c.log.Warn("failed to record bot turn", sl.UserID(telegramID), sl.Err(err))
		return
	}
	c.rec.RecordMessage(string(models.SenderBot))
}
