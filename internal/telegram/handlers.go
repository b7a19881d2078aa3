// Package telegram принимает обновления Telegram и переводит их в вызовы
// сервисного слоя: диалог, профиль, счета и подтверждения оплаты.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/levkhmelev/psy-support-bot/internal/config"
	"github.com/levkhmelev/psy-support-bot/internal/lib/sl"
	"github.com/levkhmelev/psy-support-bot/internal/models"
	"github.com/levkhmelev/psy-support-bot/internal/services/conversation"
)

// Тексты кнопок главного меню.
const (
	buttonProfile      = "Профиль"
	buttonInfo         = "Информация"
	buttonSubscription = "Подписка"
)

const (
	invoiceTitle = "Оплата подписки"

	msgUserUnavailable = "Привет! Я бот психологической поддержки. " +
		"Не могу определить твои данные пользователя."
	msgNonText = "Это интересное сообщение! " +
		"Но пока я умею обрабатывать только текст и команды меню."
	msgPaymentsDisabled = "Извините, сейчас невозможно отправить счет на оплату. " +
		"Пожалуйста, сообщите администратору."
	msgInvoiceFailed = "Произошла ошибка при формировании счета. Попробуйте позже."
	msgPaymentDone   = "🎉 Оплата прошла! Подписка продлена до %s.\n" +
		"Спасибо, что выбираешь заботу о себе!"
	msgPaymentNotApplied = "Оплата получена, но произошла ошибка при обновлении вашей подписки. " +
		"Пожалуйста, свяжитесь с поддержкой."
)

// API покрывает методы Telegram, которыми пользуются обработчики.
// *bot.Bot реализует его целиком.
type API interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*tgmodels.Message, error)
	AnswerPreCheckoutQuery(ctx context.Context, params *bot.AnswerPreCheckoutQueryParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

type Conversation interface {
	Start(ctx context.Context, telegramID int64, fullName, username, text string) (conversation.Reply, error)
	HandleIncoming(ctx context.Context, telegramID int64, text string) (conversation.Reply, error)
	AwaitingName(ctx context.Context, telegramID int64) bool
	RequestNameChange(ctx context.Context, telegramID int64) (conversation.Reply, error)
	Info(ctx context.Context, telegramID int64, text string) conversation.Reply
	Profile(ctx context.Context, telegramID int64) (conversation.Reply, error)
}

type Payments interface {
	RegisterSuccessfulPayment(ctx context.Context, p models.Payment) (time.Time, error)
}

type Handlers struct {
	api      API
	conv     Conversation
	payments Payments
	tgCfg    config.Telegram
	subCfg   config.Subscription
	log      *slog.Logger
}

func NewHandlers(api API, conv Conversation, payments Payments, tgCfg config.Telegram, subCfg config.Subscription, log *slog.Logger) *Handlers {
	return &Handlers{
		api:      api,
		conv:     conv,
		payments: payments,
		tgCfg:    tgCfg,
		subCfg:   subCfg,
		log:      log,
	}
}

// Bind задаёт клиент Telegram. Вызывается после bot.New, так как
// обработчик по умолчанию регистрируется опцией при создании бота.
func (h *Handlers) Bind(api API) {
	h.api = api
}

// Register подключает обработчики к боту. Кнопки меню перехватываются
// до обработчика по умолчанию.
func (h *Handlers) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "start", bot.MatchTypeCommand, h.Start)
	b.RegisterHandler(bot.HandlerTypeMessageText, buttonProfile, bot.MatchTypeExact, h.Profile)
	b.RegisterHandler(bot.HandlerTypeMessageText, buttonInfo, bot.MatchTypeExact, h.Info)
	b.RegisterHandler(bot.HandlerTypeMessageText, buttonSubscription, bot.MatchTypeExact, h.Subscription)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackChangeName, bot.MatchTypeExact, h.ChangeNameCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackPay, bot.MatchTypeExact, h.PayCallback)
}

// Options возвращает опции для bot.New с обработчиком по умолчанию.
func (h *Handlers) Options() []bot.Option {
	return []bot.Option{
		bot.WithDefaultHandler(h.Default),
	}
}

func (h *Handlers) Start(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	if msg.From == nil {
		h.sendReply(ctx, msg.Chat.ID, conversation.Reply{Text: msgUserUnavailable})
		return
	}

	reply, err := h.conv.Start(ctx, msg.From.ID, fullName(msg.From), msg.From.Username, msg.Text)
	if err != nil {
		h.log.Error("start handler failed", sl.UserID(msg.From.ID), sl.Err(err))
	}
	h.sendReply(ctx, msg.Chat.ID, reply)
}

func (h *Handlers) Info(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	// В режиме ввода имени текст кнопки трактуется как имя.
	if h.conv.AwaitingName(ctx, msg.From.ID) {
		h.Default(ctx, b, update)
		return
	}

	reply := h.conv.Info(ctx, msg.From.ID, msg.Text)
	h.sendReply(ctx, msg.Chat.ID, reply)
}

func (h *Handlers) Profile(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if h.conv.AwaitingName(ctx, msg.From.ID) {
		h.Default(ctx, b, update)
		return
	}

	reply, err := h.conv.Profile(ctx, msg.From.ID)
	if err != nil {
		h.log.Error("profile handler failed", sl.UserID(msg.From.ID), sl.Err(err))
	}
	h.sendReply(ctx, msg.Chat.ID, reply)
}

func (h *Handlers) Subscription(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if h.conv.AwaitingName(ctx, msg.From.ID) {
		h.Default(ctx, b, update)
		return
	}

	h.sendInvoice(ctx, msg.Chat.ID, msg.From.ID)
}

// ChangeNameCallback обрабатывает кнопку «Изменить имя» под профилем.
func (h *Handlers) ChangeNameCallback(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}

	if _, err := h.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cq.ID,
		Text:            "ОК, меняем имя.",
	}); err != nil {
		h.log.Warn("failed to answer callback query", sl.UserID(cq.From.ID), sl.Err(err))
	}

	reply, err := h.conv.RequestNameChange(ctx, cq.From.ID)
	if err != nil {
		h.log.Error("name change request failed", sl.UserID(cq.From.ID), sl.Err(err))
	}
	h.sendReply(ctx, cq.From.ID, reply)
}

// PayCallback обрабатывает инлайн-кнопку оплаты.
func (h *Handlers) PayCallback(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}

	if _, err := h.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cq.ID,
		Text:            "Переходим к оплате...",
	}); err != nil {
		h.log.Warn("failed to answer callback query", sl.UserID(cq.From.ID), sl.Err(err))
	}

	h.sendInvoice(ctx, cq.From.ID, cq.From.ID)
}

// Default принимает всё остальное: обычный текст, нетекстовые сообщения,
// pre-checkout и уведомления об успешной оплате.
func (h *Handlers) Default(ctx context.Context, _ *bot.Bot, update *tgmodels.Update) {
	if update.PreCheckoutQuery != nil {
		h.preCheckout(ctx, update.PreCheckoutQuery)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if msg.SuccessfulPayment != nil {
		h.successfulPayment(ctx, msg)
		return
	}

	if msg.Text == "" {
		h.sendReply(ctx, msg.Chat.ID, conversation.Reply{Text: msgNonText})
		return
	}

	reply, err := h.conv.HandleIncoming(ctx, msg.From.ID, msg.Text)
	if err != nil {
		h.log.Error("message handler failed", sl.UserID(msg.From.ID), sl.Err(err))
	}
	h.sendReply(ctx, msg.Chat.ID, reply)
}

// preCheckout подтверждает готовность принять платёж.
func (h *Handlers) preCheckout(ctx context.Context, query *tgmodels.PreCheckoutQuery) {
	h.log.Info("pre-checkout query received",
		sl.UserID(query.From.ID),
		slog.String("payload", query.InvoicePayload),
		slog.Int("total_amount", query.TotalAmount),
		slog.String("currency", query.Currency))

	if _, err := h.api.AnswerPreCheckoutQuery(ctx, &bot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	}); err != nil {
		h.log.Error("failed to answer pre-checkout query", sl.UserID(query.From.ID), sl.Err(err))
	}
}

// successfulPayment фиксирует оплату и сообщает новый срок подписки.
func (h *Handlers) successfulPayment(ctx context.Context, msg *tgmodels.Message) {
	p := msg.SuccessfulPayment

	expiry, err := h.payments.RegisterSuccessfulPayment(ctx, models.Payment{
		TelegramID:       msg.From.ID,
		Amount:           int64(p.TotalAmount),
		Currency:         p.Currency,
		TelegramChargeID: p.TelegramPaymentChargeID,
		ProviderChargeID: p.ProviderPaymentChargeID,
		InvoicePayload:   p.InvoicePayload,
	})
	if err != nil {
		h.log.Error("failed to register successful payment", sl.UserID(msg.From.ID), sl.Err(err))
		h.sendReply(ctx, msg.Chat.ID, conversation.Reply{Text: msgPaymentNotApplied})
		return
	}

	text := fmt.Sprintf(msgPaymentDone, expiry.Format("02.01.2006"))
	h.sendReply(ctx, msg.Chat.ID, conversation.Reply{Text: text, Action: conversation.ActionMainMenu})
}

func (h *Handlers) sendInvoice(ctx context.Context, chatID any, telegramID int64) {
	if !h.tgCfg.PaymentsEnabled() {
		h.sendReply(ctx, chatID, conversation.Reply{Text: msgPaymentsDisabled})
		return
	}

	description := fmt.Sprintf("Продление подписки на %d дней.", h.subCfg.RenewalDays)
	payload := fmt.Sprintf("sub_user_%d_%dd_%s", telegramID, h.subCfg.RenewalDays, uuid.NewString())

	_, err := h.api.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:        chatID,
		Title:         invoiceTitle,
		Description:   description,
		Payload:       payload,
		ProviderToken: h.tgCfg.ProviderToken,
		Currency:      h.subCfg.PriceCurrency,
		Prices: []tgmodels.LabeledPrice{
			{Label: description, Amount: int(h.subCfg.PriceAmount)},
		},
		StartParameter: fmt.Sprintf("pay_%d", telegramID),
	})
	if err != nil {
		h.log.Error("failed to send invoice", sl.UserID(telegramID), sl.Err(err))
		h.sendReply(ctx, chatID, conversation.Reply{Text: msgInvoiceFailed})
		return
	}

	h.log.Info("invoice sent", sl.UserID(telegramID), slog.String("payload", payload))
}

// sendReply отправляет ответ контроллера, прикладывая клавиатуру по Action.
func (h *Handlers) sendReply(ctx context.Context, chatID any, reply conversation.Reply) {
	if reply.Text == "" {
		return
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   reply.Text,
	}
	switch reply.Action {
	case conversation.ActionMainMenu:
		params.ReplyMarkup = MainMenuKeyboard()
	case conversation.ActionProfileMenu:
		params.ReplyMarkup = ProfileKeyboard()
	case conversation.ActionPromptPayment:
		params.ReplyMarkup = PayKeyboard()
	}

	if _, err := h.api.SendMessage(ctx, params); err != nil {
		h.log.Error("failed to send message", sl.Err(err))
	}
}

func fullName(u *tgmodels.User) string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
