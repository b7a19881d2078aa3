package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/levkhmelev/psy-support-bot/internal/config"
	"github.com/levkhmelev/psy-support-bot/internal/models"
	"github.com/levkhmelev/psy-support-bot/internal/services/conversation"
)

type APIMock struct{ mock.Mock }

func (m *APIMock) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*tgmodels.Message)
	return msg, args.Error(1)
}

func (m *APIMock) SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*tgmodels.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*tgmodels.Message)
	return msg, args.Error(1)
}

func (m *APIMock) AnswerPreCheckoutQuery(ctx context.Context, params *bot.AnswerPreCheckoutQueryParams) (bool, error) {
	args := m.Called(ctx, params)
	return args.Bool(0), args.Error(1)
}

func (m *APIMock) AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error) {
	args := m.Called(ctx, params)
	return args.Bool(0), args.Error(1)
}

type ConvMock struct{ mock.Mock }

func (m *ConvMock) Start(ctx context.Context, telegramID int64, fullName, username, text string) (conversation.Reply, error) {
	args := m.Called(ctx, telegramID, fullName, username, text)
	return args.Get(0).(conversation.Reply), args.Error(1)
}

func (m *ConvMock) HandleIncoming(ctx context.Context, telegramID int64, text string) (conversation.Reply, error) {
	args := m.Called(ctx, telegramID, text)
	return args.Get(0).(conversation.Reply), args.Error(1)
}

func (m *ConvMock) AwaitingName(ctx context.Context, telegramID int64) bool {
	return m.Called(ctx, telegramID).Bool(0)
}

func (m *ConvMock) RequestNameChange(ctx context.Context, telegramID int64) (conversation.Reply, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(conversation.Reply), args.Error(1)
}

func (m *ConvMock) Info(ctx context.Context, telegramID int64, text string) conversation.Reply {
	return m.Called(ctx, telegramID, text).Get(0).(conversation.Reply)
}

func (m *ConvMock) Profile(ctx context.Context, telegramID int64) (conversation.Reply, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(conversation.Reply), args.Error(1)
}

type PaymentsMock struct{ mock.Mock }

func (m *PaymentsMock) RegisterSuccessfulPayment(ctx context.Context, p models.Payment) (time.Time, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(time.Time), args.Error(1)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newHandlers(api *APIMock, conv *ConvMock, payments *PaymentsMock) *Handlers {
	tgCfg := config.Telegram{Token: "token", ProviderToken: "provider-token"}
	subCfg := config.Subscription{
		TrialDays:     3,
		RenewalDays:   30,
		PriceAmount:   18900,
		PriceCurrency: "RUB",
	}
	return NewHandlers(api, conv, payments, tgCfg, subCfg, NewNoopLogger())
}

func textUpdate(userID int64, chatID int64, text string) *tgmodels.Update {
	return &tgmodels.Update{
		Message: &tgmodels.Message{
			From: &tgmodels.User{ID: userID, FirstName: "Аня", LastName: "Иванова", Username: "anya"},
			Chat: tgmodels.Chat{ID: chatID},
			Text: text,
		},
	}
}

func TestStartHandler(t *testing.T) {
	api := new(APIMock)
	conv := new(ConvMock)
	payments := new(PaymentsMock)
	h := newHandlers(api, conv, payments)

	conv.On("Start", mock.Anything, int64(100), "Аня Иванова", "anya", "/start").
		Return(conversation.Reply{Text: "Снова привет, Аня!", Action: conversation.ActionMainMenu}, nil).Once()
	api.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.Text == "Снова привет, Аня!" && p.ReplyMarkup != nil
	})).Return(&tgmodels.Message{}, nil).Once()

	h.Start(context.Background(), nil, textUpdate(100, 500, "/start"))

	api.AssertExpectations(t)
	conv.AssertExpectations(t)
}

func TestDefaultHandler_Text(t *testing.T) {
	api := new(APIMock)
	conv := new(ConvMock)
	h := newHandlers(api, conv, new(PaymentsMock))

	conv.On("HandleIncoming", mock.Anything, int64(100), "мне тревожно").
		Return(conversation.Reply{Text: "расскажи подробнее"}, nil).Once()
	api.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.Text == "расскажи подробнее" && p.ChatID == int64(500)
	})).Return(&tgmodels.Message{}, nil).Once()

	h.Default(context.Background(), nil, textUpdate(100, 500, "мне тревожно"))

	api.AssertExpectations(t)
	conv.AssertExpectations(t)
}

func TestDefaultHandler_NonText(t *testing.T) {
	api := new(APIMock)
	conv := new(ConvMock)
	h := newHandlers(api, conv, new(PaymentsMock))

	api.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.Text == msgNonText
	})).Return(&tgmodels.Message{}, nil).Once()

	h.Default(context.Background(), nil, textUpdate(100, 500, ""))

	api.AssertExpectations(t)
	conv.AssertNotCalled(t, "HandleIncoming", mock.Anything, mock.Anything, mock.Anything)
}

func TestDefaultHandler_PreCheckout(t *testing.T) {
	api := new(APIMock)
	h := newHandlers(api, new(ConvMock), new(PaymentsMock))

	api.On("AnswerPreCheckoutQuery", mock.Anything, mock.MatchedBy(func(p *bot.AnswerPreCheckoutQueryParams) bool {
		return p.PreCheckoutQueryID == "query-1" && p.OK
	})).Return(true, nil).Once()

	update := &tgmodels.Update{
		PreCheckoutQuery: &tgmodels.PreCheckoutQuery{
			ID:             "query-1",
			From:           &tgmodels.User{ID: 100},
			Currency:       "RUB",
			TotalAmount:    18900,
			InvoicePayload: "sub_user_100_30d_abc",
		},
	}
	h.Default(context.Background(), nil, update)

	api.AssertExpectations(t)
}

func TestDefaultHandler_SuccessfulPayment(t *testing.T) {
	newExpiry := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	update := &tgmodels.Update{
		Message: &tgmodels.Message{
			From: &tgmodels.User{ID: 100},
			Chat: tgmodels.Chat{ID: 500},
			SuccessfulPayment: &tgmodels.SuccessfulPayment{
				Currency:                "RUB",
				TotalAmount:             18900,
				InvoicePayload:          "sub_user_100_30d_abc",
				TelegramPaymentChargeID: "tg-1",
				ProviderPaymentChargeID: "prov-1",
			},
		},
	}

	t.Run("extends subscription and confirms", func(t *testing.T) {
		api := new(APIMock)
		payments := new(PaymentsMock)
		h := newHandlers(api, new(ConvMock), payments)

		payments.On("RegisterSuccessfulPayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
			return p.TelegramID == 100 &&
				p.Amount == 18900 &&
				p.Currency == "RUB" &&
				p.TelegramChargeID == "tg-1" &&
				p.ProviderChargeID == "prov-1"
		})).Return(newExpiry, nil).Once()
		api.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
			return strings.Contains(p.Text, "01.10.2026")
		})).Return(&tgmodels.Message{}, nil).Once()

		h.Default(context.Background(), nil, update)

		api.AssertExpectations(t)
		payments.AssertExpectations(t)
	})

	t.Run("registration failure asks to contact support", func(t *testing.T) {
		api := new(APIMock)
		payments := new(PaymentsMock)
		h := newHandlers(api, new(ConvMock), payments)

		payments.On("RegisterSuccessfulPayment", mock.Anything, mock.Anything).
			Return(time.Time{}, errors.New("connection refused")).Once()
		api.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
			return p.Text == msgPaymentNotApplied
		})).Return(&tgmodels.Message{}, nil).Once()

		h.Default(context.Background(), nil, update)

		api.AssertExpectations(t)
		payments.AssertExpectations(t)
	})
}

func TestSubscriptionHandler(t *testing.T) {
	t.Run("sends invoice", func(t *testing.T) {
		api := new(APIMock)
		conv := new(ConvMock)
		h := newHandlers(api, conv, new(PaymentsMock))

		conv.On("AwaitingName", mock.Anything, int64(100)).Return(false).Once()
		api.On("SendInvoice", mock.Anything, mock.MatchedBy(func(p *bot.SendInvoiceParams) bool {
			return p.Title == invoiceTitle &&
				p.Currency == "RUB" &&
				len(p.Prices) == 1 &&
				p.Prices[0].Amount == 18900 &&
				strings.HasPrefix(p.Payload, "sub_user_100_30d_")
		})).Return(&tgmodels.Message{}, nil).Once()

		h.Subscription(context.Background(), nil, textUpdate(100, 500, buttonSubscription))

		api.AssertExpectations(t)
		conv.AssertExpectations(t)
	})

	t.Run("payments disabled", func(t *testing.T) {
		api := new(APIMock)
		conv := new(ConvMock)
		tgCfg := config.Telegram{Token: "token"}
		subCfg := config.Subscription{RenewalDays: 30, PriceAmount: 18900, PriceCurrency: "RUB"}
		h := NewHandlers(api, conv, new(PaymentsMock), tgCfg, subCfg, NewNoopLogger())

		conv.On("AwaitingName", mock.Anything, int64(100)).Return(false).Once()
		api.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
			return p.Text == msgPaymentsDisabled
		})).Return(&tgmodels.Message{}, nil).Once()

		h.Subscription(context.Background(), nil, textUpdate(100, 500, buttonSubscription))

		api.AssertExpectations(t)
		api.AssertNotCalled(t, "SendInvoice", mock.Anything, mock.Anything)
	})

	t.Run("invoice failure reported to user", func(t *testing.T) {
		api := new(APIMock)
		conv := new(ConvMock)
		h := newHandlers(api, conv, new(PaymentsMock))

		conv.On("AwaitingName", mock.Anything, int64(100)).Return(false).Once()
		api.On("SendInvoice", mock.Anything, mock.Anything).
			Return(nil, errors.New("bad request")).Once()
		api.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
			return p.Text == msgInvoiceFailed
		})).Return(&tgmodels.Message{}, nil).Once()

		h.Subscription(context.Background(), nil, textUpdate(100, 500, buttonSubscription))

		api.AssertExpectations(t)
	})
}

func TestMenuButtonsDuringNameInput(t *testing.T) {
	// В режиме ввода имени текст кнопки — это имя, а не команда меню.
	api := new(APIMock)
	conv := new(ConvMock)
	h := newHandlers(api, conv, new(PaymentsMock))

	conv.On("AwaitingName", mock.Anything, int64(100)).Return(true).Once()
	conv.On("HandleIncoming", mock.Anything, int64(100), buttonProfile).
		Return(conversation.Reply{Text: "Отлично, буду обращаться к тебе Профиль!"}, nil).Once()
	api.On("SendMessage", mock.Anything, mock.Anything).Return(&tgmodels.Message{}, nil).Once()

	h.Profile(context.Background(), nil, textUpdate(100, 500, buttonProfile))

	api.AssertExpectations(t)
	conv.AssertExpectations(t)
	conv.AssertNotCalled(t, "Profile", mock.Anything, mock.Anything)
}

func TestChangeNameCallback(t *testing.T) {
	api := new(APIMock)
	conv := new(ConvMock)
	h := newHandlers(api, conv, new(PaymentsMock))

	api.On("AnswerCallbackQuery", mock.Anything, mock.MatchedBy(func(p *bot.AnswerCallbackQueryParams) bool {
		return p.CallbackQueryID == "cq-1"
	})).Return(true, nil).Once()
	conv.On("RequestNameChange", mock.Anything, int64(100)).
		Return(conversation.Reply{Text: "Пожалуйста, введи новое имя, которое будет использоваться."}, nil).Once()
	api.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.ChatID == int64(100)
	})).Return(&tgmodels.Message{}, nil).Once()

	update := &tgmodels.Update{
		CallbackQuery: &tgmodels.CallbackQuery{
			ID:   "cq-1",
			From: tgmodels.User{ID: 100},
			Data: callbackChangeName,
		},
	}
	h.ChangeNameCallback(context.Background(), nil, update)

	api.AssertExpectations(t)
	conv.AssertExpectations(t)
}

func TestPayCallback(t *testing.T) {
	api := new(APIMock)
	conv := new(ConvMock)
	h := newHandlers(api, conv, new(PaymentsMock))

	api.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(true, nil).Once()
	api.On("SendInvoice", mock.Anything, mock.MatchedBy(func(p *bot.SendInvoiceParams) bool {
		return p.ChatID == int64(100)
	})).Return(&tgmodels.Message{}, nil).Once()

	update := &tgmodels.Update{
		CallbackQuery: &tgmodels.CallbackQuery{
			ID:   "cq-2",
			From: tgmodels.User{ID: 100},
			Data: callbackPay,
		},
	}
	h.PayCallback(context.Background(), nil, update)

	api.AssertExpectations(t)
}

func TestSender(t *testing.T) {
	api := new(APIMock)
	api.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return p.ChatID == int64(100) && p.Text == "напоминание"
	})).Return(&tgmodels.Message{}, nil).Once()

	s := NewSender(api)
	err := s.SendText(context.Background(), 100, "напоминание")
	assert.NoError(t, err)

	api.AssertExpectations(t)
}
