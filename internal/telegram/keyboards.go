package telegram

import (
	tgmodels "github.com/go-telegram/bot/models"
)

// Данные callback-кнопок.
const (
	callbackChangeName = "change_name_profile"
	callbackPay        = "pay_for_subscription"
)

// MainMenuKeyboard — постоянная reply-клавиатура главного меню.
func MainMenuKeyboard() *tgmodels.ReplyKeyboardMarkup {
	return &tgmodels.ReplyKeyboardMarkup{
		Keyboard: [][]tgmodels.KeyboardButton{
			{
				{Text: buttonProfile},
				{Text: buttonInfo},
			},
			{
				{Text: buttonSubscription},
			},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}
}

// ProfileKeyboard — инлайн-кнопка смены имени под карточкой профиля.
func ProfileKeyboard() *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "Изменить имя", CallbackData: callbackChangeName},
			},
		},
	}
}

// PayKeyboard — инлайн-кнопка перехода к оплате.
func PayKeyboard() *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "Оплатить подписку", CallbackData: callbackPay},
			},
		},
	}
}
