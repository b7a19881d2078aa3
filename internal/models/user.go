// Package models содержит доменную модель пользователя бота,
// записей диалога и платежей. Структуры используются в бизнес‑логике
// и при работе с хранилищем.
package models

import "time"

// User представляет пользователя телеграм-бота.
type User struct {
	TelegramID         int64      // Идентификатор пользователя в Telegram
	FullName           string     // Отображаемое имя
	Username           string     // Telegram username, может быть пустым
	JoinDate           time.Time  // Дата первого контакта
	SubscriptionExpiry *time.Time // Дата истечения доступа, nil означает "истёк"
}
