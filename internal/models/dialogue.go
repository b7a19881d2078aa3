package models

import "time"

// Sender указывает, кто является автором записи диалога.
type Sender string

const (
	// SenderUser — сообщение написано пользователем.
	SenderUser Sender = "user"
	// SenderBot — сообщение написано ботом.
	SenderBot Sender = "bot"
)

// DialogueMessage представляет одну запись диалога пользователя с ботом.
// Записи только добавляются и упорядочены по времени.
type DialogueMessage struct {
	ID         int64
	TelegramID int64
	Text       string
	Timestamp  time.Time
	Sender     Sender
}
