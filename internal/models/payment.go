package models

import "time"

// PaymentStatusSuccessful — статус успешно завершённого платежа.
const PaymentStatusSuccessful = "successful"

// Payment представляет запись аудита об одном платеже пользователя.
// Сумма хранится в минимальных единицах валюты.
type Payment struct {
	ID               int64
	TelegramID       int64
	Amount           int64
	Currency         string
	Status           string
	TelegramChargeID string
	ProviderChargeID string
	InvoicePayload   string
	Timestamp        time.Time
}
