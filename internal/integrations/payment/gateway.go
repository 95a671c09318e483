// Package payment получает от платёжного шлюза вердикт по оплате приёма.
// Движение денег происходит во внешнем шлюзе, сервис только фиксирует результат.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrGatewayUnavailable шлюз не ответил, вердикт неизвестен
	ErrGatewayUnavailable = errors.New("payment gateway: unavailable")

	// ErrInvalidCharge некорректные параметры платежа
	ErrInvalidCharge = errors.New("payment gateway: invalid charge")
)

// Charge запрос на списание за приём
type Charge struct {
	AppointmentID  int64
	Amount         int64 // в минимальных единицах валюты
	Currency       string
	PaymentMethod  string
	IdempotencyKey string
}

// Verdict решение шлюза
type Verdict struct {
	Approved      bool
	Reference     string
	DeclineReason string
}

// Gateway платёжный шлюз
// Повторный вызов с тем же IdempotencyKey не приводит к повторному списанию
type Gateway interface {
	Charge(ctx context.Context, charge Charge) (*Verdict, error)
}

func validateCharge(charge Charge) error {
	if charge.Amount < 0 {
		return errors.Join(ErrInvalidCharge, errors.New("amount must not be negative"))
	}
	if charge.Currency == "" {
		return errors.Join(ErrInvalidCharge, errors.New("currency is required"))
	}
	if charge.PaymentMethod == "" {
		return errors.Join(ErrInvalidCharge, errors.New("payment method is required"))
	}
	if charge.IdempotencyKey == "" {
		return errors.Join(ErrInvalidCharge, errors.New("idempotency key is required"))
	}
	return nil
}
