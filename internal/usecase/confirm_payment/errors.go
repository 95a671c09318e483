package confirm_payment

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда приём не найден
	ErrAppointmentNotFound = errors.New("confirm_payment: appointment not found")

	// ErrAccessDenied возвращается, когда приём не принадлежит пациенту
	ErrAccessDenied = errors.New("confirm_payment: access denied")

	// ErrNotAwaitingPayment возвращается, когда приём не ожидает оплаты
	ErrNotAwaitingPayment = errors.New("confirm_payment: appointment is not awaiting payment")

	// ErrGatewayUnavailable возвращается, когда шлюз не дал вердикт
	ErrGatewayUnavailable = errors.New("confirm_payment: payment gateway unavailable")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("confirm_payment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("confirm_payment: internal error")
)

// Результаты подтверждения для метрик
const (
	resultConfirmed = "confirmed"
	resultDuplicate = "duplicate"
	resultRejected  = "rejected"
	resultExpired   = "expired"
	resultError     = "error"
)
