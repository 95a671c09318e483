package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

var (
	// ErrConfiguration некорректное рабочее окно врача
	ErrConfiguration = errors.New("domain: invalid availability window")

	// ErrSlotAlreadyTaken слот уже занят другим приёмом
	ErrSlotAlreadyTaken = errors.New("domain: slot already taken")

	// ErrValidation запрос отклонён до арбитража
	ErrValidation = errors.New("domain: validation failed")

	// ErrReservationExpired дедлайн оплаты истёк
	ErrReservationExpired = errors.New("domain: reservation expired")

	// ErrArbitrationUnavailable точку арбитража не удалось получить вовремя
	ErrArbitrationUnavailable = errors.New("domain: slot arbitration unavailable")

	// ErrPaymentRejected оплата отклонена
	ErrPaymentRejected = errors.New("domain: payment rejected")
)

// ConfigurationError ошибка конфигурации рабочего окна
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ConflictReasonSlotAlreadyTaken единственная причина конфликта
const ConflictReasonSlotAlreadyTaken = "slot_already_taken"

// ConflictError слот уже занят, нужно заново получить список слотов
type ConflictError struct {
	DoctorID  int64
	Date      time.Time
	StartTime types.TimeString
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s (doctor=%d, date=%s, start=%s)",
		ConflictReasonSlotAlreadyTaken, e.DoctorID, e.Date.Format(DateFormat), e.StartTime)
}

// Reason причина конфликта
func (e *ConflictError) Reason() string {
	return ConflictReasonSlotAlreadyTaken
}

func (e *ConflictError) Unwrap() error {
	return ErrSlotAlreadyTaken
}

// ValidationError некорректный запрос на бронирование
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ExpiredReservationError оплата пришла после дедлайна, приём остаётся отменённым
// Является частным случаем отказа в оплате (Rejected{expired})
type ExpiredReservationError struct {
	AppointmentID int64
	Deadline      time.Time
}

func (e *ExpiredReservationError) Error() string {
	return fmt.Sprintf("reservation %d expired at %s", e.AppointmentID, e.Deadline.Format(time.RFC3339))
}

func (e *ExpiredReservationError) Unwrap() []error {
	return []error{ErrReservationExpired, ErrPaymentRejected}
}

// TransientArbitrationError блокировку не удалось получить за отведённое число попыток
type TransientArbitrationError struct {
	Key      string
	Attempts int
	Err      error
}

func (e *TransientArbitrationError) Error() string {
	return fmt.Sprintf("arbitration for %s unavailable after %d attempts: %v", e.Key, e.Attempts, e.Err)
}

func (e *TransientArbitrationError) Unwrap() []error {
	return []error{ErrArbitrationUnavailable, e.Err}
}

// RejectReason причина отказа в оплате
type RejectReason string

const (
	RejectDeclined       RejectReason = "declined"
	RejectAmountMismatch RejectReason = "amount_mismatch"
	RejectCancelled      RejectReason = "cancelled"
	RejectExpired        RejectReason = "expired"
)

// PaymentRejectedError отказ в подтверждении оплаты
type PaymentRejectedError struct {
	AppointmentID int64
	Reason        RejectReason
	Detail        string
}

func (e *PaymentRejectedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("payment for appointment %d rejected: %s (%s)", e.AppointmentID, e.Reason, e.Detail)
	}
	return fmt.Sprintf("payment for appointment %d rejected: %s", e.AppointmentID, e.Reason)
}

func (e *PaymentRejectedError) Unwrap() error {
	return ErrPaymentRejected
}
