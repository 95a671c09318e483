package domain

import "time"

// Значения по умолчанию
const (
	DefaultHoldMinutes             = 15
	DefaultAdvanceBookingDays      = 30
	DefaultMinBookingNoticeMinutes = 0
	DefaultCurrency                = "usd"
)

// Ограничения бизнес-валидации
const (
	MinSlotDurationMinutes      = 5
	MaxSlotDurationMinutes      = 480 // 8 часов
	MaxNotesLength              = 500
	MaxSharedDocuments          = 10
	MaxCancellationReasonLength = 500
)

// Форматы даты и времени
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// HoldStatuses статусы, удерживающие слот до оплаты (слот Reserved)
var HoldStatuses = []AppointmentStatus{
	StatusPending,
	StatusAwaitingPayment,
}

// ActiveStatuses статусы, занимающие слот
var ActiveStatuses = []AppointmentStatus{
	StatusPending,
	StatusAwaitingPayment,
	StatusConfirmed,
	StatusCompleted,
}

// DateOnly обнуляет время, оставляя дату в UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает дату YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateFormat, s)
}
