package domain

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// AppointmentStatus статус приёма
type AppointmentStatus string

const (
	StatusPending         AppointmentStatus = "pending"
	StatusAwaitingPayment AppointmentStatus = "awaiting_payment"
	StatusConfirmed       AppointmentStatus = "confirmed"
	StatusCancelled       AppointmentStatus = "cancelled"
	StatusCompleted       AppointmentStatus = "completed"
)

// PaymentStatus статус оплаты приёма
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPaid          PaymentStatus = "paid"
	PaymentFailed        PaymentStatus = "failed"
	PaymentRefundPending PaymentStatus = "refund_pending"
)

// CancellationReason причина отмены приёма
type CancellationReason string

const (
	ReasonPatientCancelled CancellationReason = "patient_cancelled"
	ReasonPaymentTimeout   CancellationReason = "payment_timeout"
	ReasonDoctorCancelled  CancellationReason = "doctor_cancelled"
)

// Appointment приём у врача
// (DoctorID, AppointmentDate, StartTime) уникален среди неотменённых приёмов
type Appointment struct {
	ID              int64
	DoctorID        int64
	PatientID       int64
	AppointmentDate time.Time
	StartTime       types.TimeString
	EndTime         types.TimeString
	DurationMinutes int
	Status          AppointmentStatus

	ConsultationFee  int64 // в минимальных единицах валюты
	Currency         string
	PaymentStatus    PaymentStatus
	PaymentMethod    *string
	PaymentReference *string

	Notes             *string
	SharedDocumentIDs []string

	// ExpiresAt дедлайн оплаты для AwaitingPayment
	ExpiresAt *time.Time

	CancellationReason *CancellationReason
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive возвращает true, если приём занимает слот
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCancelled
}

// IsHold возвращает true для предварительной брони (слот удерживается до оплаты)
func (a *Appointment) IsHold() bool {
	return a.Status == StatusPending || a.Status == StatusAwaitingPayment
}

// CanBeCancelled возвращает true, если приём можно отменить
func (a *Appointment) CanBeCancelled() bool {
	return a.Status == StatusPending ||
		a.Status == StatusAwaitingPayment ||
		a.Status == StatusConfirmed
}

// IsHoldExpired возвращает true, если дедлайн оплаты наступил
func (a *Appointment) IsHoldExpired(now time.Time) bool {
	return a.Status == StatusAwaitingPayment &&
		a.ExpiresAt != nil &&
		!now.Before(*a.ExpiresAt)
}

// IsOwnedByPatient возвращает true, если приём принадлежит пациенту
func (a *Appointment) IsOwnedByPatient(patientID int64) bool {
	return a.PatientID == patientID
}

// Overlaps проверяет пересечение приёма с интервалом [start, end)
// Граничные касания пересечением не считаются
func (a *Appointment) Overlaps(start, end types.TimeString) bool {
	return a.StartTime.IsBefore(end) && a.EndTime.IsAfter(start)
}

// SlotKey ключ точки арбитража для врача и даты
func SlotKey(doctorID int64, date time.Time) string {
	return fmt.Sprintf("doctor:%d:date:%s", doctorID, date.Format(DateFormat))
}

// AppointmentFilter фильтр выборки приёмов врача
type AppointmentFilter struct {
	DoctorID         int64              // Обязательный параметр
	StartDate        *time.Time         // Начало периода (включительно)
	EndDate          *time.Time         // Конец периода (включительно)
	Status           *AppointmentStatus // Фильтр по статусу
	IncludeCancelled bool               // Включать отменённые приёмы
}
