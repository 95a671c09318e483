package models

import (
	"errors"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid appointment status")
)

// Request модели

// GetPatientAppointmentsRequest запрос на получение приёмов пациента
type GetPatientAppointmentsRequest struct {
	PatientID int64   `json:"patientId"`
	Status    *string `json:"status,omitempty"`
}

// GetDoctorAppointmentsRequest запрос на получение приёмов врача
type GetDoctorAppointmentsRequest struct {
	UserID           int64      `json:"userId"`                     // пользователь, владеющий профилем врача
	DoctorID         int64      `json:"doctorId"`
	StartDate        *time.Time `json:"startDate,omitempty"`        // Начало периода (опционально)
	EndDate          *time.Time `json:"endDate,omitempty"`          // Конец периода (опционально)
	Status           *string    `json:"status,omitempty"`           // Фильтр по статусу (опционально)
	IncludeCancelled bool       `json:"includeCancelled,omitempty"` // Включить отменённые приёмы
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *GetDoctorAppointmentsRequest) ToDomainFilter() (domain.AppointmentFilter, error) {
	filter := domain.AppointmentFilter{
		DoctorID:         r.DoctorID,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		IncludeCancelled: r.IncludeCancelled,
	}

	if r.Status != nil {
		status, err := ToDomainStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	return filter, nil
}

// Response модели

// AppointmentResponse ответ с данными приёма
type AppointmentResponse struct {
	ID              int64  `json:"id"`
	DoctorID        int64  `json:"doctorId"`
	PatientID       int64  `json:"patientId"`
	AppointmentDate string `json:"appointmentDate"` // "2025-01-10"
	StartTime       string `json:"startTime"`       // "10:00"
	EndTime         string `json:"endTime"`         // "10:30"
	DurationMinutes int    `json:"durationMinutes"`
	Status          string `json:"status"`

	ConsultationFee  int64   `json:"consultationFee"` // в минимальных единицах валюты
	Currency         string  `json:"currency"`
	PaymentStatus    string  `json:"paymentStatus"`
	PaymentMethod    *string `json:"paymentMethod,omitempty"`
	PaymentReference *string `json:"paymentReference,omitempty"`

	Notes             *string  `json:"notes,omitempty"`
	SharedDocumentIDs []string `json:"sharedDocumentIds"`

	ExpiresAt          *string `json:"expiresAt,omitempty"` // ISO 8601, дедлайн оплаты
	CancellationReason *string `json:"cancellationReason,omitempty"`
	ConfirmedAt        *string `json:"confirmedAt,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppointmentListResponse ответ со списком приёмов
type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

// Методы конвертации

// FromDomainAppointment конвертирует domain модель в DTO
func FromDomainAppointment(a *domain.Appointment) *AppointmentResponse {
	if a == nil {
		return nil
	}

	resp := &AppointmentResponse{
		ID:                a.ID,
		DoctorID:          a.DoctorID,
		PatientID:         a.PatientID,
		AppointmentDate:   a.AppointmentDate.Format(domain.DateFormat),
		StartTime:         a.StartTime.String(),
		EndTime:           a.EndTime.String(),
		DurationMinutes:   a.DurationMinutes,
		Status:            string(a.Status),
		ConsultationFee:   a.ConsultationFee,
		Currency:          a.Currency,
		PaymentStatus:     string(a.PaymentStatus),
		PaymentMethod:     a.PaymentMethod,
		PaymentReference:  a.PaymentReference,
		Notes:             a.Notes,
		SharedDocumentIDs: a.SharedDocumentIDs,
		ExpiresAt:         formatTime(a.ExpiresAt),
		ConfirmedAt:       formatTime(a.ConfirmedAt),
		CancelledAt:       formatTime(a.CancelledAt),
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}

	if resp.SharedDocumentIDs == nil {
		resp.SharedDocumentIDs = []string{}
	}

	if a.CancellationReason != nil {
		reason := string(*a.CancellationReason)
		resp.CancellationReason = &reason
	}

	return resp
}

// FromDomainAppointmentList конвертирует список domain моделей в DTO
func FromDomainAppointmentList(appointments []*domain.Appointment) *AppointmentListResponse {
	resp := &AppointmentListResponse{
		Appointments: make([]AppointmentResponse, 0, len(appointments)),
	}

	for _, a := range appointments {
		if converted := FromDomainAppointment(a); converted != nil {
			resp.Appointments = append(resp.Appointments, *converted)
		}
	}

	return resp
}

// ToDomainStatus конвертирует строку в domain.AppointmentStatus с валидацией
func ToDomainStatus(status string) (domain.AppointmentStatus, error) {
	s := domain.AppointmentStatus(status)

	switch s {
	case domain.StatusPending,
		domain.StatusAwaitingPayment,
		domain.StatusConfirmed,
		domain.StatusCancelled,
		domain.StatusCompleted:
		return s, nil
	}

	return "", ErrInvalidStatus
}

// formatTime конвертирует время в строку ISO 8601
func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
