package reserve_appointment

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	reserveSlot "github.com/m04kA/SMC-AppointmentService/internal/usecase/reserve_slot"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// ReserveAppointmentRequest HTTP request model
type ReserveAppointmentRequest struct {
	DoctorID          int64    `json:"doctorId"`
	AppointmentDate   string   `json:"appointmentDate"` // "2025-01-10"
	StartTime         string   `json:"startTime"`       // "10:00"
	Notes             *string  `json:"notes,omitempty"`
	SharedDocumentIDs []string `json:"sharedDocumentIds,omitempty"`
}

// ReservationResponse HTTP response model (удержание слота до оплаты)
type ReservationResponse struct {
	AppointmentID   int64  `json:"appointmentId"`
	DoctorID        int64  `json:"doctorId"`
	PatientID       int64  `json:"patientId"`
	AppointmentDate string `json:"appointmentDate"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	DurationMinutes int    `json:"durationMinutes"`
	Status          string `json:"status"`
	ConsultationFee int64  `json:"consultationFee"`
	Currency        string `json:"currency"`
	ExpiresAt       string `json:"expiresAt"` // дедлайн оплаты, RFC3339
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *ReserveAppointmentRequest) ToUseCaseRequest(patientID int64) (*reserveSlot.Request, error) {
	date, err := domain.ParseDate(r.AppointmentDate)
	if err != nil {
		return nil, errInvalidDate
	}

	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, errInvalidTime
	}

	return &reserveSlot.Request{
		PatientID:         patientID,
		DoctorID:          r.DoctorID,
		Date:              date,
		StartTime:         startTime,
		Notes:             r.Notes,
		SharedDocumentIDs: r.SharedDocumentIDs,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *reserveSlot.Response) *ReservationResponse {
	a := resp.Appointment
	return &ReservationResponse{
		AppointmentID:   a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		AppointmentDate: a.AppointmentDate.Format(domain.DateFormat),
		StartTime:       a.StartTime.String(),
		EndTime:         a.EndTime.String(),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		ConsultationFee: a.ConsultationFee,
		Currency:        a.Currency,
		ExpiresAt:       resp.ExpiresAt.Format(time.RFC3339),
	}
}
