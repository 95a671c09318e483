package upsert_availability

import "github.com/m04kA/SMC-AppointmentService/internal/service/availability/models"

// UpsertWindowRequest HTTP request model, дата берётся из пути
type UpsertWindowRequest struct {
	StartTime           string                `json:"startTime"` // "09:00"
	EndTime             string                `json:"endTime"`   // "17:00"
	SlotDurationMinutes int                   `json:"slotDurationMinutes"`
	Breaks              []models.BreakRequest `json:"breaks,omitempty"`
}

// ToServiceRequest конвертирует HTTP запрос в модель сервиса
func (r *UpsertWindowRequest) ToServiceRequest(userID, doctorID int64, date string) *models.UpsertWindowRequest {
	return &models.UpsertWindowRequest{
		UserID:              userID,
		DoctorID:            doctorID,
		Date:                date,
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		SlotDurationMinutes: r.SlotDurationMinutes,
		Breaks:              r.Breaks,
	}
}
