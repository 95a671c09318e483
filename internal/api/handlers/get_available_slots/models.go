package get_available_slots

import (
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	getAvailableSlots "github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
)

// SlotsResponse HTTP response model
type SlotsResponse struct {
	DoctorID  int64     `json:"doctorId"`
	Date      string    `json:"date"`
	HasWindow bool      `json:"hasWindow"`
	Slots     []Slot    `json:"slots"`     // все слоты дня
	Available []Slot    `json:"available"` // можно забронировать сейчас
	Stats     SlotStats `json:"stats"`
}

// Slot модель временного слота
type Slot struct {
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	DurationMinutes int    `json:"durationMinutes"`
	State           string `json:"state"` // available | reserved | booked
	Past            bool   `json:"past"`
}

// SlotStats статистика по слотам дня
type SlotStats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Reserved  int `json:"reserved"`
	Booked    int `json:"booked"`
	Past      int `json:"past"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response) *SlotsResponse {
	return &SlotsResponse{
		DoctorID:  resp.DoctorID,
		Date:      resp.Date.Format(domain.DateFormat),
		HasWindow: resp.HasWindow,
		Slots:     fromDomainSlots(resp.Slots),
		Available: fromDomainSlots(resp.Available),
		Stats: SlotStats{
			Total:     resp.Stats.Total,
			Available: resp.Stats.Available,
			Reserved:  resp.Stats.Reserved,
			Booked:    resp.Stats.Booked,
			Past:      resp.Stats.Past,
		},
	}
}

func fromDomainSlots(slots []domain.Slot) []Slot {
	result := make([]Slot, len(slots))
	for i, s := range slots {
		result[i] = Slot{
			StartTime:       s.StartTime.String(),
			EndTime:         s.EndTime.String(),
			DurationMinutes: s.DurationMinutes,
			State:           string(s.State),
			Past:            s.Past,
		}
	}
	return result
}
