package get_available_dates

import (
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	getAvailableDates "github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_dates"
)

// AvailableDatesResponse HTTP response model
type AvailableDatesResponse struct {
	DoctorID int64           `json:"doctorId"`
	From     string          `json:"from"`
	To       string          `json:"to"`
	Dates    []AvailableDate `json:"dates"`
}

// AvailableDate дата с доступными слотами
type AvailableDate struct {
	Date           string `json:"date"`
	AvailableSlots int    `json:"availableSlots"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableDates.Response) *AvailableDatesResponse {
	dates := make([]AvailableDate, len(resp.Dates))
	for i, d := range resp.Dates {
		dates[i] = AvailableDate{
			Date:           d.Date.Format(domain.DateFormat),
			AvailableSlots: d.AvailableSlots,
		}
	}

	return &AvailableDatesResponse{
		DoctorID: resp.DoctorID,
		From:     resp.From.Format(domain.DateFormat),
		To:       resp.To.Format(domain.DateFormat),
		Dates:    dates,
	}
}
