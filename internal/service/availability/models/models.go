package models

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// Request модели

// BreakRequest перерыв внутри окна
type BreakRequest struct {
	Start string `json:"start"` // "13:00"
	End   string `json:"end"`   // "14:00"
}

// UpsertWindowRequest запрос на создание или замену рабочего окна
type UpsertWindowRequest struct {
	UserID              int64          `json:"-"`
	DoctorID            int64          `json:"-"`
	Date                string         `json:"date"`      // "2025-01-10"
	StartTime           string         `json:"startTime"` // "09:00"
	EndTime             string         `json:"endTime"`   // "17:00"
	SlotDurationMinutes int            `json:"slotDurationMinutes"`
	Breaks              []BreakRequest `json:"breaks,omitempty"`
}

// ToDomainWindow конвертирует request в domain модель
// Формат полей проверяется здесь, бизнес-правила окна проверяет domain.AvailabilityWindow.Validate
func (r *UpsertWindowRequest) ToDomainWindow() (*domain.AvailabilityWindow, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}

	start, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "startTime", Reason: err.Error()}
	}
	end, err := types.NewTimeStringFromString(r.EndTime)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "endTime", Reason: err.Error()}
	}

	breaks := make([]domain.BreakInterval, 0, len(r.Breaks))
	for i, br := range r.Breaks {
		brStart, err := types.NewTimeStringFromString(br.Start)
		if err != nil {
			return nil, &domain.ConfigurationError{Field: fmt.Sprintf("breaks[%d].start", i), Reason: err.Error()}
		}
		brEnd, err := types.NewTimeStringFromString(br.End)
		if err != nil {
			return nil, &domain.ConfigurationError{Field: fmt.Sprintf("breaks[%d].end", i), Reason: err.Error()}
		}
		breaks = append(breaks, domain.BreakInterval{Start: brStart, End: brEnd})
	}

	return &domain.AvailabilityWindow{
		DoctorID:            r.DoctorID,
		Date:                date,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: r.SlotDurationMinutes,
		Breaks:              breaks,
	}, nil
}

// DeleteWindowRequest запрос на удаление рабочего окна
type DeleteWindowRequest struct {
	UserID   int64
	DoctorID int64
	Date     time.Time
}

// GetWindowsRequest запрос на получение окон врача за период
type GetWindowsRequest struct {
	DoctorID int64
	From     *time.Time // по умолчанию сегодня
	To       *time.Time // по умолчанию последняя дата записи
}

// Response модели

// BreakResponse перерыв внутри окна
type BreakResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WindowResponse ответ с рабочим окном врача
type WindowResponse struct {
	ID                  int64           `json:"id"`
	DoctorID            int64           `json:"doctorId"`
	Date                string          `json:"date"`
	StartTime           string          `json:"startTime"`
	EndTime             string          `json:"endTime"`
	SlotDurationMinutes int             `json:"slotDurationMinutes"`
	Breaks              []BreakResponse `json:"breaks"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// WindowListResponse ответ со списком окон
type WindowListResponse struct {
	DoctorID int64            `json:"doctorId"`
	From     string           `json:"from"`
	To       string           `json:"to"`
	Windows  []WindowResponse `json:"windows"`
}

// Методы конвертации

// FromDomainWindow конвертирует domain модель в DTO
func FromDomainWindow(w *domain.AvailabilityWindow) *WindowResponse {
	if w == nil {
		return nil
	}

	breaks := make([]BreakResponse, 0, len(w.Breaks))
	for _, br := range w.Breaks {
		breaks = append(breaks, BreakResponse{Start: br.Start.String(), End: br.End.String()})
	}

	return &WindowResponse{
		ID:                  w.ID,
		DoctorID:            w.DoctorID,
		Date:                w.Date.Format(domain.DateFormat),
		StartTime:           w.StartTime.String(),
		EndTime:             w.EndTime.String(),
		SlotDurationMinutes: w.SlotDurationMinutes,
		Breaks:              breaks,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
	}
}

// FromDomainWindowList конвертирует список domain моделей в DTO
func FromDomainWindowList(doctorID int64, from, to time.Time, windows []*domain.AvailabilityWindow) *WindowListResponse {
	resp := &WindowListResponse{
		DoctorID: doctorID,
		From:     from.Format(domain.DateFormat),
		To:       to.Format(domain.DateFormat),
		Windows:  make([]WindowResponse, 0, len(windows)),
	}

	for _, w := range windows {
		if converted := FromDomainWindow(w); converted != nil {
			resp.Windows = append(resp.Windows, *converted)
		}
	}

	return resp
}
