package domain

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// BreakInterval перерыв внутри рабочего окна [Start, End)
type BreakInterval struct {
	Start types.TimeString `json:"start"`
	End   types.TimeString `json:"end"`
}

// AvailabilityWindow рабочее окно врача на конкретную дату
// Одна дата - одно окно, разрывы в течение дня задаются перерывами
type AvailabilityWindow struct {
	ID                  int64
	DoctorID            int64
	Date                time.Time
	StartTime           types.TimeString
	EndTime             types.TimeString
	SlotDurationMinutes int
	Breaks              []BreakInterval // упорядочены по началу, не пересекаются
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Validate проверяет окно и возвращает *ConfigurationError при ошибке
// Окно нулевой длины (start == end) допустимо
func (w *AvailabilityWindow) Validate() error {
	if w.DoctorID <= 0 {
		return &ConfigurationError{Field: "doctorId", Reason: "must be positive"}
	}
	if w.Date.IsZero() {
		return &ConfigurationError{Field: "date", Reason: "is required"}
	}
	if w.SlotDurationMinutes <= 0 {
		return &ConfigurationError{Field: "slotDurationMinutes", Reason: "must be positive"}
	}
	if w.SlotDurationMinutes < MinSlotDurationMinutes || w.SlotDurationMinutes > MaxSlotDurationMinutes {
		return &ConfigurationError{
			Field:  "slotDurationMinutes",
			Reason: fmt.Sprintf("must be between %d and %d", MinSlotDurationMinutes, MaxSlotDurationMinutes),
		}
	}
	if err := w.StartTime.Validate(); err != nil {
		return &ConfigurationError{Field: "startTime", Reason: err.Error()}
	}
	if err := w.EndTime.Validate(); err != nil {
		return &ConfigurationError{Field: "endTime", Reason: err.Error()}
	}
	if w.EndTime.IsBefore(w.StartTime) {
		return &ConfigurationError{Field: "endTime", Reason: "is before startTime"}
	}

	var prevEnd types.TimeString
	for i, br := range w.Breaks {
		field := fmt.Sprintf("breaks[%d]", i)
		if err := br.Start.Validate(); err != nil {
			return &ConfigurationError{Field: field, Reason: err.Error()}
		}
		if err := br.End.Validate(); err != nil {
			return &ConfigurationError{Field: field, Reason: err.Error()}
		}
		if !br.Start.IsBefore(br.End) {
			return &ConfigurationError{Field: field, Reason: "end must be after start"}
		}
		if br.Start.IsBefore(w.StartTime) || br.End.IsAfter(w.EndTime) {
			return &ConfigurationError{Field: field, Reason: "is outside the window"}
		}
		if i > 0 && br.Start.IsBefore(prevEnd) {
			return &ConfigurationError{Field: field, Reason: "overlaps previous break or is out of order"}
		}
		prevEnd = br.End
	}

	return nil
}

// LengthMinutes длина окна в минутах
func (w *AvailabilityWindow) LengthMinutes() int {
	return w.EndTime.Minutes() - w.StartTime.Minutes()
}

// IntersectsBreak проверяет, пересекает ли интервал [start, end) хотя бы один перерыв
func (w *AvailabilityWindow) IntersectsBreak(start, end types.TimeString) bool {
	for _, br := range w.Breaks {
		if start.IsBefore(br.End) && br.Start.IsBefore(end) {
			return true
		}
	}
	return false
}
