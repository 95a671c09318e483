package domain

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// SlotState состояние слота
type SlotState string

const (
	SlotAvailable SlotState = "available"
	SlotReserved  SlotState = "reserved" // удерживается до оплаты
	SlotBooked    SlotState = "booked"
)

// Slot временной слот, вычисляется из окна и приёмов, отдельно не хранится
type Slot struct {
	DoctorID        int64
	Date            time.Time
	StartTime       types.TimeString
	EndTime         types.TimeString
	DurationMinutes int
	State           SlotState
	Past            bool // начало уже прошло (или попадает в минимальный интервал до записи)
}

// IsBookable возвращает true, если слот можно забронировать прямо сейчас
func (s *Slot) IsBookable() bool {
	return s.State == SlotAvailable && !s.Past
}

// SlotStats агрегированная статистика по слотам дня
type SlotStats struct {
	Total     int
	Available int
	Reserved  int
	Booked    int
	Past      int
}
