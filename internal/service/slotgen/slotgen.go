// Package slotgen превращает рабочее окно врача в упорядоченный список слотов.
// Все функции чистые: результат зависит только от аргументов.
package slotgen

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// Generate строит слоты окна и размечает их по активным приёмам
//
// Слоты идут от начала окна с шагом SlotDurationMinutes:
// - слот, пересекающий перерыв, отбрасывается целиком (сетка не сдвигается)
// - слот, выходящий за конец окна, не создаётся
// - слот, пересекающийся с удержанием до оплаты, получает Reserved
// - слот, пересекающийся с подтверждённым или завершённым приёмом, получает Booked
//
// Отменённые приёмы игнорируются
func Generate(window *domain.AvailabilityWindow, appointments []*domain.Appointment) ([]domain.Slot, error) {
	slots, err := grid(window)
	if err != nil {
		return nil, err
	}

	for i := range slots {
		slots[i].State = occupancy(slots[i], appointments)
	}

	return slots, nil
}

// GenerateFromStartTimes строит слоты окна, помечая Booked слоты,
// начало которых есть в bookedStartTimes
func GenerateFromStartTimes(window *domain.AvailabilityWindow, bookedStartTimes map[types.TimeString]struct{}) ([]domain.Slot, error) {
	slots, err := grid(window)
	if err != nil {
		return nil, err
	}

	for i := range slots {
		if _, ok := bookedStartTimes[slots[i].StartTime]; ok {
			slots[i].State = domain.SlotBooked
		}
	}

	return slots, nil
}

// MarkPast возвращает копию слотов с флагом Past для слотов, начало которых
// раньше now + minNoticeMinutes (время окна трактуется в часовом поясе loc)
func MarkPast(slots []domain.Slot, now time.Time, loc *time.Location, minNoticeMinutes int) []domain.Slot {
	threshold := now.Add(time.Duration(minNoticeMinutes) * time.Minute)

	result := make([]domain.Slot, len(slots))
	for i, slot := range slots {
		slot.Past = slot.StartTime.On(slot.Date, loc).Before(threshold)
		result[i] = slot
	}

	return result
}

// Available оставляет только слоты, которые можно забронировать
func Available(slots []domain.Slot) []domain.Slot {
	result := make([]domain.Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.IsBookable() {
			result = append(result, slot)
		}
	}
	return result
}

// Find ищет слот по времени начала
func Find(slots []domain.Slot, start types.TimeString) (domain.Slot, bool) {
	for _, slot := range slots {
		if slot.StartTime == start {
			return slot, true
		}
	}
	return domain.Slot{}, false
}

// Stats считает статистику по слотам
// Прошедшие слоты учитываются в Past, а не в Available
func Stats(slots []domain.Slot) domain.SlotStats {
	stats := domain.SlotStats{Total: len(slots)}

	for _, slot := range slots {
		switch slot.State {
		case domain.SlotBooked:
			stats.Booked++
		case domain.SlotReserved:
			stats.Reserved++
		case domain.SlotAvailable:
			if slot.Past {
				stats.Past++
			} else {
				stats.Available++
			}
		}
	}

	return stats
}

// grid строит сетку свободных слотов окна без учёта приёмов
func grid(window *domain.AvailabilityWindow) ([]domain.Slot, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	duration := window.SlotDurationMinutes
	windowEnd := window.EndTime.Minutes()
	date := domain.DateOnly(window.Date)

	slots := make([]domain.Slot, 0, window.LengthMinutes()/duration)

	for cur := window.StartTime.Minutes(); cur+duration <= windowEnd; cur += duration {
		start, err := types.FromMinutes(cur)
		if err != nil {
			return nil, err
		}
		end, err := types.FromMinutes(cur + duration)
		if err != nil {
			return nil, err
		}

		if window.IntersectsBreak(start, end) {
			continue
		}

		slots = append(slots, domain.Slot{
			DoctorID:        window.DoctorID,
			Date:            date,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: duration,
			State:           domain.SlotAvailable,
		})
	}

	return slots, nil
}

// occupancy определяет состояние слота по пересекающимся приёмам
func occupancy(slot domain.Slot, appointments []*domain.Appointment) domain.SlotState {
	state := domain.SlotAvailable

	for _, a := range appointments {
		if !a.IsActive() || !a.Overlaps(slot.StartTime, slot.EndTime) {
			continue
		}
		if !a.IsHold() {
			return domain.SlotBooked
		}
		state = domain.SlotReserved
	}

	return state
}
