package slotgen

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

var testDate = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func window(start, end types.TimeString, duration int, breaks ...domain.BreakInterval) *domain.AvailabilityWindow {
	return &domain.AvailabilityWindow{
		DoctorID:            1,
		Date:                testDate,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: duration,
		Breaks:              breaks,
	}
}

func starts(slots []domain.Slot) []types.TimeString {
	result := make([]types.TimeString, 0, len(slots))
	for _, s := range slots {
		result = append(result, s.StartTime)
	}
	return result
}

func TestGenerate_BreakConsumesRemainder(t *testing.T) {
	w := window("09:00", "10:00", 30, domain.BreakInterval{Start: "09:30", End: "09:40"})

	slots, err := Generate(w, nil)
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.Equal(t, types.TimeString("09:00"), slots[0].StartTime)
	assert.Equal(t, types.TimeString("09:30"), slots[0].EndTime)
	assert.Equal(t, 30, slots[0].DurationMinutes)
	assert.Equal(t, domain.SlotAvailable, slots[0].State)
}

func TestGenerate_NoPartialSlots(t *testing.T) {
	slots, err := Generate(window("09:00", "10:45", 30), nil)
	require.NoError(t, err)

	assert.Equal(t, []types.TimeString{"09:00", "09:30", "10:00"}, starts(slots))
	assert.Equal(t, types.TimeString("10:30"), slots[len(slots)-1].EndTime)
}

func TestGenerate_GridStaysAligned(t *testing.T) {
	w := window("09:00", "12:00", 30, domain.BreakInterval{Start: "10:00", End: "10:15"})

	slots, err := Generate(w, nil)
	require.NoError(t, err)

	// 10:00 и 10:30 не сдвигаются на 10:15
	assert.Equal(t, []types.TimeString{"09:00", "09:30", "10:30", "11:00", "11:30"}, starts(slots))
}

func TestGenerate_EndOfDay(t *testing.T) {
	slots, err := Generate(window("23:00", "24:00", 30), nil)
	require.NoError(t, err)

	assert.Equal(t, []types.TimeString{"23:00", "23:30"}, starts(slots))
	assert.Equal(t, types.TimeString("24:00"), slots[1].EndTime)
}

func TestGenerate_ZeroLengthWindow(t *testing.T) {
	slots, err := Generate(window("09:00", "09:00", 30), nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerate_NonPositiveDuration(t *testing.T) {
	for _, d := range []int{0, -15} {
		_, err := Generate(window("09:00", "10:00", d), nil)

		var cfgErr *domain.ConfigurationError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "slotDurationMinutes", cfgErr.Field)
	}
}

func TestGenerate_Occupancy(t *testing.T) {
	appointments := []*domain.Appointment{
		{StartTime: "09:00", EndTime: "09:30", Status: domain.StatusConfirmed},
		{StartTime: "09:30", EndTime: "10:00", Status: domain.StatusAwaitingPayment},
		{StartTime: "10:00", EndTime: "10:30", Status: domain.StatusCancelled},
		// Не выровнен по сетке: задевает два слота
		{StartTime: "10:45", EndTime: "11:15", Status: domain.StatusCompleted},
	}

	slots, err := Generate(window("09:00", "12:00", 30), appointments)
	require.NoError(t, err)

	states := make(map[types.TimeString]domain.SlotState)
	for _, s := range slots {
		states[s.StartTime] = s.State
	}

	assert.Equal(t, domain.SlotBooked, states["09:00"])
	assert.Equal(t, domain.SlotReserved, states["09:30"])
	assert.Equal(t, domain.SlotAvailable, states["10:00"])
	assert.Equal(t, domain.SlotBooked, states["10:30"])
	assert.Equal(t, domain.SlotBooked, states["11:00"])
	assert.Equal(t, domain.SlotAvailable, states["11:30"])
}

func TestGenerate_BookedWinsOverReserved(t *testing.T) {
	appointments := []*domain.Appointment{
		{StartTime: "09:00", EndTime: "09:15", Status: domain.StatusAwaitingPayment},
		{StartTime: "09:15", EndTime: "09:30", Status: domain.StatusConfirmed},
	}

	slots, err := Generate(window("09:00", "10:00", 30), appointments)
	require.NoError(t, err)
	assert.Equal(t, domain.SlotBooked, slots[0].State)
}

func TestGenerateFromStartTimes(t *testing.T) {
	booked := map[types.TimeString]struct{}{"09:30": {}}

	slots, err := GenerateFromStartTimes(window("09:00", "10:30", 30), booked)
	require.NoError(t, err)

	require.Len(t, slots, 3)
	assert.Equal(t, domain.SlotAvailable, slots[0].State)
	assert.Equal(t, domain.SlotBooked, slots[1].State)
	assert.Equal(t, domain.SlotAvailable, slots[2].State)
}

func TestGenerate_Properties(t *testing.T) {
	windows := []*domain.AvailabilityWindow{
		window("08:00", "18:00", 20, domain.BreakInterval{Start: "12:00", End: "13:00"}),
		window("09:10", "17:35", 45,
			domain.BreakInterval{Start: "10:00", End: "10:10"},
			domain.BreakInterval{Start: "14:50", End: "15:30"}),
		window("00:00", "24:00", 480),
		window("07:00", "07:25", 5, domain.BreakInterval{Start: "07:07", End: "07:08"}),
	}

	for _, w := range windows {
		first, err := Generate(w, nil)
		require.NoError(t, err)
		second, err := Generate(w, nil)
		require.NoError(t, err)

		// Детерминированность
		assert.Equal(t, first, second)

		for i, s := range first {
			assert.Equal(t, w.SlotDurationMinutes, s.EndTime.Minutes()-s.StartTime.Minutes())
			assert.Zero(t, (s.StartTime.Minutes()-w.StartTime.Minutes())%w.SlotDurationMinutes, "slot %s is off grid", s.StartTime)
			assert.False(t, s.EndTime.IsAfter(w.EndTime))
			assert.False(t, w.IntersectsBreak(s.StartTime, s.EndTime), "slot %s intersects a break", s.StartTime)
			if i > 0 {
				assert.False(t, s.StartTime.IsBefore(first[i-1].EndTime), "slots overlap at %s", s.StartTime)
			}
		}
	}
}

func TestMarkPastAndStats(t *testing.T) {
	appointments := []*domain.Appointment{
		{StartTime: "11:00", EndTime: "11:30", Status: domain.StatusConfirmed},
		{StartTime: "11:30", EndTime: "12:00", Status: domain.StatusAwaitingPayment},
	}
	slots, err := Generate(window("09:00", "12:00", 30), appointments)
	require.NoError(t, err)

	now := time.Date(2025, 1, 10, 9, 40, 0, 0, time.UTC)
	marked := MarkPast(slots, now, time.UTC, 30)

	// 09:00 и 09:30 уже прошли, 10:00 внутри минимального интервала (09:40 + 30 мин)
	assert.True(t, marked[0].Past)
	assert.True(t, marked[1].Past)
	assert.True(t, marked[2].Past)
	assert.False(t, marked[3].Past)
	assert.False(t, slots[0].Past, "input must not be mutated")

	assert.Equal(t, []types.TimeString{"10:30"}, starts(Available(marked)))
	assert.Equal(t, domain.SlotStats{Total: 6, Available: 1, Reserved: 1, Booked: 1, Past: 3}, Stats(marked))
}

func TestMarkPast_TimeZone(t *testing.T) {
	slots, err := Generate(window("09:00", "10:00", 30), nil)
	require.NoError(t, err)

	// 06:15 UTC = 09:15 по UTC+3
	loc := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2025, 1, 10, 6, 15, 0, 0, time.UTC)

	marked := MarkPast(slots, now, loc, 0)
	assert.True(t, marked[0].Past)
	assert.False(t, marked[1].Past)
}

func TestFind(t *testing.T) {
	slots, err := Generate(window("09:00", "10:00", 30), nil)
	require.NoError(t, err)

	slot, ok := Find(slots, "09:30")
	assert.True(t, ok)
	assert.Equal(t, types.TimeString("10:00"), slot.EndTime)

	_, ok = Find(slots, "09:15")
	assert.False(t, ok)
}
