package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

func validWindow() AvailabilityWindow {
	return AvailabilityWindow{
		DoctorID:            7,
		Date:                time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 30,
		Breaks:              []BreakInterval{{Start: "10:00", End: "10:15"}},
	}
}

func TestAvailabilityWindow_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *AvailabilityWindow)
		field  string
	}{
		{name: "valid", mutate: func(w *AvailabilityWindow) {}},
		{name: "zero length window", mutate: func(w *AvailabilityWindow) {
			w.EndTime = w.StartTime
			w.Breaks = nil
		}},
		{name: "zero duration", mutate: func(w *AvailabilityWindow) { w.SlotDurationMinutes = 0 }, field: "slotDurationMinutes"},
		{name: "negative duration", mutate: func(w *AvailabilityWindow) { w.SlotDurationMinutes = -30 }, field: "slotDurationMinutes"},
		{name: "duration too long", mutate: func(w *AvailabilityWindow) { w.SlotDurationMinutes = 481 }, field: "slotDurationMinutes"},
		{name: "end before start", mutate: func(w *AvailabilityWindow) { w.EndTime = "08:00" }, field: "endTime"},
		{name: "bad start format", mutate: func(w *AvailabilityWindow) { w.StartTime = "9am" }, field: "startTime"},
		{name: "empty break", mutate: func(w *AvailabilityWindow) {
			w.Breaks = []BreakInterval{{Start: "10:00", End: "10:00"}}
		}, field: "breaks[0]"},
		{name: "break outside window", mutate: func(w *AvailabilityWindow) {
			w.Breaks = []BreakInterval{{Start: "11:30", End: "12:30"}}
		}, field: "breaks[0]"},
		{name: "overlapping breaks", mutate: func(w *AvailabilityWindow) {
			w.Breaks = []BreakInterval{{Start: "10:00", End: "10:30"}, {Start: "10:15", End: "10:45"}}
		}, field: "breaks[1]"},
		{name: "touching breaks", mutate: func(w *AvailabilityWindow) {
			w.Breaks = []BreakInterval{{Start: "10:00", End: "10:30"}, {Start: "10:30", End: "10:45"}}
		}},
		{name: "missing doctor", mutate: func(w *AvailabilityWindow) { w.DoctorID = 0 }, field: "doctorId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWindow()
			tt.mutate(&w)

			err := w.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestAvailabilityWindow_IntersectsBreak(t *testing.T) {
	w := validWindow()

	assert.True(t, w.IntersectsBreak("09:50", "10:05"))
	assert.True(t, w.IntersectsBreak("10:10", "10:40"))
	assert.False(t, w.IntersectsBreak("09:30", "10:00"))
	assert.False(t, w.IntersectsBreak("10:15", "10:45"))
}

func TestAppointment_Overlaps(t *testing.T) {
	a := Appointment{StartTime: "10:00", EndTime: "10:30"}

	assert.True(t, a.Overlaps("10:00", "10:30"))
	assert.True(t, a.Overlaps("10:15", "10:45"))
	assert.False(t, a.Overlaps("10:30", "11:00"))
	assert.False(t, a.Overlaps("09:30", "10:00"))
}

func TestAppointment_IsHoldExpired(t *testing.T) {
	deadline := time.Date(2025, 1, 10, 10, 15, 0, 0, time.UTC)
	a := Appointment{Status: StatusAwaitingPayment, ExpiresAt: &deadline}

	assert.False(t, a.IsHoldExpired(deadline.Add(-time.Second)))
	assert.True(t, a.IsHoldExpired(deadline))

	a.Status = StatusConfirmed
	assert.False(t, a.IsHoldExpired(deadline.Add(time.Hour)))
}

func TestErrors_Taxonomy(t *testing.T) {
	var err error = &ExpiredReservationError{AppointmentID: 1, Deadline: time.Now()}
	assert.ErrorIs(t, err, ErrReservationExpired)
	assert.ErrorIs(t, err, ErrPaymentRejected)

	lockErr := errors.New("lock timeout")
	err = &TransientArbitrationError{Key: "doctor:1:date:2025-01-10", Attempts: 3, Err: lockErr}
	assert.ErrorIs(t, err, ErrArbitrationUnavailable)
	assert.ErrorIs(t, err, lockErr)

	err = &ConflictError{DoctorID: 1, Date: time.Now(), StartTime: types.TimeString("10:00")}
	assert.ErrorIs(t, err, ErrSlotAlreadyTaken)
	assert.Equal(t, ConflictReasonSlotAlreadyTaken, err.(*ConflictError).Reason())
}

func TestBookingPolicy_CheckDate(t *testing.T) {
	policy := DefaultBookingPolicy()
	policy.AdvanceBookingDays = 7
	now := time.Date(2025, 1, 10, 23, 30, 0, 0, time.UTC)

	assert.NoError(t, policy.CheckDate(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), now))
	assert.NoError(t, policy.CheckDate(time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC), now))

	err := policy.CheckDate(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC), now)
	assert.ErrorIs(t, err, ErrValidation)

	err = policy.CheckDate(time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC), now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBookingPolicy_TodayUsesLocation(t *testing.T) {
	policy := DefaultBookingPolicy()
	policy.Location = time.FixedZone("UTC+3", 3*60*60)

	// 22:30 UTC это уже следующий день в UTC+3
	now := time.Date(2025, 1, 10, 22, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC), policy.Today(now))
}

func TestBookingPolicy_Deadline(t *testing.T) {
	policy := BookingPolicy{}
	now := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(15*time.Minute), policy.Deadline(now))

	policy.HoldDuration = time.Minute
	assert.Equal(t, now.Add(time.Minute), policy.Deadline(now))
}
