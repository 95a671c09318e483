package get_available_dates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	ts "github.com/m04kA/SMC-AppointmentService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

func window(date time.Time, start, end string) *domain.AvailabilityWindow {
	return &domain.AvailabilityWindow{
		DoctorID:            1,
		Date:                date,
		StartTime:           ts.TimeString(start),
		EndTime:             ts.TimeString(end),
		SlotDurationMinutes: 30,
	}
}

func TestExecute_DatesWithFreeSlots(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	now := today.Add(12 * time.Hour)

	store := memory.NewStore()
	windows := []*domain.AvailabilityWindow{
		window(today.AddDate(0, 0, -1), "09:00", "10:00"), // вчера
		window(today, "09:00", "10:00"),                   // сегодня, но уже прошло
		window(today.AddDate(0, 0, 2), "09:00", "09:30"),  // единственный слот занят
		window(today.AddDate(0, 0, 3), "09:00", "10:00"),
		window(today.AddDate(0, 0, 1), "09:00", "10:00"),
		window(today.AddDate(0, 0, 40), "09:00", "10:00"), // за горизонтом
	}
	for _, w := range windows {
		_, err := store.Availability().Upsert(ctx, w)
		require.NoError(t, err)
	}

	_, err := store.Appointments().Create(ctx, &domain.Appointment{
		DoctorID:        1,
		PatientID:       5,
		AppointmentDate: today.AddDate(0, 0, 2),
		StartTime:       "09:00",
		EndTime:         "09:30",
		DurationMinutes: 30,
		Status:          domain.StatusConfirmed,
		PaymentStatus:   domain.PaymentPaid,
	})
	require.NoError(t, err)

	uc := NewUseCase(
		store.Appointments(),
		store.Availability(),
		doctorservice.NewStatic(1000, "usd"),
		domain.DefaultBookingPolicy(),
		nopLogger{},
	).WithTimeProvider(fixedTime{now})

	resp, err := uc.Execute(ctx, &Request{DoctorID: 1})
	require.NoError(t, err)

	assert.Equal(t, today, resp.From)
	assert.Equal(t, today.AddDate(0, 0, domain.DefaultAdvanceBookingDays), resp.To)
	assert.Equal(t, []DateInfo{
		{Date: today.AddDate(0, 0, 1), AvailableSlots: 2},
		{Date: today.AddDate(0, 0, 3), AvailableSlots: 2},
	}, resp.Dates)
}

func TestExecute_UnknownDoctor(t *testing.T) {
	store := memory.NewStore()
	uc := NewUseCase(store.Appointments(), store.Availability(), doctorservice.NewStatic(0, "usd"),
		domain.DefaultBookingPolicy(), nopLogger{})

	_, err := uc.Execute(context.Background(), &Request{DoctorID: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
