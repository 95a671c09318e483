package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/availability/models"
	"github.com/m04kA/SMC-AppointmentService/pkg/keylock"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration) (keylock.Unlock, error) {
	return nil, keylock.ErrLockTimeout
}

var now = time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

func newService(store *memory.Store, locker KeyLocker) *Service {
	return NewService(
		store.Availability(),
		store.Appointments(),
		doctorservice.NewStatic(1000, "usd"),
		locker,
		memory.NewTxManager(),
		domain.DefaultBookingPolicy(),
		nopLogger{},
	).WithTimeProvider(fixedTime{t: now})
}

func upsertRequest() *models.UpsertWindowRequest {
	return &models.UpsertWindowRequest{
		UserID:              4,
		DoctorID:            4,
		Date:                "2025-01-10",
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 30,
		Breaks:              []models.BreakRequest{{Start: "10:00", End: "10:30"}},
	}
}

func TestUpsert_CreatesAndReplaces(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, keylock.NewLocal())
	ctx := context.Background()

	created, err := svc.Upsert(ctx, upsertRequest())
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", created.Date)
	require.Len(t, created.Breaks, 1)

	req := upsertRequest()
	req.EndTime = "13:00"
	req.Breaks = nil
	replaced, err := svc.Upsert(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, "13:00", replaced.EndTime)
	assert.Empty(t, replaced.Breaks)
}

func TestUpsert_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *models.UpsertWindowRequest)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "bad date",
			mutate: func(r *models.UpsertWindowRequest) { r.Date = "10.01.2025" },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrConfiguration) },
		},
		{
			name:   "end before start",
			mutate: func(r *models.UpsertWindowRequest) { r.EndTime = "08:00"; r.Breaks = nil },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrConfiguration) },
		},
		{
			name:   "break outside window",
			mutate: func(r *models.UpsertWindowRequest) { r.Breaks = []models.BreakRequest{{Start: "12:00", End: "12:30"}} },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrConfiguration) },
		},
		{
			name:   "not owner",
			mutate: func(r *models.UpsertWindowRequest) { r.UserID = 5 },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrAccessDenied) },
		},
		{
			name:   "past date",
			mutate: func(r *models.UpsertWindowRequest) { r.Date = "2025-01-08" },
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrInvalidInput) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(memory.NewStore(), keylock.NewLocal())
			req := upsertRequest()
			tt.mutate(req)

			_, err := svc.Upsert(ctx, req)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestUpsert_RejectedWhenAppointmentsExist(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, keylock.NewLocal())
	ctx := context.Background()

	_, err := svc.Upsert(ctx, upsertRequest())
	require.NoError(t, err)

	_, err = store.Appointments().Create(ctx, &domain.Appointment{
		DoctorID:        4,
		PatientID:       7,
		AppointmentDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		StartTime:       types.TimeString("09:00"),
		EndTime:         types.TimeString("09:30"),
		DurationMinutes: 30,
		Status:          domain.StatusConfirmed,
		PaymentStatus:   domain.PaymentPaid,
	})
	require.NoError(t, err)

	_, err = svc.Upsert(ctx, upsertRequest())
	assert.ErrorIs(t, err, ErrWindowHasAppointments)

	err = svc.Delete(ctx, &models.DeleteWindowRequest{UserID: 4, DoctorID: 4, Date: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)})
	assert.ErrorIs(t, err, ErrWindowHasAppointments)
}

func TestUpsert_LockTimeout(t *testing.T) {
	svc := newService(memory.NewStore(), busyLocker{})

	_, err := svc.Upsert(context.Background(), upsertRequest())
	assert.True(t, errors.Is(err, ErrArbitrationUnavailable))
}

func TestDelete(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, keylock.NewLocal())
	ctx := context.Background()
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Upsert(ctx, upsertRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, &models.DeleteWindowRequest{UserID: 4, DoctorID: 4, Date: date}))

	err = svc.Delete(ctx, &models.DeleteWindowRequest{UserID: 4, DoctorID: 4, Date: date})
	assert.ErrorIs(t, err, ErrWindowNotFound)
}

func TestGetWindows(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store, keylock.NewLocal())
	ctx := context.Background()

	for _, d := range []string{"2025-01-10", "2025-01-12", "2025-03-01"} {
		req := upsertRequest()
		req.Date = d
		_, err := svc.Upsert(ctx, req)
		require.NoError(t, err)
	}

	// по умолчанию: с сегодняшнего дня на AdvanceBookingDays вперёд
	resp, err := svc.GetWindows(ctx, &models.GetWindowsRequest{DoctorID: 4})
	require.NoError(t, err)
	assert.Equal(t, "2025-01-09", resp.From)
	assert.Equal(t, "2025-02-08", resp.To)
	require.Len(t, resp.Windows, 2)
	assert.Equal(t, "2025-01-10", resp.Windows[0].Date)

	from := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.GetWindows(ctx, &models.GetWindowsRequest{DoctorID: 4, From: &from, To: &to})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
