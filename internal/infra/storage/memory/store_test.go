package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	availabilityRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/availability"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

var day = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func newAppointment(start, end string) *domain.Appointment {
	return &domain.Appointment{
		DoctorID:        1,
		PatientID:       2,
		AppointmentDate: day,
		StartTime:       types.TimeString(start),
		EndTime:         types.TimeString(end),
		DurationMinutes: 30,
		Status:          domain.StatusAwaitingPayment,
		PaymentStatus:   domain.PaymentUnpaid,
	}
}

func TestAppointmentRepository_UniqueActiveSlot(t *testing.T) {
	repo := NewStore().Appointments()
	ctx := context.Background()

	first, err := repo.Create(ctx, newAppointment("10:00", "10:30"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	_, err = repo.Create(ctx, newAppointment("10:00", "10:30"))
	assert.ErrorIs(t, err, appointmentRepo.ErrSlotTaken)

	require.NoError(t, repo.Cancel(ctx, first.ID, domain.ReasonPatientCancelled, domain.PaymentUnpaid, time.Now()))

	second, err := repo.Create(ctx, newAppointment("10:00", "10:30"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestAppointmentRepository_ConcurrentCreate(t *testing.T) {
	repo := NewStore().Appointments()

	const n = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(context.Background(), newAppointment("10:00", "10:30"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, appointmentRepo.ErrSlotTaken):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func TestAppointmentRepository_Transitions(t *testing.T) {
	repo := NewStore().Appointments()
	ctx := context.Background()

	deadline := time.Date(2025, 1, 9, 12, 15, 0, 0, time.UTC)
	a := newAppointment("10:00", "10:30")
	a.ExpiresAt = &deadline
	created, err := repo.Create(ctx, a)
	require.NoError(t, err)

	// До дедлайна удержание не истекает
	assert.ErrorIs(t, repo.Expire(ctx, created.ID, deadline.Add(-time.Minute)), appointmentRepo.ErrStatusConflict)

	require.NoError(t, repo.Confirm(ctx, created.ID, "card", "pi_1", deadline.Add(-time.Minute)))

	// Подтверждённый приём не истекает и повторно не подтверждается
	assert.ErrorIs(t, repo.Expire(ctx, created.ID, deadline.Add(time.Hour)), appointmentRepo.ErrStatusConflict)
	assert.ErrorIs(t, repo.Confirm(ctx, created.ID, "card", "pi_1", deadline), appointmentRepo.ErrStatusConflict)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	assert.Equal(t, domain.PaymentPaid, got.PaymentStatus)

	assert.ErrorIs(t, repo.Cancel(ctx, 999, domain.ReasonPatientCancelled, domain.PaymentUnpaid, time.Now()), appointmentRepo.ErrAppointmentNotFound)
}

func TestAppointmentRepository_ListExpiredHolds(t *testing.T) {
	repo := NewStore().Appointments()
	ctx := context.Background()
	now := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	expired := newAppointment("10:00", "10:30")
	expired.ExpiresAt = &past
	_, err := repo.Create(ctx, expired)
	require.NoError(t, err)

	active := newAppointment("10:30", "11:00")
	active.ExpiresAt = &future
	_, err = repo.Create(ctx, active)
	require.NoError(t, err)

	ids, err := repo.ListExpiredHolds(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{expired.ID}, ids)
}

func TestAvailabilityRepository(t *testing.T) {
	repo := NewStore().Availability()
	ctx := context.Background()

	w := &domain.AvailabilityWindow{
		DoctorID:            1,
		Date:                day.Add(5 * time.Hour),
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 30,
	}
	created, err := repo.Upsert(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, day, created.Date)

	w2 := *w
	w2.EndTime = "13:00"
	updated, err := repo.Upsert(ctx, &w2)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	got, err := repo.GetByDoctorAndDate(ctx, 1, day)
	require.NoError(t, err)
	assert.Equal(t, types.TimeString("13:00"), got.EndTime)

	list, err := repo.ListByDoctor(ctx, 1, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, 1, day))
	_, err = repo.GetByDoctorAndDate(ctx, 1, day)
	assert.ErrorIs(t, err, availabilityRepo.ErrWindowNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 1, day), availabilityRepo.ErrWindowNotFound)
}

func TestTxManager_Nested(t *testing.T) {
	m := NewTxManager()

	calls := 0
	err := m.DoSerializable(context.Background(), func(ctx context.Context) error {
		return m.Do(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
