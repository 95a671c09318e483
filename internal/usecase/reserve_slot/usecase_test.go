package reserve_slot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/pkg/keylock"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[int64]time.Time
	err       error
}

func (f *fakeScheduler) Schedule(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduled == nil {
		f.scheduled = make(map[int64]time.Time)
	}
	f.scheduled[id] = at
	return f.err
}

type fakeMetrics struct {
	mu      sync.Mutex
	results map[string]int
}

func (f *fakeMetrics) RecordReservation(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.results == nil {
		f.results = make(map[string]int)
	}
	f.results[result]++
}

func (f *fakeMetrics) count(result string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[result]
}

// timeoutLocker никогда не выдаёт блокировку
type timeoutLocker struct {
	mu    sync.Mutex
	calls int
}

func (l *timeoutLocker) Acquire(context.Context, string, time.Duration) (keylock.Unlock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return nil, keylock.ErrLockTimeout
}

// flakyTx первые failures вызовов завершаются конфликтом сериализации
type flakyTx struct {
	inner    TransactionManager
	failures int
	calls    int
}

func (f *flakyTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if f.calls <= f.failures {
		return txmanager.ErrSerialization
	}
	return f.inner.DoSerializable(ctx, fn)
}

var (
	day = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	now = day.Add(-24 * time.Hour).Add(8 * time.Hour)
)

type fixture struct {
	uc        *UseCase
	store     *memory.Store
	scheduler *fakeScheduler
	metrics   *fakeMetrics
}

func newFixture(t *testing.T, locker KeyLocker, tx TransactionManager) *fixture {
	t.Helper()

	store := memory.NewStore()
	_, err := store.Availability().Upsert(context.Background(), &domain.AvailabilityWindow{
		DoctorID:            1,
		Date:                day,
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 30,
		Breaks:              []domain.BreakInterval{{Start: "10:00", End: "10:15"}},
	})
	require.NoError(t, err)

	if locker == nil {
		locker = keylock.NewLocal()
	}
	if tx == nil {
		tx = memory.NewTxManager()
	}

	f := &fixture{
		store:     store,
		scheduler: &fakeScheduler{},
		metrics:   &fakeMetrics{},
	}
	f.uc = NewUseCase(
		store.Appointments(),
		store.Availability(),
		doctorservice.NewStatic(5000, "usd"),
		locker,
		tx,
		f.scheduler,
		f.metrics,
		domain.DefaultBookingPolicy(),
		ArbitrationConfig{Timeout: time.Second, Attempts: 3, Backoff: time.Millisecond},
		nopLogger{},
	).WithTimeProvider(fixedTime{now})

	return f
}

func request(patientID int64, start string) *Request {
	return &Request{
		PatientID: patientID,
		DoctorID:  1,
		Date:      day,
		StartTime: types.TimeString(start),
	}
}

func TestExecute_Success(t *testing.T) {
	f := newFixture(t, nil, nil)

	req := request(7, "10:30")
	req.Notes = ptr.Ptr("headache")
	req.SharedDocumentIDs = []string{"doc-1"}

	resp, err := f.uc.Execute(context.Background(), req)
	require.NoError(t, err)

	a := resp.Appointment
	assert.NotZero(t, a.ID)
	assert.Equal(t, domain.StatusAwaitingPayment, a.Status)
	assert.Equal(t, domain.PaymentUnpaid, a.PaymentStatus)
	assert.Equal(t, types.TimeString("10:30"), a.StartTime)
	assert.Equal(t, types.TimeString("11:00"), a.EndTime)
	assert.Equal(t, int64(5000), a.ConsultationFee)
	assert.Equal(t, "usd", a.Currency)
	assert.Equal(t, []string{"doc-1"}, a.SharedDocumentIDs)
	assert.Equal(t, now.Add(15*time.Minute), resp.ExpiresAt)
	assert.Equal(t, resp.ExpiresAt, f.scheduler.scheduled[a.ID])
	assert.Equal(t, 1, f.metrics.count(resultSuccess))
}

func TestExecute_Conflict(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, request(7, "09:00"))
	require.NoError(t, err)

	_, err = f.uc.Execute(ctx, request(8, "09:00"))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.ConflictReasonSlotAlreadyTaken, conflict.Reason())
	assert.Equal(t, types.TimeString("09:00"), conflict.StartTime)
	assert.Equal(t, 1, f.metrics.count(resultConflict))
}

func TestExecute_ConcurrentExactlyOneWins(t *testing.T) {
	f := newFixture(t, nil, nil)

	const n = 30
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
		others    []error
	)

	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(patientID int64) {
			defer wg.Done()
			<-start

			_, err := f.uc.Execute(context.Background(), request(patientID, "11:00"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrSlotAlreadyTaken):
				conflicts++
			default:
				others = append(others, err)
			}
		}(int64(i + 1))
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	active, err := f.store.Appointments().ListActiveByDoctorAndDate(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestExecute_SlotReturnsAfterRelease(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	resp, err := f.uc.Execute(ctx, request(7, "09:30"))
	require.NoError(t, err)

	require.NoError(t, f.store.Appointments().Cancel(ctx, resp.Appointment.ID,
		domain.ReasonPatientCancelled, domain.PaymentUnpaid, now))

	again, err := f.uc.Execute(ctx, request(8, "09:30"))
	require.NoError(t, err)
	assert.NotEqual(t, resp.Appointment.ID, again.Appointment.ID)
}

func TestExecute_Validation(t *testing.T) {
	f := newFixture(t, nil, nil)

	tooManyDocs := request(7, "09:00")
	for i := 0; i <= domain.MaxSharedDocuments; i++ {
		tooManyDocs.SharedDocumentIDs = append(tooManyDocs.SharedDocumentIDs, strings.Repeat("d", i+1))
	}

	longNotes := request(7, "09:00")
	longNotes.Notes = ptr.Ptr(strings.Repeat("x", domain.MaxNotesLength+1))

	noWindow := request(7, "09:00")
	noWindow.Date = day.AddDate(0, 0, 1)

	pastDate := request(7, "09:00")
	pastDate.Date = day.AddDate(0, 0, -5)

	tests := []struct {
		name string
		req  *Request
	}{
		{name: "no patient", req: request(0, "09:00")},
		{name: "bad time format", req: request(7, "9am")},
		{name: "off grid", req: request(7, "09:10")},
		{name: "inside break", req: request(7, "10:00")},
		{name: "past end of window", req: request(7, "12:00")},
		{name: "no window on date", req: noWindow},
		{name: "date in past", req: pastDate},
		{name: "too many documents", req: tooManyDocs},
		{name: "notes too long", req: longNotes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.Execute(context.Background(), tt.req)
			var vErr *domain.ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}

	active, err := f.store.Appointments().ListActiveByDoctorAndDate(context.Background(), 1, day)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestExecute_PastSlotOnToday(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.uc.WithTimeProvider(fixedTime{day.Add(9*time.Hour + 40*time.Minute)})

	_, err := f.uc.Execute(context.Background(), request(7, "09:30"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.uc.Execute(context.Background(), request(7, "10:30"))
	assert.NoError(t, err)
}

func TestExecute_TransientAfterAttempts(t *testing.T) {
	locker := &timeoutLocker{}
	f := newFixture(t, locker, nil)

	_, err := f.uc.Execute(context.Background(), request(7, "09:00"))

	var transient *domain.TransientArbitrationError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, 3, transient.Attempts)
	assert.Equal(t, domain.SlotKey(1, day), transient.Key)
	assert.ErrorIs(t, err, domain.ErrArbitrationUnavailable)
	assert.Equal(t, 3, locker.calls)
	assert.Equal(t, 1, f.metrics.count(resultTransient))
}

func TestExecute_RetriesSerializationFailure(t *testing.T) {
	tx := &flakyTx{inner: memory.NewTxManager(), failures: 2}
	f := newFixture(t, nil, tx)

	resp, err := f.uc.Execute(context.Background(), request(7, "09:00"))
	require.NoError(t, err)
	assert.Equal(t, 3, tx.calls)
	assert.Equal(t, domain.StatusAwaitingPayment, resp.Appointment.Status)
}

func TestExecute_SchedulerFailureKeepsHold(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.scheduler.err = errors.New("redis down")

	resp, err := f.uc.Execute(context.Background(), request(7, "09:00"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingPayment, resp.Appointment.Status)
}
