package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

var day = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, store *memory.Store, patientID int64, start string, status domain.AppointmentStatus) int64 {
	t.Helper()
	end, err := types.TimeString(start).AddMinutes(30)
	require.NoError(t, err)

	created, err := store.Appointments().Create(context.Background(), &domain.Appointment{
		DoctorID:        4,
		PatientID:       patientID,
		AppointmentDate: day,
		StartTime:       types.TimeString(start),
		EndTime:         end,
		DurationMinutes: 30,
		Status:          status,
		PaymentStatus:   domain.PaymentUnpaid,
	})
	require.NoError(t, err)
	return created.ID
}

func newService(store *memory.Store) *Service {
	return NewService(store.Appointments(), doctorservice.NewStatic(1000, "usd"), nopLogger{})
}

func TestGetByID_Access(t *testing.T) {
	store := memory.NewStore()
	id := seed(t, store, 7, "09:00", domain.StatusConfirmed)
	svc := newService(store)
	ctx := context.Background()

	resp, err := svc.GetByID(ctx, id, 7)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", resp.AppointmentDate)
	assert.Equal(t, "09:30", resp.EndTime)
	assert.Equal(t, []string{}, resp.SharedDocumentIDs)

	// врач (в статическом справочнике user id совпадает с id врача)
	_, err = svc.GetByID(ctx, id, 4)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, id, 99)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.GetByID(ctx, 1000, 7)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestGetPatientAppointments(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, 7, "09:00", domain.StatusConfirmed)
	seed(t, store, 7, "10:00", domain.StatusAwaitingPayment)
	seed(t, store, 8, "11:00", domain.StatusConfirmed)
	svc := newService(store)

	resp, err := svc.GetPatientAppointments(context.Background(), &models.GetPatientAppointmentsRequest{PatientID: 7})
	require.NoError(t, err)
	assert.Len(t, resp.Appointments, 2)

	resp, err = svc.GetPatientAppointments(context.Background(), &models.GetPatientAppointmentsRequest{
		PatientID: 7,
		Status:    ptr.Ptr("confirmed"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, "09:00", resp.Appointments[0].StartTime)

	_, err = svc.GetPatientAppointments(context.Background(), &models.GetPatientAppointmentsRequest{
		PatientID: 7,
		Status:    ptr.Ptr("no_show"),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetDoctorAppointments(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	cancelled := seed(t, store, 7, "09:00", domain.StatusAwaitingPayment)
	seed(t, store, 8, "10:00", domain.StatusConfirmed)
	require.NoError(t, store.Appointments().Cancel(ctx, cancelled, domain.ReasonPatientCancelled, domain.PaymentUnpaid, day))
	svc := newService(store)

	resp, err := svc.GetDoctorAppointments(ctx, &models.GetDoctorAppointmentsRequest{UserID: 4, DoctorID: 4})
	require.NoError(t, err)
	assert.Len(t, resp.Appointments, 1)

	resp, err = svc.GetDoctorAppointments(ctx, &models.GetDoctorAppointmentsRequest{
		UserID:           4,
		DoctorID:         4,
		StartDate:        &day,
		EndDate:          &day,
		IncludeCancelled: true,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Appointments, 2)

	_, err = svc.GetDoctorAppointments(ctx, &models.GetDoctorAppointmentsRequest{UserID: 5, DoctorID: 4})
	assert.ErrorIs(t, err, ErrAccessDenied)
}
