package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_dates"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/release_appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/reserve_slot"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

var day = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

// clinic фейковый бэкенд: один врач, слоты 09:00-10:30 по 30 минут
type clinic struct {
	dates      []time.Time
	taken      map[string]bool
	stealNext  bool // следующий reserve проигрывает гонку
	payErr     error
	released   []int64
	reserveReq *reserve_slot.Request
}

func newClinic() *clinic {
	return &clinic{dates: []time.Time{day}, taken: map[string]bool{}}
}

type datesFake struct{ c *clinic }

func (f datesFake) Execute(_ context.Context, req *get_available_dates.Request) (*get_available_dates.Response, error) {
	resp := &get_available_dates.Response{DoctorID: req.DoctorID}
	for _, d := range f.c.dates {
		resp.Dates = append(resp.Dates, get_available_dates.DateInfo{Date: d, AvailableSlots: 1})
	}
	return resp, nil
}

type slotsFake struct{ c *clinic }

func (f slotsFake) Execute(_ context.Context, req *get_available_slots.Request) (*get_available_slots.Response, error) {
	resp := &get_available_slots.Response{DoctorID: req.DoctorID, Date: req.Date, HasWindow: true}
	for _, start := range []string{"09:00", "09:30", "10:00"} {
		if f.c.taken[start] {
			continue
		}
		end, _ := types.TimeString(start).AddMinutes(30)
		resp.Available = append(resp.Available, domain.Slot{
			DoctorID:  req.DoctorID,
			Date:      req.Date,
			StartTime: types.TimeString(start),
			EndTime:   end,
			State:     domain.SlotAvailable,
		})
	}
	return resp, nil
}

type reserverFake struct{ c *clinic }

func (f reserverFake) Execute(_ context.Context, req *reserve_slot.Request) (*reserve_slot.Response, error) {
	f.c.reserveReq = req
	start := req.StartTime.String()
	if f.c.stealNext {
		f.c.stealNext = false
		f.c.taken[start] = true
	}
	if f.c.taken[start] {
		return nil, &domain.ConflictError{DoctorID: req.DoctorID, Date: req.Date, StartTime: req.StartTime}
	}
	f.c.taken[start] = true

	expires := time.Date(2025, 1, 9, 12, 15, 0, 0, time.UTC)
	return &reserve_slot.Response{
		Appointment: &domain.Appointment{
			ID:              77,
			DoctorID:        req.DoctorID,
			PatientID:       req.PatientID,
			StartTime:       req.StartTime,
			Status:          domain.StatusAwaitingPayment,
			ConsultationFee: 1500,
			Currency:        "usd",
			ExpiresAt:       &expires,
		},
		ExpiresAt: expires,
	}, nil
}

type payFake struct{ c *clinic }

func (f payFake) Execute(_ context.Context, req *confirm_payment.Request) (*confirm_payment.Response, error) {
	if f.c.payErr != nil {
		return nil, f.c.payErr
	}
	return &confirm_payment.Response{Appointment: &domain.Appointment{ID: req.AppointmentID, Status: domain.StatusConfirmed}}, nil
}

type releaseFake struct{ c *clinic }

func (f releaseFake) Execute(_ context.Context, req *release_appointment.Request) (*release_appointment.Response, error) {
	f.c.released = append(f.c.released, req.AppointmentID)
	return &release_appointment.Response{Appointment: &domain.Appointment{ID: req.AppointmentID, Status: domain.StatusCancelled}}, nil
}

func newMachine(c *clinic) *Machine {
	return NewMachine(datesFake{c}, slotsFake{c}, reserverFake{c}, payFake{c}, releaseFake{c}, nopLogger{})
}

// walk проводит сценарий до указанного шага
func walk(t *testing.T, m *Machine, until Step) State {
	t.Helper()
	ctx := context.Background()
	steps := []Action{
		{Type: ActionSelectDoctor, DoctorID: 4},
		{Type: ActionSelectDate, Date: "2025-01-10"},
		{Type: ActionSelectSlot, StartTime: "09:30"},
		{Type: ActionSubmitDetails, Confirm: true, Notes: ptr.Ptr("headache")},
	}

	state := NewState()
	for _, a := range steps {
		if state.Step == until {
			return state
		}
		var err error
		state, err = m.Apply(ctx, 7, state, a)
		require.NoError(t, err)
	}
	require.Equal(t, until, state.Step)
	return state
}

func TestHappyPath(t *testing.T) {
	c := newClinic()
	m := newMachine(c)

	state := walk(t, m, StepAwaitingPayment)
	assert.Equal(t, int64(77), *state.AppointmentID)
	assert.Equal(t, int64(1500), state.Amount)
	assert.Equal(t, "headache", *state.Notes)
	assert.Equal(t, int64(7), c.reserveReq.PatientID)

	state, err := m.Apply(context.Background(), 7, state, Action{Type: ActionPay, PaymentMethod: "pm_card"})
	require.NoError(t, err)
	assert.Equal(t, StepConfirmed, state.Step)
	assert.True(t, state.Step.IsTerminal())
}

func TestSubmitDetails_RequiresConfirmation(t *testing.T) {
	c := newClinic()
	m := newMachine(c)
	state := walk(t, m, StepEnterDetails)

	next, err := m.Apply(context.Background(), 7, state, Action{Type: ActionSubmitDetails})
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, StepEnterDetails, next.Step)
	assert.Nil(t, c.reserveReq)
}

func TestSubmitDetails_ConflictReturnsToSlotSelection(t *testing.T) {
	c := newClinic()
	m := newMachine(c)
	state := walk(t, m, StepEnterDetails)
	c.stealNext = true

	next, err := m.Apply(context.Background(), 7, state, Action{Type: ActionSubmitDetails, Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, StepSelectSlot, next.Step)
	assert.Equal(t, NoticeSlotTaken, next.Notice)
	assert.Nil(t, next.Slot)
	assert.Equal(t, []SlotOption{{"09:00", "09:30"}, {"10:00", "10:30"}}, next.AvailableSlots)
}

func TestSelectSlot_RevalidatesAvailability(t *testing.T) {
	c := newClinic()
	m := newMachine(c)
	state := walk(t, m, StepSelectSlot)
	c.taken["09:30"] = true

	next, err := m.Apply(context.Background(), 7, state, Action{Type: ActionSelectSlot, StartTime: "09:30"})
	require.NoError(t, err)
	assert.Equal(t, StepSelectSlot, next.Step)
	assert.Equal(t, NoticeSlotUnavailable, next.Notice)
	assert.Len(t, next.AvailableSlots, 2)
}

func TestBack_ClearsLaterSteps(t *testing.T) {
	c := newClinic()
	m := newMachine(c)
	ctx := context.Background()
	state := walk(t, m, StepEnterDetails)
	require.NotNil(t, state.Slot)

	state, err := m.Apply(ctx, 7, state, Action{Type: ActionBack, Target: StepSelectDate})
	require.NoError(t, err)
	assert.Equal(t, StepSelectDate, state.Step)
	assert.Nil(t, state.Slot)
	assert.Equal(t, int64(4), *state.DoctorID)

	// вперёд снова: слот не переиспользуется, submit невозможен до нового выбора
	state, err = m.Apply(ctx, 7, state, Action{Type: ActionSelectDate, Date: "2025-01-10"})
	require.NoError(t, err)
	assert.Equal(t, StepSelectSlot, state.Step)
	assert.Nil(t, state.Slot)

	_, err = m.Apply(ctx, 7, state, Action{Type: ActionSubmitDetails, Confirm: true})
	assert.ErrorIs(t, err, ErrWrongStep)
	assert.Nil(t, c.reserveReq)
}

func TestBack_Restrictions(t *testing.T) {
	c := newClinic()
	m := newMachine(c)
	ctx := context.Background()

	state := walk(t, m, StepSelectSlot)
	_, err := m.Apply(ctx, 7, state, Action{Type: ActionBack, Target: StepEnterDetails})
	assert.ErrorIs(t, err, ErrCannotGoBack)

	state = walk(t, newMachine(newClinic()), StepAwaitingPayment)
	_, err = m.Apply(ctx, 7, state, Action{Type: ActionBack, Target: StepSelectSlot})
	assert.ErrorIs(t, err, ErrCannotGoBack)
}

func TestPay_Outcomes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		step   Step
		notice Notice
	}{
		{
			name:   "declined keeps hold",
			err:    &domain.PaymentRejectedError{AppointmentID: 77, Reason: domain.RejectDeclined},
			step:   StepAwaitingPayment,
			notice: NoticePaymentDeclined,
		},
		{
			name:   "expired releases",
			err:    &domain.ExpiredReservationError{AppointmentID: 77},
			step:   StepReleased,
			notice: NoticeExpired,
		},
		{
			name:   "cancelled releases",
			err:    &domain.PaymentRejectedError{AppointmentID: 77, Reason: domain.RejectCancelled},
			step:   StepReleased,
			notice: NoticeCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClinic()
			m := newMachine(c)
			state := walk(t, m, StepAwaitingPayment)
			c.payErr = tt.err

			next, err := m.Apply(context.Background(), 7, state, Action{Type: ActionPay, PaymentMethod: "pm_card"})
			require.NoError(t, err)
			assert.Equal(t, tt.step, next.Step)
			assert.Equal(t, tt.notice, next.Notice)
		})
	}
}

func TestPay_InfrastructureErrorKeepsState(t *testing.T) {
	c := newClinic()
	m := newMachine(c)
	state := walk(t, m, StepAwaitingPayment)
	c.payErr = errors.New("gateway down")

	next, err := m.Apply(context.Background(), 7, state, Action{Type: ActionPay, PaymentMethod: "pm_card"})
	require.Error(t, err)
	assert.Equal(t, state, next)
}

func TestCancel_ReleasesHold(t *testing.T) {
	c := newClinic()
	m := newMachine(c)
	state := walk(t, m, StepAwaitingPayment)

	next, err := m.Apply(context.Background(), 7, state, Action{Type: ActionCancel})
	require.NoError(t, err)
	assert.Equal(t, StepReleased, next.Step)
	assert.Equal(t, []int64{77}, c.released)

	_, err = m.Apply(context.Background(), 7, next, Action{Type: ActionCancel})
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestApply_InvalidState(t *testing.T) {
	m := newMachine(newClinic())
	ctx := context.Background()

	_, err := m.Apply(ctx, 7, State{Step: StepSelectSlot}, Action{Type: ActionSelectSlot, StartTime: "09:00"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = m.Apply(ctx, 7, NewState(), Action{Type: "jump"})
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = m.Apply(ctx, 7, NewState(), Action{Type: ActionSelectDate, Date: "2025-01-10"})
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestState_JSONRoundTrip(t *testing.T) {
	state := walk(t, newMachine(newClinic()), StepEnterDetails)

	raw, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded State
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, state, decoded)
}
