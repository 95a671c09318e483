// Package session реализует сценарий записи пациента как явный автомат.
// Состояние хранится у клиента, сервер между вызовами ничего не помнит.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_dates"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/release_appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/reserve_slot"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// Machine переходы сценария записи
type Machine struct {
	dates    DatesLister
	slots    SlotsLister
	reserver Reserver
	payments PaymentConfirmer
	releaser Releaser
	logger   Logger
}

// NewMachine создает автомат сценария записи
func NewMachine(
	dates DatesLister,
	slots SlotsLister,
	reserver Reserver,
	payments PaymentConfirmer,
	releaser Releaser,
	logger Logger,
) *Machine {
	return &Machine{
		dates:    dates,
		slots:    slots,
		reserver: reserver,
		payments: payments,
		releaser: releaser,
		logger:   logger,
	}
}

// Apply применяет действие пациента к состоянию и возвращает новое состояние
// При ошибке возвращается исходное состояние без изменений
func (m *Machine) Apply(ctx context.Context, patientID int64, state State, action Action) (State, error) {
	if action.Type == ActionStart {
		return NewState(), nil
	}

	if state.Step == "" {
		state.Step = StepSelectDoctor
	}
	if err := state.check(); err != nil {
		return state, err
	}
	state.Notice = ""

	switch action.Type {
	case ActionSelectDoctor:
		return m.selectDoctor(ctx, state, action)
	case ActionSelectDate:
		return m.selectDate(ctx, state, action)
	case ActionSelectSlot:
		return m.selectSlot(ctx, state, action)
	case ActionSubmitDetails:
		return m.submitDetails(ctx, patientID, state, action)
	case ActionPay:
		return m.pay(ctx, patientID, state, action)
	case ActionCancel:
		return m.cancel(ctx, patientID, state)
	case ActionBack:
		return back(state, action.Target)
	default:
		return state, fmt.Errorf("%w: %q", ErrUnknownAction, action.Type)
	}
}

// selectDoctor SelectDoctor -> SelectDate, у врача должна быть хотя бы одна дата с доступным слотом
func (m *Machine) selectDoctor(ctx context.Context, state State, action Action) (State, error) {
	if err := expectStep(state, StepSelectDoctor); err != nil {
		return state, err
	}
	if action.DoctorID <= 0 {
		return state, fmt.Errorf("%w: doctorId must be positive", ErrInvalidInput)
	}

	resp, err := m.dates.Execute(ctx, &get_available_dates.Request{DoctorID: action.DoctorID})
	if err != nil {
		return state, err
	}
	if len(resp.Dates) == 0 {
		return state, ErrNoAvailableDates
	}

	dates := make([]string, 0, len(resp.Dates))
	for _, d := range resp.Dates {
		dates = append(dates, d.Date.Format(domain.DateFormat))
	}

	next := State{
		Step:           StepSelectDate,
		DoctorID:       ptr.Ptr(action.DoctorID),
		AvailableDates: dates,
	}
	return next, nil
}

// selectDate SelectDate -> SelectSlot, на дату должен быть хотя бы один доступный слот
func (m *Machine) selectDate(ctx context.Context, state State, action Action) (State, error) {
	if err := expectStep(state, StepSelectDate); err != nil {
		return state, err
	}

	date, err := domain.ParseDate(action.Date)
	if err != nil {
		return state, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	options, err := m.availableSlots(ctx, *state.DoctorID, date)
	if err != nil {
		return state, err
	}
	if len(options) == 0 {
		return state, ErrNoAvailableSlots
	}

	next := state.truncate(StepSelectSlot)
	next.Date = ptr.Ptr(action.Date)
	next.AvailableSlots = options
	next.Slot = nil
	return next, nil
}

// selectSlot SelectSlot -> EnterDetails
// Доступность слота проверяется заново, список из состояния не считается актуальным
func (m *Machine) selectSlot(ctx context.Context, state State, action Action) (State, error) {
	if err := expectStep(state, StepSelectSlot); err != nil {
		return state, err
	}

	start, err := types.NewTimeStringFromString(action.StartTime)
	if err != nil {
		return state, fmt.Errorf("%w: startTime must be HH:MM", ErrInvalidInput)
	}

	date, err := domain.ParseDate(*state.Date)
	if err != nil {
		return state, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	options, err := m.availableSlots(ctx, *state.DoctorID, date)
	if err != nil {
		return state, err
	}

	next := state.truncate(StepSelectSlot)
	next.AvailableSlots = options

	for _, opt := range options {
		if opt.StartTime == start.String() {
			next.Step = StepEnterDetails
			next.Slot = &SlotOption{StartTime: opt.StartTime, EndTime: opt.EndTime}
			return next, nil
		}
	}

	m.logger.Info("Session: slot %s is no longer available for doctor=%d, date=%s",
		start, *state.DoctorID, *state.Date)
	next.Notice = NoticeSlotUnavailable
	return next, nil
}

// submitDetails EnterDetails -> AwaitingPayment
// Без явного подтверждения шаг не продвигается; при конфликте возврат к выбору слота
func (m *Machine) submitDetails(ctx context.Context, patientID int64, state State, action Action) (State, error) {
	if err := expectStep(state, StepEnterDetails); err != nil {
		return state, err
	}
	if !action.Confirm {
		return state, ErrConfirmationRequired
	}

	date, err := domain.ParseDate(*state.Date)
	if err != nil {
		return state, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}

	resp, err := m.reserver.Execute(ctx, &reserve_slot.Request{
		PatientID:         patientID,
		DoctorID:          *state.DoctorID,
		Date:              date,
		StartTime:         types.TimeString(state.Slot.StartTime),
		Notes:             action.Notes,
		SharedDocumentIDs: action.SharedDocumentIDs,
	})
	if err != nil {
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			return state, err
		}

		m.logger.Info("Session: slot %s taken by another patient, returning to slot selection", state.Slot.StartTime)
		options, listErr := m.availableSlots(ctx, *state.DoctorID, date)
		if listErr != nil {
			return state, listErr
		}

		next := state.truncate(StepSelectSlot)
		next.Slot = nil
		next.AvailableSlots = options
		next.Notice = NoticeSlotTaken
		return next, nil
	}

	next := state
	next.Step = StepAwaitingPayment
	next.Notes = action.Notes
	next.SharedDocumentIDs = action.SharedDocumentIDs
	next.AppointmentID = ptr.Ptr(resp.Appointment.ID)
	next.ExpiresAt = ptr.Ptr(resp.ExpiresAt)
	next.Amount = resp.Appointment.ConsultationFee
	next.Currency = resp.Appointment.Currency
	return next, nil
}

// pay AwaitingPayment -> Confirmed | Released
// Отклонённый платёж оставляет удержание до дедлайна
func (m *Machine) pay(ctx context.Context, patientID int64, state State, action Action) (State, error) {
	if err := expectStep(state, StepAwaitingPayment); err != nil {
		return state, err
	}
	if action.PaymentMethod == "" {
		return state, fmt.Errorf("%w: paymentMethod is required", ErrInvalidInput)
	}

	_, err := m.payments.Execute(ctx, &confirm_payment.Request{
		AppointmentID: *state.AppointmentID,
		PatientID:     patientID,
		PaymentMethod: action.PaymentMethod,
		Amount:        state.Amount,
	})
	if err == nil {
		next := state
		next.Step = StepConfirmed
		return next, nil
	}

	var expired *domain.ExpiredReservationError
	if errors.As(err, &expired) {
		next := state
		next.Step = StepReleased
		next.Notice = NoticeExpired
		return next, nil
	}

	var rejected *domain.PaymentRejectedError
	if errors.As(err, &rejected) {
		next := state
		switch rejected.Reason {
		case domain.RejectCancelled:
			next.Step = StepReleased
			next.Notice = NoticeCancelled
		case domain.RejectAmountMismatch:
			next.Notice = NoticeAmountMismatch
		default:
			next.Notice = NoticePaymentDeclined
		}
		return next, nil
	}

	return state, err
}

// cancel завершает сценарий, удержание (если есть) отменяется
func (m *Machine) cancel(ctx context.Context, patientID int64, state State) (State, error) {
	if state.Step.IsTerminal() {
		return state, fmt.Errorf("%w: session is already finished", ErrWrongStep)
	}

	if state.Step == StepAwaitingPayment && state.AppointmentID != nil {
		_, err := m.releaser.Execute(ctx, &release_appointment.Request{
			AppointmentID: *state.AppointmentID,
			UserID:        patientID,
		})
		if err != nil {
			return state, err
		}
	}

	next := state
	next.Step = StepReleased
	next.Notice = NoticeCancelled
	return next, nil
}

// back возвращает на уже пройденный шаг и сбрасывает данные последующих шагов
// После бронирования назад вернуться нельзя, только отменить
func back(state State, target Step) (State, error) {
	current, ok := order[state.Step]
	if !ok || state.Step == StepAwaitingPayment {
		return state, fmt.Errorf("%w: from %s", ErrCannotGoBack, state.Step)
	}

	want, ok := order[target]
	if !ok || want >= current {
		return state, fmt.Errorf("%w: %q", ErrCannotGoBack, target)
	}

	return state.truncate(target), nil
}

// availableSlots слоты, которые можно забронировать прямо сейчас
func (m *Machine) availableSlots(ctx context.Context, doctorID int64, date time.Time) ([]SlotOption, error) {
	resp, err := m.slots.Execute(ctx, &get_available_slots.Request{DoctorID: doctorID, Date: date})
	if err != nil {
		return nil, err
	}

	options := make([]SlotOption, 0, len(resp.Available))
	for _, s := range resp.Available {
		options = append(options, SlotOption{StartTime: s.StartTime.String(), EndTime: s.EndTime.String()})
	}
	return options, nil
}

func expectStep(state State, step Step) error {
	if state.Step != step {
		return fmt.Errorf("%w: expected %s, got %s", ErrWrongStep, step, state.Step)
	}
	return nil
}
