package session

import (
	"fmt"
	"time"
)

// Step шаг сценария записи
type Step string

const (
	StepSelectDoctor    Step = "select_doctor"
	StepSelectDate      Step = "select_date"
	StepSelectSlot      Step = "select_slot"
	StepEnterDetails    Step = "enter_details"
	StepAwaitingPayment Step = "awaiting_payment"
	StepConfirmed       Step = "confirmed"
	StepReleased        Step = "released"
)

// order порядок шагов для навигации назад
var order = map[Step]int{
	StepSelectDoctor:    0,
	StepSelectDate:      1,
	StepSelectSlot:      2,
	StepEnterDetails:    3,
	StepAwaitingPayment: 4,
}

// IsTerminal возвращает true для завершённого сценария
func (s Step) IsTerminal() bool {
	return s == StepConfirmed || s == StepReleased
}

// ActionType тип действия пользователя
type ActionType string

const (
	ActionStart         ActionType = "start"
	ActionSelectDoctor  ActionType = "select_doctor"
	ActionSelectDate    ActionType = "select_date"
	ActionSelectSlot    ActionType = "select_slot"
	ActionSubmitDetails ActionType = "submit_details"
	ActionPay           ActionType = "pay"
	ActionCancel        ActionType = "cancel"
	ActionBack          ActionType = "back"
)

// Notice сообщение клиенту о том, почему шаг не продвинулся или сценарий завершился
type Notice string

const (
	NoticeSlotTaken       Notice = "slot_already_taken"
	NoticeSlotUnavailable Notice = "slot_unavailable"
	NoticePaymentDeclined Notice = "payment_declined"
	NoticeAmountMismatch  Notice = "amount_mismatch"
	NoticeExpired         Notice = "reservation_expired"
	NoticeCancelled       Notice = "cancelled"
)

// Action действие пользователя
type Action struct {
	Type              ActionType `json:"type"`
	DoctorID          int64      `json:"doctorId,omitempty"`
	Date              string     `json:"date,omitempty"`      // "2025-01-10"
	StartTime         string     `json:"startTime,omitempty"` // "10:00"
	Notes             *string    `json:"notes,omitempty"`
	SharedDocumentIDs []string   `json:"sharedDocumentIds,omitempty"`
	Confirm           bool       `json:"confirm,omitempty"`
	PaymentMethod     string     `json:"paymentMethod,omitempty"`
	Target            Step       `json:"target,omitempty"` // для back
}

// SlotOption слот, предложенный пользователю
type SlotOption struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// State состояние сценария записи
// Хранится у клиента и передаётся целиком в каждом запросе
type State struct {
	Step Step `json:"step"`

	// select_doctor
	DoctorID       *int64   `json:"doctorId,omitempty"`
	AvailableDates []string `json:"availableDates,omitempty"`

	// select_date
	Date           *string      `json:"date,omitempty"`
	AvailableSlots []SlotOption `json:"availableSlots,omitempty"`

	// select_slot
	Slot *SlotOption `json:"slot,omitempty"`

	// enter_details
	Notes             *string  `json:"notes,omitempty"`
	SharedDocumentIDs []string `json:"sharedDocumentIds,omitempty"`

	// awaiting_payment
	AppointmentID *int64     `json:"appointmentId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Amount        int64      `json:"amount,omitempty"`
	Currency      string     `json:"currency,omitempty"`

	Notice Notice `json:"notice,omitempty"`
}

// NewState начальное состояние
func NewState() State {
	return State{Step: StepSelectDoctor}
}

// truncate сбрасывает данные шагов после target
func (s State) truncate(target Step) State {
	next := State{Step: target}

	if order[target] >= order[StepSelectDoctor] {
		next.DoctorID = s.DoctorID
		next.AvailableDates = s.AvailableDates
	}
	if order[target] >= order[StepSelectDate] {
		next.Date = s.Date
		next.AvailableSlots = s.AvailableSlots
	}
	if order[target] >= order[StepSelectSlot] {
		next.Slot = s.Slot
	}

	return next
}

// check проверяет, что в состоянии есть данные, обязательные для текущего шага
func (s State) check() error {
	step, ok := order[s.Step]
	if !ok {
		if s.Step.IsTerminal() {
			return nil
		}
		return fmt.Errorf("%w: unknown step %q", ErrInvalidInput, s.Step)
	}

	switch {
	case step >= order[StepSelectDate] && s.DoctorID == nil:
		return fmt.Errorf("%w: doctorId is missing", ErrInvalidInput)
	case step >= order[StepSelectSlot] && s.Date == nil:
		return fmt.Errorf("%w: date is missing", ErrInvalidInput)
	case step >= order[StepEnterDetails] && s.Slot == nil:
		return fmt.Errorf("%w: slot is missing", ErrInvalidInput)
	case step >= order[StepAwaitingPayment] && s.AppointmentID == nil:
		return fmt.Errorf("%w: appointmentId is missing", ErrInvalidInput)
	}
	return nil
}
