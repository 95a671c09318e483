package session

import "errors"

var (
	// ErrUnknownAction возвращается для неизвестного действия
	ErrUnknownAction = errors.New("session: unknown action")

	// ErrWrongStep возвращается, когда действие недопустимо на текущем шаге
	ErrWrongStep = errors.New("session: action is not allowed at current step")

	// ErrInvalidInput возвращается при некорректных данных действия
	ErrInvalidInput = errors.New("session: invalid input data")

	// ErrNoAvailableDates возвращается, когда у врача нет дат с доступными слотами
	ErrNoAvailableDates = errors.New("session: doctor has no available dates")

	// ErrNoAvailableSlots возвращается, когда на дату нет доступных слотов
	ErrNoAvailableSlots = errors.New("session: date has no available slots")

	// ErrConfirmationRequired возвращается, когда детали отправлены без подтверждения
	ErrConfirmationRequired = errors.New("session: explicit confirmation required")

	// ErrCannotGoBack возвращается при попытке вернуться на незавершённый шаг
	ErrCannotGoBack = errors.New("session: cannot navigate back to this step")
)
