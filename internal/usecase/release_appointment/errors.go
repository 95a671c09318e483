package release_appointment

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда приём не найден
	ErrAppointmentNotFound = errors.New("release_appointment: appointment not found")

	// ErrAccessDenied возвращается, когда приём не принадлежит пользователю
	ErrAccessDenied = errors.New("release_appointment: access denied")

	// ErrCannotCancel возвращается, когда приём уже состоялся
	ErrCannotCancel = errors.New("release_appointment: appointment cannot be cancelled")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("release_appointment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("release_appointment: internal error")
)
