package availability

import "errors"

var (
	// ErrWindowNotFound возвращается, когда рабочее окно не найдено
	ErrWindowNotFound = errors.New("availability: window not found")

	// ErrDoctorNotFound возвращается, когда врач не найден или неактивен
	ErrDoctorNotFound = errors.New("availability: doctor not found")

	// ErrAccessDenied возвращается, когда пользователь не владеет профилем врача
	ErrAccessDenied = errors.New("availability: access denied")

	// ErrWindowHasAppointments возвращается при изменении окна, на которое уже есть записи
	ErrWindowHasAppointments = errors.New("availability: window has active appointments")

	// ErrArbitrationUnavailable возвращается, когда не удалось заблокировать дату врача
	ErrArbitrationUnavailable = errors.New("availability: date is locked, try again later")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("availability: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("availability: internal error")
)
