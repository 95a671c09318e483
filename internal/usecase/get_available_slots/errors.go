package get_available_slots

import "errors"

var (
	// ErrDoctorNotFound возвращается, когда врач не найден или не принимает
	ErrDoctorNotFound = errors.New("get_available_slots: doctor not found")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("get_available_slots: internal error")
)
