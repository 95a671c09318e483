package get_available_dates

import "errors"

var (
	// ErrDoctorNotFound возвращается, когда врач не найден или не принимает
	ErrDoctorNotFound = errors.New("get_available_dates: doctor not found")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("get_available_dates: internal error")
)
