package reserve_slot

import "errors"

var (
	// ErrDoctorNotFound возвращается, когда врач не найден или не принимает
	ErrDoctorNotFound = errors.New("reserve_slot: doctor not found")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("reserve_slot: internal error")
)

// Результаты бронирования для метрик
const (
	resultSuccess    = "success"
	resultConflict   = "conflict"
	resultValidation = "validation"
	resultTransient  = "transient"
	resultError      = "error"
)
