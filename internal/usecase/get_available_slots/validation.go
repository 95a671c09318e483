package get_available_slots

import "github.com/m04kA/SMC-AppointmentService/internal/domain"

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.DoctorID <= 0 {
		return &domain.ValidationError{Field: "doctorId", Reason: "must be positive"}
	}

	if req.Date.IsZero() {
		return &domain.ValidationError{Field: "date", Reason: "is required"}
	}

	return nil
}
