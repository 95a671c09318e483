package confirm_payment

import (
	"fmt"
	"strings"
)

const maxPaymentMethodLength = 255

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.AppointmentID <= 0 {
		return fmt.Errorf("%w: appointmentID must be positive", ErrInvalidInput)
	}

	if req.PatientID <= 0 {
		return fmt.Errorf("%w: patientID must be positive", ErrInvalidInput)
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return fmt.Errorf("%w: paymentMethod is required", ErrInvalidInput)
	}
	if len(method) > maxPaymentMethodLength {
		return fmt.Errorf("%w: paymentMethod is too long", ErrInvalidInput)
	}

	if req.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidInput)
	}

	return nil
}
