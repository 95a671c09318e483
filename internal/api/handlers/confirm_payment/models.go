package confirm_payment

import (
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
	confirmPayment "github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
)

// ConfirmPaymentRequest HTTP request model
type ConfirmPaymentRequest struct {
	PaymentMethod string `json:"paymentMethod"` // токен платёжного метода шлюза
	Amount        int64  `json:"amount"`        // в минимальных единицах валюты
}

// ConfirmPaymentResponse HTTP response model
type ConfirmPaymentResponse struct {
	Appointment      *models.AppointmentResponse `json:"appointment"`
	AlreadyConfirmed bool                        `json:"alreadyConfirmed"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *ConfirmPaymentRequest) ToUseCaseRequest(appointmentID, patientID int64) *confirmPayment.Request {
	return &confirmPayment.Request{
		AppointmentID: appointmentID,
		PatientID:     patientID,
		PaymentMethod: r.PaymentMethod,
		Amount:        r.Amount,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *confirmPayment.Response) *ConfirmPaymentResponse {
	return &ConfirmPaymentResponse{
		Appointment:      models.FromDomainAppointment(resp.Appointment),
		AlreadyConfirmed: resp.AlreadyConfirmed,
	}
}
