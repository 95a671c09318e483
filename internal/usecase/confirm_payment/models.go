package confirm_payment

import "github.com/m04kA/SMC-AppointmentService/internal/domain"

// Request модель запроса на подтверждение оплаты
type Request struct {
	AppointmentID int64  // ID приёма
	PatientID     int64  // ID пациента (из аутентификации)
	PaymentMethod string // Платёжный метод (токен шлюза)
	Amount        int64  // Сумма в минимальных единицах валюты
}

// Response модель ответа
type Response struct {
	Appointment      *domain.Appointment
	AlreadyConfirmed bool // приём был подтверждён раньше, шлюз повторно не вызывался
}
