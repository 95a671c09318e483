package expire_reservation

import "github.com/m04kA/SMC-AppointmentService/internal/domain"

// Request модель запроса на снятие удержания
type Request struct {
	AppointmentID int64
}

// Response модель ответа
type Response struct {
	Expired     bool                // удержание снято этим вызовом
	Appointment *domain.Appointment // nil, если приём не найден
}
