package release_appointment

import "github.com/m04kA/SMC-AppointmentService/internal/domain"

// Request модель запроса на отмену приёма
type Request struct {
	AppointmentID int64 // ID приёма
	UserID        int64 // ID пользователя (пациент или врач)
}

// Response модель ответа
type Response struct {
	Appointment      *domain.Appointment
	AlreadyCancelled bool // приём был отменён раньше, повторная отмена ничего не изменила
}
