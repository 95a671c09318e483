package booking_session

import "github.com/m04kA/SMC-AppointmentService/internal/session"

// SessionRequest текущее состояние клиента и действие пациента
type SessionRequest struct {
	State  session.State  `json:"state"`
	Action session.Action `json:"action"`
}

// SessionResponse новое состояние сценария
type SessionResponse struct {
	State session.State `json:"state"`
}
