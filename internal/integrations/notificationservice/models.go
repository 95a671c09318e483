package notificationservice

// EventType тип события о приёме
type EventType string

const (
	EventAppointmentConfirmed EventType = "appointment_confirmed"
	EventAppointmentCancelled EventType = "appointment_cancelled"
)

// Event событие, по которому сервис уведомлений рассылает сообщения
type Event struct {
	Type          EventType `json:"type"`
	AppointmentID int64     `json:"appointment_id"`
	DoctorID      int64     `json:"doctor_id"`
	PatientID     int64     `json:"patient_id"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	Reason        string    `json:"reason,omitempty"`
}
