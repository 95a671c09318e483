package reserve_slot

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// Request модель запроса на бронирование слота
type Request struct {
	PatientID         int64            // ID пациента (из аутентификации)
	DoctorID          int64            // ID врача
	Date              time.Time        // Дата приёма (без времени)
	StartTime         types.TimeString // Начало слота, например "10:00"
	Notes             *string          // Заметки пациента (опционально)
	SharedDocumentIDs []string         // Документы, открытые врачу (опционально)
}

// Response созданное удержание слота
type Response struct {
	Appointment *domain.Appointment
	ExpiresAt   time.Time // дедлайн оплаты
}

// ArbitrationConfig ограничения ожидания точки арбитража
type ArbitrationConfig struct {
	Timeout  time.Duration // ожидание блокировки в одной попытке
	Attempts int           // число попыток
	Backoff  time.Duration // пауза перед попыткой n равна Backoff*n
}

// DefaultArbitrationConfig значения по умолчанию
func DefaultArbitrationConfig() ArbitrationConfig {
	return ArbitrationConfig{
		Timeout:  2 * time.Second,
		Attempts: 3,
		Backoff:  50 * time.Millisecond,
	}
}
