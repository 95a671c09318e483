package reserve_slot

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/pkg/keylock"
)

// AppointmentRepository интерфейс репозитория приёмов
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *domain.Appointment) (*domain.Appointment, error)
	ListActiveByDoctorAndDate(ctx context.Context, doctorID int64, date time.Time) ([]*domain.Appointment, error)
}

// AvailabilityRepository интерфейс репозитория рабочих окон
type AvailabilityRepository interface {
	GetByDoctorAndDate(ctx context.Context, doctorID int64, date time.Time) (*domain.AvailabilityWindow, error)
}

// DoctorServiceClient интерфейс клиента справочника врачей
type DoctorServiceClient interface {
	GetDoctor(ctx context.Context, doctorID int64) (*doctorservice.Doctor, error)
}

// KeyLocker точка арбитража (врач, дата)
type KeyLocker interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (keylock.Unlock, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// ExpiryScheduler планировщик снятия удержания по дедлайну оплаты
type ExpiryScheduler interface {
	Schedule(ctx context.Context, appointmentID int64, at time.Time) error
}

// MetricsRecorder интерфейс для записи метрик бронирования
type MetricsRecorder interface {
	RecordReservation(result string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
