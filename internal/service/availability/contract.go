package availability

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/pkg/keylock"
)

// AvailabilityRepository интерфейс репозитория рабочих окон
type AvailabilityRepository interface {
	Upsert(ctx context.Context, window *domain.AvailabilityWindow) (*domain.AvailabilityWindow, error)
	GetByDoctorAndDate(ctx context.Context, doctorID int64, date time.Time) (*domain.AvailabilityWindow, error)
	ListByDoctor(ctx context.Context, doctorID int64, from, to time.Time) ([]*domain.AvailabilityWindow, error)
	Delete(ctx context.Context, doctorID int64, date time.Time) error
}

// AppointmentRepository интерфейс репозитория приёмов
type AppointmentRepository interface {
	ListActiveByDoctorAndDate(ctx context.Context, doctorID int64, date time.Time) ([]*domain.Appointment, error)
}

// DoctorServiceClient интерфейс клиента справочника врачей
type DoctorServiceClient interface {
	GetDoctor(ctx context.Context, doctorID int64) (*doctorservice.Doctor, error)
}

// KeyLocker точка арбитража (врач, дата), общая с бронированием
type KeyLocker interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (keylock.Unlock, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
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
