package get_available_dates

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
)

// AppointmentRepository интерфейс репозитория приёмов
type AppointmentRepository interface {
	ListByDoctor(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error)
}

// AvailabilityRepository интерфейс репозитория рабочих окон
type AvailabilityRepository interface {
	ListByDoctor(ctx context.Context, doctorID int64, from, to time.Time) ([]*domain.AvailabilityWindow, error)
}

// DoctorServiceClient интерфейс клиента справочника врачей
type DoctorServiceClient interface {
	GetDoctor(ctx context.Context, doctorID int64) (*doctorservice.Doctor, error)
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
