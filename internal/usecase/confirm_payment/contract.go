package confirm_payment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notificationservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/payment"
)

// AppointmentRepository интерфейс репозитория приёмов
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error)
	Confirm(ctx context.Context, id int64, paymentMethod, paymentReference string, confirmedAt time.Time) error
	MarkPaymentFailed(ctx context.Context, id int64, paymentMethod string, at time.Time) error
	Expire(ctx context.Context, id int64, at time.Time) error
}

// PaymentGateway интерфейс платёжного шлюза
type PaymentGateway interface {
	Charge(ctx context.Context, charge payment.Charge) (*payment.Verdict, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// ExpiryScheduler планировщик снятия удержания
type ExpiryScheduler interface {
	Cancel(ctx context.Context, appointmentID int64) error
}

// Notifier интерфейс сервиса уведомлений
type Notifier interface {
	Notify(ctx context.Context, event notificationservice.Event) error
}

// MetricsRecorder интерфейс для записи метрик оплаты
type MetricsRecorder interface {
	RecordPaymentConfirmation(result string)
	RecordExpiredHold()
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
