package session

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/usecase/confirm_payment"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_dates"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/release_appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/reserve_slot"
)

// DatesLister даты врача с доступными слотами
type DatesLister interface {
	Execute(ctx context.Context, req *get_available_dates.Request) (*get_available_dates.Response, error)
}

// SlotsLister слоты врача на дату
type SlotsLister interface {
	Execute(ctx context.Context, req *get_available_slots.Request) (*get_available_slots.Response, error)
}

// Reserver бронирование слота
type Reserver interface {
	Execute(ctx context.Context, req *reserve_slot.Request) (*reserve_slot.Response, error)
}

// PaymentConfirmer подтверждение оплаты
type PaymentConfirmer interface {
	Execute(ctx context.Context, req *confirm_payment.Request) (*confirm_payment.Response, error)
}

// Releaser отмена приёма
type Releaser interface {
	Execute(ctx context.Context, req *release_appointment.Request) (*release_appointment.Response, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
