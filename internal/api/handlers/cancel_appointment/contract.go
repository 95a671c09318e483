package cancel_appointment

import (
	"context"

	releaseAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/release_appointment"
)

type ReleaseAppointmentUseCase interface {
	Execute(ctx context.Context, req *releaseAppointment.Request) (*releaseAppointment.Response, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
