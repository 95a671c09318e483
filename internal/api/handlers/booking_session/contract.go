package booking_session

import (
	"context"

	"github.com/m04kA/SMC-AppointmentService/internal/session"
)

type Machine interface {
	Apply(ctx context.Context, patientID int64, state session.State, action session.Action) (session.State, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
