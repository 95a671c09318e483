// Package expiry снимает удержания слотов, не оплаченные к дедлайну.
//
// Таймер на каждое удержание ставится через Scheduler (asynq в redis или
// локальные таймеры), Sweeper периодически добирает удержания, таймер
// которых был потерян (рестарт процесса, недоступность redis).
package expiry

import (
	"context"
	"time"
)

// TypeAppointmentExpire тип отложенной задачи снятия удержания
const TypeAppointmentExpire = "appointment:expire"

// ExpireFunc снимает удержание приёма, если дедлайн оплаты наступил
// Должна быть идемпотентной: повторный вызов для неудерживаемого приёма ничего не делает
type ExpireFunc func(ctx context.Context, appointmentID int64) error

// HoldLister источник просроченных удержаний
type HoldLister interface {
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]int64, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Payload тело задачи снятия удержания
type Payload struct {
	AppointmentID int64 `json:"appointment_id"`
}
