package expire_reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notificationservice"
)

// UseCase use case снятия удержания по истечении дедлайна оплаты
type UseCase struct {
	appointmentRepo AppointmentRepository
	txManager       TransactionManager
	notifier        Notifier
	metrics         MetricsRecorder
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	txManager TransactionManager,
	notifier Notifier,
	metrics MetricsRecorder,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		txManager:       txManager,
		notifier:        notifier,
		metrics:         metrics,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute снимает удержание, если приём всё ещё ждёт оплаты и дедлайн наступил
// В остальных случаях (подтверждён, отменён, дедлайн впереди) ничего не делает
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	var (
		result  *domain.Appointment
		expired bool
	)

	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		current, err := uc.appointmentRepo.GetByIDForUpdate(txCtx, req.AppointmentID)
		if err != nil {
			if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
				return nil
			}
			return fmt.Errorf("%w: failed to lock appointment: %v", ErrInternal, err)
		}
		result = current

		now := uc.timeProvider.Now()
		if !current.IsHoldExpired(now) {
			return nil
		}

		if err := uc.appointmentRepo.Expire(txCtx, current.ID, now); err != nil {
			if errors.Is(err, appointmentRepo.ErrStatusConflict) {
				return nil
			}
			return fmt.Errorf("%w: failed to expire appointment: %v", ErrInternal, err)
		}

		result, err = uc.appointmentRepo.GetByID(txCtx, current.ID)
		if err != nil {
			return fmt.Errorf("%w: failed to reload appointment: %v", ErrInternal, err)
		}
		expired = true

		return nil
	})
	if err != nil {
		uc.logger.Error("ExpireReservation: appointment id=%d: %v", req.AppointmentID, err)
		return nil, err
	}

	if result == nil {
		uc.logger.Warn("ExpireReservation: appointment id=%d not found", req.AppointmentID)
		return &Response{}, nil
	}

	if !expired {
		uc.logger.Info("ExpireReservation: appointment id=%d in status %s, nothing to do", result.ID, result.Status)
		return &Response{Appointment: result}, nil
	}

	uc.metrics.RecordExpiredHold()

	event := notificationservice.Event{
		Type:          notificationservice.EventAppointmentCancelled,
		AppointmentID: result.ID,
		DoctorID:      result.DoctorID,
		PatientID:     result.PatientID,
		Date:          result.AppointmentDate.Format(domain.DateFormat),
		StartTime:     result.StartTime.String(),
		Reason:        string(domain.ReasonPaymentTimeout),
	}
	if err := uc.notifier.Notify(ctx, event); err != nil {
		uc.logger.Warn("ExpireReservation: failed to notify about appointment id=%d: %v", result.ID, err)
	}

	uc.logger.Info("ExpireReservation: hold for appointment id=%d released (%s %s)",
		result.ID, result.AppointmentDate.Format(domain.DateFormat), result.StartTime)

	return &Response{Expired: true, Appointment: result}, nil
}

// Expire адаптер для планировщиков (expiry.ExpireFunc)
func (uc *UseCase) Expire(ctx context.Context, appointmentID int64) error {
	_, err := uc.Execute(ctx, &Request{AppointmentID: appointmentID})
	return err
}
