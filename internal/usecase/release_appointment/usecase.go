package release_appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notificationservice"
)

// UseCase use case отмены приёма (освобождение слота)
type UseCase struct {
	appointmentRepo AppointmentRepository
	doctorClient    DoctorServiceClient
	txManager       TransactionManager
	scheduler       ExpiryScheduler
	notifier        Notifier
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	doctorClient DoctorServiceClient,
	txManager TransactionManager,
	scheduler ExpiryScheduler,
	notifier Notifier,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		doctorClient:    doctorClient,
		txManager:       txManager,
		scheduler:       scheduler,
		notifier:        notifier,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute отменяет приём
// Повторная отмена уже отменённого приёма возвращает его без изменений
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ReleaseAppointment: appointment=%d, user=%d", req.AppointmentID, req.UserID)

	// 1. Валидация входных данных
	if req.AppointmentID <= 0 || req.UserID <= 0 {
		uc.logger.Warn("ReleaseAppointment: invalid input: appointment=%d, user=%d", req.AppointmentID, req.UserID)
		return nil, fmt.Errorf("%w: appointmentID and userID must be positive", ErrInvalidInput)
	}

	// 2. Получаем приём и определяем, кто отменяет
	appointment, err := uc.appointmentRepo.GetByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			uc.logger.Warn("ReleaseAppointment: appointment id=%d not found", req.AppointmentID)
			return nil, ErrAppointmentNotFound
		}
		uc.logger.Error("ReleaseAppointment: failed to get appointment id=%d: %v", req.AppointmentID, err)
		return nil, fmt.Errorf("%w: failed to get appointment: %v", ErrInternal, err)
	}

	reason, err := uc.resolveReason(ctx, appointment, req.UserID)
	if err != nil {
		return nil, err
	}

	// 3. Отменяем под блокировкой строки
	var (
		result           *domain.Appointment
		alreadyCancelled bool
	)

	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		current, err := uc.appointmentRepo.GetByIDForUpdate(txCtx, req.AppointmentID)
		if err != nil {
			return fmt.Errorf("%w: failed to lock appointment: %v", ErrInternal, err)
		}

		switch current.Status {
		case domain.StatusCancelled:
			result = current
			alreadyCancelled = true
			return nil
		case domain.StatusCompleted:
			return ErrCannotCancel
		}

		// оплаченный приём уходит на возврат
		paymentStatus := current.PaymentStatus
		if paymentStatus == domain.PaymentPaid {
			paymentStatus = domain.PaymentRefundPending
		}

		if err := uc.appointmentRepo.Cancel(txCtx, current.ID, reason, paymentStatus, uc.timeProvider.Now()); err != nil {
			return fmt.Errorf("%w: failed to cancel appointment: %v", ErrInternal, err)
		}

		result, err = uc.appointmentRepo.GetByID(txCtx, current.ID)
		if err != nil {
			return fmt.Errorf("%w: failed to reload appointment: %v", ErrInternal, err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCannotCancel) {
			uc.logger.Warn("ReleaseAppointment: appointment id=%d is completed", req.AppointmentID)
		} else {
			uc.logger.Error("ReleaseAppointment: failed to cancel appointment id=%d: %v", req.AppointmentID, err)
		}
		return nil, err
	}

	if alreadyCancelled {
		uc.logger.Info("ReleaseAppointment: appointment id=%d already cancelled", req.AppointmentID)
		return &Response{Appointment: result, AlreadyCancelled: true}, nil
	}

	// 4. Снимаем таймер удержания и уведомляем
	if err := uc.scheduler.Cancel(ctx, result.ID); err != nil {
		uc.logger.Warn("ReleaseAppointment: failed to cancel expiry for appointment id=%d: %v", result.ID, err)
	}

	if err := uc.notifier.Notify(ctx, cancelledEvent(result)); err != nil {
		uc.logger.Warn("ReleaseAppointment: failed to notify about appointment id=%d: %v", result.ID, err)
	}

	uc.logger.Info("ReleaseAppointment: appointment id=%d cancelled (%s)", result.ID, reason)

	return &Response{Appointment: result}, nil
}

// resolveReason проверяет доступ и возвращает причину отмены
func (uc *UseCase) resolveReason(ctx context.Context, appointment *domain.Appointment, userID int64) (domain.CancellationReason, error) {
	if appointment.IsOwnedByPatient(userID) {
		return domain.ReasonPatientCancelled, nil
	}

	doctor, err := uc.doctorClient.GetDoctor(ctx, appointment.DoctorID)
	if err != nil {
		uc.logger.Error("ReleaseAppointment: failed to get doctor id=%d: %v", appointment.DoctorID, err)
		return "", fmt.Errorf("%w: failed to get doctor: %v", ErrInternal, err)
	}
	if doctor.UserID == userID {
		return domain.ReasonDoctorCancelled, nil
	}

	uc.logger.Warn("ReleaseAppointment: user=%d has no access to appointment id=%d", userID, appointment.ID)
	return "", ErrAccessDenied
}

func cancelledEvent(a *domain.Appointment) notificationservice.Event {
	event := notificationservice.Event{
		Type:          notificationservice.EventAppointmentCancelled,
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Date:          a.AppointmentDate.Format(domain.DateFormat),
		StartTime:     a.StartTime.String(),
	}
	if a.CancellationReason != nil {
		event.Reason = string(*a.CancellationReason)
	}
	return event
}
