package confirm_payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/notificationservice"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/payment"
)

// UseCase use case подтверждения оплаты удержанного слота
type UseCase struct {
	appointmentRepo AppointmentRepository
	gateway         PaymentGateway
	txManager       TransactionManager
	scheduler       ExpiryScheduler
	notifier        Notifier
	metrics         MetricsRecorder
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	gateway PaymentGateway,
	txManager TransactionManager,
	scheduler ExpiryScheduler,
	notifier Notifier,
	metrics MetricsRecorder,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		gateway:         gateway,
		txManager:       txManager,
		scheduler:       scheduler,
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

// outcome итог транзакции подтверждения
// Отказ фиксируется в БД (failed / expired), поэтому транзакция коммитится, а ошибка возвращается после
type outcome struct {
	appointment      *domain.Appointment
	alreadyConfirmed bool
	expiredInline    bool
	rejection        error
}

// Execute подтверждает оплату
// Повтор для подтверждённого приёма возвращает тот же результат без обращения к шлюзу
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ConfirmPayment: appointment=%d, patient=%d, amount=%d", req.AppointmentID, req.PatientID, req.Amount)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("ConfirmPayment: validation failed: %v", err)
		return nil, err
	}

	// 2. Проверяем, что приём принадлежит пациенту
	appointment, err := uc.appointmentRepo.GetByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			uc.logger.Warn("ConfirmPayment: appointment id=%d not found", req.AppointmentID)
			return nil, ErrAppointmentNotFound
		}
		uc.logger.Error("ConfirmPayment: failed to get appointment id=%d: %v", req.AppointmentID, err)
		uc.metrics.RecordPaymentConfirmation(resultError)
		return nil, fmt.Errorf("%w: failed to get appointment: %v", ErrInternal, err)
	}
	if !appointment.IsOwnedByPatient(req.PatientID) {
		uc.logger.Warn("ConfirmPayment: patient=%d has no access to appointment id=%d", req.PatientID, req.AppointmentID)
		return nil, ErrAccessDenied
	}

	// 3. Проверка и переход под блокировкой строки
	// expire берёт ту же блокировку, поэтому не может снять удержание посреди подтверждения
	var out outcome
	err = uc.txManager.Do(ctx, func(txCtx context.Context) error {
		var err error
		out, err = uc.confirmLocked(txCtx, req)
		return err
	})
	if err != nil {
		uc.logger.Error("ConfirmPayment: appointment id=%d: %v", req.AppointmentID, err)
		uc.metrics.RecordPaymentConfirmation(resultError)
		return nil, err
	}

	// 4. Побочные эффекты после коммита
	switch {
	case out.expiredInline:
		uc.metrics.RecordExpiredHold()
		uc.metrics.RecordPaymentConfirmation(resultExpired)
		uc.cancelTimer(ctx, req.AppointmentID)
		uc.notify(ctx, out.appointment, notificationservice.EventAppointmentCancelled)
		return nil, out.rejection

	case out.rejection != nil:
		if errors.Is(out.rejection, domain.ErrReservationExpired) {
			uc.metrics.RecordPaymentConfirmation(resultExpired)
		} else {
			uc.metrics.RecordPaymentConfirmation(resultRejected)
		}
		uc.logger.Warn("ConfirmPayment: appointment id=%d rejected: %v", req.AppointmentID, out.rejection)
		return nil, out.rejection

	case out.alreadyConfirmed:
		uc.metrics.RecordPaymentConfirmation(resultDuplicate)
		uc.logger.Info("ConfirmPayment: appointment id=%d already confirmed", req.AppointmentID)
		return &Response{Appointment: out.appointment, AlreadyConfirmed: true}, nil
	}

	uc.metrics.RecordPaymentConfirmation(resultConfirmed)
	uc.cancelTimer(ctx, req.AppointmentID)
	uc.notify(ctx, out.appointment, notificationservice.EventAppointmentConfirmed)

	uc.logger.Info("ConfirmPayment: appointment id=%d confirmed, reference=%s",
		req.AppointmentID, derefString(out.appointment.PaymentReference))

	return &Response{Appointment: out.appointment}, nil
}

// confirmLocked выполняется внутри транзакции
func (uc *UseCase) confirmLocked(ctx context.Context, req *Request) (outcome, error) {
	a, err := uc.appointmentRepo.GetByIDForUpdate(ctx, req.AppointmentID)
	if err != nil {
		return outcome{}, fmt.Errorf("%w: failed to lock appointment: %v", ErrInternal, err)
	}

	switch a.Status {
	case domain.StatusConfirmed, domain.StatusCompleted:
		return outcome{appointment: a, alreadyConfirmed: true}, nil

	case domain.StatusCancelled:
		if a.CancellationReason != nil && *a.CancellationReason == domain.ReasonPaymentTimeout {
			return outcome{rejection: expiredError(a)}, nil
		}
		return outcome{rejection: &domain.PaymentRejectedError{
			AppointmentID: a.ID,
			Reason:        domain.RejectCancelled,
		}}, nil

	case domain.StatusAwaitingPayment:
		// продолжаем ниже

	default:
		return outcome{}, ErrNotAwaitingPayment
	}

	now := uc.timeProvider.Now()

	// Дедлайн прошёл, а таймер ещё не сработал: снимаем удержание сами
	if a.IsHoldExpired(now) {
		if err := uc.appointmentRepo.Expire(ctx, a.ID, now); err != nil {
			return outcome{}, fmt.Errorf("%w: failed to expire appointment: %v", ErrInternal, err)
		}
		expired, err := uc.appointmentRepo.GetByID(ctx, a.ID)
		if err != nil {
			return outcome{}, fmt.Errorf("%w: failed to reload appointment: %v", ErrInternal, err)
		}
		return outcome{appointment: expired, expiredInline: true, rejection: expiredError(a)}, nil
	}

	if req.Amount != a.ConsultationFee {
		return outcome{rejection: &domain.PaymentRejectedError{
			AppointmentID: a.ID,
			Reason:        domain.RejectAmountMismatch,
			Detail:        fmt.Sprintf("expected %d %s, got %d", a.ConsultationFee, a.Currency, req.Amount),
		}}, nil
	}

	verdict, err := uc.gateway.Charge(ctx, payment.Charge{
		AppointmentID:  a.ID,
		Amount:         a.ConsultationFee,
		Currency:       a.Currency,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: idempotencyKey(a.ID, req.PaymentMethod),
	})
	if err != nil {
		return outcome{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if !verdict.Approved {
		// удержание сохраняется до дедлайна, пациент может попробовать другой метод
		if err := uc.appointmentRepo.MarkPaymentFailed(ctx, a.ID, req.PaymentMethod, now); err != nil {
			return outcome{}, fmt.Errorf("%w: failed to mark payment failed: %v", ErrInternal, err)
		}
		return outcome{rejection: &domain.PaymentRejectedError{
			AppointmentID: a.ID,
			Reason:        domain.RejectDeclined,
			Detail:        verdict.DeclineReason,
		}}, nil
	}

	if err := uc.appointmentRepo.Confirm(ctx, a.ID, req.PaymentMethod, verdict.Reference, now); err != nil {
		return outcome{}, fmt.Errorf("%w: failed to confirm appointment: %v", ErrInternal, err)
	}

	confirmed, err := uc.appointmentRepo.GetByID(ctx, a.ID)
	if err != nil {
		return outcome{}, fmt.Errorf("%w: failed to reload appointment: %v", ErrInternal, err)
	}

	return outcome{appointment: confirmed}, nil
}

func (uc *UseCase) cancelTimer(ctx context.Context, id int64) {
	if err := uc.scheduler.Cancel(ctx, id); err != nil {
		uc.logger.Warn("ConfirmPayment: failed to cancel expiry for appointment id=%d: %v", id, err)
	}
}

func (uc *UseCase) notify(ctx context.Context, a *domain.Appointment, eventType notificationservice.EventType) {
	event := notificationservice.Event{
		Type:          eventType,
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Date:          a.AppointmentDate.Format(domain.DateFormat),
		StartTime:     a.StartTime.String(),
	}
	if a.CancellationReason != nil {
		event.Reason = string(*a.CancellationReason)
	}

	if err := uc.notifier.Notify(ctx, event); err != nil {
		uc.logger.Warn("ConfirmPayment: failed to notify about appointment id=%d: %v", a.ID, err)
	}
}

func expiredError(a *domain.Appointment) error {
	var deadline time.Time
	if a.ExpiresAt != nil {
		deadline = *a.ExpiresAt
	}
	return &domain.ExpiredReservationError{AppointmentID: a.ID, Deadline: deadline}
}

// idempotencyKey ключ платежа в шлюзе
// Повтор с тем же методом получает прежний вердикт, другой метод после отказа это новая попытка
func idempotencyKey(appointmentID int64, paymentMethod string) string {
	return fmt.Sprintf("appointment-%d-%s", appointmentID, strings.TrimSpace(paymentMethod))
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
