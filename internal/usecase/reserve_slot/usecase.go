package reserve_slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	availabilityRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/availability"
	doctorClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/slotgen"
	"github.com/m04kA/SMC-AppointmentService/pkg/keylock"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
)

// errRetryable попытка не состоялась по временной причине (блокировка, сериализация)
var errRetryable = errors.New("reserve_slot: retryable arbitration failure")

// UseCase use case бронирования слота (удержание до оплаты)
type UseCase struct {
	appointmentRepo  AppointmentRepository
	availabilityRepo AvailabilityRepository
	doctorClient     DoctorServiceClient
	locker           KeyLocker
	txManager        TransactionManager
	scheduler        ExpiryScheduler
	metrics          MetricsRecorder
	policy           domain.BookingPolicy
	arbitration      ArbitrationConfig
	timeProvider     TimeProvider
	logger           Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	availabilityRepo AvailabilityRepository,
	doctorClient DoctorServiceClient,
	locker KeyLocker,
	txManager TransactionManager,
	scheduler ExpiryScheduler,
	metrics MetricsRecorder,
	policy domain.BookingPolicy,
	arbitration ArbitrationConfig,
	logger Logger,
) *UseCase {
	if arbitration.Attempts <= 0 {
		arbitration.Attempts = 1
	}
	return &UseCase{
		appointmentRepo:  appointmentRepo,
		availabilityRepo: availabilityRepo,
		doctorClient:     doctorClient,
		locker:           locker,
		txManager:        txManager,
		scheduler:        scheduler,
		metrics:          metrics,
		policy:           policy,
		arbitration:      arbitration,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute бронирует слот: не более одного неотменённого приёма на (врач, дата, начало)
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	resp, err := uc.execute(ctx, req)
	uc.metrics.RecordReservation(resultOf(err))
	return resp, err
}

func (uc *UseCase) execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ReserveSlot: patient=%d, doctor=%d, date=%s, time=%s",
		req.PatientID, req.DoctorID, req.Date.Format(domain.DateFormat), req.StartTime)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("ReserveSlot: validation failed: %v", err)
		return nil, err
	}

	date := domain.DateOnly(req.Date)
	now := uc.timeProvider.Now()

	// 2. Проверяем дату по правилам записи
	if err := uc.policy.CheckDate(date, now); err != nil {
		uc.logger.Warn("ReserveSlot: date validation failed: %v", err)
		return nil, err
	}

	// 3. Получаем врача (стоимость приёма)
	doctor, err := uc.doctorClient.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			uc.logger.Warn("ReserveSlot: doctor id=%d not found", req.DoctorID)
			return nil, ErrDoctorNotFound
		}
		uc.logger.Error("ReserveSlot: failed to get doctor id=%d: %v", req.DoctorID, err)
		return nil, fmt.Errorf("%w: failed to get doctor: %v", ErrInternal, err)
	}
	if !doctor.IsActive {
		uc.logger.Warn("ReserveSlot: doctor id=%d is not active", req.DoctorID)
		return nil, ErrDoctorNotFound
	}

	// 4. Арбитраж с ограниченным числом попыток
	// Окно читается под блокировкой ключа, чтобы врач не изменил его посреди бронирования
	key := domain.SlotKey(req.DoctorID, date)

	var lastErr error
	for attempt := 1; attempt <= uc.arbitration.Attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, uc.arbitration.Backoff*time.Duration(attempt-1)); err != nil {
				return nil, fmt.Errorf("%w: reservation aborted: %v", ErrInternal, err)
			}
		}

		created, err := uc.tryReserve(ctx, key, req, date, doctor)
		if err == nil {
			return uc.finish(ctx, created), nil
		}

		if !errors.Is(err, errRetryable) {
			return nil, err
		}

		lastErr = err
		uc.logger.Warn("ReserveSlot: attempt %d/%d for %s failed: %v", attempt, uc.arbitration.Attempts, key, err)
	}

	uc.logger.Error("ReserveSlot: arbitration for %s unavailable after %d attempts", key, uc.arbitration.Attempts)
	return nil, &domain.TransientArbitrationError{
		Key:      key,
		Attempts: uc.arbitration.Attempts,
		Err:      lastErr,
	}
}

// resolveSlot находит слот в сетке окна врача
func (uc *UseCase) resolveSlot(ctx context.Context, req *Request, date time.Time) (domain.Slot, error) {
	window, err := uc.availabilityRepo.GetByDoctorAndDate(ctx, req.DoctorID, date)
	if err != nil {
		if errors.Is(err, availabilityRepo.ErrWindowNotFound) {
			uc.logger.Warn("ReserveSlot: doctor=%d has no window on %s", req.DoctorID, date.Format(domain.DateFormat))
			return domain.Slot{}, &domain.ValidationError{Field: "date", Reason: "is outside any declared window"}
		}
		uc.logger.Error("ReserveSlot: failed to get window: %v", err)
		return domain.Slot{}, fmt.Errorf("%w: failed to get window: %v", ErrInternal, err)
	}

	slots, err := slotgen.Generate(window, nil)
	if err != nil {
		uc.logger.Error("ReserveSlot: stored window id=%d is invalid: %v", window.ID, err)
		return domain.Slot{}, fmt.Errorf("%w: failed to generate slots: %v", ErrInternal, err)
	}
	slots = slotgen.MarkPast(slots, uc.timeProvider.Now(), uc.policy.Loc(), uc.policy.MinBookingNoticeMinutes)

	slot, ok := slotgen.Find(slots, req.StartTime)
	if !ok {
		uc.logger.Warn("ReserveSlot: %s is not a slot of window id=%d", req.StartTime, window.ID)
		return domain.Slot{}, &domain.ValidationError{Field: "startTime", Reason: "is outside any declared window slot"}
	}
	if slot.Past {
		uc.logger.Warn("ReserveSlot: slot %s on %s is in the past", req.StartTime, date.Format(domain.DateFormat))
		return domain.Slot{}, &domain.ValidationError{Field: "startTime", Reason: "is in the past or too close to book"}
	}

	return slot, nil
}

// tryReserve одна попытка: блокировка ключа, проверка слота по окну и сериализуемая вставка
func (uc *UseCase) tryReserve(
	ctx context.Context,
	key string,
	req *Request,
	date time.Time,
	doctor *doctorClient.Doctor,
) (*domain.Appointment, error) {
	unlock, err := uc.locker.Acquire(ctx, key, uc.arbitration.Timeout)
	if err != nil {
		if errors.Is(err, keylock.ErrLockTimeout) {
			return nil, fmt.Errorf("%w: %v", errRetryable, err)
		}
		uc.logger.Error("ReserveSlot: failed to acquire lock %s: %v", key, err)
		return nil, fmt.Errorf("%w: failed to acquire lock: %v", ErrInternal, err)
	}
	defer unlock()

	slot, err := uc.resolveSlot(ctx, req, date)
	if err != nil {
		return nil, err
	}

	var created *domain.Appointment

	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 5.1. Блокируем приёмы врача на дату (FOR UPDATE)
		existing, err := uc.appointmentRepo.ListActiveByDoctorAndDate(txCtx, req.DoctorID, slot.Date)
		if err != nil {
			return fmt.Errorf("%w: failed to get appointments: %w", ErrInternal, err)
		}

		// 5.2. Проверяем пересечение
		for _, a := range existing {
			if a.IsActive() && a.Overlaps(slot.StartTime, slot.EndTime) {
				uc.logger.Warn("ReserveSlot: slot %s taken by appointment id=%d", slot.StartTime, a.ID)
				return &domain.ConflictError{DoctorID: req.DoctorID, Date: slot.Date, StartTime: slot.StartTime}
			}
		}

		// 5.3. Создаем удержание
		now := uc.timeProvider.Now()
		deadline := uc.policy.Deadline(now)

		currency := doctor.Currency
		if currency == "" {
			currency = domain.DefaultCurrency
		}

		appointment := &domain.Appointment{
			DoctorID:          req.DoctorID,
			PatientID:         req.PatientID,
			AppointmentDate:   slot.Date,
			StartTime:         slot.StartTime,
			EndTime:           slot.EndTime,
			DurationMinutes:   slot.DurationMinutes,
			Status:            domain.StatusAwaitingPayment,
			ConsultationFee:   doctor.ConsultationFee,
			Currency:          currency,
			PaymentStatus:     domain.PaymentUnpaid,
			Notes:             req.Notes,
			SharedDocumentIDs: req.SharedDocumentIDs,
			ExpiresAt:         &deadline,
		}

		created, err = uc.appointmentRepo.Create(txCtx, appointment)
		if err != nil {
			if errors.Is(err, appointmentRepo.ErrSlotTaken) {
				uc.logger.Warn("ReserveSlot: unique slot constraint rejected %s", slot.StartTime)
				return &domain.ConflictError{DoctorID: req.DoctorID, Date: slot.Date, StartTime: slot.StartTime}
			}
			return fmt.Errorf("%w: failed to create appointment: %w", ErrInternal, err)
		}

		return nil
	})

	if err != nil {
		if txmanager.IsSerializationFailure(err) {
			return nil, fmt.Errorf("%w: %v", errRetryable, err)
		}

		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return nil, err
		}

		uc.logger.Error("ReserveSlot: transaction failed: %v", err)
		if errors.Is(err, ErrInternal) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: transaction failed: %v", ErrInternal, err)
	}

	return created, nil
}

// finish ставит таймер снятия удержания
// Ошибка планировщика не отменяет бронь: просроченное удержание снимет sweeper
func (uc *UseCase) finish(ctx context.Context, created *domain.Appointment) *Response {
	deadline := *created.ExpiresAt

	if err := uc.scheduler.Schedule(ctx, created.ID, deadline); err != nil {
		uc.logger.Error("ReserveSlot: failed to schedule expiry for appointment id=%d: %v", created.ID, err)
	}

	uc.logger.Info("ReserveSlot: appointment id=%d holds %s %s until %s",
		created.ID, created.AppointmentDate.Format(domain.DateFormat), created.StartTime, deadline.Format(time.RFC3339))

	return &Response{
		Appointment: created,
		ExpiresAt:   deadline,
	}
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return resultSuccess
	case errors.Is(err, domain.ErrSlotAlreadyTaken):
		return resultConflict
	case errors.Is(err, domain.ErrValidation), errors.Is(err, ErrDoctorNotFound):
		return resultValidation
	case errors.Is(err, domain.ErrArbitrationUnavailable):
		return resultTransient
	default:
		return resultError
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
