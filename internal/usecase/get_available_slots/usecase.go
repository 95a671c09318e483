package get_available_slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	availabilityRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/availability"
	doctorClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/slotgen"
)

// UseCase use case для получения слотов врача на дату
type UseCase struct {
	appointmentRepo  AppointmentRepository
	availabilityRepo AvailabilityRepository
	doctorClient     DoctorServiceClient
	policy           domain.BookingPolicy
	timeProvider     TimeProvider
	logger           Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	availabilityRepo AvailabilityRepository,
	doctorClient DoctorServiceClient,
	policy domain.BookingPolicy,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo:  appointmentRepo,
		availabilityRepo: availabilityRepo,
		doctorClient:     doctorClient,
		policy:           policy,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// Execute выполняет use case получения слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: doctor=%d, date=%s", req.DoctorID, req.Date.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	date := domain.DateOnly(req.Date)
	now := uc.timeProvider.Now()

	// 2. Проверяем дату по правилам записи
	if err := uc.policy.CheckDate(date, now); err != nil {
		uc.logger.Warn("GetAvailableSlots: date validation failed: %v", err)
		return nil, err
	}

	// 3. Проверяем врача
	doctor, err := uc.doctorClient.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			uc.logger.Warn("GetAvailableSlots: doctor id=%d not found", req.DoctorID)
			return nil, ErrDoctorNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get doctor id=%d: %v", req.DoctorID, err)
		return nil, fmt.Errorf("%w: failed to get doctor: %v", ErrInternal, err)
	}
	if !doctor.IsActive {
		uc.logger.Warn("GetAvailableSlots: doctor id=%d is not active", req.DoctorID)
		return nil, ErrDoctorNotFound
	}

	// 4. Получаем рабочее окно на дату
	window, err := uc.availabilityRepo.GetByDoctorAndDate(ctx, req.DoctorID, date)
	if err != nil {
		if errors.Is(err, availabilityRepo.ErrWindowNotFound) {
			uc.logger.Info("GetAvailableSlots: doctor=%d has no window on %s", req.DoctorID, date.Format(domain.DateFormat))
			return &Response{
				DoctorID:  req.DoctorID,
				Date:      date,
				Slots:     []domain.Slot{},
				Available: []domain.Slot{},
			}, nil
		}
		uc.logger.Error("GetAvailableSlots: failed to get window: %v", err)
		return nil, fmt.Errorf("%w: failed to get window: %v", ErrInternal, err)
	}

	// 5. Получаем неотменённые приёмы на дату
	appointments, err := uc.appointmentRepo.ListActiveByDoctorAndDate(ctx, req.DoctorID, date)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get appointments: %v", err)
		return nil, fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
	}

	// 6. Генерируем слоты и размечаем прошедшие
	slots, err := slotgen.Generate(window, appointments)
	if err != nil {
		// окно сохранено с проверкой, сюда попадаем только при порче данных
		uc.logger.Error("GetAvailableSlots: stored window id=%d is invalid: %v", window.ID, err)
		return nil, fmt.Errorf("%w: failed to generate slots: %v", ErrInternal, err)
	}
	slots = slotgen.MarkPast(slots, now, uc.policy.Loc(), uc.policy.MinBookingNoticeMinutes)

	stats := slotgen.Stats(slots)

	uc.logger.Info("GetAvailableSlots: doctor=%d, date=%s: total=%d, available=%d, reserved=%d, booked=%d",
		req.DoctorID, date.Format(domain.DateFormat), stats.Total, stats.Available, stats.Reserved, stats.Booked)

	return &Response{
		DoctorID:  req.DoctorID,
		Date:      date,
		HasWindow: true,
		Slots:     slots,
		Available: slotgen.Available(slots),
		Stats:     stats,
	}, nil
}
