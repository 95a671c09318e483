package get_available_dates

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	doctorClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/slotgen"
)

// UseCase use case для получения дат, на которые врач принимает
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

// Execute возвращает даты от сегодня до горизонта записи, на которые есть доступные слоты
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableDates: doctor=%d", req.DoctorID)

	// 1. Валидация входных данных
	if req.DoctorID <= 0 {
		err := &domain.ValidationError{Field: "doctorId", Reason: "must be positive"}
		uc.logger.Warn("GetAvailableDates: validation failed: %v", err)
		return nil, err
	}

	// 2. Проверяем врача
	doctor, err := uc.doctorClient.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			uc.logger.Warn("GetAvailableDates: doctor id=%d not found", req.DoctorID)
			return nil, ErrDoctorNotFound
		}
		uc.logger.Error("GetAvailableDates: failed to get doctor id=%d: %v", req.DoctorID, err)
		return nil, fmt.Errorf("%w: failed to get doctor: %v", ErrInternal, err)
	}
	if !doctor.IsActive {
		uc.logger.Warn("GetAvailableDates: doctor id=%d is not active", req.DoctorID)
		return nil, ErrDoctorNotFound
	}

	now := uc.timeProvider.Now()
	from := uc.policy.Today(now)
	to := uc.policy.LastBookableDate(now)

	// 3. Получаем окна и приёмы за период
	windows, err := uc.availabilityRepo.ListByDoctor(ctx, req.DoctorID, from, to)
	if err != nil {
		uc.logger.Error("GetAvailableDates: failed to get windows: %v", err)
		return nil, fmt.Errorf("%w: failed to get windows: %v", ErrInternal, err)
	}

	appointments, err := uc.appointmentRepo.ListByDoctor(ctx, domain.AppointmentFilter{
		DoctorID:  req.DoctorID,
		StartDate: &from,
		EndDate:   &to,
	})
	if err != nil {
		uc.logger.Error("GetAvailableDates: failed to get appointments: %v", err)
		return nil, fmt.Errorf("%w: failed to get appointments: %v", ErrInternal, err)
	}

	byDate := groupByDate(appointments)

	// 4. Для каждого окна считаем доступные слоты
	dates := make([]DateInfo, 0, len(windows))
	for _, window := range windows {
		key := window.Date.Format(domain.DateFormat)

		slots, err := slotgen.Generate(window, byDate[key])
		if err != nil {
			uc.logger.Warn("GetAvailableDates: skipping invalid window id=%d: %v", window.ID, err)
			continue
		}
		slots = slotgen.MarkPast(slots, now, uc.policy.Loc(), uc.policy.MinBookingNoticeMinutes)

		if available := len(slotgen.Available(slots)); available > 0 {
			dates = append(dates, DateInfo{
				Date:           domain.DateOnly(window.Date),
				AvailableSlots: available,
			})
		}
	}

	uc.logger.Info("GetAvailableDates: doctor=%d has %d dates with free slots", req.DoctorID, len(dates))

	return &Response{
		DoctorID: req.DoctorID,
		From:     from,
		To:       to,
		Dates:    dates,
	}, nil
}

// groupByDate группирует неотменённые приёмы по дате
func groupByDate(appointments []*domain.Appointment) map[string][]*domain.Appointment {
	result := make(map[string][]*domain.Appointment)
	for _, a := range appointments {
		if !a.IsActive() {
			continue
		}
		key := a.AppointmentDate.Format(domain.DateFormat)
		result[key] = append(result[key], a)
	}
	return result
}
