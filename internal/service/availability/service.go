package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	availabilityRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/availability"
	doctorClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/doctorservice"
	"github.com/m04kA/SMC-AppointmentService/internal/service/availability/models"
	"github.com/m04kA/SMC-AppointmentService/pkg/keylock"
)

// DefaultLockWait сколько ждать точку арбитража при изменении окна
const DefaultLockWait = 2 * time.Second

// Service сервис управления рабочими окнами врачей
type Service struct {
	availabilityRepo AvailabilityRepository
	appointmentRepo  AppointmentRepository
	doctorClient     DoctorServiceClient
	locker           KeyLocker
	txManager        TransactionManager
	policy           domain.BookingPolicy
	lockWait         time.Duration
	timeProvider     TimeProvider
	logger           Logger
}

// NewService создает новый экземпляр сервиса рабочих окон
func NewService(
	availabilityRepo AvailabilityRepository,
	appointmentRepo AppointmentRepository,
	doctorClient DoctorServiceClient,
	locker KeyLocker,
	txManager TransactionManager,
	policy domain.BookingPolicy,
	logger Logger,
) *Service {
	return &Service{
		availabilityRepo: availabilityRepo,
		appointmentRepo:  appointmentRepo,
		doctorClient:     doctorClient,
		locker:           locker,
		txManager:        txManager,
		policy:           policy,
		lockWait:         DefaultLockWait,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// WithTimeProvider устанавливает кастомный провайдер времени (для тестирования)
func (s *Service) WithTimeProvider(tp TimeProvider) *Service {
	s.timeProvider = tp
	return s
}

// Upsert создает или заменяет рабочее окно врача на дату
// Доступно только владельцу профиля врача
// Окно, на которое уже есть активные записи, не меняется
func (s *Service) Upsert(ctx context.Context, req *models.UpsertWindowRequest) (*models.WindowResponse, error) {
	s.logger.Info("Upsert: doctor=%d, date=%s by user=%d", req.DoctorID, req.Date, req.UserID)

	// 1. Разбираем и валидируем окно
	window, err := req.ToDomainWindow()
	if err != nil {
		s.logger.Warn("Upsert: invalid window: %v", err)
		return nil, err
	}
	if err := window.Validate(); err != nil {
		s.logger.Warn("Upsert: invalid window: %v", err)
		return nil, err
	}

	// 2. Проверяем права доступа
	if err := s.checkDoctorAccess(ctx, req.DoctorID, req.UserID); err != nil {
		return nil, err
	}

	// 3. Прошлые даты не редактируются
	if window.Date.Before(s.policy.Today(s.timeProvider.Now())) {
		s.logger.Warn("Upsert: date %s is in the past", req.Date)
		return nil, fmt.Errorf("%w: date is in the past", ErrInvalidInput)
	}

	// 4. Под точкой арбитража проверяем записи и сохраняем окно
	var saved *domain.AvailabilityWindow
	err = s.withDateLock(ctx, window.DoctorID, window.Date, func(ctx context.Context) error {
		if err := s.ensureNoAppointments(ctx, window.DoctorID, window.Date); err != nil {
			return err
		}

		saved, err = s.availabilityRepo.Upsert(ctx, window)
		if err != nil {
			s.logger.Error("Upsert: repository error: %v", err)
			return fmt.Errorf("%w: Upsert - repository error: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Upsert: saved window id=%d for doctor=%d, date=%s", saved.ID, saved.DoctorID, req.Date)
	return models.FromDomainWindow(saved), nil
}

// Delete удаляет рабочее окно врача на дату
// Доступно только владельцу профиля врача
func (s *Service) Delete(ctx context.Context, req *models.DeleteWindowRequest) error {
	date := req.Date.Format(domain.DateFormat)
	s.logger.Info("Delete: doctor=%d, date=%s by user=%d", req.DoctorID, date, req.UserID)

	if err := s.checkDoctorAccess(ctx, req.DoctorID, req.UserID); err != nil {
		return err
	}

	err := s.withDateLock(ctx, req.DoctorID, req.Date, func(ctx context.Context) error {
		if err := s.ensureNoAppointments(ctx, req.DoctorID, req.Date); err != nil {
			return err
		}

		if err := s.availabilityRepo.Delete(ctx, req.DoctorID, req.Date); err != nil {
			if errors.Is(err, availabilityRepo.ErrWindowNotFound) {
				s.logger.Warn("Delete: window for doctor=%d, date=%s not found", req.DoctorID, date)
				return ErrWindowNotFound
			}
			s.logger.Error("Delete: repository error: %v", err)
			return fmt.Errorf("%w: Delete - repository error: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Delete: removed window for doctor=%d, date=%s", req.DoctorID, date)
	return nil
}

// GetWindows получает рабочие окна врача за период
// Публичный метод - доступен всем
func (s *Service) GetWindows(ctx context.Context, req *models.GetWindowsRequest) (*models.WindowListResponse, error) {
	now := s.timeProvider.Now()
	from := s.policy.Today(now)
	if req.From != nil {
		from = domain.DateOnly(*req.From)
	}
	to := s.policy.LastBookableDate(now)
	if req.To != nil {
		to = domain.DateOnly(*req.To)
	}

	s.logger.Info("GetWindows: doctor=%d, from=%s, to=%s",
		req.DoctorID, from.Format(domain.DateFormat), to.Format(domain.DateFormat))

	if req.DoctorID <= 0 {
		return nil, fmt.Errorf("%w: doctorId must be positive", ErrInvalidInput)
	}
	if to.Before(from) {
		s.logger.Warn("GetWindows: to before from")
		return nil, fmt.Errorf("%w: 'to' must not be before 'from'", ErrInvalidInput)
	}

	windows, err := s.availabilityRepo.ListByDoctor(ctx, req.DoctorID, from, to)
	if err != nil {
		s.logger.Error("GetWindows: repository error for doctor=%d: %v", req.DoctorID, err)
		return nil, fmt.Errorf("%w: GetWindows - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("GetWindows: fetched %d windows for doctor=%d", len(windows), req.DoctorID)
	return models.FromDomainWindowList(req.DoctorID, from, to, windows), nil
}

// withDateLock выполняет fn под блокировкой (врач, дата) в транзакции
func (s *Service) withDateLock(ctx context.Context, doctorID int64, date time.Time, fn func(ctx context.Context) error) error {
	key := domain.SlotKey(doctorID, date)

	unlock, err := s.locker.Acquire(ctx, key, s.lockWait)
	if err != nil {
		if errors.Is(err, keylock.ErrLockTimeout) {
			s.logger.Warn("withDateLock: lock timeout for key=%s", key)
			return ErrArbitrationUnavailable
		}
		s.logger.Error("withDateLock: failed to acquire lock for key=%s: %v", key, err)
		return fmt.Errorf("%w: failed to acquire lock: %v", ErrInternal, err)
	}
	defer unlock()

	return s.txManager.Do(ctx, fn)
}

// ensureNoAppointments проверяет, что на дату нет активных записей
func (s *Service) ensureNoAppointments(ctx context.Context, doctorID int64, date time.Time) error {
	active, err := s.appointmentRepo.ListActiveByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		s.logger.Error("ensureNoAppointments: repository error: %v", err)
		return fmt.Errorf("%w: failed to list appointments: %v", ErrInternal, err)
	}
	if len(active) > 0 {
		s.logger.Warn("ensureNoAppointments: doctor=%d has %d active appointments on %s",
			doctorID, len(active), date.Format(domain.DateFormat))
		return ErrWindowHasAppointments
	}
	return nil
}

// checkDoctorAccess проверяет, что пользователь владеет активным профилем врача
func (s *Service) checkDoctorAccess(ctx context.Context, doctorID int64, userID int64) error {
	doctor, err := s.doctorClient.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, doctorClient.ErrDoctorNotFound) {
			s.logger.Warn("checkDoctorAccess: doctor id=%d not found", doctorID)
			return ErrDoctorNotFound
		}
		s.logger.Error("checkDoctorAccess: failed to get doctor id=%d: %v", doctorID, err)
		return fmt.Errorf("%w: failed to get doctor: %v", ErrInternal, err)
	}

	if !doctor.IsActive {
		s.logger.Warn("checkDoctorAccess: doctor id=%d is inactive", doctorID)
		return ErrDoctorNotFound
	}

	if doctor.UserID != userID {
		s.logger.Warn("checkDoctorAccess: user=%d does not own doctor=%d", userID, doctorID)
		return ErrAccessDenied
	}

	return nil
}
