// Package memory хранит рабочие окна и приёмы в памяти процесса.
// Используется при storage.driver = "memory" и в тестах.
// Ошибки совпадают с ошибками postgres репозиториев.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	availabilityRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/availability"
)

// Store общее состояние репозиториев
type Store struct {
	mu sync.RWMutex

	nextAppointmentID int64
	nextWindowID      int64
	appointments      map[int64]*domain.Appointment
	windows           map[windowKey]*domain.AvailabilityWindow

	now func() time.Time
}

type windowKey struct {
	doctorID int64
	date     string
}

func keyOf(doctorID int64, date time.Time) windowKey {
	return windowKey{doctorID: doctorID, date: date.Format(domain.DateFormat)}
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		appointments: make(map[int64]*domain.Appointment),
		windows:      make(map[windowKey]*domain.AvailabilityWindow),
		now:          time.Now,
	}
}

// Appointments возвращает репозиторий приёмов
func (s *Store) Appointments() *AppointmentRepository {
	return &AppointmentRepository{store: s}
}

// Availability возвращает репозиторий рабочих окон
func (s *Store) Availability() *AvailabilityRepository {
	return &AvailabilityRepository{store: s}
}

// AppointmentRepository приёмы в памяти
type AppointmentRepository struct {
	store *Store
}

// Create создает приём, соблюдая уникальность (врач, дата, начало) среди неотменённых
func (r *AppointmentRepository) Create(_ context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	date := domain.DateOnly(a.AppointmentDate)
	for _, existing := range s.appointments {
		if existing.IsActive() &&
			existing.DoctorID == a.DoctorID &&
			existing.AppointmentDate.Equal(date) &&
			existing.StartTime == a.StartTime {
			return nil, appointmentRepo.ErrSlotTaken
		}
	}

	s.nextAppointmentID++
	now := s.now()

	created := cloneAppointment(a)
	created.ID = s.nextAppointmentID
	created.AppointmentDate = date
	if created.SharedDocumentIDs == nil {
		created.SharedDocumentIDs = []string{}
	}
	created.CreatedAt = now
	created.UpdatedAt = now
	s.appointments[created.ID] = created

	a.ID = created.ID
	a.AppointmentDate = date
	a.SharedDocumentIDs = created.SharedDocumentIDs
	a.CreatedAt = now
	a.UpdatedAt = now

	return a, nil
}

// GetByID получает приём по ID
func (r *AppointmentRepository) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	return cloneAppointment(a), nil
}

// GetByIDForUpdate получает приём по ID (изоляцию обеспечивает TxManager)
func (r *AppointmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Appointment, error) {
	return r.GetByID(ctx, id)
}

// ListActiveByDoctorAndDate получает неотменённые приёмы врача на дату
func (r *AppointmentRepository) ListActiveByDoctorAndDate(_ context.Context, doctorID int64, date time.Time) ([]*domain.Appointment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := domain.DateOnly(date)
	result := make([]*domain.Appointment, 0)
	for _, a := range s.appointments {
		if a.IsActive() && a.DoctorID == doctorID && a.AppointmentDate.Equal(day) {
			result = append(result, cloneAppointment(a))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.IsBefore(result[j].StartTime)
	})
	return result, nil
}

// ListByDoctor получает приёмы врача с фильтрацией
func (r *AppointmentRepository) ListByDoctor(_ context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Appointment, 0)
	for _, a := range s.appointments {
		if a.DoctorID != filter.DoctorID {
			continue
		}
		if filter.StartDate != nil && a.AppointmentDate.Before(domain.DateOnly(*filter.StartDate)) {
			continue
		}
		if filter.EndDate != nil && a.AppointmentDate.After(domain.DateOnly(*filter.EndDate)) {
			continue
		}
		if filter.Status != nil {
			if a.Status != *filter.Status {
				continue
			}
		} else if !filter.IncludeCancelled && !a.IsActive() {
			continue
		}
		result = append(result, cloneAppointment(a))
	}

	sortNewestFirst(result)
	return result, nil
}

// ListByPatient получает приёмы пациента
func (r *AppointmentRepository) ListByPatient(_ context.Context, patientID int64, status *domain.AppointmentStatus) ([]*domain.Appointment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Appointment, 0)
	for _, a := range s.appointments {
		if a.PatientID != patientID {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		result = append(result, cloneAppointment(a))
	}

	sortNewestFirst(result)
	return result, nil
}

// ListExpiredHolds возвращает ID удержаний с наступившим дедлайном
func (r *AppointmentRepository) ListExpiredHolds(_ context.Context, now time.Time, limit int) ([]int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0)
	for id, a := range s.appointments {
		if a.IsHoldExpired(now) {
			ids = append(ids, id)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Confirm переводит AwaitingPayment в Confirmed
func (r *AppointmentRepository) Confirm(_ context.Context, id int64, paymentMethod, paymentReference string, confirmedAt time.Time) error {
	return r.transition(id, func(a *domain.Appointment) bool {
		if a.Status != domain.StatusAwaitingPayment {
			return false
		}
		a.Status = domain.StatusConfirmed
		a.PaymentStatus = domain.PaymentPaid
		a.PaymentMethod = &paymentMethod
		a.PaymentReference = &paymentReference
		a.ConfirmedAt = &confirmedAt
		a.UpdatedAt = confirmedAt
		return true
	})
}

// MarkPaymentFailed фиксирует отказ шлюза
func (r *AppointmentRepository) MarkPaymentFailed(_ context.Context, id int64, paymentMethod string, at time.Time) error {
	return r.transition(id, func(a *domain.Appointment) bool {
		if a.Status != domain.StatusAwaitingPayment {
			return false
		}
		a.PaymentStatus = domain.PaymentFailed
		a.PaymentMethod = &paymentMethod
		a.UpdatedAt = at
		return true
	})
}

// Cancel отменяет приём в статусе Pending, AwaitingPayment или Confirmed
func (r *AppointmentRepository) Cancel(_ context.Context, id int64, reason domain.CancellationReason, paymentStatus domain.PaymentStatus, cancelledAt time.Time) error {
	return r.transition(id, func(a *domain.Appointment) bool {
		if !a.CanBeCancelled() {
			return false
		}
		a.Status = domain.StatusCancelled
		a.CancellationReason = &reason
		a.PaymentStatus = paymentStatus
		a.CancelledAt = &cancelledAt
		a.UpdatedAt = cancelledAt
		return true
	})
}

// Expire отменяет удержание с наступившим дедлайном
func (r *AppointmentRepository) Expire(_ context.Context, id int64, at time.Time) error {
	return r.transition(id, func(a *domain.Appointment) bool {
		if !a.IsHoldExpired(at) {
			return false
		}
		reason := domain.ReasonPaymentTimeout
		a.Status = domain.StatusCancelled
		a.CancellationReason = &reason
		a.CancelledAt = &at
		a.UpdatedAt = at
		return true
	})
}

// transition атомарно применяет apply, если переход допустим
func (r *AppointmentRepository) transition(id int64, apply func(a *domain.Appointment) bool) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return appointmentRepo.ErrAppointmentNotFound
	}

	updated := cloneAppointment(a)
	if !apply(updated) {
		return appointmentRepo.ErrStatusConflict
	}
	s.appointments[id] = updated
	return nil
}

// AvailabilityRepository рабочие окна в памяти
type AvailabilityRepository struct {
	store *Store
}

// Upsert создает или заменяет окно врача на дату
func (r *AvailabilityRepository) Upsert(_ context.Context, w *domain.AvailabilityWindow) (*domain.AvailabilityWindow, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := keyOf(w.DoctorID, domain.DateOnly(w.Date))

	stored := cloneWindow(w)
	stored.Date = domain.DateOnly(w.Date)
	if stored.Breaks == nil {
		stored.Breaks = []domain.BreakInterval{}
	}

	if existing, ok := s.windows[key]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		s.nextWindowID++
		stored.ID = s.nextWindowID
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.windows[key] = stored

	return cloneWindow(stored), nil
}

// GetByDoctorAndDate получает окно врача на дату
func (r *AvailabilityRepository) GetByDoctorAndDate(_ context.Context, doctorID int64, date time.Time) (*domain.AvailabilityWindow, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[keyOf(doctorID, domain.DateOnly(date))]
	if !ok {
		return nil, availabilityRepo.ErrWindowNotFound
	}
	return cloneWindow(w), nil
}

// ListByDoctor получает окна врача в диапазоне дат по возрастанию
func (r *AvailabilityRepository) ListByDoctor(_ context.Context, doctorID int64, from, to time.Time) ([]*domain.AvailabilityWindow, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromDay, toDay := domain.DateOnly(from), domain.DateOnly(to)
	result := make([]*domain.AvailabilityWindow, 0)
	for _, w := range s.windows {
		if w.DoctorID != doctorID || w.Date.Before(fromDay) || w.Date.After(toDay) {
			continue
		}
		result = append(result, cloneWindow(w))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// Delete удаляет окно врача на дату
func (r *AvailabilityRepository) Delete(_ context.Context, doctorID int64, date time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyOf(doctorID, domain.DateOnly(date))
	if _, ok := s.windows[key]; !ok {
		return availabilityRepo.ErrWindowNotFound
	}
	delete(s.windows, key)
	return nil
}

func sortNewestFirst(appointments []*domain.Appointment) {
	sort.Slice(appointments, func(i, j int) bool {
		a, b := appointments[i], appointments[j]
		if !a.AppointmentDate.Equal(b.AppointmentDate) {
			return a.AppointmentDate.After(b.AppointmentDate)
		}
		return a.StartTime.IsAfter(b.StartTime)
	})
}

func cloneAppointment(a *domain.Appointment) *domain.Appointment {
	c := *a
	if a.SharedDocumentIDs != nil {
		c.SharedDocumentIDs = append([]string(nil), a.SharedDocumentIDs...)
	}
	return &c
}

func cloneWindow(w *domain.AvailabilityWindow) *domain.AvailabilityWindow {
	c := *w
	if w.Breaks != nil {
		c.Breaks = append([]domain.BreakInterval(nil), w.Breaks...)
	}
	return &c
}
