package expiry

import (
	"context"
	"sync"
	"time"
)

// LocalScheduler таймеры снятия удержаний внутри процесса
// Таймеры теряются при рестарте, их добирает Sweeper
type LocalScheduler struct {
	mu      sync.Mutex
	timers  map[int64]*time.Timer
	expire  ExpireFunc
	timeout time.Duration
	log     Logger
}

// NewLocalScheduler создает локальный планировщик
// timeout ограничивает время одного вызова expire
func NewLocalScheduler(expire ExpireFunc, timeout time.Duration, log Logger) *LocalScheduler {
	return &LocalScheduler{
		timers:  make(map[int64]*time.Timer),
		expire:  expire,
		timeout: timeout,
		log:     log,
	}
}

// Schedule ставит снятие удержания на момент at, заменяя прежний таймер приёма
func (s *LocalScheduler) Schedule(_ context.Context, appointmentID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[appointmentID]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(time.Until(at), func() {
		s.mu.Lock()
		if s.timers[appointmentID] == timer {
			delete(s.timers, appointmentID)
		}
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.expire(ctx, appointmentID); err != nil {
			s.log.Error("expiry: failed to expire appointment %d: %v", appointmentID, err)
		}
	})
	s.timers[appointmentID] = timer

	return nil
}

// Cancel останавливает таймер приёма
func (s *LocalScheduler) Cancel(_ context.Context, appointmentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[appointmentID]; ok {
		t.Stop()
		delete(s.timers, appointmentID)
	}
	return nil
}

// Pending количество взведённых таймеров
func (s *LocalScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close останавливает все таймеры
func (s *LocalScheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	return nil
}
