package expiry

import (
	"context"
	"time"
)

const defaultSweepBatch = 100

// Sweeper периодически снимает просроченные удержания
type Sweeper struct {
	lister   HoldLister
	expire   ExpireFunc
	interval time.Duration
	batch    int
	now      func() time.Time
	log      Logger
}

// NewSweeper создает sweeper с указанным интервалом обхода
func NewSweeper(lister HoldLister, expire ExpireFunc, interval time.Duration, log Logger) *Sweeper {
	return &Sweeper{
		lister:   lister,
		expire:   expire,
		interval: interval,
		batch:    defaultSweepBatch,
		now:      time.Now,
		log:      log,
	}
}

// Run обходит удержания до отмены ctx
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("expiry: sweeper started, interval=%s", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry: sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error("expiry: sweep failed: %v", err)
			}
		}
	}
}

// SweepOnce снимает одну пачку просроченных удержаний и возвращает их число
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.lister.ListExpiredHolds(ctx, s.now(), s.batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if err := s.expire(ctx, id); err != nil {
			s.log.Warn("expiry: sweeper failed to expire appointment %d: %v", id, err)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.log.Info("expiry: sweeper released %d overdue holds", expired)
	}

	return expired, nil
}
