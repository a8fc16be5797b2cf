package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"listing_sync/internal/domain"
)

// Scheduler runs syncs on an interval and on demand, never two at once.
type Scheduler struct {
	svc      *SyncService
	interval time.Duration
	sem      *semaphore.Weighted
}

func NewScheduler(svc *SyncService, interval time.Duration) *Scheduler {
	return &Scheduler{svc: svc, interval: interval, sem: semaphore.NewWeighted(1)}
}

// TryRun runs a sync synchronously unless one is already in progress.
func (s *Scheduler) TryRun(ctx context.Context) (domain.RunReport, bool) {
	if !s.sem.TryAcquire(1) {
		return domain.RunReport{}, false
	}
	defer s.sem.Release(1)
	return s.svc.SyncOnce(ctx), true
}

// Trigger starts a sync in the background. It returns false when a run is
// already in progress; the request is dropped, not queued.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.sem.TryAcquire(1) {
		return false
	}
	go func() {
		defer s.sem.Release(1)
		s.svc.SyncOnce(ctx)
	}()
	return true
}

// Wait blocks until no run is in progress or ctx is done. Once it returns nil
// no further run can start.
func (s *Scheduler) Wait(ctx context.Context) error {
	return s.sem.Acquire(ctx, 1)
}

// Loop runs a sync every interval until ctx is done. A zero interval disables it.
func (s *Scheduler) Loop(ctx context.Context) error {
	if s.interval <= 0 {
		log.Info().Msg("scheduled sync disabled")
		<-ctx.Done()
		return nil
	}
	log.Info().Dur("interval", s.interval).Msg("scheduled sync enabled")

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, ok := s.TryRun(ctx); !ok {
				log.Warn().Msg("previous sync still running; skipping tick")
			}
		}
	}
}
