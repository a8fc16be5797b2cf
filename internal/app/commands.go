package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"listing_sync/internal/domain"
)

// SyncService runs the reconciler and records each run in the ledger.
type SyncService struct {
	rec   *Reconciler
	runs  domain.RunRepository
	cache domain.Cache
	hooks []func(domain.RunReport)
}

// NewSyncService wires a reconciler to the run ledger and report cache. Hooks
// are called with every finished report (metrics, pushgateway).
func NewSyncService(rec *Reconciler, runs domain.RunRepository, cache domain.Cache, hooks ...func(domain.RunReport)) *SyncService {
	if runs == nil {
		runs = NopRuns{}
	}
	if cache == nil {
		cache = NopCache{}
	}
	return &SyncService{rec: rec, runs: runs, cache: cache, hooks: hooks}
}

// SyncOnce performs one reconciliation run. Ledger errors are logged; they
// never change the outcome of the run.
func (s *SyncService) SyncOnce(ctx context.Context) domain.RunReport {
	report := s.rec.Run(ctx)

	// record and invalidate with a context that survives a cancelled run
	bg := context.WithoutCancel(ctx)
	if err := s.runs.RecordRun(bg, report); err != nil {
		log.Error().Err(err).Str("run_id", report.ID).Msg("recording run failed")
	}
	s.invalidateRuns(bg, report.ID)

	for _, h := range s.hooks {
		h(report)
	}
	return report
}

// invalidate cached run views after a new run lands
func (s *SyncService) invalidateRuns(ctx context.Context, id string) {
	_ = s.cache.Del(ctx, latestRunKey)
	_ = s.cache.Del(ctx, runKey(id))
	for _, lim := range []int{defaultRunsLimit, 50, 100} {
		_ = s.cache.Del(ctx, runsKey(lim))
	}
}

const (
	latestRunKey     = "runs:latest"
	defaultRunsLimit = 20
)

func runKey(id string) string { return "runs:id:" + id }
func runsKey(limit int) string { return fmt.Sprintf("runs:list:%d", limit) }
