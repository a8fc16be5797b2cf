package app

import (
	"context"
	"time"

	"listing_sync/internal/domain"
)

// QueryService serves recorded runs, cached in front of the ledger.
type QueryService struct {
	repo     domain.RunRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.RunRepository, c domain.Cache, ttl time.Duration) *QueryService {
	if c == nil {
		c = NopCache{}
	}
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) GetRun(ctx context.Context, id string) (domain.RunReport, error) {
	key := runKey(id)
	var rr domain.RunReport
	if ok, _ := s.cache.Get(ctx, key, &rr); ok {
		return rr, nil
	}
	rr, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return domain.RunReport{}, err
	}
	_ = s.cache.Set(ctx, key, rr, int(s.cacheTTL.Seconds()))
	return rr, nil
}

func (s *QueryService) LatestRun(ctx context.Context) (domain.RunReport, error) {
	var rr domain.RunReport
	if ok, _ := s.cache.Get(ctx, latestRunKey, &rr); ok {
		return rr, nil
	}
	runs, err := s.repo.ListRuns(ctx, 1)
	if err != nil {
		return domain.RunReport{}, err
	}
	if len(runs) == 0 {
		return domain.RunReport{}, domain.ErrNotFound
	}
	rr, err = s.repo.GetRun(ctx, runs[0].ID)
	if err != nil {
		return domain.RunReport{}, err
	}
	_ = s.cache.Set(ctx, latestRunKey, rr, int(s.cacheTTL.Seconds()))
	return rr, nil
}

func (s *QueryService) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	key := runsKey(limit)
	var out []domain.RunSummary
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	out, err := s.repo.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	// copy to avoid aliasing the repo's backing array
	cp := make([]domain.RunSummary, len(out))
	copy(cp, out)
	_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	return cp, nil
}
