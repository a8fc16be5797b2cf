package app

import (
	"context"

	"listing_sync/internal/domain"
)

// NopRuns is the ledger used when no database is configured.
type NopRuns struct{}

func (NopRuns) RecordRun(context.Context, domain.RunReport) error { return nil }
func (NopRuns) GetRun(context.Context, string) (domain.RunReport, error) {
	return domain.RunReport{}, domain.ErrNotFound
}
func (NopRuns) ListRuns(context.Context, int) ([]domain.RunSummary, error) { return nil, nil }

// NopCache never hits.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NopCache) Set(context.Context, string, any, int) error { return nil }
func (NopCache) Del(context.Context, string) error { return nil }
