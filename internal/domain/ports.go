package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// StatusCoder is implemented by errors that carry an HTTP status from a remote store.
type StatusCoder interface {
	StatusCode() int
}

// HTTPStatus extracts the HTTP status carried by err, if any.
func HTTPStatus(err error) (int, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

type SourceClient interface {
	FetchListings(ctx context.Context) ([]SourceRecord, error)
}

// TableStore is the destination row store with draft and live revisions.
type TableStore interface {
	ListRows(ctx context.Context, tableID string) ([]DestRow, error)
	GetRow(ctx context.Context, tableID, rowID string) (DestRow, error)
	CreateDraftRow(ctx context.Context, tableID string, values map[string]any) (DestRow, error)
	CreateLiveRow(ctx context.Context, tableID string, values map[string]any) (DestRow, error)
	InitDraft(ctx context.Context, tableID, rowID string) error
	PatchDraft(ctx context.Context, tableID, rowID string, values map[string]any) (DestRow, error)
	DeleteRow(ctx context.Context, tableID, rowID string) error
	PublishDraft(ctx context.Context, tableID string) error
}

type RunRepository interface {
	RecordRun(ctx context.Context, r RunReport) error
	GetRun(ctx context.Context, id string) (RunReport, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
