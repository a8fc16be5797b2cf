package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listing_sync/internal/app"
	"listing_sync/internal/domain"
)

type memRuns struct{ runs []domain.RunReport }

func (m *memRuns) RecordRun(_ context.Context, rr domain.RunReport) error {
	m.runs = append(m.runs, rr)
	return nil
}

func (m *memRuns) GetRun(_ context.Context, id string) (domain.RunReport, error) {
	for _, rr := range m.runs {
		if rr.ID == id {
			return rr, nil
		}
	}
	return domain.RunReport{}, domain.ErrNotFound
}

func (m *memRuns) ListRuns(_ context.Context, limit int) ([]domain.RunSummary, error) {
	var out []domain.RunSummary
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		rr := m.runs[i]
		out = append(out, domain.RunSummary{ID: rr.ID, StartedAt: rr.StartedAt, FailedCount: len(rr.Failed)})
	}
	return out, nil
}

type fakeTrigger struct{ busy bool }

func (f *fakeTrigger) Trigger(context.Context) bool { return !f.busy }

func newTestServer(repo *memRuns, trig Trigger) http.Handler {
	s := New()
	s.MountHandlers(&Handlers{Q: app.NewQueryService(repo, nil, time.Minute), Runner: trig, Ctx: context.Background()})
	return s.Mux()
}

func do(t *testing.T, h http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRunsEndpoints(t *testing.T) {
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := &memRuns{runs: []domain.RunReport{
		{ID: "run-1", StartedAt: t0, Failed: []string{}},
		{ID: "run-2", StartedAt: t0.Add(time.Hour), Failed: []string{"12 Oak Ave"}},
	}}
	h := newTestServer(repo, &fakeTrigger{})

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []domain.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, 1, runs[0].FailedCount)

	rec = do(t, h, http.MethodGet, "/v1/runs/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var latest domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Equal(t, "run-2", latest.ID)

	rec = do(t, h, http.MethodGet, "/v1/runs/run-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = do(t, h, http.MethodGet, "/v1/runs/run-1", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/runs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodGet, "/v1/runs?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestRun_EmptyLedger(t *testing.T) {
	h := newTestServer(&memRuns{}, &fakeTrigger{})

	rec := do(t, h, http.MethodGet, "/v1/runs/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTriggerRun(t *testing.T) {
	trig := &fakeTrigger{}
	h := newTestServer(&memRuns{}, trig)

	rec := do(t, h, http.MethodPost, "/v1/runs", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	trig.busy = true
	rec = do(t, h, http.MethodPost, "/v1/runs", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	h = newTestServer(&memRuns{}, nil)
	rec = do(t, h, http.MethodPost, "/v1/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
