package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"listing_sync/internal/domain"
)

// ---- fakes ----

type statusErr int

func (e statusErr) Error() string   { return "status " + strconv.Itoa(int(e)) }
func (e statusErr) StatusCode() int { return int(e) }

type call struct {
	Op     string
	Table  string
	RowID  string
	Values map[string]any
}

// fakeStore is an in-memory TableStore that records every call. errs maps an
// operation name ("patch", "delete", ...) to the error it returns.
type fakeStore struct {
	mu      sync.Mutex
	rows    map[string][]domain.DestRow
	errs    map[string]error
	listErr error
	calls   []call
	nextID  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string][]domain.DestRow{}, errs: map[string]error{}, nextID: 1000}
}

func (f *fakeStore) seed(table, id, address string, extra map[string]any) {
	vals := map[string]any{"address": address}
	for k, v := range extra {
		vals[k] = v
	}
	f.rows[table] = append(f.rows[table], domain.DestRow{ID: id, Values: vals})
}

func (f *fakeStore) record(op, table, id string, values map[string]any) {
	var cp map[string]any
	if values != nil {
		cp = map[string]any{}
		for k, v := range values {
			cp[k] = v
		}
	}
	f.calls = append(f.calls, call{Op: op, Table: table, RowID: id, Values: cp})
}

func (f *fakeStore) ops(table string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if table == "" || c.Table == table {
			out = append(out, c.Op)
		}
	}
	return out
}

func (f *fakeStore) mutations(table string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Table != table {
			continue
		}
		switch c.Op {
		case "list", "get":
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f *fakeStore) ListRows(_ context.Context, table string) ([]domain.DestRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list", table, "", nil)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.DestRow(nil), f.rows[table]...), nil
}

func (f *fakeStore) GetRow(_ context.Context, table, id string) (domain.DestRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get", table, id, nil)
	if err := f.errs["get"]; err != nil {
		return domain.DestRow{}, err
	}
	for _, r := range f.rows[table] {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.DestRow{}, domain.ErrNotFound
}

func (f *fakeStore) create(op, table string, values map[string]any) (domain.DestRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(op, table, "", values)
	if err := f.errs[op]; err != nil {
		return domain.DestRow{}, err
	}
	f.nextID++
	row := domain.DestRow{ID: fmt.Sprint(f.nextID), Values: values}
	f.rows[table] = append(f.rows[table], row)
	return row, nil
}

func (f *fakeStore) CreateDraftRow(_ context.Context, table string, values map[string]any) (domain.DestRow, error) {
	return f.create("create_draft", table, values)
}

func (f *fakeStore) CreateLiveRow(_ context.Context, table string, values map[string]any) (domain.DestRow, error) {
	return f.create("create_live", table, values)
}

func (f *fakeStore) InitDraft(_ context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("init", table, id, nil)
	return f.errs["init"]
}

func (f *fakeStore) PatchDraft(_ context.Context, table, id string, values map[string]any) (domain.DestRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("patch", table, id, values)
	if err := f.errs["patch"]; err != nil {
		return domain.DestRow{}, err
	}
	return domain.DestRow{ID: id, Values: values}, nil
}

func (f *fakeStore) DeleteRow(_ context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete", table, id, nil)
	if err := f.errs["delete"]; err != nil {
		return err
	}
	kept := f.rows[table][:0]
	for _, r := range f.rows[table] {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.rows[table] = kept
	return nil
}

func (f *fakeStore) PublishDraft(_ context.Context, table string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("publish", table, "", nil)
	return f.errs["publish"]
}

type fakeSource struct {
	recs []domain.SourceRecord
	err  error
}

func (s *fakeSource) FetchListings(context.Context) ([]domain.SourceRecord, error) {
	return s.recs, s.err
}

// fakeCache stores JSON like the redis adapter does, so decoding is exercised.
type fakeCache struct {
	store map[string][]byte
	sets  int
	dels  []string
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	c.sets++
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

type fakeRuns struct {
	runs    []domain.RunReport
	gets    int
	lists   int
	saveErr error
}

func (r *fakeRuns) RecordRun(_ context.Context, rr domain.RunReport) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.runs = append(r.runs, rr)
	return nil
}

func (r *fakeRuns) GetRun(_ context.Context, id string) (domain.RunReport, error) {
	r.gets++
	for _, rr := range r.runs {
		if rr.ID == id {
			return rr, nil
		}
	}
	return domain.RunReport{}, domain.ErrNotFound
}

func (r *fakeRuns) ListRuns(_ context.Context, limit int) ([]domain.RunSummary, error) {
	r.lists++
	var out []domain.RunSummary
	for i := len(r.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, domain.RunSummary{ID: r.runs[i].ID, StartedAt: r.runs[i].StartedAt})
	}
	return out, nil
}

func pfloat(f float64) *float64 { return &f }
