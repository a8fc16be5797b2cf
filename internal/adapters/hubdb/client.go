// Package hubdb is the destination table store: HubDB tables with draft and
// live row revisions.
package hubdb

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"listing_sync/internal/adapters/observability"
	"listing_sync/internal/domain"
)

const DefaultBaseURL = "https://api.hubapi.com/cms/v3/hubdb"

type Client struct {
	base  string
	hc    *http.Client
	token string
	rl    *rate.Limiter
}

func New(base, token string, rps int, timeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("HubSpot access token is required")
	}
	if base == "" {
		base = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 8
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:  strings.TrimSuffix(base, "/"),
		hc:    &http.Client{Timeout: timeout},
		token: token,
		rl:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var ErrUnauthorized = errors.New("hubdb: unauthorized")

// APIError is a non-2xx answer from HubDB.
type APIError struct {
	Method   string
	Endpoint string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubdb %s %s: status %d: %s", e.Method, e.Endpoint, e.Status, e.Body)
}

func (e *APIError) StatusCode() int { return e.Status }

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case domain.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// ---- wire shapes ----

// rowID accepts both string and numeric ids.
type rowID string

func (id *rowID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("row id: %w", err)
	}
	*id = rowID(n.String())
	return nil
}

type rowDTO struct {
	ID     rowID          `json:"id"`
	Values map[string]any `json:"values"`
}

func (r rowDTO) toDomain() domain.DestRow {
	return domain.DestRow{ID: string(r.ID), Values: r.Values}
}

type rowsPage struct {
	Results []rowDTO `json:"results"`
	Paging  *struct {
		Next *struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

type rowInput struct {
	Values map[string]any `json:"values"`
}

// ---- TableStore ----

// ListRows reads every live row of the table, following paging cursors.
func (c *Client) ListRows(ctx context.Context, tableID string) ([]domain.DestRow, error) {
	var out []domain.DestRow
	after := ""
	for page := 0; page < 100; page++ {
		path := rowsPath(tableID)
		if after != "" {
			path += "?after=" + url.QueryEscape(after)
		}
		var pg rowsPage
		if err := c.do(ctx, http.MethodGet, "list_rows", path, nil, &pg); err != nil {
			return nil, err
		}
		for _, r := range pg.Results {
			out = append(out, r.toDomain())
		}
		if pg.Paging == nil || pg.Paging.Next == nil || pg.Paging.Next.After == "" || pg.Paging.Next.After == after {
			return out, nil
		}
		after = pg.Paging.Next.After
	}
	return out, nil
}

func (c *Client) GetRow(ctx context.Context, tableID, id string) (domain.DestRow, error) {
	var r rowDTO
	if err := c.do(ctx, http.MethodGet, "get_row", rowPath(tableID, id), nil, &r); err != nil {
		return domain.DestRow{}, err
	}
	return r.toDomain(), nil
}

func (c *Client) CreateDraftRow(ctx context.Context, tableID string, values map[string]any) (domain.DestRow, error) {
	var r rowDTO
	err := c.do(ctx, http.MethodPost, "create_draft_row", rowsPath(tableID)+"/draft", rowInput{Values: values}, &r)
	return r.toDomain(), err
}

func (c *Client) CreateLiveRow(ctx context.Context, tableID string, values map[string]any) (domain.DestRow, error) {
	var r rowDTO
	err := c.do(ctx, http.MethodPost, "create_live_row", rowsPath(tableID), rowInput{Values: values}, &r)
	return r.toDomain(), err
}

// InitDraft makes sure a draft revision exists for the row so it can be patched.
func (c *Client) InitDraft(ctx context.Context, tableID, id string) error {
	return c.do(ctx, http.MethodPut, "init_draft", rowPath(tableID, id)+"/draft", map[string]any{}, nil)
}

func (c *Client) PatchDraft(ctx context.Context, tableID, id string, values map[string]any) (domain.DestRow, error) {
	var r rowDTO
	err := c.do(ctx, http.MethodPatch, "patch_draft", rowPath(tableID, id)+"/draft", rowInput{Values: values}, &r)
	return r.toDomain(), err
}

func (c *Client) DeleteRow(ctx context.Context, tableID, id string) error {
	return c.do(ctx, http.MethodDelete, "delete_row", rowPath(tableID, id), nil, nil)
}

// PublishDraft pushes every pending draft of the table live.
func (c *Client) PublishDraft(ctx context.Context, tableID string) error {
	return c.do(ctx, http.MethodPost, "push_live", "/tables/"+url.PathEscape(tableID)+"/draft/push-live", nil, nil)
}

func rowsPath(tableID string) string { return "/tables/" + url.PathEscape(tableID) + "/rows" }

func rowPath(tableID, id string) string { return rowsPath(tableID) + "/" + url.PathEscape(id) }

// ---- Internals ----

// do sends one request. Reads are retried on 429 and transient 5xx; writes
// are sent exactly once so a mutation is never applied twice.
func (c *Client) do(ctx context.Context, method, op, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", op, err)
		}
		body = b
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = 4
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
		retry, wait, err := c.once(ctx, method, op, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || i == attempts-1 {
			break
		}
		if wait == 0 {
			wait = backoff(i)
		}
		if !sleepCtx(ctx, wait) {
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, op, path string, body []byte, out any) (retry bool, wait time.Duration, err error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return false, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "listing-sync/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("hubdb", op, 0, time.Since(start))
		if ctx.Err() != nil {
			return false, 0, ctx.Err()
		}
		return true, 0, fmt.Errorf("hubdb %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("hubdb", op, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return false, 0, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return false, 0, fmt.Errorf("decode %s response: %w", op, err)
		}
		return false, 0, nil
	}

	// read a small error body for diagnostics
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{Method: method, Endpoint: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}

	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, retryAfter(resp), apiErr
	}
	return false, 0, apiErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). 0 when absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	return base + time.Duration(0.5*float64(b[0])/255.0*float64(base))
}
