// Package appfolio reads the unit directory report that feeds the sync.
package appfolio

import (
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

const reportPath = "/api/v2/reports/unit_directory.json"

// BaseURL is the AppFolio API root for a customer subdomain.
func BaseURL(subdomain string) string {
	return "https://" + subdomain + ".appfolio.com"
}

type Client struct {
	url          string
	hc           *http.Client
	clientID     string
	clientSecret string
	rl           *rate.Limiter
}

func New(base, clientID, clientSecret string, rps int, timeout time.Duration) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("AppFolio client id and secret are required")
	}
	if rps <= 0 {
		rps = 2
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:          strings.TrimSuffix(base, "/") + reportPath,
		hc:           &http.Client{Timeout: timeout},
		clientID:     clientID,
		clientSecret: clientSecret,
		rl:           rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrUnauthorized = errors.New("appfolio: unauthorized")
	ErrForbidden    = errors.New("appfolio: forbidden")
)

const maxPages = 200

// FetchListings reads every page of the unit directory report.
func (c *Client) FetchListings(ctx context.Context) ([]domain.SourceRecord, error) {
	var out []domain.SourceRecord
	next := c.url
	seen := map[string]bool{}
	for page := 0; next != "" && page < maxPages; page++ {
		if seen[next] {
			break
		}
		seen[next] = true

		var body any
		if err := c.get(ctx, next, &body); err != nil {
			return nil, err
		}
		recs, nextURL := parsePage(body)
		out = append(out, recs...)
		if nextURL == "" {
			break
		}
		resolved, err := resolveNext(next, nextURL)
		if err != nil {
			return nil, err
		}
		next = resolved
	}
	return out, nil
}

// resolveNext turns a next_page_url, which may be relative, into an absolute
// URL against the page it came from.
func resolveNext(current, next string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("parse next_page_url %q: %w", next, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// parsePage accepts either a bare array or an object carrying the rows under
// "results" or "rows", with an optional "next_page_url".
func parsePage(body any) ([]domain.SourceRecord, string) {
	var items []any
	next := ""
	switch t := body.(type) {
	case []any:
		items = t
	case map[string]any:
		if v, ok := t["results"].([]any); ok {
			items = v
		} else if v, ok := t["rows"].([]any); ok {
			items = v
		}
		if s, ok := t["next_page_url"].(string); ok {
			next = strings.TrimSpace(s)
		}
	}
	recs := make([]domain.SourceRecord, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			recs = append(recs, domain.SourceRecord(m))
		}
	}
	return recs, next
}

// get performs an authenticated GET with rate limiting, retries on 429 and
// transient 5xx, and JSON decode into out.
func (c *Client) get(ctx context.Context, target string, out any) error {
	var lastErr error
	for i := 0; i < 4; i++ {
		if err := c.rl.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.clientID, c.clientSecret)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "listing-sync/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("appfolio", "unit_directory", 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("appfolio", "unit_directory", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode unit directory: %w", err)
			}
			return nil

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("appfolio: remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("appfolio: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func retryAfter(resp *http.Response) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 250 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	return base + time.Duration(0.5*float64(b[0])/255.0*float64(base))
}
