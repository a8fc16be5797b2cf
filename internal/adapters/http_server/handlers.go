package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"listing_sync/internal/app"
	"listing_sync/internal/domain"
)

// Trigger starts a sync in the background and reports whether it started.
type Trigger interface {
	Trigger(ctx context.Context) bool
}

type Handlers struct {
	Q      *app.QueryService
	Runner Trigger
	// Ctx bounds runs started over HTTP; the request context ends with the response.
	Ctx context.Context
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const maxRunsLimit = 100

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1/runs", func(r chi.Router) {
		r.Get("/", h.listRuns)
		r.Post("/", h.triggerRun)
		r.Get("/latest", h.latestRun)
		r.Get("/{id}", h.getRun)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeLookupErr(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
		return
	}
	log.Error().Err(err).Msg("run ledger lookup failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "run ledger unavailable")
}

func (h *Handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > maxRunsLimit {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
			return
		}
		limit = l
	}
	runs, err := h.Q.ListRuns(r.Context(), limit)
	if err != nil {
		writeLookupErr(w, err, "runs")
		return
	}
	if runs == nil {
		runs = []domain.RunSummary{}
	}
	writeJSON(w, r, runs)
}

func (h *Handlers) latestRun(w http.ResponseWriter, r *http.Request) {
	rr, err := h.Q.LatestRun(r.Context())
	if err != nil {
		writeLookupErr(w, err, "run")
		return
	}
	writeJSON(w, r, rr)
}

func (h *Handlers) getRun(w http.ResponseWriter, r *http.Request) {
	rr, err := h.Q.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLookupErr(w, err, "run")
		return
	}
	writeJSON(w, r, rr)
}

func (h *Handlers) triggerRun(w http.ResponseWriter, r *http.Request) {
	if h.Runner == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "sync runner not configured")
		return
	}
	ctx := h.Ctx
	if ctx == nil {
		ctx = context.WithoutCancel(r.Context())
	}
	if !h.Runner.Trigger(ctx) {
		writeProblem(w, http.StatusConflict, "Conflict", "a sync run is already in progress")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"accepted"}`))
}
