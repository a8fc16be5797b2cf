package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"

	"listing_sync/internal/domain"
)

const namespace = "listing_sync"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Status API requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "Status API request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	SyncOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "sync_outcomes_total", Help: "Listing sync outcomes per table."},
		[]string{"table", "outcome"},
	)
	Publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "publish_total", Help: "Draft push-live calls per table."},
		[]string{"table", "result"},
	)
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "run_duration_seconds",
		Help:    "Full sync run duration seconds.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
	LastRunFailed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "last_run_failed_listings", Help: "Failed listings in the most recent run.",
	})
	LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "last_run_timestamp_seconds", Help: "Unix time the most recent run finished.",
	})
)

// Serve exposes /metrics on addr in the background. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		SyncOutcomes, Publishes, RunDuration, LastRunFailed, LastRunTimestamp)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

// ObserveRun records the outcome counters of one finished run.
func ObserveRun(r domain.RunReport) {
	for _, o := range r.Outcomes {
		SyncOutcomes.WithLabelValues(o.Label, string(o.Outcome)).Inc()
	}
	for _, t := range r.Tables {
		switch {
		case t.Published:
			Publishes.WithLabelValues(t.Label, "ok").Inc()
		case t.PublishErr != "":
			Publishes.WithLabelValues(t.Label, "error").Inc()
		}
	}
	if !r.FinishedAt.IsZero() {
		RunDuration.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
		LastRunTimestamp.Set(float64(r.FinishedAt.Unix()))
	}
	LastRunFailed.Set(float64(len(r.Failed)))
}

// Push sends the registry to a Prometheus Pushgateway. One-shot runs exit
// before a scrape could happen, so this is how their metrics get out.
func Push(url, job string, reg *prometheus.Registry) error {
	if url == "" {
		return nil
	}
	return push.New(url, job).Gatherer(reg).Push()
}
