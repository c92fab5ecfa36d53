package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle results used as the "result" label.
const (
	ResultUnchanged = "unchanged"
	ResultChanged   = "changed"
	ResultMatched   = "matched"
	ResultError     = "error"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	checks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webwatch",
			Subsystem: "watcher",
			Name:      "checks_total",
			Help:      "Number of finished check cycles by result.",
		}, []string{"watcher", "result"},
	)
	fetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webwatch",
			Subsystem: "watcher",
			Name:      "fetch_errors_total",
			Help:      "Number of failed fetches by failure kind.",
		}, []string{"watcher", "kind"},
	)
	keywordMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webwatch",
			Subsystem: "watcher",
			Name:      "keyword_matches_total",
			Help:      "Number of keyword occurrences found in changed content.",
		}, []string{"watcher"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webwatch",
			Subsystem: "notifier",
			Name:      "notifications_total",
			Help:      "Number of alerts sent, by outcome.",
		}, []string{"outcome"},
	)
	cycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webwatch",
			Subsystem: "watcher",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one check cycle including the fetch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"watcher"},
	)
	lastCheck = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "webwatch",
			Subsystem: "watcher",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful check cycle.",
		}, []string{"watcher"},
	)
	activeWatchers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "webwatch",
			Subsystem: "engine",
			Name:      "active_watchers",
			Help:      "Watcher loops currently scheduled.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{checks, fetchErrors, keywordMatches, notifications, cycleDuration, lastCheck, activeWatchers, selfCollector{}}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// HandlerFor serves a specific gatherer, e.g. a private registry in tests.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Below are lightweight helpers used by the engine to record metrics.
// They no-op if Register hasn't been called.

func ObserveCycle(watcher, result string, d time.Duration) {
	if regOK.Load() {
		checks.WithLabelValues(watcher, result).Inc()
		cycleDuration.WithLabelValues(watcher).Observe(d.Seconds())
	}
}

func IncFetchError(watcher, kind string) {
	if regOK.Load() {
		fetchErrors.WithLabelValues(watcher, kind).Inc()
	}
}

func AddMatches(watcher string, n int) {
	if regOK.Load() && n > 0 {
		keywordMatches.WithLabelValues(watcher).Add(float64(n))
	}
}

func IncNotification(ok bool) {
	if regOK.Load() {
		outcome := "sent"
		if !ok {
			outcome = "failed"
		}
		notifications.WithLabelValues(outcome).Inc()
	}
}

func SetLastSuccess(watcher string, t time.Time) {
	if regOK.Load() {
		lastCheck.WithLabelValues(watcher).Set(float64(t.Unix()))
	}
}

func SetActiveWatchers(n int) {
	if regOK.Load() {
		activeWatchers.Set(float64(n))
	}
}
