// Package metrics provides Prometheus instrumentation for domain checks.
//
// Every Record/Set method is safe to call on a nil *Metrics.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
)

const (
	// MetricsNamespace is the namespace for all domain-checker metrics.
	MetricsNamespace = "domain_checker"
)

// Metrics holds all Prometheus metrics for a run.
type Metrics struct {
	ChecksTotal          *prometheus.CounterVec
	CheckDurationSeconds prometheus.Histogram
	LookupAttemptsTotal   *prometheus.CounterVec
	FallbacksTotal       prometheus.Counter
	BreakerState         *prometheus.GaugeVec

	WorkerOutcomesTotal *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge

	StoreSavesTotal *prometheus.CounterVec
	StoreQuarantine prometheus.Counter
}

// New creates and registers all metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}
	m.initCheckMetrics(factory)
	m.initWorkerMetrics(factory)
	m.initStoreMetrics(factory)
	return m
}

func (m *Metrics) initCheckMetrics(factory promauto.Factory) {
	m.ChecksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "checks_total",
			Help:      "Total number of availability checks by resulting status",
		},
		[]string{"status"},
	)

	m.CheckDurationSeconds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of a full availability check including retries and fallbacks",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s to ~2min
		},
	)

	m.LookupAttemptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "lookup_attempts_total",
			Help:      "Total number of registrar lookup attempts",
		},
		[]string{"strategy", "outcome"},
	)

	m.FallbacksTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "fallbacks_total",
			Help:      "Total number of moves to a fallback strategy",
		},
	)

	m.BreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per strategy (0=closed, 1=open, 2=half-open)",
		},
		[]string{"strategy"},
	)
}

func (m *Metrics) initWorkerMetrics(factory promauto.Factory) {
	m.WorkerOutcomesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "worker_outcomes_total",
			Help:      "Total number of per-domain worker outcomes",
		},
		[]string{"outcome"},
	)

	m.ActiveSessions = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "active_sessions",
			Help:      "Number of open remote sessions",
		},
	)
}

func (m *Metrics) initStoreMetrics(factory promauto.Factory) {
	m.StoreSavesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "store_saves_total",
			Help:      "Total number of result store saves by result",
		},
		[]string{"result"},
	)

	m.StoreQuarantine = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "store_quarantined_total",
			Help:      "Total number of corrupt store files moved aside",
		},
	)
}

// RecordCheck records a finished check.
func (m *Metrics) RecordCheck(status domain.Status, duration time.Duration) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(status.String()).Inc()
	m.CheckDurationSeconds.Observe(duration.Seconds())
}

// RecordLookupAttempt records one lookup attempt against a strategy.
func (m *Metrics) RecordLookupAttempt(strategy, outcome string) {
	if m == nil {
		return
	}
	m.LookupAttemptsTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordFallback records a move to the next strategy.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.FallbacksTotal.Inc()
}

// SetBreakerState sets the breaker state for a strategy.
func (m *Metrics) SetBreakerState(strategy string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(strategy).Set(float64(state))
}

// RecordWorkerOutcome records the outcome of one domain in a worker.
func (m *Metrics) RecordWorkerOutcome(outcome string) {
	if m == nil {
		return
	}
	m.WorkerOutcomesTotal.WithLabelValues(outcome).Inc()
}

// SessionOpened increments the open session count.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the open session count.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ActiveSessions.Dec()
}

// RecordStoreSave records a store save result.
func (m *Metrics) RecordStoreSave(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.StoreSavesTotal.WithLabelValues(result).Inc()
}

// RecordQuarantine records a corrupt store being moved aside.
func (m *Metrics) RecordQuarantine() {
	if m == nil {
		return
	}
	m.StoreQuarantine.Inc()
}

// Push sends everything gathered by g to a Prometheus Pushgateway.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
