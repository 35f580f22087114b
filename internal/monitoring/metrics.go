// Package monitoring exposes Prometheus metrics for model invocations,
// reconciliation outcomes, and pipeline stage timings.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records the pipeline's Prometheus metrics.
type Collector struct {
	registry        *prometheus.Registry
	invocations     *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	promotions      *prometheus.CounterVec
}

// NewCollector constructs a collector with a private registry.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reviewcli",
		Subsystem: "llm",
		Name:      "invocations_total",
		Help:      "Model invocations by model, task, and outcome (accepted/rejected/error).",
	}, []string{"model", "task", "outcome"})

	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reviewcli",
		Subsystem: "reconcile",
		Name:      "reconciliations_total",
		Help:      "Reconciliation decisions by winning strategy.",
	}, []string{"strategy"})

	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reviewcli",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Wall-clock duration of pipeline stages.",
		Buckets:   []float64{0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"stage"})

	promotions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reviewcli",
		Subsystem: "pipeline",
		Name:      "promotions_total",
		Help:      "Promotion decisions applied to source items.",
	}, []string{"status"})

	for _, c := range []prometheus.Collector{invocations, reconciliations, stageDuration, promotions} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:        registry,
		invocations:     invocations,
		reconciliations: reconciliations,
		stageDuration:   stageDuration,
		promotions:      promotions,
	}, nil
}

// Handler returns an HTTP handler exposing the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveInvocation records one model call. Nil collectors are no-ops so
// stages can run unmetered in tests.
func (c *Collector) ObserveInvocation(model, task, outcome string) {
	if c == nil {
		return
	}
	c.invocations.WithLabelValues(model, task, outcome).Inc()
}

// ObserveReconciliation records the strategy that decided a reconciliation.
func (c *Collector) ObserveReconciliation(strategy string) {
	if c == nil {
		return
	}
	c.reconciliations.WithLabelValues(strategy).Inc()
}

// ObserveStage records a completed stage run.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObservePromotion records one promotion decision.
func (c *Collector) ObservePromotion(status string) {
	if c == nil {
		return
	}
	c.promotions.WithLabelValues(status).Inc()
}
