// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors for pipeline stages and
// model spend. Every method is safe on a nil *Metrics, which records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

const namespace = "synthesis_engine"

// Query outcomes for IncQuery.
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
)

// Metrics is a set of collectors registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	costUSD       *prometheus.CounterVec
	tokens        *prometheus.CounterVec
	costWarnings  prometheus.Counter
	queries       *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		// Labels: stage
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "duration_seconds",
			Help:      "Wall-clock time spent in each pipeline stage",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),

		// Labels: stage, kind (transport, malformed_output, panic)
		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stage",
			Name:      "errors_total",
			Help:      "Stage failures recovered into the error list",
		}, []string{"stage", "kind"}),

		// Labels: node, model
		costUSD: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cost",
			Name:      "usd_total",
			Help:      "Model spend in US dollars",
		}, []string{"node", "model"}),

		// Labels: node, model, direction (input, output)
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cost",
			Name:      "tokens_total",
			Help:      "Billed model units",
		}, []string{"node", "model", "direction"}),

		costWarnings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cost",
			Name:      "warnings_total",
			Help:      "Ledger records made while above the warning threshold",
		}),

		// Labels: outcome (completed, aborted)
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries run by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveStage records how long stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncError counts one recovered stage failure.
func (m *Metrics) IncError(stage, kind string) {
	if m == nil {
		return
	}
	m.stageErrors.WithLabelValues(stage, kind).Inc()
}

// AddCost adds one ledger entry to the spend and unit counters.
func (m *Metrics) AddCost(e types.CostEntry) {
	if m == nil {
		return
	}
	m.costUSD.WithLabelValues(e.NodeName, e.Model).Add(e.CostUSD)
	m.tokens.WithLabelValues(e.NodeName, e.Model, "input").Add(float64(e.InputTokens))
	m.tokens.WithLabelValues(e.NodeName, e.Model, "output").Add(float64(e.OutputTokens))
}

// IncCostWarning counts one record made above the warning threshold. The
// running total is accepted so the method fits ledger.Options.OnWarning.
func (m *Metrics) IncCostWarning(float64) {
	if m == nil {
		return
	}
	m.costWarnings.Inc()
}

// IncQuery counts one finished query.
func (m *Metrics) IncQuery(outcome string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the registry to path in the Prometheus text format,
// for pickup by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
