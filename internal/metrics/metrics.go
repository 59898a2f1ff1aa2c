// Package metrics records what a run did on chain and exports it in the
// Prometheus textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction kinds.
const (
	KindDeploy = "deploy"
	KindMint   = "mint"
)

// Transaction outcomes.
const (
	StatusSuccess  = "success"
	StatusReverted = "reverted"
	StatusFailed   = "failed"
)

// Recorder holds the run's metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	transactionsTotal *prometheus.CounterVec
	gasUsedTotal      *prometheus.CounterVec
	lastDeploy        *prometheus.GaugeVec
	stepDuration      *prometheus.HistogramVec
}

// New creates a recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainbeats_transactions_total",
				Help: "Transactions sent by kind and outcome",
			},
			[]string{"network", "kind", "status"},
		),
		gasUsedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainbeats_gas_used_total",
				Help: "Gas used by mined transactions",
			},
			[]string{"network", "kind"},
		),
		lastDeploy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chainbeats_last_deploy_timestamp_seconds",
				Help: "Unix time of the last successful deployment",
			},
			[]string{"network"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainbeats_step_duration_seconds",
				Help:    "Time from send to confirmation",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30, 60, 120, 300},
			},
			[]string{"network", "kind"},
		),
	}
}

// Transaction records one transaction outcome. gasUsed is ignored unless the
// transaction was mined.
func (r *Recorder) Transaction(network, kind, status string, gasUsed uint64, took time.Duration) {
	if r == nil {
		return
	}
	r.transactionsTotal.WithLabelValues(network, kind, status).Inc()
	if status == StatusFailed {
		return
	}
	r.gasUsedTotal.WithLabelValues(network, kind).Add(float64(gasUsed))
	r.stepDuration.WithLabelValues(network, kind).Observe(took.Seconds())
}

// Deployed marks a successful deployment at t.
func (r *Recorder) Deployed(network string, t time.Time) {
	if r == nil {
		return
	}
	r.lastDeploy.WithLabelValues(network).Set(float64(t.Unix()))
}

// WriteTextfile writes all metrics to path for the node exporter's textfile
// collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
