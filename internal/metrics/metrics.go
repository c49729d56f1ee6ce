// Package metrics holds the Prometheus collectors shared by the access engine and the store
// server, and the HTTP server that exposes them. The engine labels operations by their access
// name (findObjectList), the store server by RPC method (Scan).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "litetable_access"

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics groups the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	// OperationsTotal counts engine operations by outcome.
	OperationsTotal *prometheus.CounterVec
	// OperationDuration is the latency of engine operations, handle acquisition included.
	OperationDuration *prometheus.HistogramVec
	// RowsReturned counts rows handed back by scans.
	RowsReturned *prometheus.CounterVec
	// DeleteBatches counts batched delete calls.
	DeleteBatches prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of access operations",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Access operation latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RowsReturned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_returned_total",
				Help:      "Total number of rows returned by scans",
			},
			[]string{"operation"},
		),
		DeleteBatches: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delete_batches_total",
				Help:      "Total number of batched delete calls",
			},
		),
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(op string, started time.Time, outcome string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) Rows(op string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsReturned.WithLabelValues(op).Add(float64(n))
}

func (m *Metrics) DeleteBatch() {
	if m == nil {
		return
	}
	m.DeleteBatches.Inc()
}

// Outcome maps an operation error to its outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
