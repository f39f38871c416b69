package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pse-app/pse-sub001/internal/apperrors"
)

const namespace = "ledger"

// Rejection reasons used as label values.
const (
	ReasonValidation = "validation"
	ReasonNotFound   = "not_found"
	ReasonStorage    = "storage"
)

// LedgerMetrics holds the collectors for ledger operations.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	PostedTransactions prometheus.Counter
	RejectedBatches    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
}

// NewRegistry returns a registry with the Go and process collectors installed.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewLedgerMetrics creates the ledger collectors and registers them on reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	factory := promauto.With(reg)
	return &LedgerMetrics{
		PostedTransactions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posted_transactions_total",
			Help:      "Number of transactions committed to the ledger.",
		}),
		RejectedBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_batches_total",
			Help:      "Number of transaction batches rejected, by reason.",
		}, []string{"reason"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of ledger operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// ObserveOperation records the time elapsed since start for the named operation.
func (m *LedgerMetrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// AddPosted counts committed transactions.
func (m *LedgerMetrics) AddPosted(n int) {
	if m == nil {
		return
	}
	m.PostedTransactions.Add(float64(n))
}

// RecordRejection counts a rejected batch under the category of err.
func (m *LedgerMetrics) RecordRejection(err error) {
	if m == nil || err == nil {
		return
	}
	m.RejectedBatches.WithLabelValues(RejectionReason(err)).Inc()
}

// RejectionReason maps an error onto a rejection label.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return ReasonValidation
	case errors.Is(err, apperrors.ErrNotFound):
		return ReasonNotFound
	default:
		return ReasonStorage
	}
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
