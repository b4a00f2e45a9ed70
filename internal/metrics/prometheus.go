package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the repository and the
// messaging pair.
type Metrics struct {
	// Repository operation metrics
	OperationsTotal       *prometheus.CounterVec
	OperationErrorsTotal  *prometheus.CounterVec
	OperationDuration     *prometheus.HistogramVec
	BatchOps              prometheus.Histogram
	IndexRepairsTotal     prometheus.Counter
	GuardConflictsTotal   prometheus.Counter

	// Messaging metrics
	MessagesProducedTotal prometheus.Counter
	MessagesConsumedTotal prometheus.Counter
	MalformedPayloadsTotal prometheus.Counter
	ConsumeLatency        prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics. Call at most
// once per process; metrics register against the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txstore",
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "Total number of repository operations by kind",
		}, []string{"op"}),
		OperationErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "txstore",
			Subsystem: "repository",
			Name:      "operation_errors_total",
			Help:      "Total number of failed repository operations by kind and error code",
		}, []string{"op", "code"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "txstore",
			Subsystem: "repository",
			Name:      "operation_duration_seconds",
			Help:      "Histogram of repository operation durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		BatchOps: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txstore",
			Subsystem: "repository",
			Name:      "batch_ops",
			Help:      "Histogram of operations per committed batch",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
		IndexRepairsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "txstore",
			Subsystem: "repository",
			Name:      "index_repairs_total",
			Help:      "Total number of dangling index entries pruned during reads",
		}),
		GuardConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "txstore",
			Subsystem: "repository",
			Name:      "guard_conflicts_total",
			Help:      "Total number of guarded updates lost to a concurrent writer",
		}),
		MessagesProducedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "txstore",
			Subsystem: "messaging",
			Name:      "messages_produced_total",
			Help:      "Total number of messages published",
		}),
		MessagesConsumedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "txstore",
			Subsystem: "messaging",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed",
		}),
		MalformedPayloadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "txstore",
			Subsystem: "messaging",
			Name:      "malformed_payloads_total",
			Help:      "Total number of payloads that failed to parse",
		}),
		ConsumeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txstore",
			Subsystem: "messaging",
			Name:      "consume_latency_seconds",
			Help:      "Histogram of producer-to-consumer latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// RecordOperation records a repository operation's outcome. errCode is
// empty on success.
func (m *Metrics) RecordOperation(op string, duration time.Duration, errCode string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(duration.Seconds())
	if errCode != "" {
		m.OperationErrorsTotal.WithLabelValues(op, errCode).Inc()
	}
}

// RecordBatch records the size of a committed batch.
func (m *Metrics) RecordBatch(ops int) {
	if m == nil {
		return
	}
	m.BatchOps.Observe(float64(ops))
}

// RecordIndexRepair records a dangling index entry pruned during a read.
func (m *Metrics) RecordIndexRepair() {
	if m == nil {
		return
	}
	m.IndexRepairsTotal.Inc()
}

// RecordGuardConflict records a guarded update lost to a concurrent writer.
func (m *Metrics) RecordGuardConflict() {
	if m == nil {
		return
	}
	m.GuardConflictsTotal.Inc()
}

// RecordProduced records a published message.
func (m *Metrics) RecordProduced() {
	if m == nil {
		return
	}
	m.MessagesProducedTotal.Inc()
}

// RecordConsumed records a consumed message and its end-to-end latency.
func (m *Metrics) RecordConsumed(latency time.Duration) {
	if m == nil {
		return
	}
	m.MessagesConsumedTotal.Inc()
	m.ConsumeLatency.Observe(latency.Seconds())
}

// RecordMalformed records a payload that failed to parse.
func (m *Metrics) RecordMalformed() {
	if m == nil {
		return
	}
	m.MalformedPayloadsTotal.Inc()
}
