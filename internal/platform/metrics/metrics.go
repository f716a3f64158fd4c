package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is
// valid and records nothing, so services and tests can omit it.
type Metrics struct {
	RecordStoreCalls    *prometheus.CounterVec
	RecordStoreLatency  *prometheus.HistogramVec
	RecordStoreRetries  prometheus.Counter
	ParentResolutions   *prometheus.CounterVec
	ChildCreations      *prometheus.CounterVec
	AuditAppendFailures prometheus.Counter
	PromotionOutcomes   *prometheus.CounterVec
	DocumentsGenerated  prometheus.Counter
	HTTPLatency         *prometheus.HistogramVec
}

// New creates and registers all metrics on reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RecordStoreCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opsbridge_recordstore_calls_total",
			Help: "Record store calls by operation and HTTP status (0 = transport error)",
		}, []string{"op", "status"}),
		RecordStoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opsbridge_recordstore_call_duration_seconds",
			Help:    "Duration of record store calls including rate-limit backoff",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"op"}),
		RecordStoreRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "opsbridge_recordstore_rate_limit_retries_total",
			Help: "Retries issued after a rate-limited record store response",
		}),
		ParentResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opsbridge_parent_resolutions_total",
			Help: "Parent get-or-create outcomes (created, primary, secondary)",
		}, []string{"outcome"}),
		ChildCreations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opsbridge_child_creations_total",
			Help: "Trace-keyed child creations by outcome (created, duplicate)",
		}, []string{"outcome"}),
		AuditAppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "opsbridge_audit_append_failures_total",
			Help: "Best-effort audit log appends that failed",
		}),
		PromotionOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "opsbridge_promotion_outcomes_total",
			Help: "Promotion workflow terminal states",
		}, []string{"state"}),
		DocumentsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "opsbridge_documents_generated_total",
			Help: "Documents rendered from templates into the file store",
		}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "opsbridge_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency by route pattern and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

func (m *Metrics) ObserveRecordStoreCall(op string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RecordStoreCalls.WithLabelValues(op, strconv.Itoa(status)).Inc()
	m.RecordStoreLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) IncRecordStoreRetry() {
	if m != nil {
		m.RecordStoreRetries.Inc()
	}
}

func (m *Metrics) IncParentResolution(outcome string) {
	if m != nil {
		m.ParentResolutions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncChildCreation(outcome string) {
	if m != nil {
		m.ChildCreations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncAuditAppendFailure() {
	if m != nil {
		m.AuditAppendFailures.Inc()
	}
}

func (m *Metrics) IncPromotionOutcome(state string) {
	if m != nil {
		m.PromotionOutcomes.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) IncDocumentsGenerated() {
	if m != nil {
		m.DocumentsGenerated.Inc()
	}
}

func (m *Metrics) ObserveHTTPLatency(route, method string, d time.Duration) {
	if m != nil {
		m.HTTPLatency.WithLabelValues(route, method).Observe(d.Seconds())
	}
}
