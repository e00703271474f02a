package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the VAAC collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	caseEvents    *prometheus.CounterVec
	slotExhausted prometheus.Counter
	snapshotScore *prometheus.HistogramVec
	publishErrors *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		caseEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaac",
			Name:      "case_events_total",
			Help:      "Committed case events by kind.",
		}, []string{"kind"}),
		slotExhausted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "vaac",
			Name:      "slot_exhausted_total",
			Help:      "Slot assignments or transfers refused for lack of capacity.",
		}),
		snapshotScore: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vaac",
			Name:      "snapshot_score",
			Help:      "Ratio total_score / max_possible_score of written snapshots.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"family", "phase"}),
		publishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaac",
			Name:      "event_publish_errors_total",
			Help:      "Event fan-out failures after commit by sink.",
		}, []string{"sink"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaac",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vaac",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry exposes the registry for tests and custom handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) CaseEvent(kind string) {
	if m == nil {
		return
	}
	m.caseEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) SlotExhausted() {
	if m == nil {
		return
	}
	m.slotExhausted.Inc()
}

func (m *Metrics) SnapshotScore(family, phase string, total, maxScore int) {
	if m == nil || maxScore <= 0 {
		return
	}
	m.snapshotScore.WithLabelValues(family, phase).Observe(float64(total) / float64(maxScore))
}

func (m *Metrics) PublishError(sink string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) HTTPRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
