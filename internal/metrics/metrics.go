package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	SettlementsTotal         *prometheus.CounterVec
	DuplicateSelectionsTotal prometheus.Counter

	RemoteCallsTotal   *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec

	EventsTotal          *prometheus.CounterVec
	NotifyFallbacksTotal *prometheus.CounterVec

	ActiveConnections prometheus.Gauge

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns a Prometheus-backed Recorder when enabled, or a noop
// Recorder otherwise. sync.Once guards double registration.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

func initMetrics() *Metrics {
	return &Metrics{
		SettlementsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "giftgate_settlements_total",
			Help: "Settlement flow invocations by flow and outcome status",
		}, []string{"flow", "status"}),

		// Duplicate selections are an expected concurrent-user race and are
		// counted separately, never under a failure status.
		DuplicateSelectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "giftgate_duplicate_selections_total",
			Help: "Reward selections rejected because a choice already existed",
		}),

		RemoteCallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "giftgate_remote_calls_total",
			Help: "Custodial API calls by method and result",
		}, []string{"method", "result"}),

		RemoteCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "giftgate_remote_call_duration_seconds",
			Help:    "Custodial API call latency by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),

		EventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "giftgate_events_total",
			Help: "Inbound transport events by kind",
		}, []string{"kind"}),

		NotifyFallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "giftgate_notify_fallbacks_total",
			Help: "Outbound delivery degradations by stage",
		}, []string{"stage"}),

		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "giftgate_active_connections",
			Help: "Number of delegated-access connections currently stored",
		}),

		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "giftgate_http_requests_total",
			Help: "HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "giftgate_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		HTTPRequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "giftgate_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
	}
}

func (m *Metrics) RecordSettlement(flow, status string) {
	m.SettlementsTotal.WithLabelValues(flow, status).Inc()
}

func (m *Metrics) RecordDuplicateSelection() {
	m.DuplicateSelectionsTotal.Inc()
}

func (m *Metrics) RecordRemoteCall(method string, success bool, d time.Duration) {
	result := "success"
	if !success {
		result = "error"
	}
	m.RemoteCallsTotal.WithLabelValues(method, result).Inc()
	m.RemoteCallDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) RecordEvent(kind string) {
	m.EventsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordNotifyFallback(stage string) {
	m.NotifyFallbacksTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) SetActiveConnections(count int) {
	m.ActiveConnections.Set(float64(count))
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) AddHTTPInFlight(delta int) {
	m.HTTPRequestsInFlight.Add(float64(delta))
}
