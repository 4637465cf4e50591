package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// latencyBuckets are millisecond buckets for query latencies.
var latencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         *prometheus.Registry

	// Queries
	leaderboardQueries *prometheus.CounterVec
	leaderboardLatency prometheus.Histogram
	trajectoryLatency  prometheus.Histogram
	trajectoryPeriods  prometheus.Histogram
	fetchErrors        *prometheus.CounterVec
	coercedRecords     *prometheus.CounterVec
	activeChatters     prometheus.Gauge

	// Ingestion
	eventsIngested  *prometheus.CounterVec
	eventsDuplicate prometheus.Counter
	eventsRejected  prometheus.Counter
	recordErrors    prometheus.Counter
	recordLatency   prometheus.Histogram
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	workerCount     prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// NewManager creates a manager on its own registry unless WithRegistry is
// given. The default Go runtime collectors are not registered.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "chatrank",
		subsystem:        "",
		histogramBuckets: latencyBuckets,
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

//nolint:funlen // one block per collector
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
		})
	}

	m.leaderboardQueries = counterVec("leaderboard_queries_total", "Leaderboard queries by timeframe", "timeframe")
	m.leaderboardLatency = histogram("leaderboard_latency_milliseconds", "Leaderboard computation latency in milliseconds", m.histogramBuckets)
	m.trajectoryLatency = histogram("trajectory_latency_milliseconds", "Rank trajectory reconstruction latency in milliseconds", m.histogramBuckets)
	m.trajectoryPeriods = histogram("trajectory_periods", "Number of periods reconstructed per trajectory", prometheus.LinearBuckets(1, 4, 13))
	m.fetchErrors = counterVec("fetch_errors_total", "Failed record fetches by stream", "stream")
	m.coercedRecords = counterVec("coerced_records_total", "Records whose non-finite amount was counted as zero", "source", "field")
	m.activeChatters = gauge("active_chatters", "Active chatters in the most recent leaderboard")

	m.eventsIngested = counterVec("events_ingested_total", "Events accepted for recording by kind", "kind")
	m.eventsDuplicate = counter("events_duplicate_total", "Events dropped as duplicates")
	m.eventsRejected = counter("events_rejected_total", "Events rejected because the queue was full")
	m.recordErrors = counter("record_errors_total", "Events the store failed to record")
	m.recordLatency = histogram("record_latency_milliseconds", "Store write latency in milliseconds", m.histogramBuckets)
	m.queueSize = gauge("queue_size", "Current ingestion queue length")
	m.queueCapacity = gauge("queue_capacity", "Ingestion queue capacity")
	m.workerCount = gauge("worker_count", "Running ingestion workers")

	m.httpRequests = counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// Registry returns the manager's registry.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// Register adds an external collector, such as database pool stats.
// Registering the same collector twice is not an error.
func (m *Manager) Register(c prometheus.Collector) error {
	if m.registry == nil {
		return ErrNilRegistry
	}
	if err := m.registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return fmt.Errorf("register collector: %w", err)
	}
	return nil
}

// Handler serves the manager's registry in the exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) ObserveLeaderboard(timeframe string, d time.Duration, active int) {
	if !m.enabled {
		return
	}
	m.leaderboardQueries.WithLabelValues(timeframe).Inc()
	m.leaderboardLatency.Observe(ms(d))
	m.activeChatters.Set(float64(active))
}

func (m *Manager) ObserveTrajectory(d time.Duration, periods int) {
	if !m.enabled {
		return
	}
	m.trajectoryLatency.Observe(ms(d))
	m.trajectoryPeriods.Observe(float64(periods))
}

func (m *Manager) RecordFetchError(stream string) {
	if m.enabled {
		m.fetchErrors.WithLabelValues(stream).Inc()
	}
}

func (m *Manager) RecordCoercion(source, field string) {
	if m.enabled {
		m.coercedRecords.WithLabelValues(source, field).Inc()
	}
}

func (m *Manager) RecordEventIngested(kind string) {
	if m.enabled {
		m.eventsIngested.WithLabelValues(kind).Inc()
	}
}

func (m *Manager) RecordEventDuplicate() {
	if m.enabled {
		m.eventsDuplicate.Inc()
	}
}

func (m *Manager) RecordEventRejected() {
	if m.enabled {
		m.eventsRejected.Inc()
	}
}

func (m *Manager) ObserveRecord(d time.Duration, err error) {
	if !m.enabled {
		return
	}
	if err != nil {
		m.recordErrors.Inc()
		return
	}
	m.recordLatency.Observe(ms(d))
}

func (m *Manager) UpdateQueue(size, capacity int) {
	if !m.enabled {
		return
	}
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
}

func (m *Manager) UpdateWorkerCount(n int) {
	if m.enabled {
		m.workerCount.Set(float64(n))
	}
}

func (m *Manager) ObserveHTTP(endpoint, method string, status int, d time.Duration) {
	if !m.enabled {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(ms(d))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Package-level helpers delegate to the global manager.

// Default returns the global manager.
func Default() *Manager { return globalManager }

// GetRegistry returns the global registry.
func GetRegistry() *prometheus.Registry { return globalManager.registry }

// Handler serves the global registry.
func Handler() http.Handler { return globalManager.Handler() }

func ObserveLeaderboard(timeframe string, d time.Duration, active int) {
	globalManager.ObserveLeaderboard(timeframe, d, active)
}
func Register(c prometheus.Collector) error          { return globalManager.Register(c) }
func ObserveTrajectory(d time.Duration, periods int) { globalManager.ObserveTrajectory(d, periods) }
func RecordFetchError(stream string)                 { globalManager.RecordFetchError(stream) }
func RecordCoercion(source, field string)            { globalManager.RecordCoercion(source, field) }
func RecordEventIngested(kind string)                { globalManager.RecordEventIngested(kind) }
func RecordEventDuplicate()                          { globalManager.RecordEventDuplicate() }
func RecordEventRejected()                           { globalManager.RecordEventRejected() }
func ObserveRecord(d time.Duration, err error)       { globalManager.ObserveRecord(d, err) }
func UpdateQueue(size, capacity int)                 { globalManager.UpdateQueue(size, capacity) }
func UpdateWorkerCount(n int)                        { globalManager.UpdateWorkerCount(n) }
func ObserveHTTP(endpoint, method string, status int, d time.Duration) {
	globalManager.ObserveHTTP(endpoint, method, status, d)
}
