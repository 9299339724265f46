// Package metrics provides Prometheus metrics for the reputation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Debate pipeline
	sectionsProcessed   prometheus.Counter
	sectionsSkipped     *prometheus.CounterVec
	sectionsFailed      prometheus.Counter
	contributionsTotal  prometheus.Counter
	runningScoreUpdates *prometheus.CounterVec
	contributionWeight  prometheus.Histogram

	// Promise lifecycle
	eventsClassified  *prometheus.CounterVec
	promisesCreated   *prometheus.CounterVec
	promisesVerified  *prometheus.CounterVec
	promisesPending   prometheus.Gauge
	promiseAdjustment prometheus.Histogram

	// Classification service
	classifierCalls     *prometheus.CounterVec
	classifierErrors    *prometheus.CounterVec
	classifierFallbacks *prometheus.CounterVec
	classifierLatency   *prometheus.HistogramVec
	breakerState        prometheus.Gauge

	// Jobs
	jobRuns        *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobLastSuccess *prometheus.GaugeVec

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "repute",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.sectionsProcessed = m.counter("sections_processed_total", "Debate sections whose contributions were committed")
	m.sectionsSkipped = m.counterVec("sections_skipped_total", "Debate sections skipped, by reason", "reason")
	m.sectionsFailed = m.counter("sections_failed_total", "Debate sections left for the next run after a failure")
	m.contributionsTotal = m.counter("contributions_written_total", "Score contribution audit rows written")
	m.runningScoreUpdates = m.counterVec("running_score_updates_total", "Running score mutations, by dimension", "dimension")
	m.contributionWeight = m.histogram("contribution_weight", "Combined evidence weight applied to debate deltas",
		[]float64{0.35, 0.45, 0.55, 0.65, 0.75, 0.85, 0.95, 1})

	m.eventsClassified = m.counterVec("events_classified_total", "News events classified at intake, by kind", "kind")
	m.promisesCreated = m.counterVec("promises_created_total", "Tracked promises created, by event kind", "kind")
	m.promisesVerified = m.counterVec("promises_verified_total", "Promises resolved, by outcome", "outcome")
	m.promisesPending = m.gauge("promises_due_pending", "Due promises still pending after the last verification run")
	m.promiseAdjustment = m.histogram("promise_adjustment", "Retroactive adjustment issued at verification",
		[]float64{-20, -10, -6, -3, -1, 0, 1, 3, 6, 10, 20})

	m.classifierCalls = m.counterVec("classifier_calls_total", "Classification service calls, by operation", "operation")
	m.classifierErrors = m.counterVec("classifier_errors_total", "Classification service failures, by operation and kind", "operation", "kind")
	m.classifierFallbacks = m.counterVec("classifier_fallbacks_total", "Conservative defaults applied after classifier failures", "operation")
	m.classifierLatency = m.histogramVec("classifier_latency_milliseconds", "Classification service latency in milliseconds", "operation")
	m.breakerState = m.gauge("classifier_breaker_state", "Classifier circuit breaker state (0 closed, 1 half-open, 2 open)")

	m.jobRuns = m.counterVec("job_runs_total", "Job invocations, by job and result", "job", "result")
	m.jobDuration = m.histogramVec("job_duration_milliseconds", "Job run duration in milliseconds", "job")
	m.jobLastSuccess = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "job_last_success_unix",
		Help:        "Unix timestamp of the last successful run, by job",
		ConstLabels: m.customLabels,
	}, []string{"job"})

	m.storeLatency = m.histogramVec("store_latency_milliseconds", "Store operation latency in milliseconds", "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Store operation failures", "operation")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint, type and severity", "endpoint", "method", "error_type", "severity")
}

// RecordSectionProcessed increments the committed sections counter.
func RecordSectionProcessed() {
	globalManager.sectionsProcessed.Inc()
}

// RecordSectionSkipped increments the skipped sections counter for reason.
func RecordSectionSkipped(reason string) {
	globalManager.sectionsSkipped.WithLabelValues(reason).Inc()
}

// RecordSectionFailed increments the failed sections counter.
func RecordSectionFailed() {
	globalManager.sectionsFailed.Inc()
}

// RecordContributions adds n written contribution rows.
func RecordContributions(n int) {
	globalManager.contributionsTotal.Add(float64(n))
}

// RecordRunningScoreUpdate increments the running score mutation counter.
func RecordRunningScoreUpdate(dimension string) {
	globalManager.runningScoreUpdates.WithLabelValues(dimension).Inc()
}

// RecordContributionWeight observes a combined evidence weight.
func RecordContributionWeight(w float64) {
	globalManager.contributionWeight.Observe(w)
}

// RecordEventClassified increments the intake classification counter.
func RecordEventClassified(kind string) {
	globalManager.eventsClassified.WithLabelValues(kind).Inc()
}

// RecordPromiseCreated increments the created promises counter.
func RecordPromiseCreated(kind string) {
	globalManager.promisesCreated.WithLabelValues(kind).Inc()
}

// RecordPromiseVerified increments the resolved promises counter.
func RecordPromiseVerified(outcome string, adjustment float64) {
	globalManager.promisesVerified.WithLabelValues(outcome).Inc()
	globalManager.promiseAdjustment.Observe(adjustment)
}

// UpdatePromisesPending sets the due-but-pending gauge.
func UpdatePromisesPending(n int) {
	globalManager.promisesPending.Set(float64(n))
}

// RecordClassifierCall records one classification call and its latency.
func RecordClassifierCall(operation string, latencyMs float64) {
	globalManager.classifierCalls.WithLabelValues(operation).Inc()
	globalManager.classifierLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordClassifierError increments the classifier error counter.
func RecordClassifierError(operation, kind string) {
	globalManager.classifierErrors.WithLabelValues(operation, kind).Inc()
}

// RecordClassifierFallback increments the conservative-default counter.
func RecordClassifierFallback(operation string) {
	globalManager.classifierFallbacks.WithLabelValues(operation).Inc()
}

// UpdateBreakerState sets the classifier breaker state gauge.
func UpdateBreakerState(state int) {
	globalManager.breakerState.Set(float64(state))
}

// RecordJobRun records a finished job run.
func RecordJobRun(job, result string, duration time.Duration) {
	globalManager.jobRuns.WithLabelValues(job, result).Inc()
	globalManager.jobDuration.WithLabelValues(job).Observe(float64(duration.Milliseconds()))
	if result == "ok" {
		globalManager.jobLastSuccess.WithLabelValues(job).Set(float64(time.Now().Unix()))
	}
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError increments the store error counter.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an HTTP error response.
func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
