// Package metrics provides Prometheus metrics for the ranking engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric of the process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Calculation
	calculations        *prometheus.CounterVec
	calculationDuration *prometheus.HistogramVec
	entityOutcomes      *prometheus.CounterVec
	rankUps             *prometheus.CounterVec
	duplicateRequests   prometheus.Counter

	// Persistence
	storeDuration *prometheus.HistogramVec
	storeErrors   *prometheus.CounterVec
	leaderboard   prometheus.Gauge

	// Queue and workers
	queueDepth    *prometheus.GaugeVec
	enqueueErrors *prometheus.CounterVec
	workerCount   prometheus.Gauge
	workerJobs    prometheus.Histogram

	// Feed
	feedPublished prometheus.Counter
	feedErrors    prometheus.Counter
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "odyssey",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.calculations = auto.NewCounterVec(
		m.counterOpts("calculations_total", "Calculation runs by source and outcome"),
		[]string{"source", "outcome"})
	m.calculationDuration = auto.NewHistogramVec(
		m.histogramOpts("calculation_duration_seconds", "End-to-end calculation latency including store and feed"),
		[]string{"source"})
	m.entityOutcomes = auto.NewCounterVec(
		m.counterOpts("entity_outcomes_total", "Per-entity results: changed, unchanged, frozen, skipped, synced"),
		[]string{"status"})
	m.rankUps = auto.NewCounterVec(
		m.counterOpts("rank_ups_total", "Rank-up events by entity kind"),
		[]string{"kind"})
	m.duplicateRequests = auto.NewCounter(
		m.counterOpts("duplicate_requests_total", "Calculation requests dropped as duplicates"))

	m.storeDuration = auto.NewHistogramVec(
		m.histogramOpts("store_operation_duration_seconds", "Rank store latency by backend and operation"),
		[]string{"store", "op"})
	m.storeErrors = auto.NewCounterVec(
		m.counterOpts("store_errors_total", "Rank store failures by backend and operation"),
		[]string{"store", "op"})
	m.leaderboard = auto.NewGauge(
		m.gaugeOpts("leaderboard_users", "Users with a user-level leaderboard score"))

	m.queueDepth = auto.NewGaugeVec(
		m.gaugeOpts("queue_depth", "Pending calculations per worker shard"),
		[]string{"shard"})
	m.enqueueErrors = auto.NewCounterVec(
		m.counterOpts("enqueue_errors_total", "Rejected submissions by reason"),
		[]string{"reason"})
	m.workerCount = auto.NewGauge(
		m.gaugeOpts("worker_count", "Running calculation workers"))
	m.workerJobs = auto.NewHistogram(
		m.histogramOpts("worker_job_duration_seconds", "Time a worker spends on one job"))

	m.feedPublished = auto.NewCounter(
		m.counterOpts("feed_published_total", "Rank-up events published to the feed"))
	m.feedErrors = auto.NewCounter(
		m.counterOpts("feed_publish_errors_total", "Rank-up events that failed to publish"))
}

// RecordCalculation counts one run and observes its latency.
func (m *Manager) RecordCalculation(source, outcome string, d time.Duration) {
	m.calculations.WithLabelValues(source, outcome).Inc()
	m.calculationDuration.WithLabelValues(source).Observe(d.Seconds())
}

// RecordEntityOutcome adds n entities with the given status.
func (m *Manager) RecordEntityOutcome(status string, n int) {
	if n > 0 {
		m.entityOutcomes.WithLabelValues(status).Add(float64(n))
	}
}

// RecordRankUp counts one rank-up event.
func (m *Manager) RecordRankUp(kind string) {
	m.rankUps.WithLabelValues(kind).Inc()
}

// RecordDuplicateRequest counts one dropped duplicate.
func (m *Manager) RecordDuplicateRequest() {
	m.duplicateRequests.Inc()
}

// RecordStoreOperation observes a store call and counts it as failed when err != nil.
func (m *Manager) RecordStoreOperation(store, op string, d time.Duration, err error) {
	m.storeDuration.WithLabelValues(store, op).Observe(d.Seconds())
	if err != nil {
		m.storeErrors.WithLabelValues(store, op).Inc()
	}
}

// UpdateLeaderboardUsers sets the leaderboard size.
func (m *Manager) UpdateLeaderboardUsers(n int) {
	m.leaderboard.Set(float64(n))
}

// UpdateQueueDepth sets the pending jobs of one shard.
func (m *Manager) UpdateQueueDepth(shard, depth int) {
	m.queueDepth.WithLabelValues(strconv.Itoa(shard)).Set(float64(depth))
}

// RecordEnqueueError counts one rejected submission.
func (m *Manager) RecordEnqueueError(reason string) {
	m.enqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func (m *Manager) UpdateWorkerCount(n int) {
	m.workerCount.Set(float64(n))
}

// RecordWorkerJob observes one job's duration.
func (m *Manager) RecordWorkerJob(d time.Duration) {
	m.workerJobs.Observe(d.Seconds())
}

// RecordFeedPublish counts one publish attempt.
func (m *Manager) RecordFeedPublish(err error) {
	if err != nil {
		m.feedErrors.Inc()
		return
	}
	m.feedPublished.Inc()
}

// Package-level helpers backed by the global manager.

func RecordCalculation(source, outcome string, d time.Duration) {
	globalManager.RecordCalculation(source, outcome, d)
}

func RecordEntityOutcome(status string, n int) { globalManager.RecordEntityOutcome(status, n) }

func RecordRankUp(kind string) { globalManager.RecordRankUp(kind) }

func RecordDuplicateRequest() { globalManager.RecordDuplicateRequest() }

func RecordStoreOperation(store, op string, d time.Duration, err error) {
	globalManager.RecordStoreOperation(store, op, d, err)
}

func UpdateLeaderboardUsers(n int) { globalManager.UpdateLeaderboardUsers(n) }

func UpdateQueueDepth(shard, depth int) { globalManager.UpdateQueueDepth(shard, depth) }

func RecordEnqueueError(reason string) { globalManager.RecordEnqueueError(reason) }

func UpdateWorkerCount(n int) { globalManager.UpdateWorkerCount(n) }

func RecordWorkerJob(d time.Duration) { globalManager.RecordWorkerJob(d) }

func RecordFeedPublish(err error) { globalManager.RecordFeedPublish(err) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
