// Package metrics provides Prometheus metrics for the mouton game engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the game engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Core game metrics
	turnsStarted     prometheus.Counter
	answersSubmitted prometheus.Counter
	resolutions      *prometheus.CounterVec
	duplicateSkips   prometheus.Counter
	pointsBanked     prometheus.Counter

	// Sync substrate metrics
	storeMutations      *prometheus.CounterVec
	storeConflicts      *prometheus.CounterVec
	changeNotifications *prometheus.CounterVec
	changesDropped      prometheus.Counter
	snapshotReadLatency prometheus.Histogram

	// Change pipeline metrics
	queueSize  prometheus.Gauge
	queueDrops prometheus.Counter

	// Presence metrics
	presenceUpdates prometheus.Counter
	playersTyping   prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "mouton",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.turnsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "turns_started_total",
		Help:      "Total number of turns started (prompt selected, answers cleared)",
	})

	m.answersSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "answers_submitted_total",
		Help:      "Total number of turn answers submitted by the local player",
	})

	m.resolutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pair_resolutions_total",
		Help:      "Total number of pair turn resolutions observed, by outcome",
	}, []string{"outcome"})

	m.duplicateSkips = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_resolutions_skipped_total",
		Help:      "Resolutions suppressed by the idempotency tracker (redundant notifications)",
	})

	m.pointsBanked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "points_banked_total",
		Help:      "Total points moved from the at-risk pot into banked score",
	})

	m.storeMutations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_mutations_total",
		Help:      "Durable record mutations issued, by table",
	}, []string{"table"})

	m.storeConflicts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_conflicts_total",
		Help:      "Mutations rejected by uniqueness constraints, by table",
	}, []string{"table"})

	m.changeNotifications = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "change_notifications_total",
		Help:      "Change notifications delivered to subscribers, by table",
	}, []string{"table"})

	m.changesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "change_notifications_dropped_total",
		Help:      "Change notifications shed due to slow subscribers",
	})

	m.snapshotReadLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_read_latency_milliseconds",
		Help:      "Histogram of full room snapshot read latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "change_queue_size",
		Help:      "Current depth of the change-notification queue",
	})

	m.queueDrops = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "change_queue_drops_total",
		Help:      "Notifications shed by the bounded change queue",
	})

	m.presenceUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "presence_updates_total",
		Help:      "Ephemeral presence signals published or observed",
	})

	m.playersTyping = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "players_typing",
		Help:      "Players currently marked as composing an answer",
	})
}

// RecordTurnStarted increments the turns started counter.
func RecordTurnStarted() {
	globalManager.turnsStarted.Inc()
}

// RecordAnswerSubmitted increments the answers submitted counter.
func RecordAnswerSubmitted() {
	globalManager.answersSubmitted.Inc()
}

// RecordResolution counts one observed pair resolution by outcome.
func RecordResolution(outcome string) {
	globalManager.resolutions.WithLabelValues(outcome).Inc()
}

// RecordDuplicateResolution counts a resolution suppressed as redundant.
func RecordDuplicateResolution() {
	globalManager.duplicateSkips.Inc()
}

// RecordPointsBanked adds to the banked points counter.
func RecordPointsBanked(points int) {
	if points > 0 {
		globalManager.pointsBanked.Add(float64(points))
	}
}

// RecordStoreMutation counts a durable mutation by table.
func RecordStoreMutation(table string) {
	globalManager.storeMutations.WithLabelValues(table).Inc()
}

// RecordStoreConflict counts a rejected mutation by table.
func RecordStoreConflict(table string) {
	globalManager.storeConflicts.WithLabelValues(table).Inc()
}

// RecordChangeNotification counts a delivered change notification by table.
func RecordChangeNotification(table string) {
	globalManager.changeNotifications.WithLabelValues(table).Inc()
}

// RecordChangeDropped counts a shed change notification.
func RecordChangeDropped() {
	globalManager.changesDropped.Inc()
}

// RecordSnapshotReadLatency records snapshot read latency in milliseconds.
func RecordSnapshotReadLatency(latencyMs float64) {
	globalManager.snapshotReadLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current change queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueDrop counts a notification shed by the change queue.
func RecordQueueDrop() {
	globalManager.queueDrops.Inc()
}

// RecordPresenceUpdate counts a presence signal.
func RecordPresenceUpdate() {
	globalManager.presenceUpdates.Inc()
}

// UpdatePlayersTyping sets the number of players currently composing.
func UpdatePlayersTyping(count int) {
	globalManager.playersTyping.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
