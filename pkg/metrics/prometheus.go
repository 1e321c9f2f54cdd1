// Package metrics provides Prometheus metrics for the match ledger.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ledger.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	rebuildBuckets   []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ledger
	matchesRecorded prometheus.Counter
	matchRejections *prometheus.CounterVec
	ledgerRecords   prometheus.Gauge

	// Entities
	nameRejections *prometheus.CounterVec
	entityChanges  *prometheus.CounterVec
	entities       *prometheus.GaugeVec

	// Rebuild
	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram

	// Queries
	queryLatency *prometheus.HistogramVec

	// Storage health
	storageRecoveries *prometheus.CounterVec
	storageErrors     *prometheus.CounterVec
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
		namespace:        "grudgematch",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		rebuildBuckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		enabled:          true,
		customLabels:     make(map[string]string),
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
	constLabels := prometheus.Labels(m.customLabels)

	m.matchesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matches_recorded_total",
		Help:        "Total number of matches appended to the ledger",
		ConstLabels: constLabels,
	})

	m.matchRejections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "match_rejections_total",
		Help:        "Matches rejected at the ledger boundary by reason",
		ConstLabels: constLabels,
	}, []string{"reason"})

	m.ledgerRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ledger_records",
		Help:        "Number of records in the ledger",
		ConstLabels: constLabels,
	})

	m.nameRejections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "name_rejections_total",
		Help:        "Entity names rejected by validation, by kind and code",
		ConstLabels: constLabels,
	}, []string{"kind", "code"})

	m.entityChanges = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "entity_changes_total",
		Help:        "Entity mutations by kind and action",
		ConstLabels: constLabels,
	}, []string{"kind", "action"})

	m.entities = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "entities",
		Help:        "Known entities by kind and lifecycle state",
		ConstLabels: constLabels,
	}, []string{"kind", "state"})

	m.rebuilds = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rebuilds_total",
		Help:        "Rebuild runs by outcome",
		ConstLabels: constLabels,
	}, []string{"outcome"})

	m.rebuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rebuild_duration_seconds",
		Help:        "Time spent replaying the ledger",
		Buckets:     m.rebuildBuckets,
		ConstLabels: constLabels,
	})

	m.queryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "query_duration_seconds",
		Help:        "Aggregate query latency by query",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"query"})

	m.storageRecoveries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "storage_recoveries_total",
		Help:        "Stores recovered at open, by store and source used",
		ConstLabels: constLabels,
	}, []string{"store", "source"})

	m.storageErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "storage_errors_total",
		Help:        "Failed storage operations by store and operation",
		ConstLabels: constLabels,
	}, []string{"store", "op"})
}

// RecordMatchRecorded increments the recorded matches counter.
func (m *Manager) RecordMatchRecorded() {
	if m.enabled {
		m.matchesRecorded.Inc()
	}
}

// RecordMatchRejected counts a match refused by the ledger.
func (m *Manager) RecordMatchRejected(reason string) {
	if m.enabled {
		m.matchRejections.WithLabelValues(reason).Inc()
	}
}

// UpdateLedgerRecords sets the ledger size.
func (m *Manager) UpdateLedgerRecords(n int) {
	if m.enabled {
		m.ledgerRecords.Set(float64(n))
	}
}

// RecordNameRejected counts a failed name validation.
func (m *Manager) RecordNameRejected(kind, code string) {
	if m.enabled {
		m.nameRejections.WithLabelValues(kind, code).Inc()
	}
}

// RecordEntityChange counts an entity mutation.
func (m *Manager) RecordEntityChange(kind, action string) {
	if m.enabled {
		m.entityChanges.WithLabelValues(kind, action).Inc()
	}
}

// UpdateEntityCount sets the number of entities of kind in state.
func (m *Manager) UpdateEntityCount(kind, state string, n int) {
	if m.enabled {
		m.entities.WithLabelValues(kind, state).Set(float64(n))
	}
}

// RecordRebuild counts a rebuild and observes its duration.
func (m *Manager) RecordRebuild(outcome string, seconds float64) {
	if m.enabled {
		m.rebuilds.WithLabelValues(outcome).Inc()
		m.rebuildDuration.Observe(seconds)
	}
}

// RecordQueryLatency observes one aggregate query.
func (m *Manager) RecordQueryLatency(query string, seconds float64) {
	if m.enabled {
		m.queryLatency.WithLabelValues(query).Observe(seconds)
	}
}

// RecordStorageRecovery counts a store recovered at open.
func (m *Manager) RecordStorageRecovery(store, source string) {
	if m.enabled {
		m.storageRecoveries.WithLabelValues(store, source).Inc()
	}
}

// RecordStorageError counts a failed storage operation.
func (m *Manager) RecordStorageError(store, op string) {
	if m.enabled {
		m.storageErrors.WithLabelValues(store, op).Inc()
	}
}

// Package-level helpers on the global manager.

// RecordMatchRecorded increments the recorded matches counter.
func RecordMatchRecorded() { globalManager.RecordMatchRecorded() }

// RecordMatchRejected counts a match refused by the ledger.
func RecordMatchRejected(reason string) { globalManager.RecordMatchRejected(reason) }

// UpdateLedgerRecords sets the ledger size.
func UpdateLedgerRecords(n int) { globalManager.UpdateLedgerRecords(n) }

// RecordNameRejected counts a failed name validation.
func RecordNameRejected(kind, code string) { globalManager.RecordNameRejected(kind, code) }

// RecordEntityChange counts an entity mutation.
func RecordEntityChange(kind, action string) { globalManager.RecordEntityChange(kind, action) }

// UpdateEntityCount sets the number of entities of kind in state.
func UpdateEntityCount(kind, state string, n int) { globalManager.UpdateEntityCount(kind, state, n) }

// RecordRebuild counts a rebuild and observes its duration.
func RecordRebuild(outcome string, seconds float64) { globalManager.RecordRebuild(outcome, seconds) }

// RecordQueryLatency observes one aggregate query.
func RecordQueryLatency(query string, seconds float64) {
	globalManager.RecordQueryLatency(query, seconds)
}

// RecordStorageRecovery counts a store recovered at open.
func RecordStorageRecovery(store, source string) { globalManager.RecordStorageRecovery(store, source) }

// RecordStorageError counts a failed storage operation.
func RecordStorageError(store, op string) { globalManager.RecordStorageError(store, op) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the global registry to path in the text exposition
// format, for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
