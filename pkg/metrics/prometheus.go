// Package metrics provides Prometheus metrics for the auction settlement core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the settlement core.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Validation metrics
	validationsTotal   *prometheus.CounterVec
	validationDuration prometheus.Histogram
	validationScore    prometheus.Histogram
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	ruleFailures       *prometheus.CounterVec

	// Determination metrics
	determinationsTotal   *prometheus.CounterVec
	determinationDuration prometheus.Histogram
	checksFailed          *prometheus.CounterVec
	confidenceScore       prometheus.Histogram

	// Lifecycle metrics
	confirmations       prometheus.Counter
	rejections          prometheus.Counter
	rejectedTransitions *prometheus.CounterVec
	disputesRaised      prometheus.Counter
	disputesResolved    prometheus.Counter
	disputesDismissed   prometheus.Counter
	openDisputes        prometheus.Gauge

	// Event sink metrics
	eventsPublished *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec
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
		namespace:        "settlement",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
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

	m.validationsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "validations_total",
			Help:      "Total number of bid validations by verdict",
		},
		[]string{"verdict"},
	)

	m.validationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_duration_milliseconds",
		Help:      "Histogram of bid validation duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.validationScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_score",
		Help:      "Distribution of overall compliance scores",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_cache_hits_total",
		Help:      "Total number of validation cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "validation_cache_misses_total",
		Help:      "Total number of validation cache misses",
	})

	m.ruleFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rule_failures_total",
			Help:      "Total number of failed rule evaluations by rule and severity",
		},
		[]string{"rule_id", "severity"},
	)

	m.determinationsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "determinations_total",
			Help:      "Total number of winner determinations by mechanism and outcome",
		},
		[]string{"mechanism", "outcome"},
	)

	m.determinationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "determination_duration_milliseconds",
		Help:      "Histogram of winner determination duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.checksFailed = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "determination_checks_failed_total",
			Help:      "Total number of failed post-determination checks by type",
		},
		[]string{"check_type"},
	)

	m.confidenceScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "determination_confidence",
		Help:      "Distribution of determination confidence scores",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})

	m.confirmations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "determinations_confirmed_total",
		Help:      "Total number of confirmed winner determinations",
	})

	m.rejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "determinations_rejected_total",
		Help:      "Total number of rejected winner determinations",
	})

	m.rejectedTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "lifecycle_transitions_rejected_total",
			Help:      "Total number of lifecycle transitions refused by a state guard",
		},
		[]string{"operation"},
	)

	m.disputesRaised = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "disputes_raised_total",
		Help:      "Total number of disputes raised",
	})

	m.disputesResolved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "disputes_resolved_total",
		Help:      "Total number of disputes resolved",
	})

	m.disputesDismissed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "disputes_dismissed_total",
		Help:      "Total number of disputes dismissed",
	})

	m.openDisputes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "disputes_open",
		Help:      "Current number of unresolved disputes",
	})

	m.eventsPublished = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_published_total",
			Help:      "Total number of domain events published by name",
		},
		[]string{"event"},
	)

	m.eventsDropped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_dropped_total",
			Help:      "Total number of domain events dropped by name",
		},
		[]string{"event"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component and type",
		},
		[]string{"component", "error_type"},
	)
}

// RecordValidation increments the validations counter for a verdict.
func RecordValidation(valid bool) {
	verdict := "valid"
	if !valid {
		verdict = "invalid"
	}
	globalManager.validationsTotal.WithLabelValues(verdict).Inc()
}

// RecordValidationDuration records validation duration in milliseconds.
func RecordValidationDuration(latencyMs float64) {
	globalManager.validationDuration.Observe(latencyMs)
}

// RecordValidationScore records an overall compliance score.
func RecordValidationScore(score int) {
	globalManager.validationScore.Observe(float64(score))
}

// RecordCacheHit increments the validation cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the validation cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordRuleFailure records a failed rule evaluation.
func RecordRuleFailure(ruleID, severity string) {
	globalManager.ruleFailures.WithLabelValues(ruleID, severity).Inc()
}

// RecordDetermination records one winner determination outcome.
func RecordDetermination(mechanism string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	globalManager.determinationsTotal.WithLabelValues(mechanism, outcome).Inc()
}

// RecordDeterminationDuration records determination duration in milliseconds.
func RecordDeterminationDuration(latencyMs float64) {
	globalManager.determinationDuration.Observe(latencyMs)
}

// RecordCheckFailed records a failed post-determination check.
func RecordCheckFailed(checkType string) {
	globalManager.checksFailed.WithLabelValues(checkType).Inc()
}

// RecordConfidence records a determination confidence score.
func RecordConfidence(confidence int) {
	globalManager.confidenceScore.Observe(float64(confidence))
}

// RecordConfirmation increments the confirmed determinations counter.
func RecordConfirmation() {
	globalManager.confirmations.Inc()
}

// RecordRejection increments the rejected determinations counter.
func RecordRejection() {
	globalManager.rejections.Inc()
}

// RecordRejectedTransition records a lifecycle call refused by a state guard.
func RecordRejectedTransition(operation string) {
	globalManager.rejectedTransitions.WithLabelValues(operation).Inc()
}

// RecordDisputeRaised increments the disputes raised counter and the open gauge.
func RecordDisputeRaised() {
	globalManager.disputesRaised.Inc()
	globalManager.openDisputes.Inc()
}

// RecordDisputeResolved increments the resolved counter and decrements the open gauge.
func RecordDisputeResolved() {
	globalManager.disputesResolved.Inc()
	globalManager.openDisputes.Dec()
}

// RecordDisputeDismissed increments the dismissed counter and decrements the open gauge.
func RecordDisputeDismissed() {
	globalManager.disputesDismissed.Inc()
	globalManager.openDisputes.Dec()
}

// RecordEventPublished increments the published events counter for an event name.
func RecordEventPublished(event string) {
	globalManager.eventsPublished.WithLabelValues(event).Inc()
}

// RecordEventDropped increments the dropped events counter for an event name.
func RecordEventDropped(event string) {
	globalManager.eventsDropped.WithLabelValues(event).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
