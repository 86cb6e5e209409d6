// Package metrics records build statistics as Prometheus metrics.
//
// # Overview
//
// Each build owns a BuildMetrics with a private registry, so repeated
// builds in one process (tests, the validate command) never share
// counters. After a build the registry can be written in the node
// exporter textfile format for collection by a cron-driven exporter.
//
// # Basic Usage
//
//	m := metrics.NewBuildMetrics()
//	timer := metrics.NewTimer()
//	processDocument(doc)
//	m.ObserveDocument(metrics.StatusProcessed, timer.Stop())
//
//	if err := m.WriteTextfile("/var/lib/node_exporter/memgraph.prom"); err != nil {
//	    return err
//	}
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "memgraph"

// Document outcomes.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Relation warning kinds.
const (
	WarningMissingReference = "missing_reference"
	WarningCycle            = "cycle"
	WarningDropped          = "dropped"
)

// BuildMetrics holds the collectors for one build.
type BuildMetrics struct {
	registry *prometheus.Registry

	documents        *prometheus.CounterVec
	documentDuration prometheus.Histogram
	entities         prometheus.Counter
	relations        prometheus.Counter
	relationWarnings *prometheus.CounterVec
	profiles         *prometheus.GaugeVec
	buildDuration    prometheus.Gauge
	lastSuccess      prometheus.Gauge
}

// NewBuildMetrics creates collectors registered on a fresh registry.
func NewBuildMetrics() *BuildMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &BuildMetrics{
		registry: reg,
		documents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Profile documents handled, by outcome.",
		}, []string{"status"}),
		documentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Time spent loading and compiling one document.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		entities: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_total",
			Help:      "Entities written to the output.",
		}),
		relations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relations_total",
			Help:      "Relations written to the output.",
		}),
		relationWarnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relation_warnings_total",
			Help:      "Relation problems reported during resolution, by kind.",
		}, []string{"kind"}),
		profiles: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiles",
			Help:      "Compiled profiles, by declared profile type.",
		}, []string{"type"}),
		buildDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of the last build.",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful build.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *BuildMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDocument records one document outcome and its duration.
func (m *BuildMetrics) ObserveDocument(status string, d time.Duration) {
	m.documents.WithLabelValues(status).Inc()
	m.documentDuration.Observe(d.Seconds())
}

// AddGraph records the size of the written graph.
func (m *BuildMetrics) AddGraph(entities, relations int) {
	m.entities.Add(float64(entities))
	m.relations.Add(float64(relations))
}

// AddRelationWarnings records resolution problems of one kind.
func (m *BuildMetrics) AddRelationWarnings(kind string, n int) {
	if n > 0 {
		m.relationWarnings.WithLabelValues(kind).Add(float64(n))
	}
}

// SetProfiles records how many compiled profiles declare each type.
func (m *BuildMetrics) SetProfiles(byType map[string]int) {
	m.profiles.Reset()
	for t, n := range byType {
		m.profiles.WithLabelValues(t).Set(float64(n))
	}
}

// Finish records the build duration and, on success, the completion time.
func (m *BuildMetrics) Finish(d time.Duration, success bool) {
	m.buildDuration.Set(d.Seconds())
	if success {
		m.lastSuccess.SetToCurrentTime()
	}
}

// WriteTextfile writes the registry in the text exposition format.
func (m *BuildMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer measures the duration of an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
