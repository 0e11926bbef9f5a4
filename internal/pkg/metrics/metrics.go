// Package metrics holds the Prometheus collectors published on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eduadmin"

// Metrics groups every collector the services update
type Metrics struct {
	// label scheme = {application_number, admission_number, seat}
	Allocations *prometheus.CounterVec
	// label scheme, reason = {seat_taken, student_enrolled, duplicate}
	Conflicts *prometheus.CounterVec

	// label kind, outcome = {ok, partial, failed}
	Replaces       *prometheus.CounterVec
	RecordFailures *prometheus.CounterVec

	// label direction = {units_to_classes, classes_to_units}, op = {create, update, delete}
	MirrorWrites   *prometheus.CounterVec
	MirrorFailures *prometheus.CounterVec

	Notifications *prometheus.CounterVec // label outcome = {sent, failed, skipped}

	RequestDuration *prometheus.HistogramVec // labels method, route, status
}

// New creates the collectors and registers them with reg when reg is not nil
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allocator",
			Name:      "allocations_total",
			Help:      "Number of identifiers handed out per scheme.",
		}, []string{"scheme"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allocator",
			Name:      "conflicts_total",
			Help:      "Number of allocations refused because the resource was taken.",
		}, []string{"scheme", "reason"}),
		Replaces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "replaces_total",
			Help:      "Number of collection replaces by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RecordFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "record_failures_total",
			Help:      "Number of records a replace could not write.",
		}, []string{"kind"}),
		MirrorWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "writes_total",
			Help:      "Number of records written by organizational mirror passes.",
		}, []string{"direction", "op"}),
		MirrorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "failures_total",
			Help:      "Number of organizational mirror passes that failed.",
		}, []string{"direction"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "stage_notifications_total",
			Help:      "Number of admission stage notifications by outcome.",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Time taken to serve HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	if reg != nil {
		reg.MustRegister(m.PrometheusCollectors()...)
	}
	return m
}

// PrometheusCollectors returns all collectors
func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Allocations,
		m.Conflicts,
		m.Replaces,
		m.RecordFailures,
		m.MirrorWrites,
		m.MirrorFailures,
		m.Notifications,
		m.RequestDuration,
	}
}
