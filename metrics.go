// metrics.go: optional Prometheus instrumentation for a Logger pipeline.
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package lumen

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the counters and gauges lumen exposes to Prometheus when
// a Logger is built with LoggerConfig.Metrics set (Config.EnableMetrics
// builds and attaches one). It is safe to share
// a single Metrics across every Logger/Collector in a process; labels carry
// the distinguishing writer name.
type Metrics struct {
	gated    prometheus.Counter
	sampled  prometheus.Counter
	dropped  prometheus.Counter
	writeErr *prometheus.CounterVec
	queue    prometheus.Gauge
}

// NewMetrics builds an unregistered Metrics instance. Call Register to
// attach it to a prometheus.Registerer.
func NewMetrics() *Metrics {
	return &Metrics{
		gated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lumen",
			Name:      "gated_total",
			Help:      "Records rejected by the level gate before sampling or ring admission.",
		}),
		sampled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lumen",
			Name:      "sampled_out_total",
			Help:      "Records rejected by the sampler after passing the level gate.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lumen",
			Name:      "ring_dropped_total",
			Help:      "Records dropped because the ingestion ring was full under DropOnFull.",
		}),
		writeErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lumen",
			Name:      "writer_errors_total",
			Help:      "Writer pipeline errors, labeled by writer name.",
		}, []string{"writer"}),
		queue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lumen",
			Name:      "ring_queue_depth",
			Help:      "Approximate number of records currently buffered in the ingestion ring.",
		}),
	}
}

// Register attaches every collector to reg. It is safe to call once per
// Metrics instance; registering the same Metrics twice against the same
// Registerer returns the AlreadyRegisteredError from the second call.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.gated, m.sampled, m.dropped, m.writeErr, m.queue} {
		if err := reg.Register(c); err != nil {
			return WrapLoggerError(err, ErrCodeInvalidConfig, "failed to register lumen metrics")
		}
	}
	return nil
}

func (m *Metrics) incGated() {
	if m != nil {
		m.gated.Inc()
	}
}

func (m *Metrics) incSampled() {
	if m != nil {
		m.sampled.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) incWriterError(writer string) {
	if m != nil {
		m.writeErr.WithLabelValues(writer).Inc()
	}
}

func (m *Metrics) setQueueDepth(n float64) {
	if m != nil {
		m.queue.Set(n)
	}
}
