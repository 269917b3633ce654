// Copyright (c) Microsoft. All rights reserved.

package botframework

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the dispatch core. A nil
// *Metrics is valid and records nothing, so components can be wired without
// instrumentation.
type Metrics struct {
	queueDepth prometheus.Gauge
	inflight   prometheus.Gauge
	processed  prometheus.Counter
	dropped    prometheus.Counter
	turnErrors prometheus.Counter
}

// NewMetrics creates and registers the dispatch metrics on reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "botframework_activity_queue_depth",
			Help: "Number of activities waiting in the activity task queue.",
		}),
		inflight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "botframework_inflight_activities",
			Help: "Number of background activity turns currently executing.",
		}),
		processed: factory.NewCounter(prometheus.CounterOpts{
			Name: "botframework_activities_processed_total",
			Help: "Background activities processed to completion.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "botframework_activities_dropped_total",
			Help: "Activities dropped because shutdown had begun.",
		}),
		turnErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "botframework_turn_errors_total",
			Help: "Turns that ended in the turn-error boundary.",
		}),
	}
}

func (m *Metrics) observeQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) inflightInc() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) inflightDec() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}

func (m *Metrics) activityProcessed() {
	if m == nil {
		return
	}
	m.processed.Inc()
}

func (m *Metrics) activityDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) turnError() {
	if m == nil {
		return
	}
	m.turnErrors.Inc()
}
