package engine

import (
	"time"

	"github.com/gxo-labs/crossws/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Invocation outcomes used as the status label.
const (
	statusSuccess = "success"
	statusFailure = "failure"
	statusInvalid = "invalid"
)

type graphMetrics struct {
	invocations  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	stepDuration *prometheus.HistogramVec
}

func newGraphMetrics(reg prometheus.Registerer) (*graphMetrics, error) {
	m := &graphMetrics{}
	var err error
	if m.invocations, err = metrics.Register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crossws_graph_invocations_total", Help: "Total number of graph invocations by outcome."},
		[]string{"graph", "status"},
	)); err != nil {
		return nil, err
	}
	if m.duration, err = metrics.Register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "crossws_graph_invocation_duration_seconds", Help: "Duration of graph invocations in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"graph"},
	)); err != nil {
		return nil, err
	}
	if m.stepDuration, err = metrics.Register(reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "crossws_step_duration_seconds", Help: "Duration of individual step executions in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"graph", "step"},
	)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *graphMetrics) observeInvocation(graph, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(graph, status).Inc()
	m.duration.WithLabelValues(graph).Observe(d.Seconds())
}

func (m *graphMetrics) observeStep(graph, step string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(graph, step).Observe(d.Seconds())
}
