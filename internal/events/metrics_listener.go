package events

import (
	"context"

	"github.com/gxo-labs/crossws/internal/metrics"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/events"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsListener counts execution events by graph and type.
type MetricsListener struct {
	counter *prometheus.CounterVec
}

// NewMetricsListener registers crossws_events_total on reg (reusing an
// already registered collector) and returns a listener feeding it.
func NewMetricsListener(reg prometheus.Registerer) (*MetricsListener, error) {
	counter, err := metrics.Register(reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossws_events_total",
			Help: "Execution events emitted by graph invocations, by graph and event type.",
		},
		[]string{"graph", "type"},
	))
	if err != nil {
		return nil, err
	}
	return &MetricsListener{counter: counter}, nil
}

// Emit increments the counter for event and returns ctx unchanged.
func (l *MetricsListener) Emit(ctx context.Context, event events.Event) context.Context {
	l.counter.WithLabelValues(event.GraphName, string(event.Type)).Inc()
	return ctx
}

var _ events.Listener = (*MetricsListener)(nil)
