package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gxo-labs/crossws/internal/logger"
	intMetrics "github.com/gxo-labs/crossws/internal/metrics"
	intState "github.com/gxo-labs/crossws/internal/state"
	"github.com/gxo-labs/crossws/internal/util"
	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/events"
	crosswslog "github.com/gxo-labs/crossws/pkg/crossws/v1/log"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/metrics"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/state"
)

type step struct {
	name string
	fn   StepFunc
}

// Compiled is a validated graph. It is immutable and safe for concurrent
// invocations; each invocation owns a fresh state store.
type Compiled struct {
	name            string
	steps           []step
	schema          ConfigSchema
	listeners       []events.Listener
	log             crosswslog.Logger
	metricsProvider metrics.RegistryProvider
	metrics         *graphMetrics
	newStore        func() state.Store
}

var _ crossws.Runnable = (*Compiled)(nil)

func (c *Compiled) init() error {
	if c.log == nil {
		c.log = logger.NewDiscardLogger()
	}
	c.log = c.log.With("graph_name", c.name)
	if c.newStore == nil {
		c.newStore = func() state.Store { return intState.NewMemoryStateStore() }
	}
	if c.metricsProvider == nil {
		c.metricsProvider = intMetrics.NewPrometheusRegistryProvider()
	}
	reg := c.metricsProvider.Registry()
	if reg == nil {
		c.log.Warnf("Metrics provider returned a nil registry, graph metrics disabled.")
		return nil
	}
	m, err := newGraphMetrics(reg)
	if err != nil {
		return crosswserrors.NewConfigError("failed to register graph metrics", err)
	}
	c.metrics = m
	return nil
}

// Name returns the graph name.
func (c *Compiled) Name() string { return c.name }

// Steps returns node names in execution order.
func (c *Compiled) Steps() []string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.name
	}
	return names
}

// Listeners returns the statically attached listeners.
func (c *Compiled) Listeners() []events.Listener {
	return append([]events.Listener(nil), c.listeners...)
}

// WithListeners returns a copy of c that additionally notifies listeners on
// every invocation. c itself is unchanged.
func (c *Compiled) WithListeners(listeners ...events.Listener) *Compiled {
	clone := *c
	clone.listeners = make([]events.Listener, 0, len(c.listeners)+len(listeners))
	clone.listeners = append(clone.listeners, c.listeners...)
	for _, l := range listeners {
		if l != nil {
			clone.listeners = append(clone.listeners, l)
		}
	}
	return &clone
}

// Invoke runs every step in order, starting from a copy of input, and
// returns the final state.
//
// Schema defaults are applied to rc.Configurable and the result is
// validated before anything runs; a rejected configuration returns a
// ValidationError and emits no events. Listeners attached with
// WithListeners are notified before those in rc.Listeners. A failing step
// is not retried: its error is returned wrapped in a StepExecutionError.
// A cancelled context stops the invocation before the next step.
func (c *Compiled) Invoke(ctx context.Context, input map[string]interface{}, rc *crossws.RunnableConfig) (map[string]interface{}, error) {
	startTime := time.Now()
	rc = rc.Clone()
	if c.schema != nil {
		rc.Configurable = c.schema.ApplyDefaults(rc.Configurable)
		if err := c.schema.Validate(rc.Configurable); err != nil {
			c.metrics.observeInvocation(c.name, statusInvalid, time.Since(startTime))
			return nil, err
		}
	}

	listeners := make([]events.Listener, 0, len(c.listeners)+len(rc.Listeners))
	listeners = append(listeners, c.listeners...)
	for _, l := range rc.Listeners {
		if l != nil {
			listeners = append(listeners, l)
		}
	}

	store := c.newStore()
	store.Load(input)

	runID := uuid.NewString()
	metadata := util.CopyMap(rc.Configurable)
	runCtx := emit(ctx, listeners, events.Event{
		Type:      events.RunStart,
		Timestamp: startTime,
		RunID:     runID,
		GraphName: c.name,
		Inputs:    store.GetAll(),
		Metadata:  metadata,
	})
	c.log.LogCtx(runCtx, slog.LevelDebug, "Graph invocation started", "run_id", runID)

	fail := func(err error) (map[string]interface{}, error) {
		end := time.Now()
		emit(runCtx, listeners, events.Event{
			Type:      events.RunError,
			Timestamp: end,
			RunID:     runID,
			GraphName: c.name,
			Metadata:  metadata,
			Error:     err.Error(),
			Duration:  end.Sub(startTime),
		})
		c.metrics.observeInvocation(c.name, statusFailure, end.Sub(startTime))
		return nil, err
	}

	for _, s := range c.steps {
		if err := runCtx.Err(); err != nil {
			c.log.Warnf("Invocation cancelled before step '%s': %v", s.name, err)
			return fail(err)
		}

		stepID := uuid.NewString()
		stepStart := time.Now()
		stepCtx := emit(runCtx, listeners, events.Event{
			Type:        events.StepStart,
			Timestamp:   stepStart,
			RunID:       stepID,
			ParentRunID: runID,
			GraphName:   c.name,
			StepName:    s.name,
			Inputs:      store.GetAll(),
			Metadata:    metadata,
		})

		update, err := s.fn(stepCtx, store, rc)
		stepEnd := time.Now()
		c.metrics.observeStep(c.name, s.name, stepEnd.Sub(stepStart))

		if err != nil {
			emit(stepCtx, listeners, events.Event{
				Type:        events.StepError,
				Timestamp:   stepEnd,
				RunID:       stepID,
				ParentRunID: runID,
				GraphName:   c.name,
				StepName:    s.name,
				Metadata:    metadata,
				Error:       err.Error(),
				Duration:    stepEnd.Sub(stepStart),
			})
			stepErr := crosswserrors.NewStepExecutionError(c.name, s.name, err)
			c.log.Errorf("Step failed: %v", stepErr)
			return fail(stepErr)
		}

		store.Merge(update)
		emit(stepCtx, listeners, events.Event{
			Type:        events.StepEnd,
			Timestamp:   stepEnd,
			RunID:       stepID,
			ParentRunID: runID,
			GraphName:   c.name,
			StepName:    s.name,
			Outputs:     util.CopyMap(update),
			Metadata:    metadata,
			Duration:    stepEnd.Sub(stepStart),
		})
	}

	final := store.GetAll()
	end := time.Now()
	emit(runCtx, listeners, events.Event{
		Type:      events.RunEnd,
		Timestamp: end,
		RunID:     runID,
		GraphName: c.name,
		Outputs:   store.GetAll(),
		Metadata:  metadata,
		Duration:  end.Sub(startTime),
	})
	c.metrics.observeInvocation(c.name, statusSuccess, end.Sub(startTime))
	return final, nil
}

// emit notifies listeners in order, threading the returned context through.
func emit(ctx context.Context, listeners []events.Listener, event events.Event) context.Context {
	for _, l := range listeners {
		if next := l.Emit(ctx, event); next != nil {
			ctx = next
		}
	}
	return ctx
}
