// Package agent is the greeting graph and its trace routing: it picks the
// workspace an invocation belongs to and attaches exactly one trace listener
// bound to that workspace's destination.
package agent

import (
	"context"

	"github.com/gxo-labs/crossws/internal/config"
	"github.com/gxo-labs/crossws/internal/engine"
	"github.com/gxo-labs/crossws/internal/logger"
	intMetrics "github.com/gxo-labs/crossws/internal/metrics"
	"github.com/gxo-labs/crossws/internal/secrets"
	"github.com/gxo-labs/crossws/internal/tracing"
	"github.com/gxo-labs/crossws/internal/workspace"
	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/events"
	crosswslog "github.com/gxo-labs/crossws/pkg/crossws/v1/log"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/metrics"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/state"
	"github.com/prometheus/client_golang/prometheus"
)

// Graph and node names.
const (
	GraphName    = "agent"
	NodeGreeting = "greeting"
)

// Agent owns the compiled base graph and the workspace registry. Both are
// immutable, so an Agent serves concurrent invocations.
type Agent struct {
	registry        *workspace.Registry
	base            *engine.Compiled
	log             crosswslog.Logger
	tracker         *secrets.SecretTracker
	metricsProvider metrics.RegistryProvider
	staticListeners []events.Listener
	routes          *prometheus.CounterVec
}

// Option configures an Agent.
type Option func(*Agent) error

// WithLogger sets the logger.
func WithLogger(log crosswslog.Logger) Option {
	return func(a *Agent) error {
		if log == nil {
			return crosswserrors.NewConfigError("logger cannot be nil", nil)
		}
		a.log = log
		return nil
	}
}

// WithMetricsRegistryProvider sets where graph and routing metrics live.
func WithMetricsRegistryProvider(provider metrics.RegistryProvider) Option {
	return func(a *Agent) error {
		if provider == nil {
			return crosswserrors.NewConfigError("metrics registry provider cannot be nil", nil)
		}
		a.metricsProvider = provider
		return nil
	}
}

// WithSecretTracker redacts tracked secrets from exported spans.
func WithSecretTracker(tracker *secrets.SecretTracker) Option {
	return func(a *Agent) error {
		a.tracker = tracker
		return nil
	}
}

// WithStaticListeners attaches non-tracing listeners to the base graph.
func WithStaticListeners(listeners ...events.Listener) Option {
	return func(a *Agent) error {
		a.staticListeners = append(a.staticListeners, listeners...)
		return nil
	}
}

// New builds the base graph START -> greeting -> END with the runtime
// configuration schema attached.
func New(registry *workspace.Registry, opts ...Option) (*Agent, error) {
	if registry == nil {
		return nil, crosswserrors.NewConfigError("agent requires a workspace registry", nil)
	}
	a := &Agent{registry: registry}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.log == nil {
		a.log = logger.NewDiscardLogger()
	}
	if a.metricsProvider == nil {
		a.metricsProvider = intMetrics.NewPrometheusRegistryProvider()
	}

	routes, err := intMetrics.Register(a.metricsProvider.Registry(), prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crossws_workspace_routes_total", Help: "Invocations routed, by workspace kind and destination project."},
		[]string{"workspace", "project"},
	))
	if err != nil {
		return nil, crosswserrors.NewConfigError("failed to register routing metrics", err)
	}
	a.routes = routes

	schema, err := config.RuntimeConfigSchema()
	if err != nil {
		return nil, err
	}
	base, err := engine.NewGraph(GraphName).
		AddNode(NodeGreeting, greetingStep).
		AddEdge(engine.Start, NodeGreeting).
		AddEdge(NodeGreeting, engine.End).
		WithConfigSchema(schema).
		Compile(
			engine.WithLogger(a.log),
			engine.WithMetricsRegistryProvider(a.metricsProvider),
			engine.WithStaticListeners(a.staticListeners...),
		)
	if err != nil {
		return nil, err
	}
	a.base = base
	return a, nil
}

// greetingStep writes the fixed greeting of the configured workspace.
func greetingStep(_ context.Context, _ state.StateReader, rc *crossws.RunnableConfig) (map[string]interface{}, error) {
	id := workspace.Parse(config.ResolveWorkspaceID(rc))
	return map[string]interface{}{crossws.StateKeyResponse: workspace.Greeting(id)}, nil
}

// BaseGraph returns the compiled graph without any trace listener.
func (a *Agent) BaseGraph() *engine.Compiled { return a.base }

// Registry returns the workspace registry.
func (a *Agent) Registry() *workspace.Registry { return a.registry }

// Route resolves the workspace of rc and its binding. It never fails.
func (a *Agent) Route(rc *crossws.RunnableConfig) (workspace.ID, workspace.Binding) {
	id := workspace.Parse(config.ResolveWorkspaceID(rc))
	binding := a.registry.Resolve(id)
	a.routes.WithLabelValues(id.Kind.String(), binding.ProjectName).Inc()
	if id.Known() {
		a.log.Debugf("Routing workspace '%s' to project '%s'", id.Raw, binding.ProjectName)
	} else {
		a.log.Debugf("Unrecognized workspace '%s', routing to project '%s'", id.Raw, binding.ProjectName)
	}
	return id, binding
}

// listenerFor builds the trace listener of one invocation.
func (a *Agent) listenerFor(b workspace.Binding) *tracing.Listener {
	opts := []tracing.ListenerOption{tracing.WithSecretTracker(a.tracker)}
	if b.Client != nil {
		opts = append(opts, tracing.WithTenantID(b.Client.TenantID()))
	}
	return tracing.NewListener(b.Destination, b.ProjectName, opts...)
}

// Deployment is a graph built for one routed configuration.
type Deployment struct {
	Graph     *engine.Compiled
	Workspace workspace.ID
	Binding   workspace.Binding
}

// Deploy routes rc and wraps the base graph with the one trace listener of
// the selected workspace.
func (a *Agent) Deploy(rc *crossws.RunnableConfig) Deployment {
	id, binding := a.Route(rc)
	return Deployment{
		Graph:     a.base.WithListeners(a.listenerFor(binding)),
		Workspace: id,
		Binding:   binding,
	}
}

// Graph is the deployment factory: given the configuration a hosting
// platform received, it returns the base graph wrapped with the one trace
// listener of the selected workspace.
func (a *Agent) Graph(rc *crossws.RunnableConfig) crossws.Runnable {
	return a.Deploy(rc).Graph
}

// RunWithTracing invokes the graph once with the trace listener of the
// selected workspace passed for this call only. A missing or nil workspace_id
// is filled with the resolved default; a present value reaches the graph
// untouched so the schema judges it. Engine errors are returned as they are.
func (a *Agent) RunWithTracing(ctx context.Context, rc *crossws.RunnableConfig) (crossws.Result, error) {
	id, binding := a.Route(rc)

	cfg := rc.Clone()
	if cfg.Configurable == nil {
		cfg.Configurable = make(map[string]interface{}, 1)
	}
	if v, ok := cfg.Configurable[crossws.ConfigKeyWorkspaceID]; !ok || v == nil {
		cfg.Configurable[crossws.ConfigKeyWorkspaceID] = id.Raw
	}
	cfg.Listeners = append(cfg.Listeners, a.listenerFor(binding))

	out, err := a.base.Invoke(ctx, map[string]interface{}{}, cfg)
	if err != nil {
		return crossws.Result{}, err
	}
	return crossws.ResultFromState(out), nil
}
