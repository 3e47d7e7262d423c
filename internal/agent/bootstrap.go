package agent

import (
	"context"

	"github.com/gxo-labs/crossws/internal/backend"
	"github.com/gxo-labs/crossws/internal/config"
	internalevents "github.com/gxo-labs/crossws/internal/events"
	intMetrics "github.com/gxo-labs/crossws/internal/metrics"
	"github.com/gxo-labs/crossws/internal/secrets"
	"github.com/gxo-labs/crossws/internal/tracing"
	"github.com/gxo-labs/crossws/internal/workspace"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	crosswslog "github.com/gxo-labs/crossws/pkg/crossws/v1/log"
	crosswssecrets "github.com/gxo-labs/crossws/pkg/crossws/v1/secrets"
)

// EnvOTLPHeaders carries extra export headers in OTLP key=value,... form.
const EnvOTLPHeaders = "OTEL_EXPORTER_OTLP_HEADERS"

// Runtime is everything a process needs to serve invocations: the agent, its
// registry, the metrics registry and the secret tracker.
type Runtime struct {
	Agent    *Agent
	Registry *workspace.Registry
	Metrics  *intMetrics.PrometheusRegistryProvider
	Tracker  *secrets.SecretTracker
}

// Bootstrap resolves the credential, creates the two backend clients, the
// registry and the agent. A missing credential is logged as a warning and
// leaves every destination a no-op. backendOpts are applied to both
// clients after the defaults.
func Bootstrap(ctx context.Context, settings *config.Settings, provider crosswssecrets.Provider, log crosswslog.Logger, backendOpts ...backend.Option) (*Runtime, error) {
	if settings == nil {
		settings = config.Default()
	}
	if provider == nil {
		provider = secrets.NewEnvProvider()
	}
	if log == nil {
		return nil, crosswserrors.NewConfigError("logger cannot be nil", nil)
	}

	apiKey, err := backend.ResolveAPIKey(ctx, provider, settings.APIKeyEnv...)
	if err != nil {
		return nil, crosswserrors.NewConfigError("failed to look up trace backend credential", err)
	}
	if apiKey == "" {
		log.Warnf("%s", backend.MissingKeyWarning)
	}

	var extraHeaders map[string]string
	if raw, found, err := provider.GetSecret(ctx, EnvOTLPHeaders); err == nil && found {
		extraHeaders = tracing.ParseHeaders(raw)
	}

	tracker := secrets.NewSecretTracker()
	for _, v := range extraHeaders {
		tracker.Add(v)
	}
	opts := append([]backend.Option{
		backend.WithSecretTracker(tracker),
		backend.WithResource(tracing.NewResource(ctx, settings.ServiceName)),
		backend.WithLogger(log),
	}, backendOpts...)

	newClient := func(tenantID string) (*backend.Client, error) {
		return backend.New(backend.Settings{
			APIKey:       apiKey,
			APIURL:       settings.APIURL,
			TenantID:     tenantID,
			Exporter:     settings.Exporter,
			ExtraHeaders: extraHeaders,
		}, opts...)
	}
	clientA, err := newClient(settings.Workspaces.WorkspaceA.TenantID)
	if err != nil {
		return nil, err
	}
	clientB, err := newClient(settings.Workspaces.WorkspaceB.TenantID)
	if err != nil {
		return nil, err
	}

	registry, err := workspace.NewRegistry(ctx, clientA, clientB)
	if err != nil {
		return nil, err
	}

	metricsProvider := intMetrics.NewPrometheusRegistryProvider()
	eventMetrics, err := internalevents.NewMetricsListener(metricsProvider.Registry())
	if err != nil {
		_ = registry.Shutdown(ctx)
		return nil, err
	}

	a, err := New(registry,
		WithLogger(log),
		WithMetricsRegistryProvider(metricsProvider),
		WithSecretTracker(tracker),
		WithStaticListeners(eventMetrics),
	)
	if err != nil {
		_ = registry.Shutdown(ctx)
		return nil, err
	}
	log.Debugf("Agent ready (upload enabled: %t, protocol: %s)", clientA.Enabled(), settings.Exporter.Protocol)
	return &Runtime{Agent: a, Registry: registry, Metrics: metricsProvider, Tracker: tracker}, nil
}

// Shutdown flushes every trace destination.
func (r *Runtime) Shutdown(ctx context.Context) error {
	return r.Registry.Shutdown(ctx)
}
