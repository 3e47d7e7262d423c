package agent_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gxo-labs/crossws/internal/agent"
	"github.com/gxo-labs/crossws/internal/backend"
	"github.com/gxo-labs/crossws/internal/config"
	"github.com/gxo-labs/crossws/internal/engine"
	"github.com/gxo-labs/crossws/internal/logger"
	"github.com/gxo-labs/crossws/internal/secrets"
	"github.com/gxo-labs/crossws/internal/tracing"
	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testKey = "lsv2_pt_test_key"

type capture struct {
	mu        sync.Mutex
	exporters map[string]*tracetest.InMemoryExporter
}

func (c *capture) factory(_ context.Context, cfg tracing.ExporterConfig) (sdktrace.SpanExporter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := tracetest.NewInMemoryExporter()
	c.exporters[cfg.Headers[backend.HeaderProject]] = exp
	return exp, nil
}

type fixture struct {
	rt      *agent.Runtime
	capture *capture
	logs    *bytes.Buffer
}

func newFixture(t *testing.T, env secrets.MapProvider) *fixture {
	t.Helper()
	c := &capture{exporters: make(map[string]*tracetest.InMemoryExporter)}
	logs := &bytes.Buffer{}
	rt, err := agent.Bootstrap(context.Background(), config.Default(), env,
		logger.NewLogger("warn", "text", logs), backend.WithExporterFactory(c.factory))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Shutdown(context.Background()) })
	return &fixture{rt: rt, capture: c, logs: logs}
}

// spans flushes every destination and returns the spans per project.
func (f *fixture) spans(t *testing.T) map[string]tracetest.SpanStubs {
	t.Helper()
	for _, b := range f.rt.Registry.Bindings() {
		require.NoError(t, b.Destination.(*tracing.Provider).ForceFlush(context.Background()))
	}
	out := make(map[string]tracetest.SpanStubs)
	for project, exp := range f.capture.exporters {
		out[project] = exp.GetSpans()
	}
	return out
}

func attr(s tracetest.SpanStub, key attribute.Key) string {
	for _, kv := range s.Attributes {
		if kv.Key == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

var routingCases = []struct {
	name     string
	rc       *crossws.RunnableConfig
	response string
	project  string
}{
	{name: "Workspace A", rc: crossws.WithWorkspaceID("workspace_a"), response: "Hello from Workspace A! Processing with production settings.", project: "production-traces"},
	{name: "Workspace B", rc: crossws.WithWorkspaceID("workspace_b"), response: "Hello from Workspace B! Processing with development settings.", project: "development-traces"},
	{name: "No Config", rc: nil, response: "Hello from Workspace A! Processing with production settings.", project: "production-traces"},
	{name: "Empty Configurable", rc: &crossws.RunnableConfig{Configurable: map[string]interface{}{}}, response: "Hello from Workspace A! Processing with production settings.", project: "production-traces"},
	{name: "Unknown", rc: crossws.WithWorkspaceID("workspace_c"), response: "Hello from the default workspace!", project: "default-traces"},
	{name: "Wrong Case", rc: crossws.WithWorkspaceID("WORKSPACE_B"), response: "Hello from the default workspace!", project: "default-traces"},
	{name: "Explicit Empty", rc: crossws.WithWorkspaceID(""), response: "Hello from the default workspace!", project: "default-traces"},
}

func TestRunWithTracing_Routing(t *testing.T) {
	for _, tc := range routingCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, secrets.MapProvider{"LS_CROSS_WORKSPACE_KEY": testKey})

			res, err := f.rt.Agent.RunWithTracing(context.Background(), tc.rc)
			require.NoError(t, err)
			assert.Equal(t, tc.response, res.Response)

			for project, spans := range f.spans(t) {
				if project == tc.project {
					assert.Len(t, spans, 2, "run and step span in %s", project)
				} else {
					assert.Empty(t, spans, "no spans expected in %s", project)
				}
			}
		})
	}
}

func TestGraphFactory_Routing(t *testing.T) {
	for _, tc := range routingCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, secrets.MapProvider{"LANGSMITH_API_KEY": testKey})

			graph := f.rt.Agent.Graph(tc.rc)
			out, err := graph.Invoke(context.Background(), map[string]interface{}{}, tc.rc)
			require.NoError(t, err)
			assert.Equal(t, tc.response, crossws.ResultFromState(out).Response)

			spans := f.spans(t)
			require.Len(t, spans[tc.project], 2)
			for _, s := range spans[tc.project] {
				assert.Equal(t, tc.project, attr(s, tracing.AttrProject))
				assert.False(t, s.Parent.IsValid() && s.Name == agent.GraphName)
			}
		})
	}
}

func countTraceListeners(c *engine.Compiled) int {
	n := 0
	for _, l := range c.Listeners() {
		if _, ok := l.(*tracing.Listener); ok {
			n++
		}
	}
	return n
}

func TestGraphFactory_ExactlyOneTraceListener(t *testing.T) {
	f := newFixture(t, secrets.MapProvider{"LS_CROSS_WORKSPACE_KEY": testKey})
	base := f.rt.Agent.BaseGraph()
	baseCount := len(base.Listeners())

	for _, id := range []string{"workspace_a", "workspace_b", "other"} {
		compiled, ok := f.rt.Agent.Graph(crossws.WithWorkspaceID(id)).(*engine.Compiled)
		require.True(t, ok)
		assert.Equal(t, agent.GraphName, compiled.Name())
		assert.Equal(t, 1, countTraceListeners(compiled), "workspace %s", id)
	}

	assert.Zero(t, countTraceListeners(base), "the base graph carries no trace listener")
	assert.Equal(t, baseCount, len(base.Listeners()), "building a deployment graph leaves the base untouched")
}

func TestRun_NoCredentialWarnsAndSucceeds(t *testing.T) {
	f := newFixture(t, secrets.MapProvider{})

	res, err := f.rt.Agent.RunWithTracing(context.Background(), crossws.WithWorkspaceID("workspace_b"))
	require.NoError(t, err)
	assert.Equal(t, "Hello from Workspace B! Processing with development settings.", res.Response)

	out, err := f.rt.Agent.Graph(nil).Invoke(context.Background(), map[string]interface{}{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello from Workspace A! Processing with production settings.", out[crossws.StateKeyResponse])

	assert.Contains(t, f.logs.String(), "LangSmith API key not set (LS_CROSS_WORKSPACE_KEY or LANGSMITH_API_KEY). Traces will not be uploaded.")
	assert.Empty(t, f.capture.exporters, "no exporter is created without a credential")
}

func TestNonStringWorkspaceIDIsRejectedByBothStyles(t *testing.T) {
	f := newFixture(t, secrets.MapProvider{"LS_CROSS_WORKSPACE_KEY": testKey})
	rc := &crossws.RunnableConfig{Configurable: map[string]interface{}{"workspace_id": 7}}

	_, err := f.rt.Agent.RunWithTracing(context.Background(), rc)
	require.Error(t, err)
	assert.True(t, crosswserrors.IsValidationError(err), "per-call style: %v", err)

	_, err = f.rt.Agent.Graph(rc).Invoke(context.Background(), map[string]interface{}{}, rc)
	require.Error(t, err)
	assert.True(t, crosswserrors.IsValidationError(err), "deployment style: %v", err)

	assert.Equal(t, 7, rc.Configurable["workspace_id"], "caller configuration is left untouched")
	for project, stubs := range f.spans(t) {
		assert.Empty(t, stubs, "a rejected invocation exports no spans to %s", project)
	}
}

func TestRunWithTracing_FillsMissingWorkspaceID(t *testing.T) {
	f := newFixture(t, secrets.MapProvider{"LS_CROSS_WORKSPACE_KEY": testKey})

	for _, rc := range []*crossws.RunnableConfig{
		nil,
		{Configurable: map[string]interface{}{"workspace_id": nil}},
	} {
		res, err := f.rt.Agent.RunWithTracing(context.Background(), rc)
		require.NoError(t, err)
		assert.Equal(t, "Hello from Workspace A! Processing with production settings.", res.Response)
	}
	require.Len(t, f.spans(t)["production-traces"], 4)
}

func TestRoute_DeterministicAndCounted(t *testing.T) {
	f := newFixture(t, secrets.MapProvider{"LS_CROSS_WORKSPACE_KEY": testKey})

	for i := 0; i < 5; i++ {
		id, b := f.rt.Agent.Route(crossws.WithWorkspaceID("workspace_b"))
		assert.Equal(t, "workspace_b", id.Raw)
		assert.Equal(t, "development-traces", b.ProjectName)
		assert.Equal(t, config.DefaultWorkspaceBTenantID, b.Client.TenantID())
	}
	_, b := f.rt.Agent.Route(crossws.WithWorkspaceID("nope"))
	assert.Equal(t, config.DefaultWorkspaceATenantID, b.Client.TenantID())

	count, err := testutil.GatherAndCount(f.rt.Metrics.Registry(), "crossws_workspace_routes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRunWithTracing_ConcurrentIsolation(t *testing.T) {
	f := newFixture(t, secrets.MapProvider{"LS_CROSS_WORKSPACE_KEY": testKey})
	const perWorkspace = 25

	var wg sync.WaitGroup
	errs := make(chan error, 2*perWorkspace)
	for i := 0; i < 2*perWorkspace; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "workspace_a"
			want := "Hello from Workspace A! Processing with production settings."
			if i%2 == 1 {
				id = "workspace_b"
				want = "Hello from Workspace B! Processing with development settings."
			}
			res, err := f.rt.Agent.RunWithTracing(context.Background(), crossws.WithWorkspaceID(id))
			if err != nil {
				errs <- err
				return
			}
			if res.Response != want {
				errs <- fmt.Errorf("invocation %d for %s got %q", i, id, res.Response)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	spans := f.spans(t)
	check := func(project, workspaceID, tenant string) {
		require.Len(t, spans[project], 2*perWorkspace, project)
		roots := 0
		for _, s := range spans[project] {
			assert.Equal(t, workspaceID, attr(s, "crossws.metadata.workspace_id"))
			assert.Equal(t, tenant, attr(s, tracing.AttrTenantID))
			if !s.Parent.IsValid() {
				roots++
			}
		}
		assert.Equal(t, perWorkspace, roots, "one root per invocation in %s", project)
	}
	check("production-traces", "workspace_a", config.DefaultWorkspaceATenantID)
	check("development-traces", "workspace_b", config.DefaultWorkspaceBTenantID)
	assert.Empty(t, spans["default-traces"])
}

func TestRunWithTracing_SecretsAreRedacted(t *testing.T) {
	f := newFixture(t, secrets.MapProvider{"LS_CROSS_WORKSPACE_KEY": testKey})
	rc := crossws.WithWorkspaceID("workspace_a")
	rc.Configurable["note"] = "key is " + testKey

	_, err := f.rt.Agent.RunWithTracing(context.Background(), rc)
	require.NoError(t, err)

	for _, s := range f.spans(t)["production-traces"] {
		for _, kv := range s.Attributes {
			assert.NotContains(t, kv.Value.Emit(), testKey, "attribute %s leaks the credential", kv.Key)
		}
	}
}

func TestNew_RequiresRegistry(t *testing.T) {
	_, err := agent.New(nil)
	assert.Error(t, err)
}
