package engine_test

import (
	"context"
	"testing"

	"github.com/gxo-labs/crossws/internal/engine"
	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopStep(context.Context, state.StateReader, *crossws.RunnableConfig) (map[string]interface{}, error) {
	return nil, nil
}

func TestCompile_Linear(t *testing.T) {
	compiled, err := engine.NewGraph("pipeline").
		AddNode("b", noopStep).
		AddNode("a", noopStep).
		AddEdge(engine.Start, "a").
		AddEdge("a", "b").
		AddEdge("b", engine.End).
		Compile()
	require.NoError(t, err)
	assert.Equal(t, "pipeline", compiled.Name())
	assert.Equal(t, []string{"a", "b"}, compiled.Steps(), "execution order follows edges, not insertion")
}

func TestCompile_Invalid(t *testing.T) {
	testCases := []struct {
		name     string
		build    func() *engine.Graph
		contains string
	}{
		{
			name: "Empty Graph Name",
			build: func() *engine.Graph {
				return engine.NewGraph("").AddNode("a", noopStep).AddEdge(engine.Start, "a").AddEdge("a", engine.End)
			},
			contains: "graph name cannot be empty",
		},
		{
			name:     "No Nodes",
			build:    func() *engine.Graph { return engine.NewGraph("g").AddEdge(engine.Start, engine.End) },
			contains: "graph has no nodes",
		},
		{
			name:     "Empty Node Name",
			build:    func() *engine.Graph { return engine.NewGraph("g").AddNode(" ", noopStep) },
			contains: "node name cannot be empty",
		},
		{
			name:     "Reserved Name",
			build:    func() *engine.Graph { return engine.NewGraph("g").AddNode(engine.End, noopStep) },
			contains: "is reserved",
		},
		{
			name:     "Nil Step",
			build:    func() *engine.Graph { return engine.NewGraph("g").AddNode("a", nil) },
			contains: "has no step function",
		},
		{
			name: "Duplicate Node",
			build: func() *engine.Graph {
				return engine.NewGraph("g").AddNode("a", noopStep).AddNode("a", noopStep).AddEdge(engine.Start, "a").AddEdge("a", engine.End)
			},
			contains: "duplicate node name 'a'",
		},
		{
			name: "Unknown Target",
			build: func() *engine.Graph {
				return engine.NewGraph("g").AddNode("a", noopStep).AddEdge(engine.Start, "a").AddEdge("a", "z")
			},
			contains: "edge target 'z' is not a node",
		},
		{
			name: "Unknown Source",
			build: func() *engine.Graph {
				return engine.NewGraph("g").AddNode("a", noopStep).AddEdge(engine.Start, "a").AddEdge("a", engine.End).AddEdge("z", "a")
			},
			contains: "edge source 'z' is not a node",
		},
		{
			name:     "No Entry",
			build:    func() *engine.Graph { return engine.NewGraph("g").AddNode("a", noopStep).AddEdge("a", engine.End) },
			contains: "expected exactly one edge from '__start__', found 0",
		},
		{
			name: "Branching",
			build: func() *engine.Graph {
				return engine.NewGraph("g").AddNode("a", noopStep).AddNode("b", noopStep).
					AddEdge(engine.Start, "a").AddEdge("a", "b").AddEdge("a", engine.End).AddEdge("b", engine.End)
			},
			contains: "node 'a' must have exactly one outgoing edge, found 2",
		},
		{
			name: "Dead End",
			build: func() *engine.Graph {
				return engine.NewGraph("g").AddNode("a", noopStep).AddEdge(engine.Start, "a")
			},
			contains: "node 'a' must have exactly one outgoing edge, found 0",
		},
		{
			name: "Edge Into Start",
			build: func() *engine.Graph {
				return engine.NewGraph("g").AddNode("a", noopStep).AddEdge(engine.Start, "a").AddEdge("a", engine.Start)
			},
			contains: "enters the start marker",
		},
		{
			name: "Cycle",
			build: func() *engine.Graph {
				return engine.NewGraph("g").AddNode("a", noopStep).AddNode("b", noopStep).
					AddEdge(engine.Start, "a").AddEdge("a", "b").AddEdge("b", "a")
			},
			contains: "cycle detected",
		},
		{
			name: "Unreachable",
			build: func() *engine.Graph {
				return engine.NewGraph("g").AddNode("a", noopStep).AddNode("orphan", noopStep).
					AddEdge(engine.Start, "a").AddEdge("a", engine.End).AddEdge("orphan", engine.End)
			},
			contains: "nodes not reachable from '__start__': orphan",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.build().Compile()
			require.Error(t, err)
			assert.True(t, crosswserrors.IsConfigError(err), "expected ConfigError, got %T", err)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestCompile_RejectsNilOptions(t *testing.T) {
	g := engine.NewGraph("g").AddNode("a", noopStep).AddEdge(engine.Start, "a").AddEdge("a", engine.End)

	_, err := g.Compile(engine.WithLogger(nil))
	assert.True(t, crosswserrors.IsConfigError(err))
	_, err = g.Compile(engine.WithMetricsRegistryProvider(nil))
	assert.True(t, crosswserrors.IsConfigError(err))
	_, err = g.Compile(engine.WithStaticListeners(nil))
	assert.True(t, crosswserrors.IsConfigError(err))
}
