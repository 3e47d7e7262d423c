package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/state"
)

// Reserved node names marking where execution enters and leaves a graph.
const (
	Start = "__start__"
	End   = "__end__"
)

// StepFunc is the body of a node. It reads the invocation state and returns
// a partial update that is merged into the state before the next node runs.
// A nil update leaves the state unchanged.
type StepFunc func(ctx context.Context, reader state.StateReader, rc *crossws.RunnableConfig) (map[string]interface{}, error)

// ConfigSchema validates the configurable map of an invocation and fills in
// defaults for missing values.
type ConfigSchema interface {
	ApplyDefaults(configurable map[string]interface{}) map[string]interface{}
	Validate(configurable map[string]interface{}) error
}

type edge struct {
	from string
	to   string
}

// Graph collects nodes and edges. Builder errors are reported by Compile.
// A Graph is not safe for concurrent modification.
type Graph struct {
	name   string
	nodes  map[string]StepFunc
	order  []string
	edges  []edge
	schema ConfigSchema
	errs   []string
}

// NewGraph starts an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{name: name, nodes: make(map[string]StepFunc)}
}

// AddNode adds a named step.
func (g *Graph) AddNode(name string, fn StepFunc) *Graph {
	switch {
	case strings.TrimSpace(name) == "":
		g.errs = append(g.errs, "node name cannot be empty")
	case name == Start || name == End:
		g.errs = append(g.errs, fmt.Sprintf("node name '%s' is reserved", name))
	case fn == nil:
		g.errs = append(g.errs, fmt.Sprintf("node '%s' has no step function", name))
	default:
		if _, exists := g.nodes[name]; exists {
			g.errs = append(g.errs, fmt.Sprintf("duplicate node name '%s'", name))
			return g
		}
		g.nodes[name] = fn
		g.order = append(g.order, name)
	}
	return g
}

// AddEdge connects two nodes. Use Start and End for the entry and exit.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges = append(g.edges, edge{from: from, to: to})
	return g
}

// WithConfigSchema attaches the schema of the invocation's configurable map.
func (g *Graph) WithConfigSchema(schema ConfigSchema) *Graph {
	g.schema = schema
	return g
}

// Compile validates the graph and returns an immutable, invocable form.
// Only linear graphs are accepted: one edge leaves Start, every node has
// exactly one outgoing edge, there are no cycles, every node is reachable
// and the chain ends at End. Violations are reported as a ConfigError.
func (g *Graph) Compile(opts ...CompileOption) (*Compiled, error) {
	path, err := g.validate()
	if err != nil {
		return nil, err
	}

	c := &Compiled{
		name:   g.name,
		schema: g.schema,
	}
	for _, name := range path {
		c.steps = append(c.steps, step{name: name, fn: g.nodes[name]})
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, crosswserrors.NewConfigError(fmt.Sprintf("failed to apply compile option: %v", err), err)
		}
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks the structure and returns node names in execution order.
func (g *Graph) validate() ([]string, error) {
	problems := append([]string(nil), g.errs...)
	if strings.TrimSpace(g.name) == "" {
		problems = append(problems, "graph name cannot be empty")
	}
	if len(g.order) == 0 {
		problems = append(problems, "graph has no nodes")
	}

	next := make(map[string][]string)
	for _, e := range g.edges {
		if e.from == End {
			problems = append(problems, fmt.Sprintf("edge '%s' -> '%s' leaves the end marker", e.from, e.to))
			continue
		}
		if e.to == Start {
			problems = append(problems, fmt.Sprintf("edge '%s' -> '%s' enters the start marker", e.from, e.to))
			continue
		}
		if _, ok := g.nodes[e.from]; !ok && e.from != Start {
			problems = append(problems, fmt.Sprintf("edge source '%s' is not a node", e.from))
			continue
		}
		if _, ok := g.nodes[e.to]; !ok && e.to != End {
			problems = append(problems, fmt.Sprintf("edge target '%s' is not a node", e.to))
			continue
		}
		next[e.from] = append(next[e.from], e.to)
	}

	if n := len(next[Start]); n != 1 {
		problems = append(problems, fmt.Sprintf("expected exactly one edge from '%s', found %d", Start, n))
	}
	for _, name := range g.order {
		if n := len(next[name]); n != 1 {
			problems = append(problems, fmt.Sprintf("node '%s' must have exactly one outgoing edge, found %d", name, n))
		}
	}
	if len(problems) > 0 {
		return nil, invalidGraph(g.name, problems)
	}

	if err := detectCycle(next); err != nil {
		return nil, err
	}

	var path []string
	for cur := next[Start][0]; cur != End; cur = next[cur][0] {
		path = append(path, cur)
	}
	if len(path) != len(g.order) {
		reached := make(map[string]bool, len(path))
		for _, name := range path {
			reached[name] = true
		}
		var unreachable []string
		for _, name := range g.order {
			if !reached[name] {
				unreachable = append(unreachable, name)
			}
		}
		sort.Strings(unreachable)
		return nil, invalidGraph(g.name, []string{fmt.Sprintf("nodes not reachable from '%s': %s", Start, strings.Join(unreachable, ", "))})
	}
	return path, nil
}

func invalidGraph(name string, problems []string) error {
	return crosswserrors.NewConfigError(fmt.Sprintf("invalid graph '%s':\n  - %s", name, strings.Join(problems, "\n  - ")), nil)
}

// detectCycle runs a depth-first search over the adjacency list.
func detectCycle(next map[string][]string) error {
	path := make(map[string]bool)
	visited := make(map[string]bool)

	ids := make([]string, 0, len(next))
	for id := range next {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if !visited[id] {
			if cycleAt := hasCycleDFS(next, id, path, visited); cycleAt != "" {
				return crosswserrors.NewConfigError(fmt.Sprintf("cycle detected at node '%s'", cycleAt), nil)
			}
		}
	}
	return nil
}

func hasCycleDFS(next map[string][]string, nodeID string, path, visited map[string]bool) string {
	path[nodeID] = true
	visited[nodeID] = true

	for _, dependentID := range next[nodeID] {
		if path[dependentID] {
			return dependentID
		}
		if !visited[dependentID] {
			if at := hasCycleDFS(next, dependentID, path, visited); at != "" {
				return at
			}
		}
	}

	path[nodeID] = false
	return ""
}
