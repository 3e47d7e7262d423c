package v1

import (
	"context"
	"fmt"
	"maps"

	"github.com/gxo-labs/crossws/pkg/crossws/v1/events"
)

// ConfigKeyWorkspaceID is the configurable key naming the target workspace.
const ConfigKeyWorkspaceID = "workspace_id"

// StateKeyResponse is the single graph state field the greeting step writes.
const StateKeyResponse = "response"

// Runnable is a compiled graph ready to be invoked. Implementations are safe
// for concurrent use; every Invoke call owns its own state.
type Runnable interface {
	// Invoke runs the graph once with input as the initial state and returns
	// the final state. rc may be nil.
	Invoke(ctx context.Context, input map[string]interface{}, rc *RunnableConfig) (map[string]interface{}, error)
}

// RunnableConfig carries per-invocation options.
type RunnableConfig struct {
	// Configurable holds runtime configuration values such as workspace_id.
	// It is validated against the graph's configuration schema, if any.
	Configurable map[string]interface{} `json:"configurable,omitempty"`
	// Listeners receive the execution events of this invocation only. They
	// run after any listeners attached statically to the graph.
	Listeners []events.Listener `json:"-"`
}

// Configuration is the typed form of the runtime configuration.
type Configuration struct {
	WorkspaceID string `json:"workspace_id" yaml:"workspace_id"`
}

// RunnableConfig converts c into a RunnableConfig whose configurable map
// carries the workspace identifier.
func (c Configuration) RunnableConfig() *RunnableConfig {
	return &RunnableConfig{Configurable: map[string]interface{}{ConfigKeyWorkspaceID: c.WorkspaceID}}
}

// WithWorkspaceID is shorthand for Configuration{WorkspaceID: id}.RunnableConfig().
func WithWorkspaceID(id string) *RunnableConfig {
	return Configuration{WorkspaceID: id}.RunnableConfig()
}

// Clone returns a copy of rc with its own Configurable map and Listeners
// slice. A nil rc yields an empty config.
func (rc *RunnableConfig) Clone() *RunnableConfig {
	if rc == nil {
		return &RunnableConfig{}
	}
	return &RunnableConfig{
		Configurable: maps.Clone(rc.Configurable),
		Listeners:    append([]events.Listener(nil), rc.Listeners...),
	}
}

// Result is the typed view of the greeting graph's final state.
type Result struct {
	Response string `json:"response"`
}

// ResultFromState extracts a Result from a final graph state.
func ResultFromState(state map[string]interface{}) Result {
	v, ok := state[StateKeyResponse]
	if !ok || v == nil {
		return Result{}
	}
	if s, ok := v.(string); ok {
		return Result{Response: s}
	}
	return Result{Response: fmt.Sprint(v)}
}
