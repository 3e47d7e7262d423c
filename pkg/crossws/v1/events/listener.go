package events

import (
	"context"
	"time"
)

// EventType represents the type of an execution event.
type EventType string

// Standard execution event types.
const (
	RunStart  EventType = "RunStart"  // Graph invocation begins
	RunEnd    EventType = "RunEnd"    // Graph invocation returned a state
	RunError  EventType = "RunError"  // Graph invocation failed
	StepStart EventType = "StepStart" // Before a step function is called
	StepEnd   EventType = "StepEnd"   // Step returned its update
	StepError EventType = "StepError" // Step returned an error
)

// Event describes one occurrence within a graph invocation.
type Event struct {
	// Type categorizes the event.
	Type EventType `json:"type"`
	// Timestamp marks when the event occurred.
	Timestamp time.Time `json:"timestamp"`
	// RunID identifies the run (graph invocation or step) the event belongs to.
	RunID string `json:"run_id"`
	// ParentRunID is set on step events and names the enclosing graph run.
	ParentRunID string `json:"parent_run_id,omitempty"`
	// GraphName is the name the graph was built with.
	GraphName string `json:"graph_name"`
	// StepName identifies the step for Step* events.
	StepName string `json:"step_name,omitempty"`
	// Inputs is a snapshot of the state handed to the run or step.
	Inputs map[string]interface{} `json:"inputs,omitempty"`
	// Outputs is the step update (StepEnd) or the final state (RunEnd).
	Outputs map[string]interface{} `json:"outputs,omitempty"`
	// Metadata carries the runtime configuration values of the invocation.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	// Error is the error message for *Error events.
	Error string `json:"error,omitempty"`
	// Duration is set on End and Error events.
	Duration time.Duration `json:"duration,omitempty"`
}

// Listener receives execution events of a graph invocation.
//
// Emit is called synchronously by the engine. The returned context is the one
// the engine uses for work nested under the event: the context returned for
// RunStart is the parent of every StepStart, and the context returned for a
// StepStart is handed to the step function and to its StepEnd/StepError.
// Listeners that do not track nesting return ctx unchanged. Emit must not
// block on remote I/O.
type Listener interface {
	Emit(ctx context.Context, event Event) context.Context
}

// ListenerFunc adapts an ordinary function to the Listener interface.
type ListenerFunc func(ctx context.Context, event Event) context.Context

// Emit calls f(ctx, event).
func (f ListenerFunc) Emit(ctx context.Context, event Event) context.Context {
	return f(ctx, event)
}
