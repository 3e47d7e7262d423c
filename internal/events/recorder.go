package events

import (
	"context"
	"sync"

	"github.com/gxo-labs/crossws/pkg/crossws/v1/events"
)

// Recorder keeps every event it receives, in order. It is safe for
// concurrent use, but is normally attached to a single invocation.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends event and returns ctx unchanged.
func (r *Recorder) Emit(ctx context.Context, event events.Event) context.Context {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return ctx
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]events.EventType, len(r.events))
	for i, ev := range r.events {
		types[i] = ev.Type
	}
	return types
}

var _ events.Listener = (*Recorder)(nil)
