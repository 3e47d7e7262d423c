package events

import (
	"context"

	"github.com/gxo-labs/crossws/pkg/crossws/v1/events"
	crosswslog "github.com/gxo-labs/crossws/pkg/crossws/v1/log"
)

// ChannelListener forwards events to a buffered channel so a consumer can
// process them outside the engine's goroutine. Emission never blocks: when
// the buffer is full the event is dropped and a warning is logged.
type ChannelListener struct {
	channel chan events.Event
	log     crosswslog.Logger
}

// NewChannelListener creates a ChannelListener with the given buffer size
// (100 when non-positive). Panics if log is nil.
func NewChannelListener(bufferSize int, log crosswslog.Logger) *ChannelListener {
	const defaultBufferSize = 100
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if log == nil {
		panic("ChannelListener requires a non-nil logger")
	}
	l := &ChannelListener{
		channel: make(chan events.Event, bufferSize),
		log:     log.With("component", "ChannelListener"),
	}
	l.log.Debugf("ChannelListener initialized with buffer size %d", bufferSize)
	return l
}

// Emit sends event to the channel without blocking and returns ctx unchanged.
func (c *ChannelListener) Emit(ctx context.Context, event events.Event) context.Context {
	select {
	case c.channel <- event:
	default:
		c.log.Warnf("Event channel buffer full, dropping event type '%s'", event.Type)
	}
	return ctx
}

// Events returns the receive side of the channel.
func (c *ChannelListener) Events() <-chan events.Event {
	return c.channel
}

// Close closes the channel. No Emit may follow.
func (c *ChannelListener) Close() {
	close(c.channel)
}

var _ events.Listener = (*ChannelListener)(nil)
