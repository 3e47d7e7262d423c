package tracing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gxo-labs/crossws/internal/secrets"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/events"
	crosswstracing "github.com/gxo-labs/crossws/pkg/crossws/v1/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys written by Listener.
const (
	AttrRunID       = attribute.Key("crossws.run_id")
	AttrParentRunID = attribute.Key("crossws.parent_run_id")
	AttrGraph       = attribute.Key("crossws.graph")
	AttrStep        = attribute.Key("crossws.step")
	AttrProject     = attribute.Key("crossws.project")
	AttrTenantID    = attribute.Key("crossws.tenant_id")
	AttrInputs      = attribute.Key("crossws.inputs")
	AttrOutputs     = attribute.Key("crossws.outputs")
	AttrSpanKind    = attribute.Key("langsmith.span.kind")

	metadataPrefix = "crossws.metadata."
)

// Listener turns the execution events of an invocation into spans on one
// destination. A run becomes a root span and each step a child of it.
//
// A Listener keeps its spans in the context under a key private to the
// instance, so several listeners can observe the same invocation without
// one adopting another's span as parent. It holds no per-run state and is
// safe for concurrent invocations.
type Listener struct {
	tracer   trace.Tracer
	project  string
	tenantID string
	tracker  *secrets.SecretTracker
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

// WithTenantID records the backend tenant on every span.
func WithTenantID(tenantID string) ListenerOption {
	return func(l *Listener) { l.tenantID = tenantID }
}

// WithSecretTracker redacts tracked secret values from exported inputs,
// outputs and error messages.
func WithSecretTracker(tracker *secrets.SecretTracker) ListenerOption {
	return func(l *Listener) { l.tracker = tracker }
}

// NewListener creates a listener whose spans go to destination and are
// labeled with project.
func NewListener(destination crosswstracing.TracerProvider, project string, opts ...ListenerOption) *Listener {
	l := &Listener{
		project: project,
	}
	for _, opt := range opts {
		opt(l)
	}
	if destination == nil {
		destination = NewNoOpProvider()
	}
	l.tracer = destination.GetTracer(TracerName)
	return l
}

// Project returns the project name the listener labels spans with.
func (l *Listener) Project() string { return l.project }

type spanKey struct{ l *Listener }

func (l *Listener) spanFrom(ctx context.Context) trace.Span {
	span, _ := ctx.Value(spanKey{l}).(trace.Span)
	return span
}

// Emit implements events.Listener.
func (l *Listener) Emit(ctx context.Context, ev events.Event) context.Context {
	switch ev.Type {
	case events.RunStart:
		return l.start(ctx, nil, ev.GraphName, ev)
	case events.StepStart:
		return l.start(ctx, l.spanFrom(ctx), ev.StepName, ev)
	case events.RunEnd, events.StepEnd:
		if span := l.spanFrom(ctx); span != nil {
			if out := l.encode(ev.Outputs); out != "" {
				span.SetAttributes(AttrOutputs.String(out))
			}
			span.SetStatus(codes.Ok, "")
			span.End(trace.WithTimestamp(ev.Timestamp))
		}
	case events.RunError, events.StepError:
		if span := l.spanFrom(ctx); span != nil {
			msg := ev.Error
			if l.tracker != nil {
				msg = l.tracker.Redact(msg)
			}
			RecordErrorWithContext(span, errors.New(msg), DefaultRedactKeywords)
			span.End(trace.WithTimestamp(ev.Timestamp))
		}
	}
	return ctx
}

func (l *Listener) start(ctx context.Context, parent trace.Span, name string, ev events.Event) context.Context {
	opts := []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(l.attributes(ev)...),
	}
	if !ev.Timestamp.IsZero() {
		opts = append(opts, trace.WithTimestamp(ev.Timestamp))
	}
	if parent != nil {
		ctx = trace.ContextWithSpan(ctx, parent)
	} else {
		opts = append(opts, trace.WithNewRoot())
	}
	ctx, span := l.tracer.Start(ctx, name, opts...)
	return context.WithValue(ctx, spanKey{l}, span)
}

func (l *Listener) attributes(ev events.Event) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrRunID.String(ev.RunID),
		AttrGraph.String(ev.GraphName),
		AttrProject.String(l.project),
		AttrSpanKind.String("chain"),
	}
	if ev.ParentRunID != "" {
		attrs = append(attrs, AttrParentRunID.String(ev.ParentRunID))
	}
	if ev.StepName != "" {
		attrs = append(attrs, AttrStep.String(ev.StepName))
	}
	if l.tenantID != "" {
		attrs = append(attrs, AttrTenantID.String(l.tenantID))
	}
	if in := l.encode(ev.Inputs); in != "" {
		attrs = append(attrs, AttrInputs.String(in))
	}

	keys := make([]string, 0, len(ev.Metadata))
	for k := range ev.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	meta := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprint(ev.Metadata[k])
		if l.tracker != nil {
			v = l.tracker.Redact(v)
		}
		meta = append(meta, attribute.String(metadataPrefix+k, v))
	}
	return append(attrs, RedactAttributes(meta, DefaultRedactKeywords)...)
}

// encode renders values as JSON with tracked secrets removed. Empty and
// unencodable maps yield "".
func (l *Listener) encode(values map[string]interface{}) string {
	if len(values) == 0 {
		return ""
	}
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	if l.tracker != nil {
		return l.tracker.Redact(string(data))
	}
	return string(data)
}

var _ events.Listener = (*Listener)(nil)
