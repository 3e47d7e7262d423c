package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/gxo-labs/crossws/internal/logger"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var records []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var rec map[string]interface{}
		require.NoError(t, dec.Decode(&rec))
		records = append(records, rec)
	}
	return records
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("nonsense"))
}

func TestLogger_LevelFilteringAndUppercaseLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger("warn", "json", &buf)

	log.Infof("dropped %d", 1)
	log.Warnf("kept %s", "warning")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "WARN", records[0]["level"])
	assert.Equal(t, "kept warning", records[0]["msg"])
	assert.False(t, log.IsEnabled(slog.LevelInfo))
}

func TestLogger_ErrorfStepExecutionError(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger("info", "json", &buf)

	err := crosswserrors.NewStepExecutionError("agent", "greeting", errors.New("boom"))
	log.Errorf("invocation failed: %v", err)

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "StepExecutionError", records[0]["error_type"])
	assert.Equal(t, "agent", records[0]["graph_name"])
	assert.Equal(t, "greeting", records[0]["step_name"])
	assert.Equal(t, "boom", records[0]["error"])
}

func TestLogger_WithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger("info", "json", &buf).With("workspace_id", "workspace_b")

	log.Infof("routed")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "workspace_b", records[0]["workspace_id"])
}

func TestOtelHandler_InjectsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger("info", "json", &buf)

	traceID, _ := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	spanID, _ := trace.SpanIDFromHex("0102030405060708")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.LogCtx(ctx, slog.LevelInfo, "inside span")
	log.Log(slog.LevelInfo, "outside span")

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, traceID.String(), records[0]["trace_id"])
	assert.Equal(t, spanID.String(), records[0]["span_id"])
	assert.NotContains(t, records[1], "trace_id")
}
