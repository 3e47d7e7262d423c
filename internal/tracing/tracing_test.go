package tracing_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/gxo-labs/crossws/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestRedactSecretsInString(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "Key Value", input: "api_key=abc123", expect: "api_key=[REDACTED]"},
		{name: "Header Style", input: "X-Api-Key: abc123", expect: "X-Api-Key: [REDACTED]"},
		{name: "Multi Line", input: "ok line\ntoken = t0k", expect: "ok line\ntoken = [REDACTED]"},
		{name: "Clean", input: "connection refused", expect: "connection refused"},
		{name: "Keyword At End", input: "missing token", expect: "missing token"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tracing.RedactSecretsInString(tc.input, tracing.DefaultRedactKeywords))
		})
	}
	assert.Equal(t, "api_key=abc", tracing.RedactSecretsInString("api_key=abc", nil))
}

func TestRedactAttributes(t *testing.T) {
	attrs := []attribute.KeyValue{
		attribute.String("crossws.metadata.workspace_id", "workspace_a"),
		attribute.String("crossws.metadata.API_KEY", "abc"),
	}
	out := tracing.RedactAttributes(attrs, tracing.DefaultRedactKeywords)
	require.Len(t, out, 2)
	assert.Equal(t, "workspace_a", out[0].Value.AsString())
	assert.Equal(t, "[REDACTED]", out[1].Value.AsString())
	assert.Equal(t, "abc", attrs[1].Value.AsString(), "input must not be modified")
}

func TestParseHeaders(t *testing.T) {
	assert.Empty(t, tracing.ParseHeaders(""))
	assert.Equal(t,
		map[string]string{"a": "1", "b": "x=y"},
		tracing.ParseHeaders(" a = 1 ,b=x=y,=skipped,novalue"),
	)
}

func TestNewExporter(t *testing.T) {
	ctx := context.Background()

	t.Run("HTTP", func(t *testing.T) {
		exp, err := tracing.NewExporter(ctx, tracing.ExporterConfig{
			Endpoint: "https://api.smith.langchain.com/otel/v1/traces",
			Headers:  map[string]string{"x-api-key": "k"},
		})
		require.NoError(t, err)
		require.NotNil(t, exp)
		assert.NoError(t, exp.Shutdown(ctx))
	})

	t.Run("HTTP Missing Host", func(t *testing.T) {
		_, err := tracing.NewExporter(ctx, tracing.ExporterConfig{Protocol: "http", Endpoint: "not a url"})
		assert.Error(t, err)
	})

	t.Run("GRPC", func(t *testing.T) {
		exp, err := tracing.NewExporter(ctx, tracing.ExporterConfig{Protocol: "grpc", Endpoint: "http://localhost:4317", Compression: "gzip"})
		require.NoError(t, err)
		assert.NoError(t, exp.Shutdown(ctx))
	})

	t.Run("GRPC Empty Endpoint", func(t *testing.T) {
		_, err := tracing.NewExporter(ctx, tracing.ExporterConfig{Protocol: "grpc"})
		assert.Error(t, err)
	})

	t.Run("Stdout", func(t *testing.T) {
		var buf bytes.Buffer
		exp, err := tracing.NewExporter(ctx, tracing.ExporterConfig{Protocol: "stdout", Writer: &buf})
		require.NoError(t, err)

		provider := tracing.NewProvider(exp, tracing.NewResource(ctx, "crossws-test"))
		_, span := provider.GetTracer("test").Start(ctx, "hello")
		span.End()
		require.NoError(t, provider.Shutdown(ctx))
		assert.Contains(t, buf.String(), `"Name": "hello"`)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := tracing.NewExporter(ctx, tracing.ExporterConfig{Protocol: "zipkin"})
		assert.Error(t, err)
	})
}

func TestProvider_NoOp(t *testing.T) {
	p := tracing.NewNoOpProvider()
	assert.True(t, p.IsEffectivelyNoOp())
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
	_, span := p.GetTracer("x").Start(context.Background(), "dropped")
	assert.False(t, span.IsRecording())
}
