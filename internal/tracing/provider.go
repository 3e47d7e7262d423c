package tracing

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	crosswstracing "github.com/gxo-labs/crossws/pkg/crossws/v1/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/encoding/gzip"
)

// Supported exporter protocols.
const (
	ProtocolHTTP         = "http"
	ProtocolHTTPProtobuf = "http/protobuf"
	ProtocolGRPC         = "grpc"
	ProtocolStdout       = "stdout"
)

// defaultExportTimeout bounds a single export call when none is configured.
const defaultExportTimeout = 10 * time.Second

// ExporterConfig describes one span exporter.
type ExporterConfig struct {
	// Protocol is one of the Protocol* constants. Empty means ProtocolHTTP.
	Protocol string
	// Endpoint is the full traces URL for HTTP ("https://host/otel/v1/traces")
	// or host[:port] (optionally with a scheme) for gRPC. Unused for stdout.
	Endpoint string
	// Headers are sent with every export request.
	Headers map[string]string
	// Timeout bounds each export call.
	Timeout time.Duration
	// Insecure disables TLS. An "http://" endpoint implies it.
	Insecure bool
	// Compression is "gzip" or empty.
	Compression string
	// Writer receives stdout spans. Defaults to os.Stdout.
	Writer io.Writer
}

// NewExporter creates the span exporter described by cfg. Exporter creation
// does not dial; connection problems surface at export time.
func NewExporter(ctx context.Context, cfg ExporterConfig) (sdktrace.SpanExporter, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultExportTimeout
	}
	gzipEnabled := strings.EqualFold(cfg.Compression, "gzip")

	switch strings.ToLower(cfg.Protocol) {
	case "", ProtocolHTTP, ProtocolHTTPProtobuf:
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid OTLP HTTP endpoint '%s'", cfg.Endpoint)
		}
		path := u.Path
		if path == "" {
			path = "/v1/traces"
		}
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(u.Host),
			otlptracehttp.WithURLPath(path),
			otlptracehttp.WithHeaders(cfg.Headers),
			otlptracehttp.WithTimeout(timeout),
		}
		if cfg.Insecure || u.Scheme == "http" {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if gzipEnabled {
			opts = append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
		}
		return otlptracehttp.New(ctx, opts...)

	case ProtocolGRPC:
		endpoint := cfg.Endpoint
		insecure := cfg.Insecure
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
			if u.Scheme == "http" {
				insecure = true
			}
		}
		if endpoint == "" {
			return nil, fmt.Errorf("OTLP gRPC endpoint is empty")
		}
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithHeaders(cfg.Headers),
			otlptracegrpc.WithTimeout(timeout),
		}
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
		}
		if gzipEnabled {
			opts = append(opts, otlptracegrpc.WithCompressor(gzip.Name))
		}
		return otlptracegrpc.New(ctx, opts...)

	case ProtocolStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())

	default:
		return nil, fmt.Errorf("unsupported trace exporter protocol: %s", cfg.Protocol)
	}
}

// NewResource describes this process to the trace backend.
func NewResource(ctx context.Context, serviceName string, attrs ...attribute.KeyValue) *resource.Resource {
	kvs := []attribute.KeyValue{semconv.ServiceNameKey.String(serviceName)}
	kvs = append(kvs, attrs...)
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(kvs...),
		resource.WithProcess(), resource.WithOS(), resource.WithHost(),
	)
	if err != nil {
		// Partial detection still yields a usable resource.
		if res != nil {
			return res
		}
		return resource.Default()
	}
	return res
}

// Provider is a trace destination backed either by the OpenTelemetry SDK
// with a batch span processor or by the no-op implementation.
type Provider struct {
	provider    trace.TracerProvider
	sdkProvider *sdktrace.TracerProvider
}

// NewNoOpProvider returns a destination that drops every span.
func NewNoOpProvider() *Provider {
	return &Provider{provider: noop.NewTracerProvider()}
}

// NewProvider returns a destination that batches spans and hands them to
// exporter asynchronously. res may be nil.
func NewProvider(exporter sdktrace.SpanExporter, res *resource.Resource, opts ...sdktrace.TracerProviderOption) *Provider {
	all := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	}
	if res != nil {
		all = append(all, sdktrace.WithResource(res))
	}
	all = append(all, opts...)
	sdkTP := sdktrace.NewTracerProvider(all...)
	return &Provider{provider: sdkTP, sdkProvider: sdkTP}
}

// GetTracer returns a named tracer from the destination.
func (p *Provider) GetTracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p == nil || p.provider == nil {
		return noop.NewTracerProvider().Tracer(name, opts...)
	}
	return p.provider.Tracer(name, opts...)
}

// ForceFlush exports all spans ended so far without shutting down.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p == nil || p.sdkProvider == nil {
		return nil
	}
	return p.sdkProvider.ForceFlush(ctx)
}

// Shutdown flushes buffered spans and stops the exporter. Calling it on a
// no-op destination does nothing.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdkProvider == nil {
		return nil
	}
	return p.sdkProvider.Shutdown(ctx)
}

// IsEffectivelyNoOp reports whether spans from this destination are dropped.
func (p *Provider) IsEffectivelyNoOp() bool {
	return p == nil || p.sdkProvider == nil
}

// ParseHeaders converts a comma-separated key=value list, as used by
// OTEL_EXPORTER_OTLP_HEADERS, into a map.
func ParseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	if headerStr == "" {
		return headers
	}
	for _, pair := range strings.Split(headerStr, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) == 2 {
			key := strings.TrimSpace(kv[0])
			if key != "" {
				headers[key] = strings.TrimSpace(kv[1])
			}
		}
	}
	return headers
}

var _ crosswstracing.TracerProvider = (*Provider)(nil)
