// Package backend is the trace-ingestion client: it turns a credential, an
// endpoint and a tenant into trace destinations, one per project.
package backend

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/gxo-labs/crossws/internal/config"
	"github.com/gxo-labs/crossws/internal/secrets"
	"github.com/gxo-labs/crossws/internal/tracing"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	crosswslog "github.com/gxo-labs/crossws/pkg/crossws/v1/log"
	crosswssecrets "github.com/gxo-labs/crossws/pkg/crossws/v1/secrets"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Request headers understood by the trace backend.
const (
	HeaderAPIKey   = "x-api-key"
	HeaderTenantID = "X-Tenant-Id"
	HeaderProject  = "Langsmith-Project"
)

// TracesPath is the OTLP/HTTP traces path below the API URL.
const TracesPath = "/otel/v1/traces"

// MissingKeyWarning is logged when no credential is configured.
const MissingKeyWarning = "LangSmith API key not set (LS_CROSS_WORKSPACE_KEY or LANGSMITH_API_KEY). Traces will not be uploaded."

// ExporterFactory creates the span exporter behind a destination.
type ExporterFactory func(ctx context.Context, cfg tracing.ExporterConfig) (sdktrace.SpanExporter, error)

// Settings configures a Client.
type Settings struct {
	// APIKey is the backend credential. Empty disables upload.
	APIKey string
	// APIURL is the backend base URL, e.g. https://api.smith.langchain.com.
	APIURL string
	// TenantID selects the workspace inside the backend.
	TenantID string
	// Exporter selects the export protocol and its tuning.
	Exporter config.ExporterSettings
	// ExtraHeaders are sent in addition to the credential, tenant and
	// project headers.
	ExtraHeaders map[string]string
}

// Client holds the connection parameters for one backend tenant. It is
// immutable and safe for concurrent use.
type Client struct {
	settings Settings
	factory  ExporterFactory
	tracker  *secrets.SecretTracker
	resource *resource.Resource
	log      crosswslog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithExporterFactory replaces the exporter created for each destination.
// Tests use it to capture spans in memory.
func WithExporterFactory(f ExporterFactory) Option {
	return func(c *Client) { c.factory = f }
}

// WithSecretTracker registers the client's credential with tracker.
func WithSecretTracker(tracker *secrets.SecretTracker) Option {
	return func(c *Client) { c.tracker = tracker }
}

// WithResource sets the resource attached to every span.
func WithResource(res *resource.Resource) Option {
	return func(c *Client) { c.resource = res }
}

// WithLogger sets the logger.
func WithLogger(log crosswslog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New validates settings and creates a Client. A client without credential
// is valid; its destinations drop spans.
func New(settings Settings, opts ...Option) (*Client, error) {
	c := &Client{settings: settings, factory: tracing.NewExporter}
	for _, opt := range opts {
		opt(c)
	}
	if c.factory == nil {
		c.factory = tracing.NewExporter
	}
	if c.Enabled() && c.protocol() != tracing.ProtocolStdout {
		u, err := url.Parse(settings.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, crosswserrors.NewConfigError(fmt.Sprintf("invalid trace backend URL '%s'", settings.APIURL), err)
		}
	}
	if c.tracker != nil {
		c.tracker.Add(settings.APIKey)
	}
	if c.log != nil {
		c.log = c.log.With("component", "BackendClient", "tenant_id", settings.TenantID)
	}
	return c, nil
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool {
	return c.settings.APIKey != ""
}

// TenantID returns the tenant this client writes to.
func (c *Client) TenantID() string {
	return c.settings.TenantID
}

// APIURL returns the backend base URL.
func (c *Client) APIURL() string {
	return c.settings.APIURL
}

func (c *Client) protocol() string {
	p := strings.ToLower(c.settings.Exporter.Protocol)
	if p == "" {
		return tracing.ProtocolHTTP
	}
	return p
}

// Endpoint returns where spans are sent: the traces URL for OTLP/HTTP, the
// API URL itself for OTLP/gRPC, and "" for stdout.
func (c *Client) Endpoint() string {
	switch c.protocol() {
	case tracing.ProtocolStdout:
		return ""
	case tracing.ProtocolGRPC:
		return c.settings.APIURL
	default:
		return strings.TrimRight(c.settings.APIURL, "/") + TracesPath
	}
}

// Headers returns the request headers for spans of project.
func (c *Client) Headers(project string) map[string]string {
	headers := maps.Clone(c.settings.ExtraHeaders)
	if headers == nil {
		headers = make(map[string]string, 3)
	}
	if c.settings.APIKey != "" {
		headers[HeaderAPIKey] = c.settings.APIKey
	}
	if c.settings.TenantID != "" {
		headers[HeaderTenantID] = c.settings.TenantID
	}
	if project != "" {
		headers[HeaderProject] = project
	}
	return headers
}

// Destination returns a trace destination for project under this client's
// tenant. Spans are exported asynchronously by a batch processor and are
// flushed by the destination's Shutdown. Without a credential the
// destination is a no-op; the stdout protocol needs no credential.
func (c *Client) Destination(ctx context.Context, project string) (*tracing.Provider, error) {
	if !c.Enabled() && c.protocol() != tracing.ProtocolStdout {
		return tracing.NewNoOpProvider(), nil
	}
	exporter, err := c.factory(ctx, tracing.ExporterConfig{
		Protocol:    c.protocol(),
		Endpoint:    c.Endpoint(),
		Headers:     c.Headers(project),
		Timeout:     c.settings.Exporter.GetTimeout(),
		Insecure:    c.settings.Exporter.Insecure,
		Compression: c.settings.Exporter.Compression,
	})
	if err != nil {
		return nil, crosswserrors.NewConfigError(fmt.Sprintf("failed to create trace exporter for project '%s'", project), err)
	}
	if c.log != nil {
		c.log.Debugf("Trace destination for project '%s' exports via %s to '%s'", project, c.protocol(), c.Endpoint())
	}
	return tracing.NewProvider(exporter, c.resource), nil
}

// ResolveAPIKey returns the first non-empty credential among names, or ""
// when none is set. Lookup errors are returned.
func ResolveAPIKey(ctx context.Context, provider crosswssecrets.Provider, names ...string) (string, error) {
	if len(names) == 0 {
		names = config.DefaultAPIKeyEnv
	}
	key, _, err := secrets.FirstNonEmpty(ctx, provider, names...)
	return key, err
}
