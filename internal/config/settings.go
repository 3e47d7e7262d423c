package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersionConstraint is the settings schema major version this
// build understands.
const SupportedSchemaVersionConstraint = "v1"

// Defaults reproducing the original deployment.
const (
	DefaultServiceName        = "crossws"
	DefaultAPIURL             = "https://api.smith.langchain.com"
	DefaultWorkspaceATenantID = "1adb79c4-881d-4625-be9c-3118fffb2166"
	DefaultWorkspaceBTenantID = "ebbaf2eb-769b-4505-aca2-d11de10372a4"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultExporterProtocol   = "http"
	DefaultExporterTimeout    = 10 * time.Second
)

// Environment variables that override settings.
const (
	EnvAPIURL          = "CROSSWS_API_URL"
	EnvWorkspaceAID    = "CROSSWS_WORKSPACE_A_ID"
	EnvWorkspaceBID    = "CROSSWS_WORKSPACE_B_ID"
	EnvTraceProtocol   = "CROSSWS_TRACE_PROTOCOL"
	EnvLogLevel        = "CROSSWS_LOG_LEVEL"
	EnvLogFormat       = "CROSSWS_LOG_FORMAT"
	EnvOtelServiceName = "OTEL_SERVICE_NAME"
)

// DefaultAPIKeyEnv lists the credential variables in lookup order.
var DefaultAPIKeyEnv = []string{"LS_CROSS_WORKSPACE_KEY", "LANGSMITH_API_KEY"}

// Settings is the process-level configuration: where traces go and how the
// process logs. It is read once at startup.
type Settings struct {
	SchemaVersion string            `yaml:"schemaVersion"`
	ServiceName   string            `yaml:"service_name,omitempty"`
	LogLevel      string            `yaml:"log_level,omitempty"`
	LogFormat     string            `yaml:"log_format,omitempty"`
	APIURL        string            `yaml:"api_url,omitempty"`
	APIKeyEnv     []string          `yaml:"api_key_env,omitempty"`
	Exporter      ExporterSettings  `yaml:"exporter,omitempty"`
	Workspaces    WorkspaceSettings `yaml:"workspaces,omitempty"`

	// FilePath records where the settings were loaded from, if anywhere.
	FilePath string `yaml:"-"`
}

// ExporterSettings selects and tunes the span exporter used by every
// backend client.
type ExporterSettings struct {
	// Protocol is "http" (OTLP/HTTP, default), "grpc" (OTLP/gRPC) or
	// "stdout" (pretty-printed spans on stdout, for local runs).
	Protocol    string `yaml:"protocol,omitempty"`
	Timeout     string `yaml:"timeout,omitempty"`
	Insecure    bool   `yaml:"insecure,omitempty"`
	Compression string `yaml:"compression,omitempty"`
}

// WorkspaceSettings holds the backend tenant of each known workspace.
type WorkspaceSettings struct {
	WorkspaceA TenantSettings `yaml:"workspace_a,omitempty"`
	WorkspaceB TenantSettings `yaml:"workspace_b,omitempty"`
}

// TenantSettings identifies one tenant in the trace backend.
type TenantSettings struct {
	TenantID string `yaml:"tenant_id,omitempty"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		SchemaVersion: "v1.0.0",
		ServiceName:   DefaultServiceName,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
		APIURL:        DefaultAPIURL,
		APIKeyEnv:     append([]string(nil), DefaultAPIKeyEnv...),
		Exporter: ExporterSettings{
			Protocol: DefaultExporterProtocol,
		},
		Workspaces: WorkspaceSettings{
			WorkspaceA: TenantSettings{TenantID: DefaultWorkspaceATenantID},
			WorkspaceB: TenantSettings{TenantID: DefaultWorkspaceBTenantID},
		},
	}
}

// GetTimeout returns the export timeout, DefaultExporterTimeout when unset or
// invalid.
func (e ExporterSettings) GetTimeout() time.Duration {
	if e.Timeout == "" {
		return DefaultExporterTimeout
	}
	d, err := time.ParseDuration(e.Timeout)
	if err != nil || d <= 0 {
		return DefaultExporterTimeout
	}
	return d
}

// LoadSettings parses a settings document on top of Default(). The document
// is validated against the embedded schema, decoded strictly and its
// schemaVersion must have major version v1.
func LoadSettings(data []byte, filePathHint string) (*Settings, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, crosswserrors.NewConfigError(fmt.Sprintf("settings file '%s' is empty", filePathHint), nil)
	}
	if err := ValidateSettingsDocument(data); err != nil {
		return nil, crosswserrors.NewConfigError(fmt.Sprintf("settings '%s' failed schema validation", filePathHint), err)
	}

	settings := Default()
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(settings); err != nil {
		return nil, crosswserrors.NewConfigError(fmt.Sprintf("failed to parse settings YAML '%s'", filePathHint), err)
	}
	settings.FilePath = filePathHint

	version := settings.SchemaVersion
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return nil, crosswserrors.NewValidationError(fmt.Sprintf("settings '%s' has invalid 'schemaVersion' format: '%s'", filePathHint, settings.SchemaVersion), nil)
	}
	if semver.Major(version) != SupportedSchemaVersionConstraint {
		return nil, crosswserrors.NewValidationError(
			fmt.Sprintf("settings '%s' schemaVersion '%s' is not compatible with required '%s'",
				filePathHint, settings.SchemaVersion, SupportedSchemaVersionConstraint),
			nil,
		)
	}
	return settings, nil
}

// LoadSettingsFromFile reads and parses a settings file.
func LoadSettingsFromFile(filePath string) (*Settings, error) {
	if filePath == "" {
		return nil, crosswserrors.NewConfigError("settings file path cannot be empty", nil)
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, crosswserrors.NewConfigError(fmt.Sprintf("failed to get absolute path for '%s'", filePath), err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, crosswserrors.NewConfigError(fmt.Sprintf("failed to read settings file '%s'", absPath), err)
	}
	return LoadSettings(data, absPath)
}

// Resolve builds the effective settings: Default() or the file at path,
// then environment overrides from lookup (os.LookupEnv when nil).
func Resolve(path string, lookup func(string) (string, bool)) (*Settings, error) {
	settings := Default()
	if path != "" {
		loaded, err := LoadSettingsFromFile(path)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	settings.ApplyEnv(lookup)
	return settings, nil
}

// ApplyEnv overrides settings from environment variables. Empty values are
// ignored.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	override := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	override(EnvAPIURL, &s.APIURL)
	override(EnvWorkspaceAID, &s.Workspaces.WorkspaceA.TenantID)
	override(EnvWorkspaceBID, &s.Workspaces.WorkspaceB.TenantID)
	override(EnvTraceProtocol, &s.Exporter.Protocol)
	override(EnvLogLevel, &s.LogLevel)
	override(EnvLogFormat, &s.LogFormat)
	override(EnvOtelServiceName, &s.ServiceName)
}
