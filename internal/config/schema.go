package config

import (
	_ "embed" // Required for //go:embed directive
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gxo-labs/crossws/internal/util"
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed runtime_config_schema.json
var runtimeSchemaBytes []byte

//go:embed settings_schema_v1.json
var settingsSchemaBytes []byte

var (
	runtimeSchema     *ConfigSchema
	runtimeSchemaErr  error
	runtimeSchemaOnce sync.Once

	settingsSchema     *gojsonschema.Schema
	settingsSchemaErr  error
	settingsSchemaOnce sync.Once
)

// ConfigSchema is a compiled JSON schema for the configurable part of a
// RunnableConfig. Besides validation it knows the default value of every
// top-level property, which the engine fills in before a step runs and
// which tooling can show to users.
type ConfigSchema struct {
	raw      []byte
	compiled *gojsonschema.Schema
	defaults map[string]interface{}
}

// schemaDocument is the subset of a JSON schema needed to read defaults.
type schemaDocument struct {
	Properties map[string]struct {
		Default     interface{} `json:"default"`
		Description string      `json:"description"`
	} `json:"properties"`
}

// NewConfigSchema compiles raw JSON schema bytes.
func NewConfigSchema(raw []byte) (*ConfigSchema, error) {
	if len(raw) == 0 {
		return nil, crosswserrors.NewConfigError("configuration schema is empty", nil)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, crosswserrors.NewConfigError("failed to compile configuration schema", err)
	}
	var doc schemaDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, crosswserrors.NewConfigError("failed to read configuration schema defaults", err)
	}
	defaults := make(map[string]interface{})
	for name, prop := range doc.Properties {
		if prop.Default != nil {
			defaults[name] = prop.Default
		}
	}
	return &ConfigSchema{raw: raw, compiled: compiled, defaults: defaults}, nil
}

// RuntimeConfigSchema returns the embedded schema of the agent's runtime
// configuration (workspace_id, default "workspace_a"). It is compiled once.
func RuntimeConfigSchema() (*ConfigSchema, error) {
	runtimeSchemaOnce.Do(func() {
		runtimeSchema, runtimeSchemaErr = NewConfigSchema(runtimeSchemaBytes)
	})
	return runtimeSchema, runtimeSchemaErr
}

// JSON returns the schema document as it was compiled.
func (s *ConfigSchema) JSON() []byte {
	return append([]byte(nil), s.raw...)
}

// Defaults returns a copy of the default value of every property that has one.
func (s *ConfigSchema) Defaults() map[string]interface{} {
	return util.CopyMap(s.defaults)
}

// ApplyDefaults returns a copy of configurable in which every property that
// is missing or nil carries its schema default. The input map is not changed.
func (s *ConfigSchema) ApplyDefaults(configurable map[string]interface{}) map[string]interface{} {
	out := util.CopyMap(configurable)
	for name, def := range s.defaults {
		if v, ok := out[name]; !ok || v == nil {
			out[name] = util.DeepCopy(def)
		}
	}
	return out
}

// Validate checks configurable against the schema. A nil map is validated as
// an empty object.
func (s *ConfigSchema) Validate(configurable map[string]interface{}) error {
	doc := configurable
	if doc == nil {
		doc = map[string]interface{}{}
	}
	result, err := s.compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return crosswserrors.NewValidationError("configuration schema validation process failed", err)
	}
	if !result.Valid() {
		return crosswserrors.NewValidationError(describeSchemaErrors("runtime configuration", result.Errors()), nil)
	}
	return nil
}

// describeSchemaErrors formats validation failures in a stable order.
func describeSchemaErrors(subject string, errs []gojsonschema.ResultError) string {
	lines := make([]string, 0, len(errs))
	for _, desc := range errs {
		field := desc.Field()
		if field == "(root)" || field == "" {
			field = desc.Context().String()
		}
		lines = append(lines, fmt.Sprintf("Field '%s': %s", field, desc.Description()))
	}
	sort.Strings(lines)
	return fmt.Sprintf("%s failed JSON schema validation:\n  - %s", subject, strings.Join(lines, "\n  - "))
}

func loadSettingsSchema() (*gojsonschema.Schema, error) {
	settingsSchemaOnce.Do(func() {
		if len(settingsSchemaBytes) == 0 {
			settingsSchemaErr = crosswserrors.NewConfigError("embedded schema 'settings_schema_v1.json' is empty or not found", nil)
			return
		}
		settingsSchema, settingsSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(settingsSchemaBytes))
		if settingsSchemaErr != nil {
			settingsSchemaErr = crosswserrors.NewConfigError("failed to compile embedded schema 'settings_schema_v1.json'", settingsSchemaErr)
		}
	})
	return settingsSchema, settingsSchemaErr
}

// ValidateSettingsDocument validates a settings YAML document against the
// embedded settings schema.
func ValidateSettingsDocument(documentYAML []byte) error {
	schema, err := loadSettingsSchema()
	if err != nil {
		return err
	}

	// gojsonschema works on JSON-like values; decode the YAML generically first.
	var jsonData interface{}
	if err := yaml.Unmarshal(documentYAML, &jsonData); err != nil {
		return crosswserrors.NewConfigError("failed to parse settings YAML for schema validation", err)
	}
	if jsonData == nil {
		jsonData = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(jsonData))
	if err != nil {
		return crosswserrors.NewConfigError("schema validation process failed", err)
	}
	if !result.Valid() {
		return crosswserrors.NewValidationError(describeSchemaErrors("settings", result.Errors()), nil)
	}
	return nil
}

// RuntimeSchema returns the embedded runtime configuration schema document.
func RuntimeSchema() []byte {
	return append([]byte(nil), runtimeSchemaBytes...)
}
