package errors

import (
	"errors"
	"fmt"
)

// --- crossws Core Error Types ---

// ConfigError represents an error encountered while loading settings, building
// a graph, or applying options.
type ConfigError struct {
	Message string
	Cause   error
}

func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{Message: message, Cause: cause}
}
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}
func (e *ConfigError) Unwrap() error { return e.Cause }

// ValidationError indicates that some input (a settings file, a runtime
// configuration) failed validation checks.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}
func (e *ValidationError) Unwrap() error { return e.Cause }

// StepExecutionError represents a fatal error returned by a graph step. The
// engine wraps the step's error once and hands it to the caller unchanged
// otherwise; nothing is retried.
type StepExecutionError struct {
	GraphName string
	StepName  string
	Cause     error
}

func NewStepExecutionError(graphName, stepName string, cause error) *StepExecutionError {
	return &StepExecutionError{GraphName: graphName, StepName: stepName, Cause: cause}
}
func (e *StepExecutionError) Error() string {
	if e.GraphName == "" {
		return fmt.Sprintf("step '%s' failed: %v", e.StepName, e.Cause)
	}
	return fmt.Sprintf("graph '%s' step '%s' failed: %v", e.GraphName, e.StepName, e.Cause)
}
func (e *StepExecutionError) Unwrap() error { return e.Cause }

// IsConfigError checks if an error is a ConfigError using errors.As.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// IsValidationError checks if an error is a ValidationError using errors.As.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
