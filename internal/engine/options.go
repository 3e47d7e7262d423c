package engine

import (
	crosswserrors "github.com/gxo-labs/crossws/pkg/crossws/v1/errors"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/events"
	crosswslog "github.com/gxo-labs/crossws/pkg/crossws/v1/log"
	"github.com/gxo-labs/crossws/pkg/crossws/v1/metrics"
)

// CompileOption configures a compiled graph.
type CompileOption func(*Compiled) error

// WithLogger sets the logger used for invocation diagnostics.
func WithLogger(log crosswslog.Logger) CompileOption {
	return func(c *Compiled) error {
		if log == nil {
			return crosswserrors.NewConfigError("logger cannot be nil", nil)
		}
		c.log = log
		return nil
	}
}

// WithMetricsRegistryProvider sets where invocation metrics are registered.
func WithMetricsRegistryProvider(provider metrics.RegistryProvider) CompileOption {
	return func(c *Compiled) error {
		if provider == nil {
			return crosswserrors.NewConfigError("metrics registry provider cannot be nil", nil)
		}
		c.metricsProvider = provider
		return nil
	}
}

// WithStaticListeners attaches listeners that observe every invocation.
func WithStaticListeners(listeners ...events.Listener) CompileOption {
	return func(c *Compiled) error {
		for _, l := range listeners {
			if l == nil {
				return crosswserrors.NewConfigError("listener cannot be nil", nil)
			}
		}
		c.listeners = append(c.listeners, listeners...)
		return nil
	}
}
