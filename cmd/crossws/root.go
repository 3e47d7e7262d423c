package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/gxo-labs/crossws/internal/agent"
	"github.com/gxo-labs/crossws/internal/config"
	"github.com/gxo-labs/crossws/internal/logger"
	crosswslog "github.com/gxo-labs/crossws/pkg/crossws/v1/log"
	crosswssecrets "github.com/gxo-labs/crossws/pkg/crossws/v1/secrets"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the final flush of the trace destinations.
const shutdownTimeout = 5 * time.Second

// app holds the process environment the commands run against.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	lookup  func(string) (string, bool)
	secrets crosswssecrets.Provider

	configPath string
	logLevel   string
	logFormat  string
}

func newApp(stdout, stderr io.Writer, lookup func(string) (string, bool)) *app {
	return &app{
		stdout:  stdout,
		stderr:  stderr,
		lookup:  lookup,
		secrets: lookupProvider(lookup),
	}
}

// lookupProvider reads secrets through the same lookup as the settings.
type lookupProvider func(string) (string, bool)

func (p lookupProvider) GetSecret(_ context.Context, key string) (string, bool, error) {
	v, ok := p(key)
	return v, ok, nil
}

func (a *app) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crossws",
		Short: "crossws - cross-workspace trace routing for a greeting agent",
		Long: `crossws runs a small greeting graph and routes the traces of every
invocation to the backend workspace selected by its runtime configuration
(workspace_id: workspace_a or workspace_b).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a settings YAML file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format (text, json)")

	cmd.AddCommand(
		a.demoCommand(),
		a.invokeCommand(),
		a.serveCommand(),
		a.schemaCommand(),
		a.validateCommand(),
		a.versionCommand(),
	)
	return cmd
}

// settings resolves the effective settings with flag overrides applied.
func (a *app) settings() (*config.Settings, error) {
	s, err := config.Resolve(a.configPath, a.lookup)
	if err != nil {
		return nil, err
	}
	if a.logLevel != "" {
		s.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		s.LogFormat = a.logFormat
	}
	if s.LogFormat != "text" && s.LogFormat != "json" {
		return nil, &usageError{err: fmt.Errorf("log format must be 'text' or 'json', got '%s'", s.LogFormat)}
	}
	return s, nil
}

func (a *app) logger(s *config.Settings) crosswslog.Logger {
	return logger.NewLogger(s.LogLevel, s.LogFormat, a.stderr).With("crossws_version", version)
}

// withRuntime bootstraps the agent, runs fn and flushes every trace
// destination afterwards, whatever fn returned.
func (a *app) withRuntime(ctx context.Context, fn func(rt *agent.Runtime, log crosswslog.Logger) error) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	log := a.logger(s)
	log.Debugf("Settings: api_url=%s protocol=%s", s.APIURL, s.Exporter.Protocol)

	rt, err := agent.Bootstrap(ctx, s, a.secrets, log)
	if err != nil {
		return err
	}
	runErr := fn(rt, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Error flushing trace destinations: %v", err)
	}
	return runErr
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "crossws version %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "built: %s\n", buildDate)
			fmt.Fprintf(out, "go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}

var _ crosswssecrets.Provider = lookupProvider(nil)
