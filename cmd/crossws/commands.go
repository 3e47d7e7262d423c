package main

import (
	"encoding/json"
	"fmt"

	"github.com/gxo-labs/crossws/internal/agent"
	"github.com/gxo-labs/crossws/internal/config"
	internalevents "github.com/gxo-labs/crossws/internal/events"
	"github.com/gxo-labs/crossws/internal/server"
	"github.com/gxo-labs/crossws/internal/workspace"
	crossws "github.com/gxo-labs/crossws/pkg/crossws/v1"
	crosswslog "github.com/gxo-labs/crossws/pkg/crossws/v1/log"
	"github.com/spf13/cobra"
)

// eventBufferSize is large enough for every event of one invocation.
const eventBufferSize = 64

func (a *app) demoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Invoke the agent for workspace A, workspace B and without configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRuntime(cmd.Context(), func(rt *agent.Runtime, _ crosswslog.Logger) error {
				out := cmd.OutOrStdout()
				cases := []struct {
					label string
					rc    *crossws.RunnableConfig
				}{
					{"Workspace A (production)", crossws.WithWorkspaceID(workspace.WorkspaceA)},
					{"Workspace B (development)", crossws.WithWorkspaceID(workspace.WorkspaceB)},
					{"default workspace", nil},
				}
				for _, c := range cases {
					fmt.Fprintf(out, "Testing %s...\n", c.label)
					result, err := rt.Agent.RunWithTracing(cmd.Context(), c.rc)
					if err != nil {
						return fmt.Errorf("invocation for %s failed: %w", c.label, err)
					}
					binding := rt.Registry.Lookup(config.ResolveWorkspaceID(c.rc))
					fmt.Fprintf(out, "Result: %s\n", result.Response)
					fmt.Fprintf(out, "  Traces go to project '%s' (tenant %s)\n\n", binding.ProjectName, binding.Client.TenantID())
				}
				fmt.Fprintln(out, "All invocations completed.")
				return nil
			})
		},
	}
}

func (a *app) invokeCommand() *cobra.Command {
	var (
		workspaceID string
		deployment  bool
		showEvents  bool
	)
	cmd := &cobra.Command{
		Use:   "invoke",
		Short: "Invoke the agent once and print the result as JSON",
		Long: `Invoke the agent once. Without --workspace-id no runtime configuration is
passed and the default workspace applies.

By default the trace listener is passed for this call only. With
--deployment the graph is obtained from the deployment factory instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rc *crossws.RunnableConfig
			if cmd.Flags().Changed("workspace-id") {
				rc = crossws.WithWorkspaceID(workspaceID)
			}
			return a.withRuntime(cmd.Context(), func(rt *agent.Runtime, log crosswslog.Logger) error {
				var listener *internalevents.ChannelListener
				if showEvents {
					listener = internalevents.NewChannelListener(eventBufferSize, log)
					rc = rc.Clone()
					rc.Listeners = append(rc.Listeners, listener)
				}

				id := workspace.Parse(config.ResolveWorkspaceID(rc))
				resp := server.InvokeResponse{WorkspaceID: id.Raw}
				if deployment {
					d := rt.Agent.Deploy(rc)
					out, err := d.Graph.Invoke(cmd.Context(), map[string]interface{}{}, rc)
					if err != nil {
						return err
					}
					resp.Project = d.Binding.ProjectName
					resp.Output = crossws.ResultFromState(out)
				} else {
					result, err := rt.Agent.RunWithTracing(cmd.Context(), rc)
					if err != nil {
						return err
					}
					resp.Project = rt.Registry.Resolve(id).ProjectName
					resp.Output = result
				}

				if listener != nil {
					listener.Close()
					for ev := range listener.Events() {
						resp.Events = append(resp.Events, ev)
					}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			})
		},
	}
	cmd.Flags().StringVar(&workspaceID, "workspace-id", "", "Target workspace (workspace_a, workspace_b or any other value for the default)")
	cmd.Flags().BoolVar(&deployment, "deployment", false, "Use the deployment factory instead of a per-call listener")
	cmd.Flags().BoolVar(&showEvents, "show-events", false, "Include the execution events in the output")
	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withRuntime(cmd.Context(), func(rt *agent.Runtime, log crosswslog.Logger) error {
				return server.New(rt.Agent, rt.Metrics, log).ListenAndServe(cmd.Context(), addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

func (a *app) schemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the runtime configuration schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), string(config.RuntimeSchema()))
			return err
		},
	}
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <settings.yaml>",
		Short: "Validate a settings file",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &usageError{err: fmt.Errorf("validate requires exactly one settings file, got %d", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadSettingsFromFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settings validation successful: %s (schemaVersion %s)\n", s.FilePath, s.SchemaVersion)
			return nil
		},
	}
}
