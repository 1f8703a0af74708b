package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"toolflow/internal/httpapi"
	"toolflow/internal/mcpserver"
	"toolflow/internal/toolapi"
)

func newServeCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve workflows to MCP clients over stdio",
		Long: `Serve the execute_workflow, create_custom_workflow and list_workflows
tools over the Model Context Protocol on stdin/stdout. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			svc := toolapi.New(app.Runner)
			svc.SetLogger(app.logger().Named("toolapi"))

			srv := mcpserver.New(app.Config.Server.Name, app.Config.Server.Version, svc, app.logger().Named("mcp"))
			return srv.ServeStdio()
		},
	}
}

func newServeHTTPCommand(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Serve workflows over HTTP",
		Long: `Serve the protocol tools under /mcp and a REST API under /workflows.
When http.token (or TOOLFLOW_TOKEN) is set, requests must carry it as a bearer
token. The server shuts down gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if addr == "" {
				addr = app.Config.HTTP.Addr
			}

			svc := toolapi.New(app.Runner)
			svc.SetLogger(app.logger().Named("toolapi"))

			srv := httpapi.New(httpapi.Config{
				Token:          app.Config.HTTP.Token,
				RequestTimeout: app.Config.HTTP.RequestTimeout,
			}, app.Runner, svc, app.logger().Named("http"))

			if app.Config.HTTP.Token == "" {
				app.logger().Warnw("http.token not set; /mcp and /workflows are open")
			}
			if err := srv.ListenAndServe(cmd.Context(), addr); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: http.addr from config)")
	return cmd
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No config is needed to print the version.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			version := app.Version
			if version == "" {
				version = Version
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", AppName, version)
		},
	}
}
