package cli

import (
	"github.com/spf13/cobra"

	"toolflow/internal/catalog"
	"toolflow/internal/workflow"
)

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Printer.WorkflowList(app.Runner.Registry().Snapshot())
			return nil
		},
	}
}

func newShowCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <workflow>",
		Short: "Show a workflow's steps and parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			steps, ok := app.Runner.Registry().Lookup(args[0])
			if !ok {
				return exitErrorf(ExitUsage, "%v: %s", workflow.ErrUnknownWorkflow, args[0])
			}
			app.Printer.WorkflowSteps(args[0], steps)
			return nil
		},
	}
}

func newExportCommand(app *App) *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Write registered workflows to a definition file",
		Long: `Write registered workflows to a YAML definition file that can be loaded
again with --workflows. By default every workflow is exported.

Example:
  toolflow export workflows.yaml --only deploy_checklist`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			snapshot := app.Runner.Registry().Snapshot()

			defs := catalog.Definitions(snapshot)
			if len(only) > 0 {
				defs = make(catalog.Definitions, len(only))
				for _, name := range only {
					steps, ok := snapshot[name]
					if !ok {
						return exitErrorf(ExitUsage, "%v: %s", workflow.ErrUnknownWorkflow, name)
					}
					defs[name] = steps
				}
			}

			if err := catalog.WriteFile(args[0], defs); err != nil {
				return err
			}
			app.Printer.Text("Exported %d workflows to %s", len(defs), args[0])
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&only, "only", nil, "export only this workflow (repeatable)")
	return cmd
}
