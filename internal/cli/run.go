package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"toolflow/internal/value"
	"toolflow/internal/workflow"
)

func newRunCommand(app *App) *cobra.Command {
	var (
		sets        []string
		contextJSON string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow",
		Long: `Run a registered workflow and print each tool's result.

Context bindings fill {placeholder} parameters. --context-json supplies a JSON
object; --set adds or overrides single keys, parsing the value as JSON when
possible and as a plain string otherwise.

Example:
  toolflow run research_assistant --set query="graph neural networks"
  toolflow run deploy_checklist --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			name := args[0]

			wctx, err := buildContext(contextJSON, sets)
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}

			steps, ok := app.Runner.Registry().Lookup(name)
			if !ok {
				return exitErrorf(ExitUsage, "%v: %s", workflow.ErrUnknownWorkflow, name)
			}

			if !jsonOutput {
				app.Printer.WorkflowStart(name, len(steps))
				app.Runner.SetProgressCallback(app.Printer.StepStart)
				defer app.Runner.SetProgressCallback(nil)
			}

			start := time.Now()
			results, err := app.Runner.Run(cmd.Context(), name, wctx)
			if err != nil {
				if errors.Is(err, workflow.ErrUnknownWorkflow) {
					return &ExitError{Code: ExitUsage, Err: err}
				}
				app.Printer.WorkflowFailed(name, err, time.Since(start))
				return NewExitError(ExitFailure)
			}

			if jsonOutput {
				enc := json.NewEncoder(app.Printer.Writer())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			app.Printer.WorkflowComplete(name, results, time.Since(start))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "context binding key=value (repeatable)")
	cmd.Flags().StringVar(&contextJSON, "context-json", "", "context as a JSON object")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	return cmd
}

// buildContext merges --context-json and --set bindings; --set wins.
func buildContext(contextJSON string, sets []string) (workflow.Context, error) {
	wctx := workflow.Context{}

	if contextJSON != "" {
		var decoded map[string]value.Value
		if err := json.Unmarshal([]byte(contextJSON), &decoded); err != nil {
			return nil, fmt.Errorf("invalid --context-json: %w", err)
		}
		for k, v := range decoded {
			wctx[k] = v
		}
	}

	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", kv)
		}
		wctx[k] = value.Parse(v)
	}

	return wctx, nil
}
