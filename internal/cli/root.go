// Package cli implements the toolflow command-line interface using Cobra.
//
// Commands:
//   - run: execute a registered workflow with an optional context
//   - list / show: inspect registered workflows
//   - export: write registered workflows to a definition file
//   - serve: serve the protocol tools over MCP stdio
//   - serve-http: serve the protocol tools and a REST API over HTTP
//   - version: print the version
//
// Global flags select the config file, load extra definition files, enable
// strict placeholder handling, and turn on debug logging. Commands receive
// their dependencies through [App], so tests can inject mocks.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"toolflow/internal/catalog"
	"toolflow/internal/config"
	"toolflow/internal/output"
)

// AppName is the binary and service name.
const AppName = "toolflow"

// Version is set at build time via ldflags.
var Version = "dev"

type rootFlags struct {
	configPath    string
	workflowFiles []string
	strict        bool
	debug         bool
}

// NewRootCommand creates the root command with all subcommands attached.
//
// When app.Config is nil the persistent pre-run loads configuration and builds
// the App with [NewApp]; otherwise the injected App is used as is. In both
// cases --strict and --workflows are applied to app.Runner.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   AppName,
		Short: "Run multi-step tool workflows",
		Long: `toolflow executes named workflows: ordered sequences of tool calls whose
parameters may reference caller-supplied context and the results of earlier
steps with {placeholder} strings.

Workflows can be run from the command line, or served to MCP clients over
stdio and to HTTP clients as a REST API.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareApp(cmd, app, flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default: $TOOLFLOW_CONFIG_PATH, user config dir, ./toolflow.yaml)")
	pf.StringArrayVar(&flags.workflowFiles, "workflows", nil, "workflow definition file to load (repeatable)")
	pf.BoolVar(&flags.strict, "strict", false, "fail when a placeholder cannot be resolved instead of omitting the parameter")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newRunCommand(app),
		newListCommand(app),
		newShowCommand(app),
		newExportCommand(app),
		newServeCommand(app),
		newServeHTTPCommand(app),
		newVersionCommand(app),
	)

	return rootCmd
}

func prepareApp(cmd *cobra.Command, app *App, flags *rootFlags) error {
	if app.Config == nil {
		cfg, configFile, err := loadConfig(flags.configPath)
		if err != nil {
			return err
		}
		if flags.debug {
			cfg.Log.Debug = true
		}
		built, err := NewApp(cfg, app.Version)
		if err != nil {
			return err
		}
		if app.Printer != nil {
			built.Printer = app.Printer
		}
		built.ConfigFile = configFile
		*app = *built
		if configFile != "" {
			app.logger().Debugw("configuration loaded", "file", configFile)
		} else {
			app.logger().Debugw("no config file found, using defaults")
		}
	}

	if flags.strict {
		app.Runner.SetStrict(true)
	}

	for _, path := range flags.workflowFiles {
		defs, err := catalog.LoadFile(path)
		if err != nil {
			return err
		}
		names := catalog.RegisterAll(app.Runner.Registry(), defs)
		app.logger().Debugw("loaded workflow definitions", "file", path, "workflows", names)
	}
	return nil
}

// loadConfig returns the configuration and the file it came from, which is
// empty when only defaults and environment applied.
func loadConfig(path string) (*config.Config, string, error) {
	loader := config.NewLoader()
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = loader.LoadFromFile(path)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, "", err
	}
	return cfg, loader.ConfigFileUsed(), nil
}

// ExecuteResult is the outcome of a CLI invocation.
type ExecuteResult struct {
	ExitCode int
	Err      error
}

// RunWithArgs builds the root command around app, executes it with args, and
// converts the outcome to an exit code. SIGINT and SIGTERM cancel the command
// context.
func RunWithArgs(app *App, args []string) ExecuteResult {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand(app)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := app.Close(closeCtx); cerr != nil && err == nil {
		err = cerr
	}

	if err == nil {
		return ExecuteResult{ExitCode: 0}
	}
	if code, ok := IsExitError(err); ok {
		return ExecuteResult{ExitCode: code, Err: err}
	}
	return ExecuteResult{ExitCode: 1, Err: err}
}

// Execute runs the CLI with the process arguments and exits.
func Execute() {
	app := &App{Printer: output.NewPrinter(), Version: Version}
	result := RunWithArgs(app, os.Args[1:])
	var exitErr *ExitError
	if result.Err != nil && !(errors.As(result.Err, &exitErr) && exitErr.Err == nil) {
		fmt.Fprintln(os.Stderr, "Error:", result.Err)
	}
	os.Exit(result.ExitCode)
}
