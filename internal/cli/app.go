package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"toolflow/internal/catalog"
	"toolflow/internal/config"
	"toolflow/internal/logging"
	"toolflow/internal/output"
	"toolflow/internal/tools"
	"toolflow/internal/tracing"
	"toolflow/internal/workflow"
)

// App holds the dependencies shared by every command.
//
// Commands only read from App; tests construct one directly with a mock tool
// executor and a buffer-backed Printer instead of calling [NewApp].
type App struct {
	Config  *config.Config
	Runner  *workflow.Runner
	Printer *output.Printer
	Logger  *zap.SugaredLogger
	Version string

	// ConfigFile is the config file the App was built from, if any.
	ConfigFile string

	closers []func(context.Context) error
}

// NewApp wires an App from cfg: logger, optional tracing, the tool dispatcher
// with configured handlers, and a registry holding the built-in workflows
// followed by those declared in cfg.
func NewApp(cfg *config.Config, version string) (*App, error) {
	logger, err := logging.New(logging.Config{
		Debug:  cfg.Log.Debug,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{
		Config:  cfg,
		Printer: output.NewPrinter(),
		Logger:  logger,
		Version: version,
	}
	app.closers = append(app.closers, func(context.Context) error {
		_ = logger.Sync()
		return nil
	})

	if cfg.Tracing.Enabled {
		if err := tracing.Init(AppName, version, cfg.Tracing.Output); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		app.closers = append(app.closers, tracing.Shutdown)
	}

	dispatcher := tools.NewDispatcher()
	dispatcher.SetStrict(cfg.Runner.StrictTools)
	dispatcher.SetLogger(logger.Named("tools"))
	handlers, err := tools.NewHandlersFromConfig(cfg.Tools, &http.Client{Timeout: 30 * time.Second}, logger.Named("tools"))
	if err != nil {
		return nil, err
	}
	for _, h := range handlers {
		dispatcher.Register(h)
	}

	registry := workflow.NewDefaultRegistry()
	defs, err := catalog.FromConfig(cfg.Workflows)
	if err != nil {
		return nil, fmt.Errorf("invalid workflows in config: %w", err)
	}
	catalog.RegisterAll(registry, defs)

	runner := workflow.NewRunner(registry, dispatcher)
	runner.SetStrict(cfg.Runner.StrictPlaceholders)
	runner.SetStepTimeout(cfg.Runner.StepTimeout)
	runner.SetLogger(logger.Named("runner"))
	app.Runner = runner

	logger.Debugw("application initialized",
		"workflows", registry.Len(),
		"tool_handlers", dispatcher.Names(),
		"strict_placeholders", cfg.Runner.StrictPlaceholders,
		"strict_tools", cfg.Runner.StrictTools,
	)
	return app, nil
}

func (a *App) logger() *zap.SugaredLogger {
	if a.Logger == nil {
		return logging.Nop()
	}
	return a.Logger
}

// Close releases resources acquired by [NewApp], flushing spans and logs.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
