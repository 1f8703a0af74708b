// Package tools implements the host side of the tool-execution callback used
// by the workflow runner.
//
// A [Dispatcher] routes a tool name to a registered [Handler]. Names with no
// handler fall back to a stub result describing the call, which is what the
// built-in workflows rely on out of the box. HTTP and command handlers can be
// declared in configuration (see [NewHandlersFromConfig]).
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"toolflow/internal/logging"
	"toolflow/internal/value"
)

// ErrUnknownTool is returned in strict mode for a tool with no handler.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes one named tool.
type Handler interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params map[string]value.Value) (value.Value, error)
}

// Dispatcher maps tool names to handlers and satisfies workflow.ToolExecutor.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	strict   bool
	logger   *zap.SugaredLogger
}

// NewDispatcher creates a Dispatcher with no handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string]Handler),
		logger:   logging.Nop(),
	}
}

// Register adds or replaces the handler for h.Name().
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[h.Name()] = h
}

// SetStrict makes calls to tools without a handler fail with [ErrUnknownTool]
// instead of returning the stub result.
func (d *Dispatcher) SetStrict(strict bool) { d.strict = strict }

// SetLogger configures the logger. A nil logger discards output.
func (d *Dispatcher) SetLogger(logger *zap.SugaredLogger) {
	if logger == nil {
		logger = logging.Nop()
	}
	d.logger = logger
}

// Names returns the names of registered handlers in sorted order.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the handler registered for tool.
func (d *Dispatcher) Execute(ctx context.Context, tool string, params map[string]value.Value) (value.Value, error) {
	d.mu.RLock()
	h, ok := d.handlers[tool]
	d.mu.RUnlock()

	if !ok {
		if d.strict {
			return value.Value{}, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
		}
		d.logger.Debugw("no handler registered, returning stub result", "tool", tool)
		return StubResult(tool, params), nil
	}

	d.logger.Debugw("executing tool", "tool", tool)
	return h.Execute(ctx, params)
}

// StubResult is the result returned for a tool with no handler:
// "Executed <tool> with <params as JSON>".
func StubResult(tool string, params map[string]value.Value) value.Value {
	if params == nil {
		params = map[string]value.Value{}
	}
	return value.String(fmt.Sprintf("Executed %s with %s", tool, value.Map(params)))
}
