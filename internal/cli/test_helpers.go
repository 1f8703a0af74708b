package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"toolflow/internal/config"
	"toolflow/internal/output"
	"toolflow/internal/value"
	"toolflow/internal/workflow"
)

// ToolCall records one invocation seen by [MockExecutor].
type ToolCall struct {
	Tool   string
	Params map[string]value.Value
}

// MockExecutor is a workflow.ToolExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex
	// Calls records all tool invocations in order.
	Calls []ToolCall
	// Results maps a tool name to the value it returns. Tools not listed
	// return the string "<tool> ok".
	Results map[string]value.Value
	// FailOn names a tool that returns Err.
	FailOn string
	Err    error
}

func (m *MockExecutor) Execute(_ context.Context, tool string, params map[string]value.Value) (value.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, ToolCall{Tool: tool, Params: params})
	if tool == m.FailOn {
		return value.Value{}, m.Err
	}
	if v, ok := m.Results[tool]; ok {
		return v, nil
	}
	return value.String(tool + " ok"), nil
}

// Tools returns the invoked tool names in order.
func (m *MockExecutor) Tools() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, c := range m.Calls {
		names = append(names, c.Tool)
	}
	return names
}

// newTestApp builds an App around the built-in workflows and executor,
// printing into the returned buffer.
func newTestApp(t *testing.T, executor workflow.ToolExecutor) (*App, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return &App{
		Config:  config.DefaultConfig(),
		Runner:  workflow.NewRunner(workflow.NewDefaultRegistry(), executor),
		Printer: output.NewPrinterWithWriter(buf),
		Version: "1.2.3",
	}, buf
}
