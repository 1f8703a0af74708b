package workflow

import (
	"context"

	"toolflow/internal/value"
)

// Step is a single workflow entry: the tool to invoke and its parameters.
//
// A parameter whose value is a string shaped like "{identifier}" is a
// placeholder; every other value is passed to the tool verbatim.
type Step struct {
	// Tool is the name of the external operation to invoke.
	Tool string `json:"tool" yaml:"tool"`

	// Params maps parameter names to literal values or placeholders.
	Params map[string]value.Value `json:"params" yaml:"params"`
}

// Context holds caller-supplied bindings available to every step of a run.
type Context map[string]value.Value

// ResultSet maps a tool name to the value returned by its most recent
// invocation in the current run.
type ResultSet map[string]value.Value

// ToolExecutor executes a single named tool with resolved parameters.
//
// The runner calls Execute once per step, in order, and never concurrently
// within one run. Any error returned is propagated to the caller of
// [Runner.Run] unchanged.
type ToolExecutor interface {
	Execute(ctx context.Context, tool string, params map[string]value.Value) (value.Value, error)
}

// ToolExecutorFunc adapts a function to [ToolExecutor].
type ToolExecutorFunc func(ctx context.Context, tool string, params map[string]value.Value) (value.Value, error)

// Execute calls f.
func (f ToolExecutorFunc) Execute(ctx context.Context, tool string, params map[string]value.Value) (value.Value, error) {
	return f(ctx, tool, params)
}

// ProgressCallback is invoked before each step begins, with a 1-based step
// index, the total step count, and the tool about to run.
type ProgressCallback func(stepIndex, totalSteps int, tool string)

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = Step{Tool: s.Tool}
		if s.Params != nil {
			out[i].Params = make(map[string]value.Value, len(s.Params))
			for k, v := range s.Params {
				out[i].Params[k] = v
			}
		}
	}
	return out
}
