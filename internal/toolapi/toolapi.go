// Package toolapi exposes the workflow runner as a small set of protocol tools.
//
// The tool set is transport-neutral: the MCP stdio server and the HTTP API both
// list [Service.Definitions] and route calls through [Service.Call].
//
//   - execute_workflow runs a registered workflow with an optional context
//   - create_custom_workflow registers (or replaces) a workflow
//   - list_workflows returns every registered definition as JSON
package toolapi

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"toolflow/internal/catalog"
	"toolflow/internal/logging"
	"toolflow/internal/value"
	"toolflow/internal/workflow"
)

// Protocol tool names.
const (
	ExecuteWorkflow      = "execute_workflow"
	CreateCustomWorkflow = "create_custom_workflow"
	ListWorkflows        = "list_workflows"
)

// Definition describes one protocol tool.
type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Result is the outcome of a protocol tool call. Failures are reported as a
// Result with IsError set rather than as a Go error, so a client always gets
// text back.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"isError,omitempty"`
}

func textResult(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...)}
}

func errorResult(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...), IsError: true}
}

// Service implements the protocol tools over a [workflow.Runner].
type Service struct {
	runner *workflow.Runner
	logger *zap.SugaredLogger
}

// New creates a Service backed by runner.
func New(runner *workflow.Runner) *Service {
	return &Service{runner: runner, logger: logging.Nop()}
}

// SetLogger configures the logger. A nil logger discards output.
func (s *Service) SetLogger(logger *zap.SugaredLogger) {
	if logger == nil {
		logger = logging.Nop()
	}
	s.logger = logger
}

// Definitions returns the protocol tool definitions. They are rebuilt on every
// call so the execute_workflow enum reflects the current registry.
func (s *Service) Definitions() []Definition {
	return []Definition{
		s.executeWorkflowDefinition(),
		createCustomWorkflowDefinition(),
		listWorkflowsDefinition(),
	}
}

// Definition returns the current definition of the named tool.
func (s *Service) Definition(name string) (Definition, bool) {
	for _, d := range s.Definitions() {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

func (s *Service) executeWorkflowDefinition() Definition {
	return Definition{
		Name:        ExecuteWorkflow,
		Description: "Execute a predefined workflow",
		InputSchema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"workflow": map[string]any{
					"type": "string",
					"enum": s.runner.Registry().Names(),
				},
				"context": map[string]any{"type": "object"},
			},
			"required": []string{"workflow"},
		}),
	}
}

func createCustomWorkflowDefinition() Definition {
	return Definition{
		Name:        CreateCustomWorkflow,
		Description: "Create a custom workflow",
		InputSchema: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
				"steps": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"tool":   map[string]any{"type": "string"},
							"params": map[string]any{"type": "object"},
						},
						"required": []string{"tool"},
					},
				},
			},
			"required": []string{"name", "steps"},
		}),
	}
}

func listWorkflowsDefinition() Definition {
	return Definition{
		Name:        ListWorkflows,
		Description: "List registered workflows and their steps",
		InputSchema: mustSchema(map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}),
	}
}

func mustSchema(schema map[string]any) json.RawMessage {
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("toolapi: invalid schema: %v", err))
	}
	return data
}

// Call dispatches a protocol tool call by name.
func (s *Service) Call(ctx context.Context, name string, args map[string]any) Result {
	s.logger.Debugw("protocol tool call", "tool", name)

	switch name {
	case ExecuteWorkflow:
		return s.executeWorkflow(ctx, args)
	case CreateCustomWorkflow:
		return s.createCustomWorkflow(args)
	case ListWorkflows:
		return s.listWorkflows()
	default:
		return errorResult("Unknown tool: %s", name)
	}
}

func (s *Service) executeWorkflow(ctx context.Context, args map[string]any) Result {
	name, _ := args["workflow"].(string)
	if name == "" {
		return errorResult("missing required argument: workflow")
	}

	wctx, err := contextFromAny(args["context"])
	if err != nil {
		return errorResult("invalid context: %v", err)
	}

	results, err := s.runner.Run(ctx, name, wctx)
	if err != nil {
		s.logger.Warnw("workflow failed", "workflow", name, "error", err)
		return errorResult("%v", err)
	}
	return textResult("Workflow '%s' executed. Results: %s", name, value.Map(results))
}

func (s *Service) createCustomWorkflow(args map[string]any) Result {
	name, _ := args["name"].(string)
	if name == "" {
		return errorResult("missing required argument: name")
	}
	raw, ok := args["steps"]
	if !ok {
		return errorResult("missing required argument: steps")
	}

	steps, err := catalog.StepsFromAny(raw)
	if err != nil {
		return errorResult("invalid steps: %v", err)
	}

	s.runner.Register(name, steps)
	s.logger.Infow("registered workflow", "workflow", name, "steps", len(steps))
	return textResult("Created workflow: %s", name)
}

func (s *Service) listWorkflows() Result {
	data, err := json.Marshal(s.runner.Registry().Snapshot())
	if err != nil {
		return errorResult("failed to encode workflows: %v", err)
	}
	return Result{Text: string(data)}
}

func contextFromAny(raw any) (workflow.Context, error) {
	wctx := workflow.Context{}
	if raw == nil {
		return wctx, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("context must be an object, got %T", raw)
	}
	for k, v := range m {
		converted, err := value.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		wctx[k] = converted
	}
	return wctx, nil
}
