package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolflow/internal/toolapi"
	"toolflow/internal/tools"
	"toolflow/internal/workflow"
)

func newTestServer() *Server {
	runner := workflow.NewRunner(workflow.NewDefaultRegistry(), tools.NewDispatcher())
	return New("multi-tool-orchestrator", "test", toolapi.New(runner), nil)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return text.Text
}

// listTools sends a tools/list request through the JSON-RPC handler and
// returns the tools from the response.
func listTools(t *testing.T, s *Server) map[string]json.RawMessage {
	t.Helper()
	resp := s.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded struct {
		Result struct {
			Tools []struct {
				Name        string          `json:"name"`
				InputSchema json.RawMessage `json:"inputSchema"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded), string(data))

	out := make(map[string]json.RawMessage, len(decoded.Result.Tools))
	for _, tool := range decoded.Result.Tools {
		out[tool.Name] = tool.InputSchema
	}
	return out
}

func TestNew_RegistersTools(t *testing.T) {
	s := newTestServer()

	listed := listTools(t, s)
	require.Len(t, listed, 3)
	for _, name := range []string{toolapi.ExecuteWorkflow, toolapi.CreateCustomWorkflow, toolapi.ListWorkflows} {
		schema, ok := listed[name]
		require.True(t, ok, name)
		assert.True(t, json.Valid(schema), name)
	}
	assert.Contains(t, string(listed[toolapi.ExecuteWorkflow]), `"morning_briefing"`)
}

func TestHandle_ExecuteWorkflow(t *testing.T) {
	s := newTestServer()

	res, err := s.handle(context.Background(), callRequest(toolapi.ExecuteWorkflow, map[string]any{
		"workflow": workflow.DeployChecklist,
	}))

	require.NoError(t, err)
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "Workflow 'deploy_checklist' executed. Results: ")
	assert.Contains(t, text, `Executed check_code_coverage with {\"threshold\":80}`)
}

func TestHandle_Errors(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"unknown workflow", toolapi.ExecuteWorkflow, map[string]any{"workflow": "nope"}, "unknown workflow: nope"},
		{"unknown tool", "nope", nil, "Unknown tool: nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handle(context.Background(), callRequest(tt.tool, tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Equal(t, tt.want, resultText(t, res))
		})
	}
}

func TestHandle_CreateCustomWorkflowRefreshesEnum(t *testing.T) {
	s := newTestServer()

	res, err := s.handle(context.Background(), callRequest(toolapi.CreateCustomWorkflow, map[string]any{
		"name":  "standup",
		"steps": []any{map[string]any{"tool": "get_calendar_events", "params": map[string]any{"days": 1}}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Created workflow: standup", resultText(t, res))

	schema, ok := listTools(t, s)[toolapi.ExecuteWorkflow]
	require.True(t, ok)
	assert.Contains(t, string(schema), `"standup"`)
}
