// Package mcpserver wires the protocol tools into an MCP server that speaks
// JSON-RPC over stdio.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"toolflow/internal/logging"
	"toolflow/internal/toolapi"
)

// Server adapts a [toolapi.Service] to mcp-go.
type Server struct {
	mcp     *server.MCPServer
	service *toolapi.Service
	logger  *zap.SugaredLogger
}

// New creates the MCP server and registers every protocol tool.
func New(name, version string, service *toolapi.Service, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		mcp: server.NewMCPServer(
			name,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		service: service,
		logger:  logger,
	}
	for _, d := range service.Definitions() {
		s.mcp.AddTool(toTool(d), s.handle)
	}
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

// ServeStdio serves requests on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Infow("serving MCP over stdio", "tools", len(s.service.Definitions()))
	return server.ServeStdio(s.mcp)
}

func toTool(d toolapi.Definition) mcp.Tool {
	return mcp.NewToolWithRawSchema(d.Name, d.Description, d.InputSchema)
}

func (s *Server) handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name
	res := s.service.Call(ctx, name, req.GetArguments())
	if res.IsError {
		return mcp.NewToolResultError(res.Text), nil
	}

	// A new workflow changes the execute_workflow enum; re-adding the tool
	// replaces it and notifies clients that the list changed.
	if name == toolapi.CreateCustomWorkflow {
		if d, ok := s.service.Definition(toolapi.ExecuteWorkflow); ok {
			s.mcp.AddTool(toTool(d), s.handle)
		}
	}
	return mcp.NewToolResultText(res.Text), nil
}
