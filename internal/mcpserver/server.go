// Package mcpserver serves the tool catalogue over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/metalagman/goalpath/internal/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Name is the implementation name announced to clients.
const Name = "goalpath"

// Server wraps an MCP server with every catalogue tool registered.
type Server struct {
	server *mcp.Server
}

// New registers the catalogue of d on a fresh MCP server.
func New(d *tools.Dispatcher, version string) (*Server, error) {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	for _, def := range tools.Catalogue() {
		schema := &jsonschema.Schema{}
		if err := json.Unmarshal(def.InputSchema, schema); err != nil {
			return nil, fmt.Errorf("parse %s input schema: %w", def.Name, err)
		}
		server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		}, handler(d, def.Name))
	}
	return &Server{server: server}, nil
}

func handler(d *tools.Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		res := d.DispatchJSON(ctx, name, raw)
		if !res.OK {
			log.Debug().Str("tool", name).Str("kind", res.Kind).Msg("mcp tool call failed")
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.JSON()}},
			IsError: !res.OK,
		}, nil
	}
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	log.Info().Msg("mcp server listening on stdio")
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("run mcp server: %w", err)
	}
	return nil
}

// Connect serves one session over an arbitrary transport.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}
