package mcp

import (
	"context"
	"encoding/json"
	"time"

	"sla-mcp/internal/tracker"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Name is the implementation name announced to MCP clients.
const Name = "sla-mcp"

// Server exposes the SLA tracker as MCP tools.
type Server struct {
	tracker *tracker.Tracker
	horizon time.Duration
	version string
}

// NewServer creates a new MCP server. horizon is the default look-ahead of
// the breach tool.
func NewServer(t *tracker.Tracker, horizon time.Duration, version string) *Server {
	return &Server{tracker: t, horizon: horizon, version: version}
}

// MCP builds the protocol server with every tool registered.
func (s *Server) MCP() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: s.version}, nil)
	s.registerTools(server)
	return server
}

// Serve runs the server over stdio until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("version", s.version).Msg("MCP Server starting Stdio loop")
	return s.MCP().Run(ctx, &mcp.StdioTransport{})
}

// response is the envelope of every tool result.
type response struct {
	Data     any      `json:"data"`
	Guidance []string `json:"_guidance,omitempty"`
}

func formatResult(data any) string {
	out, _ := json.MarshalIndent(data, "", "  ")
	return string(out)
}

func textResult(data any, guidance ...string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: formatResult(response{Data: data, Guidance: guidance})}},
	}
}
