package mcpserver

import (
	"context"
	"fmt"

	"github.com/kitsapcommute/kitsapcommute/pkg/directory"
	"github.com/kitsapcommute/kitsapcommute/pkg/events"
	"github.com/kitsapcommute/kitsapcommute/pkg/planner"
	"github.com/kitsapcommute/kitsapcommute/pkg/schedule"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const serverVersion = "1.0.0"

// Server exposes the planner and event store as MCP tools over stdio.
type Server struct {
	Planner   *planner.Planner
	Directory *directory.Directory
	Schedule  *schedule.Table
	Events    *events.Store
}

type toolRegistration struct {
	tool    *mcp.Tool
	install func(*mcp.Server)
}

// Run registers every tool and serves over the stdio transport until the
// client disconnects. Each tool name must be unique; a duplicate is a
// programming error caught at startup, not a silent shadowing.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "kitsapcommute",
		Version: serverVersion,
	}, nil)

	seenNames := map[string]bool{}
	for _, registration := range s.registrations() {
		if seenNames[registration.tool.Name] {
			return fmt.Errorf("duplicate MCP tool name: %s", registration.tool.Name)
		}
		seenNames[registration.tool.Name] = true

		registration.install(server)

		log.Debug().Str("tool", registration.tool.Name).Msg("Registered MCP tool")
	}

	log.Info().Int("tools", len(seenNames)).Msg("MCP server listening on stdio")

	return server.Run(ctx, &mcp.StdioTransport{})
}
