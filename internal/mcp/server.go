package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"routedash/internal/diagnostics"
)

const serverName = "routedash"

// Server exposes the diagnostics engine as MCP tools.
type Server struct {
	engine  *diagnostics.Engine
	version string
}

func NewServer(engine *diagnostics.Engine, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{engine: engine, version: version}
}

// Build returns an SDK server with every tool registered.
func (s *Server) Build() *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: serverName, Version: s.version}, nil)
	s.registerTools(server)
	return server
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	log.Info().Str("version", s.version).Msg("MCP server listening on stdio")
	err := s.Build().Run(ctx, &sdk.StdioTransport{})
	if err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP session ended with error")
		return err
	}
	log.Info().Msg("MCP session closed")
	return nil
}
