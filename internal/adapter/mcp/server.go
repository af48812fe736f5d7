// Package mcp exposes travel-time lookups to AI agents over the Model
// Context Protocol.
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/TravelTime/internal/domain/destination"
	"github.com/Strob0t/TravelTime/internal/domain/directions"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
)

// DirectionLookup answers single lookups and clears the response cache.
type DirectionLookup interface {
	GetDirection(ctx context.Context, raw lookup.Raw) directions.Result
	ClearCache(ctx context.Context) error
}

// DistanceComputer runs the batch "distances from origin" computation.
type DistanceComputer interface {
	ComputeDistances(ctx context.Context, req destination.ComputeRequest) (*destination.Distances, error)
	Latest(ctx context.Context) (*destination.Distances, error)
}

// DestinationLister lists the saved destinations.
type DestinationLister interface {
	List(ctx context.Context) ([]destination.Destination, error)
}

// ServerConfig holds the identity and auth settings of the MCP server.
// APIKey is consulted per request; nil disables auth.
type ServerConfig struct {
	Name    string
	Version string
	APIKey  func() string
}

// ServerDeps are the services the tools call into. Nil deps make the
// corresponding tools return a tool error.
type ServerDeps struct {
	Lookups      DirectionLookup
	Distances    DistanceComputer
	Destinations DestinationLister
}

// Server wraps an mcp-go server with the TravelTime tools and resources.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	http      *mcpserver.StreamableHTTPServer
}

// NewServer creates an MCP server with all tools and resources registered.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	s := &Server{cfg: cfg, deps: deps}
	s.mcpServer = mcpserver.NewMCPServer(cfg.Name, cfg.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithRecovery(),
	)
	s.registerTools()
	s.registerResources()
	s.http = mcpserver.NewStreamableHTTPServer(s.mcpServer)
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP transport guarded by the API key.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.cfg.APIKey, s.http)
}
