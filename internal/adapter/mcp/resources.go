package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const (
	destinationsURI = "traveltime://destinations"
	distancesURI    = "traveltime://distances/latest"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			destinationsURI,
			"Destinations",
			mcplib.WithResourceDescription("Saved destinations"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleDestinationsResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			distancesURI,
			"Latest Distances",
			mcplib.WithResourceDescription("Result of the most recent distance computation"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleDistancesResource,
	)
}

func (s *Server) handleDestinationsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Destinations == nil {
		return jsonContents(req.Params.URI, `{"error":"destination lister not configured"}`), nil
	}
	list, err := s.deps.Destinations.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, string(data)), nil
}

func (s *Server) handleDistancesResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Distances == nil {
		return jsonContents(req.Params.URI, `{"error":"distance computer not configured"}`), nil
	}
	latest, err := s.deps.Distances.Latest(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(latest)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, string(data)), nil
}

func jsonContents(uri, text string) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}
}
