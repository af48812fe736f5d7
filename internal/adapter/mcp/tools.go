package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/TravelTime/internal/domain/destination"
	"github.com/Strob0t/TravelTime/internal/domain/lookup"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.getDirectionTool(),
		s.computeDistancesTool(),
		s.listDestinationsTool(),
		s.clearCacheTool(),
	)
}

func modeOption() mcplib.PropertyOption {
	modes := make([]string, len(lookup.Modes))
	for i, m := range lookup.Modes {
		modes[i] = string(m)
	}
	return mcplib.Enum(modes...)
}

func (s *Server) getDirectionTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_direction",
		mcplib.WithDescription("Look up the travel duration between two addresses. Cached answers are marked with cached=true."),
		mcplib.WithString("origin", mcplib.Required(), mcplib.Description("Start address")),
		mcplib.WithString("destination", mcplib.Required(), mcplib.Description("Target address")),
		mcplib.WithString("transport_mode", mcplib.Required(), mcplib.Description("Travel mode"), modeOption()),
		mcplib.WithString("time_reference", mcplib.Description("Which end of the trip time_value pins"),
			mcplib.Enum(string(lookup.TimeNone), string(lookup.TimeArrival), string(lookup.TimeDeparture))),
		mcplib.WithString("time_value", mcplib.Description("Unix time in seconds")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleGetDirection}
}

func (s *Server) computeDistancesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("compute_distances",
		mcplib.WithDescription("Compute travel durations from an origin to every saved destination, ranked fastest first"),
		mcplib.WithString("origin", mcplib.Required(), mcplib.Description("Start address")),
		mcplib.WithString("transport_mode", mcplib.Description("Travel mode, defaults to the user setting"), modeOption()),
		mcplib.WithString("time_reference", mcplib.Description("none, arrival or departure")),
		mcplib.WithString("hour", mcplib.Description("Hour of day, 00-23")),
		mcplib.WithString("minutes", mcplib.Description("Minutes, 00-59")),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleComputeDistances}
}

func (s *Server) listDestinationsTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_destinations",
		mcplib.WithDescription("List the saved destinations"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleListDestinations}
}

func (s *Server) clearCacheTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("clear_cache",
		mcplib.WithDescription("Remove every cached directions response"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.handleClearCache}
}

func (s *Server) handleGetDirection(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Lookups == nil {
		return mcplib.NewToolResultError("direction lookup not configured"), nil
	}
	args := req.GetArguments()
	raw := lookup.Raw{
		Origin:        stringArg(args, "origin"),
		Destination:   stringArg(args, "destination"),
		TransportMode: stringArg(args, "transport_mode"),
		TimeReference: stringArg(args, "time_reference"),
		TimeValue:     stringArg(args, "time_value"),
	}
	result := s.deps.Lookups.GetDirection(ctx, raw)
	data, err := json.Marshal(result)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	if !result.OK() {
		return mcplib.NewToolResultError(string(data)), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleComputeDistances(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Distances == nil {
		return mcplib.NewToolResultError("distance computer not configured"), nil
	}
	args := req.GetArguments()
	origin := stringArg(args, "origin")
	if origin == "" {
		return mcplib.NewToolResultError("origin is required"), nil
	}
	out, err := s.deps.Distances.ComputeDistances(ctx, destination.ComputeRequest{
		Origin:        origin,
		TransportMode: stringArg(args, "transport_mode"),
		TimeReference: stringArg(args, "time_reference"),
		Hour:          stringArg(args, "hour"),
		Minutes:       stringArg(args, "minutes"),
	})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to compute distances", err), nil
	}
	data, err := json.Marshal(out)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal distances", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleListDestinations(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Destinations == nil {
		return mcplib.NewToolResultError("destination lister not configured"), nil
	}
	list, err := s.deps.Destinations.List(ctx)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to list destinations", err), nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal destinations", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleClearCache(ctx context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Lookups == nil {
		return mcplib.NewToolResultError("direction lookup not configured"), nil
	}
	if err := s.deps.Lookups.ClearCache(ctx); err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to clear cache", err), nil
	}
	return toolResultJSON(`{"status":"OK"}`), nil
}

// stringArg reads a string argument. Numbers are accepted for fields like
// time_value that agents tend to send unquoted.
func stringArg(args map[string]any, name string) string {
	switch v := args[name].(type) {
	case string:
		return v
	case float64:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	case json.Number:
		return v.String()
	}
	return ""
}

func toolResultJSON(text string) *mcplib.CallToolResult {
	return mcplib.NewToolResultText(text)
}
