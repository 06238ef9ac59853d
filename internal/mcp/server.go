// Package mcp exposes the workout data over the Model Context Protocol so
// assistants can query training history, templates, and the live session.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, eng SessionSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("FitTrack", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("FitTrack strength training server. Query completed sets, weekly volume, templates, body weight history, and the currently active workout."),
	)

	h := &handlers{ds: ds, eng: eng, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetCompletedSets, Handler: h.getCompletedSets},
		server.ServerTool{Tool: toolGetWeeklyVolume, Handler: h.getWeeklyVolume},
		server.ServerTool{Tool: toolGetTemplates, Handler: h.getTemplates},
		server.ServerTool{Tool: toolGetWeightHistory, Handler: h.getWeightHistory},
		server.ServerTool{Tool: toolGetActiveWorkout, Handler: h.getActiveWorkout},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
	)

	s.AddResources(
		server.ServerResource{Resource: resRecentSets, Handler: h.recentSets},
		server.ServerResource{Resource: resExerciseCatalog, Handler: h.exerciseCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	eng SessionSource
	log *slog.Logger
}
