package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meltforce/fittrack/internal/catalog"
	"github.com/meltforce/fittrack/internal/models"
	"github.com/meltforce/fittrack/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetCompletedSets = mcp.NewTool("get_completed_sets",
	mcp.WithDescription("Query logged strength training sets. Returns exercise, muscle group, weight, reps, and RIR for each finalized set."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match, e.g. 'bench press')")),
)

var toolGetWeeklyVolume = mcp.NewTool("get_weekly_volume",
	mcp.WithDescription("Weekly set-count totals for the last N calendar weeks, newest week last."),
	mcp.WithNumber("weeks", mcp.Description("Number of weeks. Defaults to 4.")),
)

var toolGetTemplates = mcp.NewTool("get_templates",
	mcp.WithDescription("List workout templates with their ordered exercise prescriptions (target sets, rest mode)."),
)

var toolGetWeightHistory = mcp.NewTool("get_weight_history",
	mcp.WithDescription("Body weight log, one entry per day, oldest first."),
)

var toolGetActiveWorkout = mcp.NewTool("get_active_workout",
	mcp.WithDescription("The currently active guided workout session: exercise pointer, per-exercise completed sets, and rest timer state. Null when no session is live."),
)

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("The exercise catalog: id, name, muscle group, and compound/accessory type."),
	mcp.WithString("query", mcp.Description("Filter by name or muscle group (partial match)")),
)

// --- Tool handlers ---

func (h *handlers) getCompletedSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	sets, err := h.ds.QueryCompletedSets(ctx, start, end)
	if err != nil {
		h.log.Error("mcp get_completed_sets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if filter := req.GetString("exercise", ""); filter != "" {
		sets = filterSetsByExercise(sets, filter)
	}

	result, err := mcp.NewToolResultJSON(sets)
	if err != nil {
		return mcp.NewToolResultError("encoding failed: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) getWeeklyVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	weeks := req.GetInt("weeks", 4)
	if weeks < 1 {
		weeks = 1
	}
	now := time.Now()

	sets, err := h.ds.QueryCompletedSets(ctx, now.AddDate(0, 0, -weeks*7), now.AddDate(0, 0, 1))
	if err != nil {
		h.log.Error("mcp get_weekly_volume", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(storage.WeeklySetCounts(sets, weeks, now))
	if err != nil {
		return mcp.NewToolResultError("encoding failed: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) getTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templates, err := h.ds.ListTemplates(ctx)
	if err != nil {
		h.log.Error("mcp get_templates", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(templates)
	if err != nil {
		return mcp.NewToolResultError("encoding failed: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) getWeightHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.ds.ListWeight(ctx)
	if err != nil {
		h.log.Error("mcp get_weight_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	result, err := mcp.NewToolResultJSON(entries)
	if err != nil {
		return mcp.NewToolResultError("encoding failed: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) getActiveWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload := map[string]any{"workout": nil}
	if h.eng != nil {
		payload["workout"] = h.eng.Active()
		if warn := h.eng.SaveWarning(); warn != "" {
			payload["save_warning"] = warn
		}
	}
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return mcp.NewToolResultError("encoding failed: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(catalog.Search(req.GetString("query", "")))
	if err != nil {
		return mcp.NewToolResultError("encoding failed: " + err.Error()), nil
	}
	return result, nil
}

func filterSetsByExercise(sets []models.CompletedSet, filter string) []models.CompletedSet {
	filter = strings.ToLower(filter)
	out := make([]models.CompletedSet, 0, len(sets))
	for _, cs := range sets {
		if strings.Contains(strings.ToLower(cs.ExerciseName), filter) {
			out = append(out, cs)
		}
	}
	return out
}
