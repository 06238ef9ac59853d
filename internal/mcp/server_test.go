package mcp

import (
	"testing"

	"github.com/meltforce/fittrack/internal/models"
)

// TestDefaultTimeRange verifies time range defaults (last 30 days) and parsing.
func TestDefaultTimeRange(t *testing.T) {
	// Both empty → defaults to last 30 days
	start, end, err := defaultTimeRange("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 719 || diff.Hours() > 721 { // ~720 hours = 30 days
		t.Errorf("default range = %.0f hours, want ~720", diff.Hours())
	}

	// Explicit dates
	start, end, err = defaultTimeRange("2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2025 || start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2025-01-01", start)
	}
	if end.Year() != 2025 || end.Month() != 1 || end.Day() != 31 {
		t.Errorf("end = %v, want 2025-01-31", end)
	}

	// RFC3339
	start, _, err = defaultTimeRange("2025-06-15T10:30:00Z", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	// Invalid
	_, _, err = defaultTimeRange("not-a-date", "")
	if err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestFilterSetsByExercise verifies the case-insensitive partial name match.
func TestFilterSetsByExercise(t *testing.T) {
	sets := []models.CompletedSet{
		{ExerciseName: "Barbell Bench Press"},
		{ExerciseName: "Barbell Curl"},
		{ExerciseName: "Lat Pulldown"},
	}

	got := filterSetsByExercise(sets, "barbell")
	if len(got) != 2 {
		t.Errorf("barbell matches = %d, want 2", len(got))
	}

	got = filterSetsByExercise(sets, "BENCH PRESS")
	if len(got) != 1 || got[0].ExerciseName != "Barbell Bench Press" {
		t.Errorf("bench matches = %+v", got)
	}

	if got = filterSetsByExercise(sets, "deadlift"); len(got) != 0 {
		t.Errorf("deadlift matches = %d, want 0", len(got))
	}
}
