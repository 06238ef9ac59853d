package engine

import (
	"testing"

	"github.com/meltforce/fittrack/internal/models"
)

func intp(v int) *int { return &v }

func autoItem(t models.ExerciseType) *models.WorkoutItem {
	return &models.WorkoutItem{Type: t, RestMode: models.RestAuto}
}

// TestRecommendedRestDefaults verifies the compound/accessory base durations
// when no last set informs the recommendation.
func TestRecommendedRestDefaults(t *testing.T) {
	defaults := models.DefaultRestDefaults()

	if got := RecommendedRestSec(autoItem(models.TypeCompound), nil, defaults); got != 150 {
		t.Errorf("compound base = %d, want 150", got)
	}
	if got := RecommendedRestSec(autoItem(models.TypeAccessory), nil, defaults); got != 90 {
		t.Errorf("accessory base = %d, want 90", got)
	}
}

// TestRecommendedRestAutoAdjust verifies the heavy/light adjustments driven
// by the last set's reps and RIR.
func TestRecommendedRestAutoAdjust(t *testing.T) {
	defaults := models.DefaultRestDefaults()
	item := autoItem(models.TypeCompound)

	tests := []struct {
		name string
		set  models.SetEntry
		want int
	}{
		{"heavy by reps", models.SetEntry{Weight: 100, Reps: 3}, 210},
		{"heavy by rir", models.SetEntry{Weight: 100, Reps: 8, RIR: intp(1)}, 210},
		{"moderate unchanged", models.SetEntry{Weight: 100, Reps: 8}, 150},
		{"light by reps", models.SetEntry{Weight: 40, Reps: 15}, 120},
		{"light by rir", models.SetEntry{Weight: 40, Reps: 8, RIR: intp(4)}, 120},
		{"heavy wins over light", models.SetEntry{Weight: 100, Reps: 3, RIR: intp(4)}, 210},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecommendedRestSec(item, &tt.set, defaults); got != tt.want {
				t.Errorf("rest = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestRecommendedRestAutoAdjustOff verifies that disabling auto-adjust
// returns the exact configured default regardless of set intensity.
func TestRecommendedRestAutoAdjustOff(t *testing.T) {
	defaults := models.RestDefaults{CompoundSec: 150, AccessorySec: 90, AutoAdjust: false}
	heavy := models.SetEntry{Weight: 180, Reps: 2, RIR: intp(0)}

	if got := RecommendedRestSec(autoItem(models.TypeCompound), &heavy, defaults); got != 150 {
		t.Errorf("rest = %d, want exact default 150", got)
	}
}

// TestRecommendedRestCustom verifies that a configured custom duration
// short-circuits both the defaults and the auto-adjustment.
func TestRecommendedRestCustom(t *testing.T) {
	item := &models.WorkoutItem{
		Type:          models.TypeCompound,
		RestMode:      models.RestCustom,
		CustomRestSec: intp(120),
	}
	heavy := models.SetEntry{Weight: 140, Reps: 3}

	if got := RecommendedRestSec(item, &heavy, models.DefaultRestDefaults()); got != 120 {
		t.Errorf("rest = %d, want custom 120", got)
	}
}

// TestRecommendedRestCustomZeroFallsBack verifies that custom mode with a
// zero (unset) value falls back to the type default.
func TestRecommendedRestCustomZeroFallsBack(t *testing.T) {
	item := &models.WorkoutItem{
		Type:          models.TypeAccessory,
		RestMode:      models.RestCustom,
		CustomRestSec: intp(0),
	}
	if got := RecommendedRestSec(item, nil, models.DefaultRestDefaults()); got != 90 {
		t.Errorf("rest = %d, want fallback 90", got)
	}
}

// TestRecommendedRestClamp verifies the [30, 600] clamp at both ends.
func TestRecommendedRestClamp(t *testing.T) {
	low := &models.WorkoutItem{RestMode: models.RestCustom, CustomRestSec: intp(5)}
	if got := RecommendedRestSec(low, nil, models.DefaultRestDefaults()); got != MinRestSec {
		t.Errorf("rest = %d, want clamped to %d", got, MinRestSec)
	}

	high := &models.WorkoutItem{RestMode: models.RestCustom, CustomRestSec: intp(900)}
	if got := RecommendedRestSec(high, nil, models.DefaultRestDefaults()); got != MaxRestSec {
		t.Errorf("rest = %d, want clamped to %d", got, MaxRestSec)
	}

	// Light adjustment on a short accessory default clamps upward too.
	defaults := models.RestDefaults{CompoundSec: 150, AccessorySec: 45, AutoAdjust: true}
	light := models.SetEntry{Weight: 20, Reps: 15}
	if got := RecommendedRestSec(autoItem(models.TypeAccessory), &light, defaults); got != MinRestSec {
		t.Errorf("rest = %d, want clamped to %d", got, MinRestSec)
	}
}
