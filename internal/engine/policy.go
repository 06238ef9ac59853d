package engine

import "github.com/meltforce/fittrack/internal/models"

// Rest duration bounds in seconds. Every recommendation is clamped to this
// range regardless of custom settings or auto-adjustment.
const (
	MinRestSec = 30
	MaxRestSec = 600
)

// RecommendedRestSec computes the rest duration for an item given the
// previous set on it (nil when no set informs the recommendation, e.g. after
// manual navigation).
//
// A custom rest mode with a configured value short-circuits the defaults.
// Otherwise the base comes from the compound/accessory default, and when
// auto-adjust is on a heavy last set (reps <= 5 or RIR <= 1) adds 60s while a
// very light one (reps >= 13 or RIR >= 4) subtracts 30s. A set matching both
// (contradictory reps/RIR) counts as heavy; the heavy check runs first.
func RecommendedRestSec(item *models.WorkoutItem, lastSet *models.SetEntry, defaults models.RestDefaults) int {
	var base int
	if item.RestMode == models.RestCustom && item.CustomRestSec != nil && *item.CustomRestSec != 0 {
		base = *item.CustomRestSec
	} else {
		if item.Type == models.TypeCompound {
			base = defaults.CompoundSec
		} else {
			base = defaults.AccessorySec
		}
		if defaults.AutoAdjust && lastSet != nil {
			heavy := lastSet.Reps <= 5 || (lastSet.RIR != nil && *lastSet.RIR <= 1)
			veryLight := lastSet.Reps >= 13 || (lastSet.RIR != nil && *lastSet.RIR >= 4)
			if heavy {
				base += 60
			} else if veryLight {
				base -= 30
			}
		}
	}
	return clampRestSec(base)
}

func clampRestSec(sec int) int {
	if sec < MinRestSec {
		return MinRestSec
	}
	if sec > MaxRestSec {
		return MaxRestSec
	}
	return sec
}
