package models

import (
	"time"

	"github.com/google/uuid"
)

// ExerciseType classifies an exercise for rest-duration defaults.
type ExerciseType string

const (
	TypeCompound  ExerciseType = "compound"
	TypeAccessory ExerciseType = "accessory"
)

// RestMode selects between the global rest defaults and a per-item override.
type RestMode string

const (
	RestAuto   RestMode = "auto"
	RestCustom RestMode = "custom"
)

// TemplateItem is one exercise prescription within a template.
type TemplateItem struct {
	ExerciseID  int          `json:"exercise_id"`
	Name        string       `json:"name"`
	MuscleGroup string       `json:"muscle_group"`
	Sets        int          `json:"sets"`
	Type        ExerciseType `json:"type"`
	RestMode    RestMode     `json:"rest_mode"`
	RestSec     *int         `json:"rest_sec,omitempty"`
}

// Template is a reusable, named, ordered exercise prescription list.
type Template struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Notes     string         `json:"notes,omitempty"`
	Items     []TemplateItem `json:"items"`
	BuiltIn   bool           `json:"built_in,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// SetEntry is one logged set inside a live session.
type SetEntry struct {
	Weight   float64   `json:"weight"`
	Reps     int       `json:"reps"`
	RIR      *int      `json:"rir,omitempty"`
	LoggedAt time.Time `json:"logged_at"`
}

// WorkoutItem is a prescription plus the live per-exercise set log.
// TplIndex points back at the originating template row; nil marks a
// session-only insertion with no template row to propagate to.
type WorkoutItem struct {
	ExerciseID    int          `json:"exercise_id"`
	Name          string       `json:"name"`
	MuscleGroup   string       `json:"muscle_group"`
	TargetSets    int          `json:"target_sets"`
	Type          ExerciseType `json:"type"`
	RestMode      RestMode     `json:"rest_mode"`
	CustomRestSec *int         `json:"custom_rest_sec,omitempty"`
	SetsCompleted []SetEntry   `json:"sets_completed"`
	TplIndex      *int         `json:"tpl_index,omitempty"`
}

// RestTimerState is the per-exercise rest timer phase.
type RestTimerState string

const (
	RestIdle    RestTimerState = "idle"
	RestRunning RestTimerState = "running"
	RestPaused  RestTimerState = "paused"
)

// RestState is the rest timer scoped to the currently targeted exercise.
// EndAt is set only while running; RemainingMS is authoritative otherwise.
type RestState struct {
	State       RestTimerState `json:"state"`
	DurationSec int            `json:"duration_sec"`
	RemainingMS int64          `json:"remaining_ms"`
	EndAt       *time.Time     `json:"end_at,omitempty"`
}

// ActiveWorkout is the single in-progress guided session. At most one exists
// at a time; it is persisted after every mutation so a restart can resume it.
type ActiveWorkout struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	TemplateID            *string       `json:"template_id,omitempty"`
	StartedAt             time.Time     `json:"started_at"`
	EndedAt               *time.Time    `json:"ended_at,omitempty"`
	CurrentExerciseIndex  int           `json:"current_exercise_index"`
	Items                 []WorkoutItem `json:"items"`
	Rest                  RestState     `json:"rest"`
	CompletionPromptShown bool          `json:"completion_prompt_shown"`
}

// Ended reports whether the workout has reached a terminal state.
func (aw *ActiveWorkout) Ended() bool {
	return aw.EndedAt != nil
}

// CurrentItem returns the item the exercise pointer targets.
func (aw *ActiveWorkout) CurrentItem() *WorkoutItem {
	return &aw.Items[aw.CurrentExerciseIndex]
}

// FullyCompleted reports whether every item's completed count has reached
// its target. An empty item list is never complete.
func (aw *ActiveWorkout) FullyCompleted() bool {
	if len(aw.Items) == 0 {
		return false
	}
	for i := range aw.Items {
		if len(aw.Items[i].SetsCompleted) < aw.Items[i].TargetSets {
			return false
		}
	}
	return true
}

// CompletedSet is one finalized history record, flattened out of a finished
// session. Append-only at finish time; independently editable afterwards.
type CompletedSet struct {
	ID           uuid.UUID `json:"id"`
	Date         time.Time `json:"date"`
	ExerciseID   int       `json:"exercise_id"`
	ExerciseName string    `json:"exercise_name"`
	MuscleGroup  string    `json:"muscle_group"`
	Weight       float64   `json:"weight"`
	Reps         int       `json:"reps"`
	RIR          *int      `json:"rir,omitempty"`
}

// RestDefaults are the global rest-duration settings consulted by the
// recommendation policy on every computation.
type RestDefaults struct {
	CompoundSec  int  `json:"compound_sec"`
	AccessorySec int  `json:"accessory_sec"`
	AutoAdjust   bool `json:"auto_adjust"`
}

// DefaultRestDefaults returns the out-of-the-box rest settings.
func DefaultRestDefaults() RestDefaults {
	return RestDefaults{CompoundSec: 150, AccessorySec: 90, AutoAdjust: true}
}

// Settings holds the user-tunable application settings.
type Settings struct {
	RestDefaults RestDefaults `json:"rest_defaults"`
}

// WeightEntry is one body-weight measurement, keyed by calendar day.
type WeightEntry struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Weight float64 `json:"weight"`
}
