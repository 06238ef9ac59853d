// Package catalog holds the static exercise lookup table and the starter
// templates seeded into new installations.
package catalog

import (
	"strings"

	"github.com/meltforce/fittrack/internal/models"
)

// Exercise is one entry in the read-only exercise table.
type Exercise struct {
	ID          int                 `json:"id"`
	Name        string              `json:"name"`
	MuscleGroup string              `json:"muscle_group"`
	Type        models.ExerciseType `json:"type"`
}

var exercises = []Exercise{
	{ID: 101, Name: "Barbell Bench Press", MuscleGroup: "chest", Type: models.TypeCompound},
	{ID: 102, Name: "Incline DB Press", MuscleGroup: "chest", Type: models.TypeCompound},
	{ID: 201, Name: "Bent-Over Row", MuscleGroup: "back", Type: models.TypeCompound},
	{ID: 202, Name: "Lat Pulldown", MuscleGroup: "back", Type: models.TypeCompound},
	{ID: 301, Name: "Back Squat", MuscleGroup: "quads", Type: models.TypeCompound},
	{ID: 302, Name: "Leg Press", MuscleGroup: "quads", Type: models.TypeCompound},
	{ID: 401, Name: "Romanian Deadlift", MuscleGroup: "hams_glutes", Type: models.TypeCompound},
	{ID: 402, Name: "Hip Thrust", MuscleGroup: "hams_glutes", Type: models.TypeCompound},
	{ID: 501, Name: "DB Shoulder Press", MuscleGroup: "shoulders", Type: models.TypeCompound},
	{ID: 502, Name: "Lateral Raise", MuscleGroup: "shoulders", Type: models.TypeAccessory},
	{ID: 601, Name: "Barbell Curl", MuscleGroup: "biceps", Type: models.TypeAccessory},
	{ID: 701, Name: "Triceps Pushdown", MuscleGroup: "triceps", Type: models.TypeAccessory},
	{ID: 801, Name: "Standing Calf Raise", MuscleGroup: "calves", Type: models.TypeAccessory},
	{ID: 901, Name: "Hanging Leg Raise", MuscleGroup: "abs", Type: models.TypeAccessory},
}

// All returns every exercise in catalog order.
func All() []Exercise {
	out := make([]Exercise, len(exercises))
	copy(out, exercises)
	return out
}

// ByID looks up an exercise. The second return is false when the id is unknown.
func ByID(id int) (Exercise, bool) {
	for _, e := range exercises {
		if e.ID == id {
			return e, true
		}
	}
	return Exercise{}, false
}

// Search returns exercises whose name or muscle group contains the query,
// case-insensitively. An empty query returns the full catalog.
func Search(query string) []Exercise {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return All()
	}
	var out []Exercise
	for _, e := range exercises {
		if strings.Contains(strings.ToLower(e.Name), q) ||
			strings.Contains(strings.ToLower(e.MuscleGroup), q) {
			out = append(out, e)
		}
	}
	return out
}

func templateItem(exerciseID, sets int) (models.TemplateItem, bool) {
	ex, ok := ByID(exerciseID)
	if !ok {
		return models.TemplateItem{}, false
	}
	return models.TemplateItem{
		ExerciseID:  ex.ID,
		Name:        ex.Name,
		MuscleGroup: ex.MuscleGroup,
		Sets:        sets,
		Type:        ex.Type,
		RestMode:    models.RestAuto,
	}, true
}

func buildTemplate(id, name, notes string, rows [][2]int) models.Template {
	tpl := models.Template{ID: id, Name: name, Notes: notes, BuiltIn: true}
	for _, r := range rows {
		if it, ok := templateItem(r[0], r[1]); ok {
			tpl.Items = append(tpl.Items, it)
		}
	}
	return tpl
}

// StarterTemplates returns the built-in Push / Pull / Legs templates. They are
// seeded once per installation; deleting them does not trigger a re-seed.
func StarterTemplates() []models.Template {
	return []models.Template{
		buildTemplate("builtin_push", "Push — Starter", "Chest / Shoulders / Triceps", [][2]int{
			{101, 4}, {102, 3}, {501, 3}, {502, 3}, {701, 3},
		}),
		buildTemplate("builtin_pull", "Pull — Starter", "Back / Biceps / Core", [][2]int{
			{201, 4}, {202, 3}, {601, 3}, {901, 3},
		}),
		buildTemplate("builtin_legs", "Legs — Starter", "Quads / Glutes / Hamstrings / Calves", [][2]int{
			{301, 4}, {401, 3}, {302, 3}, {402, 3}, {801, 4},
		}),
	}
}
