package engine

import (
	"context"

	"github.com/meltforce/fittrack/internal/catalog"
	"github.com/meltforce/fittrack/internal/models"
)

// Modify applies a live add/replace of an exercise to the running session,
// optionally propagating the change into the template the session was started
// from. targetIndex < 0 targets the current exercise. Propagation degrades
// silently to a session-only change when the session has no template or the
// template row cannot be loaded.
func (e *Engine) Modify(ctx context.Context, mode ModifyMode, targetIndex int, exerciseID int, scope ModifyScope) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil || e.aw.Ended() {
		return ErrNoActiveWorkout
	}
	ex, ok := catalog.ByID(exerciseID)
	if !ok {
		return ErrUnknownExercise
	}

	if targetIndex < 0 {
		targetIndex = e.aw.CurrentExerciseIndex
	}
	idx := clampIndex(targetIndex, len(e.aw.Items)-1)

	switch mode {
	case ModifyReplace:
		e.replaceSessionItem(ctx, idx, ex)
	default:
		e.addSessionItem(ex)
	}

	if scope == ScopeTemplate && e.aw.TemplateID != nil {
		e.propagateToTemplate(ctx, mode, idx, ex)
	}

	e.persist(ctx)
	return nil
}

// replaceSessionItem overwrites the item at idx with a fresh prescription for
// ex, keeping the replaced item's target set count and template back-reference
// but dropping its completed sets. Replacement reopens completion evaluation.
func (e *Engine) replaceSessionItem(ctx context.Context, idx int, ex catalog.Exercise) {
	prev := &e.aw.Items[idx]
	targetSets := prev.TargetSets
	if targetSets == 0 {
		targetSets = defaultTargetSets
	}
	e.aw.Items[idx] = models.WorkoutItem{
		ExerciseID:    ex.ID,
		Name:          ex.Name,
		MuscleGroup:   ex.MuscleGroup,
		TargetSets:    targetSets,
		Type:          ex.Type,
		RestMode:      models.RestAuto,
		SetsCompleted: []models.SetEntry{},
		TplIndex:      prev.TplIndex,
	}
	if idx == e.aw.CurrentExerciseIndex {
		e.resetRest(RecommendedRestSec(&e.aw.Items[idx], nil, e.restDefaults(ctx)))
	}
	e.aw.CompletionPromptShown = false
	e.log.Info("exercise replaced", "index", idx, "exercise", ex.Name)
}

// addSessionItem inserts a new item immediately after the current pointer
// without moving it. Session-only additions carry no template back-reference.
func (e *Engine) addSessionItem(ex catalog.Exercise) {
	insertAt := e.aw.CurrentExerciseIndex + 1
	item := models.WorkoutItem{
		ExerciseID:    ex.ID,
		Name:          ex.Name,
		MuscleGroup:   ex.MuscleGroup,
		TargetSets:    defaultTargetSets,
		Type:          ex.Type,
		RestMode:      models.RestAuto,
		SetsCompleted: []models.SetEntry{},
	}
	e.aw.Items = append(e.aw.Items[:insertAt], append([]models.WorkoutItem{item}, e.aw.Items[insertAt:]...)...)
	e.aw.CompletionPromptShown = false
	e.log.Info("exercise added to session", "index", insertAt, "exercise", ex.Name)
}

// propagateToTemplate mirrors the session mutation into the backing template.
// The affected row is mapped via the item's template back-reference, falling
// back to the clamped positional index when untracked. The positional
// fallback does not verify the row holds the same exercise; kept for
// compatibility with the recorded behavior (see DESIGN.md).
func (e *Engine) propagateToTemplate(ctx context.Context, mode ModifyMode, idx int, ex catalog.Exercise) {
	tpl, err := e.store.GetTemplate(ctx, *e.aw.TemplateID)
	if err != nil {
		e.log.Warn("template propagation skipped", "template", *e.aw.TemplateID, "error", err)
		return
	}
	if len(tpl.Items) == 0 {
		return
	}

	anchor := &e.aw.Items[idx]
	tIndex := clampIndex(idx, len(tpl.Items)-1)
	if anchor.TplIndex != nil {
		tIndex = *anchor.TplIndex
	}

	if mode == ModifyReplace {
		safeIndex := clampIndex(tIndex, len(tpl.Items)-1)
		row := &tpl.Items[safeIndex]
		row.ExerciseID = ex.ID
		row.Name = ex.Name
		row.MuscleGroup = ex.MuscleGroup
		row.Type = ex.Type
		// Sets, RestMode, and RestSec keep the user's original choices.
		anchor.TplIndex = &safeIndex
	} else {
		insertAt := tIndex + 1
		if insertAt > len(tpl.Items) {
			insertAt = len(tpl.Items)
		}
		row := models.TemplateItem{
			ExerciseID:  ex.ID,
			Name:        ex.Name,
			MuscleGroup: ex.MuscleGroup,
			Sets:        defaultTargetSets,
			Type:        ex.Type,
			RestMode:    models.RestAuto,
		}
		tpl.Items = append(tpl.Items[:insertAt], append([]models.TemplateItem{row}, tpl.Items[insertAt:]...)...)

		// Shift back-references at or after the insertion point, then bind
		// the freshly inserted session item to the new row.
		for i := range e.aw.Items {
			if ref := e.aw.Items[i].TplIndex; ref != nil && *ref >= insertAt {
				*ref++
			}
		}
		sessionInsertAt := e.aw.CurrentExerciseIndex + 1
		if sessionInsertAt < len(e.aw.Items) {
			at := insertAt
			e.aw.Items[sessionInsertAt].TplIndex = &at
		}
	}

	if err := e.store.UpdateTemplate(ctx, tpl); err != nil {
		e.log.Warn("template update failed, session change kept", "template", tpl.ID, "error", err)
	}
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
