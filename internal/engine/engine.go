// Package engine implements the live workout session: exercise sequencing,
// the rest-timer state machine, and live template synchronization.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/fittrack/internal/catalog"
	"github.com/meltforce/fittrack/internal/models"
)

// Store is the persistence boundary the engine writes through. Persistence is
// best-effort: a failing SaveSession never rolls back in-memory state.
type Store interface {
	SaveSession(ctx context.Context, aw *models.ActiveWorkout) error
	LoadSession(ctx context.Context) (*models.ActiveWorkout, error)
	ClearSession(ctx context.Context) error
	GetSettings(ctx context.Context) (models.Settings, error)
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
	UpdateTemplate(ctx context.Context, tpl *models.Template) error
	AppendCompletedSets(ctx context.Context, sets []models.CompletedSet) error
}

// Engine errors. Guarded preconditions surface as sentinel errors so the
// transport layer can map them to statuses; the session state is never
// mutated when one is returned.
var (
	ErrNoActiveWorkout   = errors.New("no active workout")
	ErrWorkoutInProgress = errors.New("a workout is already in progress")
	ErrEmptyTemplate     = errors.New("template has no items")
	ErrInvalidSet        = errors.New("weight must be a finite number >= 0 and reps a positive integer")
	ErrUnknownExercise   = errors.New("unknown exercise")
)

// Event identifies a non-blocking notification emitted by the engine.
type Event string

const (
	EventRestOver        Event = "rest_over"
	EventWorkoutComplete Event = "workout_complete"
)

// LogOutcome describes what a successful LogSet did next.
type LogOutcome string

const (
	// OutcomeRestStarted means the rest timer auto-started for the next set.
	OutcomeRestStarted LogOutcome = "rest_started"
	// OutcomeAdvanced means the pointer rotated to the next incomplete exercise.
	OutcomeAdvanced LogOutcome = "advanced"
	// OutcomeWorkoutComplete means every item reached its target set count.
	OutcomeWorkoutComplete LogOutcome = "workout_complete"
)

// LogResult reports the effect of LogSet.
type LogResult struct {
	Outcome   LogOutcome `json:"outcome"`
	NextIndex int        `json:"next_index,omitempty"`
	RestSec   int        `json:"rest_sec,omitempty"`
}

// ModifyMode selects between inserting a new exercise and replacing one.
type ModifyMode string

const (
	ModifyAdd     ModifyMode = "add"
	ModifyReplace ModifyMode = "replace"
)

// ModifyScope controls whether a live modification propagates back into the
// template the session was started from.
type ModifyScope string

const (
	ScopeSession  ModifyScope = "session"
	ScopeTemplate ModifyScope = "session+template"
)

// Target sets assigned to exercises added mid-session.
const defaultTargetSets = 3

// Engine owns the singleton live session. All operations serialize on one
// mutex; HTTP handlers and the scheduler callback never interleave mid-mutation.
type Engine struct {
	mu     sync.Mutex
	aw     *models.ActiveWorkout
	store  Store
	clock  Clock
	sched  Scheduler
	notify func(Event)
	log    *slog.Logger

	// saveWarn holds the last persistence failure, surfaced to the user and
	// cleared on the next successful save.
	saveWarn string
}

// New creates an Engine. A nil clock uses the system clock, a nil scheduler a
// real 1-second ticker, and a nil notify drops events.
func New(store Store, clock Clock, sched Scheduler, notify func(Event), log *slog.Logger) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if sched == nil {
		sched = &TickerScheduler{}
	}
	if notify == nil {
		notify = func(Event) {}
	}
	return &Engine{store: store, clock: clock, sched: sched, notify: notify, log: log}
}

// Restore loads a persisted session snapshot, recomputing the rest countdown
// from its absolute deadline. Called once at startup.
func (e *Engine) Restore(ctx context.Context) {
	aw, err := e.store.LoadSession(ctx)
	if err != nil {
		e.log.Warn("session restore failed", "error", err)
		return
	}
	if aw == nil || aw.Ended() || len(aw.Items) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aw = aw
	if aw.Rest.State == models.RestRunning && aw.Rest.EndAt != nil {
		aw.Rest.RemainingMS = remainingMS(*aw.Rest.EndAt, e.clock.Now())
		e.sched.Start(e.Tick)
	}
	e.log.Info("active workout restored", "id", aw.ID, "exercise", aw.CurrentItem().Name)
}

// Stop cancels the rest ticker. Called at shutdown.
func (e *Engine) Stop() {
	e.sched.Stop()
}

// SaveWarning returns the last persistence failure message, or "" when the
// most recent save succeeded.
func (e *Engine) SaveWarning() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveWarn
}

// Active returns a deep copy of the live session, or nil when none exists.
func (e *Engine) Active() *models.ActiveWorkout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneWorkout(e.aw)
}

// Start begins a live session from a template. A prior unterminated workout
// is only discarded when the caller has confirmed it (discardActive); the
// confirmation policy stays with the caller.
func (e *Engine) Start(ctx context.Context, templateID string, discardActive bool) (*models.ActiveWorkout, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw != nil && !e.aw.Ended() {
		if !discardActive {
			return nil, ErrWorkoutInProgress
		}
		e.sched.Stop()
		e.aw = nil
	}

	tpl, err := e.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}
	if len(tpl.Items) == 0 {
		return nil, ErrEmptyTemplate
	}

	items := make([]models.WorkoutItem, len(tpl.Items))
	for i, it := range tpl.Items {
		items[i] = sessionItem(it, i)
	}

	defaults := e.restDefaults(ctx)
	firstRest := RecommendedRestSec(&items[0], nil, defaults)
	now := e.clock.Now()
	tplID := tpl.ID

	e.aw = &models.ActiveWorkout{
		ID:                   fmt.Sprintf("AW-%d", now.UnixMilli()),
		Name:                 tpl.Name,
		TemplateID:           &tplID,
		StartedAt:            now,
		CurrentExerciseIndex: 0,
		Items:                items,
		Rest:                 idleRest(firstRest),
	}
	e.persist(ctx)
	e.log.Info("workout started", "id", e.aw.ID, "template", tpl.ID, "exercises", len(items))
	return cloneWorkout(e.aw), nil
}

// LogSet appends a completed set to the current exercise and decides what
// happens next: auto-start rest, rotate to the next incomplete exercise, or
// signal workout completion (exactly once per session, guarded by the
// completion-prompt flag).
func (e *Engine) LogSet(ctx context.Context, weight float64, reps int, rir *int) (LogResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil || e.aw.Ended() {
		return LogResult{}, ErrNoActiveWorkout
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 || reps <= 0 {
		return LogResult{}, ErrInvalidSet
	}

	item := e.aw.CurrentItem()
	prevDone := len(item.SetsCompleted)
	entry := models.SetEntry{Weight: weight, Reps: reps, RIR: rir, LoggedAt: e.clock.Now()}
	item.SetsCompleted = append(item.SetsCompleted, entry)

	if e.aw.FullyCompleted() && !e.aw.CompletionPromptShown {
		e.resetRest(e.aw.Rest.DurationSec)
		e.aw.CompletionPromptShown = true
		e.persist(ctx)
		e.notify(EventWorkoutComplete)
		e.log.Info("workout complete", "id", e.aw.ID)
		return LogResult{Outcome: OutcomeWorkoutComplete}, nil
	}

	justCompleted := prevDone+1 == item.TargetSets && item.TargetSets > 0
	if justCompleted {
		if next := e.nextIncompleteIndex(e.aw.CurrentExerciseIndex); next != -1 {
			e.aw.CurrentExerciseIndex = next
			e.resetRest(RecommendedRestSec(e.aw.CurrentItem(), nil, e.restDefaults(ctx)))
			e.persist(ctx)
			return LogResult{Outcome: OutcomeAdvanced, NextIndex: next}, nil
		}
		// Nothing incomplete remains but the session is already flagged
		// complete; fall through to the auto-rest branch.
	}

	restSec := RecommendedRestSec(item, &entry, e.restDefaults(ctx))
	e.startRest(restSec)
	e.persist(ctx)
	return LogResult{Outcome: OutcomeRestStarted, RestSec: restSec}, nil
}

// Advance moves the exercise pointer by one position. Out-of-range moves are
// silently ignored; there is no wraparound. Manual navigation resets the rest
// timer without carrying over auto-adjust context.
func (e *Engine) Advance(ctx context.Context, direction int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil || e.aw.Ended() {
		return ErrNoActiveWorkout
	}
	target := e.aw.CurrentExerciseIndex + direction
	if direction != 1 && direction != -1 || target < 0 || target >= len(e.aw.Items) {
		return nil
	}
	e.aw.CurrentExerciseIndex = target
	e.resetRest(RecommendedRestSec(e.aw.CurrentItem(), nil, e.restDefaults(ctx)))
	e.persist(ctx)
	return nil
}

// RestStartPause toggles the rest timer between running and paused. Pausing
// freezes the remaining time; resuming re-anchors the absolute deadline.
func (e *Engine) RestStartPause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil || e.aw.Ended() {
		return ErrNoActiveWorkout
	}
	rest := &e.aw.Rest
	if rest.State == models.RestRunning {
		if rest.EndAt != nil {
			rest.RemainingMS = remainingMS(*rest.EndAt, e.clock.Now())
		}
		rest.State = models.RestPaused
		rest.EndAt = nil
		e.sched.Stop()
	} else {
		if rest.RemainingMS == 0 {
			rest.RemainingMS = int64(rest.DurationSec) * 1000
		}
		endAt := e.clock.Now().Add(time.Duration(rest.RemainingMS) * time.Millisecond)
		rest.EndAt = &endAt
		rest.State = models.RestRunning
		e.sched.Start(e.Tick)
	}
	e.persist(ctx)
	return nil
}

// RestReset returns the timer to idle at the full configured duration.
func (e *Engine) RestReset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil || e.aw.Ended() {
		return ErrNoActiveWorkout
	}
	e.resetRest(e.aw.Rest.DurationSec)
	e.persist(ctx)
	return nil
}

// RestSkip cancels the wait. Same terminal effect as natural expiry: idle
// with the clock reset to the full duration, not zeroed.
func (e *Engine) RestSkip(ctx context.Context) error {
	return e.RestReset(ctx)
}

// RestAdjust shifts a running countdown's deadline by delta seconds without
// resetting elapsed progress. While not running it re-tunes the configured
// duration instead, clamped to the valid rest range.
func (e *Engine) RestAdjust(ctx context.Context, deltaSec int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil || e.aw.Ended() {
		return ErrNoActiveWorkout
	}
	rest := &e.aw.Rest
	if rest.State == models.RestRunning && rest.EndAt != nil {
		endAt := rest.EndAt.Add(time.Duration(deltaSec) * time.Second)
		rest.EndAt = &endAt
		rest.RemainingMS = remainingMS(endAt, e.clock.Now())
	} else {
		rest.DurationSec = clampRestSec(rest.DurationSec + deltaSec)
		rest.RemainingMS = int64(rest.DurationSec) * 1000
	}
	e.persist(ctx)
	return nil
}

// Tick advances a running countdown. Invoked once per second by the
// scheduler; a stale callback after pause, skip, or workout end finds the
// timer no longer running and cancels itself.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil || e.aw.Rest.State != models.RestRunning || e.aw.Rest.EndAt == nil {
		e.sched.Stop()
		return
	}
	rest := &e.aw.Rest
	rest.RemainingMS = remainingMS(*rest.EndAt, e.clock.Now())
	if rest.RemainingMS > 0 {
		return
	}
	rest.State = models.RestIdle
	rest.EndAt = nil
	e.sched.Stop()
	e.persist(context.Background())
	e.notify(EventRestOver)
}

// Discard drops the live session without writing any history.
func (e *Engine) Discard(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil || e.aw.Ended() {
		return ErrNoActiveWorkout
	}
	e.sched.Stop()
	id := e.aw.ID
	e.aw = nil
	if err := e.store.ClearSession(ctx); err != nil {
		e.log.Warn("clearing session snapshot failed", "error", err)
	}
	e.log.Info("workout discarded", "id", id)
	return nil
}

// Finish stamps the session terminal and drains every logged set into the
// history sink, one record per set with a fresh unique id. It is
// authoritative regardless of whether the completion prompt was resolved.
// When the sink write fails the session is left untouched so the caller can
// retry; on success the singleton is cleared.
func (e *Engine) Finish(ctx context.Context) ([]models.CompletedSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil {
		return nil, ErrNoActiveWorkout
	}

	now := e.clock.Now()
	var records []models.CompletedSet
	for i := range e.aw.Items {
		item := &e.aw.Items[i]
		for _, set := range item.SetsCompleted {
			date := set.LoggedAt
			if date.IsZero() {
				date = now
			}
			records = append(records, models.CompletedSet{
				ID:           uuid.New(),
				Date:         date,
				ExerciseID:   item.ExerciseID,
				ExerciseName: item.Name,
				MuscleGroup:  item.MuscleGroup,
				Weight:       set.Weight,
				Reps:         set.Reps,
				RIR:          set.RIR,
			})
		}
	}

	if len(records) > 0 {
		if err := e.store.AppendCompletedSets(ctx, records); err != nil {
			return nil, fmt.Errorf("writing history: %w", err)
		}
	}

	e.aw.EndedAt = &now
	e.sched.Stop()
	id := e.aw.ID
	e.aw = nil
	if err := e.store.ClearSession(ctx); err != nil {
		e.log.Warn("clearing session snapshot failed", "error", err)
	}
	e.log.Info("workout finished", "id", id, "sets", len(records))
	return records, nil
}

// ResumeCompletion reopens a session that reached the completion prompt:
// the pointer moves to the last item so a subsequent add inserts at the end,
// and the prompt may fire again once new work is added.
func (e *Engine) ResumeCompletion(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.aw == nil || e.aw.Ended() {
		return ErrNoActiveWorkout
	}
	e.aw.CurrentExerciseIndex = len(e.aw.Items) - 1
	e.aw.CompletionPromptShown = false
	e.persist(ctx)
	return nil
}

func (e *Engine) nextIncompleteIndex(from int) int {
	n := len(e.aw.Items)
	for offset := 1; offset < n; offset++ {
		i := (from + offset) % n
		it := &e.aw.Items[i]
		if len(it.SetsCompleted) < it.TargetSets {
			return i
		}
	}
	return -1
}

func (e *Engine) restDefaults(ctx context.Context) models.RestDefaults {
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		e.log.Warn("loading settings failed, using defaults", "error", err)
		return models.DefaultRestDefaults()
	}
	return settings.RestDefaults
}

// resetRest puts the timer in idle at the given duration and cancels the
// scheduled callback.
func (e *Engine) resetRest(durationSec int) {
	e.aw.Rest = idleRest(durationSec)
	e.sched.Stop()
}

func (e *Engine) startRest(durationSec int) {
	endAt := e.clock.Now().Add(time.Duration(durationSec) * time.Second)
	e.aw.Rest = models.RestState{
		State:       models.RestRunning,
		DurationSec: durationSec,
		RemainingMS: int64(durationSec) * 1000,
		EndAt:       &endAt,
	}
	e.sched.Start(e.Tick)
}

// persist mirrors the session to storage. Failure degrades to a surfaced
// warning; the live session continues in memory.
func (e *Engine) persist(ctx context.Context) {
	if err := e.store.SaveSession(ctx, e.aw); err != nil {
		e.saveWarn = "saving workout failed: " + err.Error()
		e.log.Warn("session persist failed", "error", err)
		return
	}
	e.saveWarn = ""
}

func idleRest(durationSec int) models.RestState {
	return models.RestState{
		State:       models.RestIdle,
		DurationSec: durationSec,
		RemainingMS: int64(durationSec) * 1000,
	}
}

func remainingMS(endAt, now time.Time) int64 {
	ms := endAt.Sub(now).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

func sessionItem(it models.TemplateItem, tplIndex int) models.WorkoutItem {
	targetSets := it.Sets
	if targetSets == 0 {
		targetSets = defaultTargetSets
	}
	exType := it.Type
	if exType == "" {
		exType = models.TypeAccessory
		if ex, ok := catalog.ByID(it.ExerciseID); ok {
			exType = ex.Type
		}
	}
	restMode := it.RestMode
	if restMode == "" {
		restMode = models.RestAuto
	}
	var customRest *int
	if restMode == models.RestCustom {
		sec := 90
		if it.RestSec != nil && *it.RestSec != 0 {
			sec = *it.RestSec
		}
		customRest = &sec
	}
	idx := tplIndex
	return models.WorkoutItem{
		ExerciseID:    it.ExerciseID,
		Name:          it.Name,
		MuscleGroup:   it.MuscleGroup,
		TargetSets:    targetSets,
		Type:          exType,
		RestMode:      restMode,
		CustomRestSec: customRest,
		SetsCompleted: []models.SetEntry{},
		TplIndex:      &idx,
	}
}

func cloneWorkout(aw *models.ActiveWorkout) *models.ActiveWorkout {
	if aw == nil {
		return nil
	}
	out := *aw
	out.Items = make([]models.WorkoutItem, len(aw.Items))
	for i, it := range aw.Items {
		out.Items[i] = it
		out.Items[i].SetsCompleted = append([]models.SetEntry(nil), it.SetsCompleted...)
		if it.TplIndex != nil {
			idx := *it.TplIndex
			out.Items[i].TplIndex = &idx
		}
		if it.CustomRestSec != nil {
			sec := *it.CustomRestSec
			out.Items[i].CustomRestSec = &sec
		}
	}
	if aw.TemplateID != nil {
		id := *aw.TemplateID
		out.TemplateID = &id
	}
	if aw.EndedAt != nil {
		t := *aw.EndedAt
		out.EndedAt = &t
	}
	if aw.Rest.EndAt != nil {
		t := *aw.Rest.EndAt
		out.Rest.EndAt = &t
	}
	return &out
}
