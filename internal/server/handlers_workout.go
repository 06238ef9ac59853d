package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meltforce/fittrack/internal/engine"
	"github.com/meltforce/fittrack/internal/storage"
)

// workoutResponse wraps the live session with its persistence status so
// clients can surface a "changes not saved" warning without blocking.
type workoutResponse struct {
	Workout     any    `json:"workout"`
	SaveWarning string `json:"save_warning,omitempty"`
}

func (s *Server) workoutState() workoutResponse {
	return workoutResponse{Workout: s.engine.Active(), SaveWarning: s.engine.SaveWarning()}
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.workoutState())
}

func (s *Server) handleStartWorkout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TemplateID    string `json:"template_id"`
		DiscardActive bool   `json:"discard_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	aw, err := s.engine.Start(r.Context(), body.TemplateID, body.DiscardActive)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, workoutResponse{Workout: aw, SaveWarning: s.engine.SaveWarning()})
}

func (s *Server) handleLogSet(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Weight float64 `json:"weight"`
		Reps   int     `json:"reps"`
		RIR    *int    `json:"rir"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	result, err := s.engine.LogSet(r.Context(), body.Weight, body.Reps, body.RIR)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"result":  result,
		"workout": s.engine.Active(),
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Direction int `json:"direction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := s.engine.Advance(r.Context(), body.Direction); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.workoutState())
}

func (s *Server) handleRestToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RestStartPause(r.Context()); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.workoutState())
}

func (s *Server) handleRestReset(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RestReset(r.Context()); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.workoutState())
}

func (s *Server) handleRestSkip(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RestSkip(r.Context()); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.workoutState())
}

func (s *Server) handleRestAdjust(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeltaSec int `json:"delta_sec"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := s.engine.RestAdjust(r.Context(), body.DeltaSec); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.workoutState())
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode        string `json:"mode"`  // add | replace
		Scope       string `json:"scope"` // session | session+template
		TargetIndex *int   `json:"target_index"`
		ExerciseID  int    `json:"exercise_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	mode := engine.ModifyAdd
	if body.Mode == string(engine.ModifyReplace) {
		mode = engine.ModifyReplace
	}
	scope := engine.ScopeSession
	if body.Scope == string(engine.ScopeTemplate) {
		scope = engine.ScopeTemplate
	}
	target := -1
	if body.TargetIndex != nil {
		target = *body.TargetIndex
	}
	if err := s.engine.Modify(r.Context(), mode, target, body.ExerciseID, scope); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.workoutState())
}

func (s *Server) handleResumeCompletion(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResumeCompletion(r.Context()); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.workoutState())
}

func (s *Server) handleFinishWorkout(w http.ResponseWriter, r *http.Request) {
	records, err := s.engine.Finish(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "finished",
		"sets_logged": len(records),
	})
}

func (s *Server) handleDiscardWorkout(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Discard(r.Context()); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

// writeEngineError maps engine sentinel errors to HTTP statuses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidSet), errors.Is(err, engine.ErrUnknownExercise):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrNoActiveWorkout), errors.Is(err, engine.ErrWorkoutInProgress):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrEmptyTemplate):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		s.log.Error("workout operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
