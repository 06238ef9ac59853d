package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meltforce/fittrack/internal/catalog"
	"github.com/meltforce/fittrack/internal/engine"
	"github.com/meltforce/fittrack/internal/models"
	"github.com/meltforce/fittrack/internal/storage"
)

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Search(r.URL.Query().Get("q")))
}

// --- Templates ---

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if templates == nil {
		templates = []models.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.store.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl models.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := validateTemplate(&tpl); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	if tpl.ID == "" {
		tpl.ID = "tpl_" + uuid.NewString()
	}
	tpl.BuiltIn = false
	if err := s.store.SaveTemplate(r.Context(), &tpl); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl models.Template
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	tpl.ID = chi.URLParam(r, "id")
	if err := validateTemplate(&tpl); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	err := s.store.UpdateTemplate(r.Context(), &tpl)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteTemplate(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	src, err := s.store.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	dup := *src
	dup.ID = "tpl_" + uuid.NewString()
	dup.Name = src.Name + " (copy)"
	dup.BuiltIn = false
	dup.CreatedAt = time.Time{}
	dup.Items = append([]models.TemplateItem(nil), src.Items...)
	if err := s.store.SaveTemplate(r.Context(), &dup); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

func validateTemplate(tpl *models.Template) error {
	if tpl.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if len(tpl.Items) == 0 {
		return fmt.Errorf("template needs at least one exercise")
	}
	for i := range tpl.Items {
		it := &tpl.Items[i]
		if _, ok := catalog.ByID(it.ExerciseID); !ok {
			return fmt.Errorf("unknown exercise id %d", it.ExerciseID)
		}
		if it.Sets < 1 {
			it.Sets = 1
		}
		if it.RestMode == "" {
			it.RestMode = models.RestAuto
		}
		if it.RestMode == models.RestCustom && it.RestSec != nil {
			sec := *it.RestSec
			if sec < engine.MinRestSec {
				sec = engine.MinRestSec
			}
			if sec > engine.MaxRestSec {
				sec = engine.MaxRestSec
			}
			it.RestSec = &sec
		}
	}
	return nil
}

// --- Workout history ---

func (s *Server) handleQuerySets(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sets, err := s.store.QueryCompletedSets(r.Context(), start, end)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if sets == nil {
		sets = []models.CompletedSet{}
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleWeeklyVolume(w http.ResponseWriter, r *http.Request) {
	weeks := 4
	now := time.Now()
	sets, err := s.store.QueryCompletedSets(r.Context(), now.AddDate(0, 0, -weeks*7), now.AddDate(0, 0, 1))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, storage.WeeklySetCounts(sets, weeks, now))
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set ID"})
		return
	}
	var body struct {
		Weight float64 `json:"weight"`
		Reps   int     `json:"reps"`
		RIR    *int    `json:"rir"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if body.Weight < 0 || body.Reps <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weight must be >= 0 and reps positive"})
		return
	}
	err = s.store.UpdateCompletedSet(r.Context(), models.CompletedSet{
		ID: id, Weight: body.Weight, Reps: body.Reps, RIR: body.RIR,
	})
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "set not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid set ID"})
		return
	}
	err = s.store.DeleteCompletedSet(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "set not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Body weight ---

func (s *Server) handleListWeight(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListWeight(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []models.WeightEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleLogWeight(w http.ResponseWriter, r *http.Request) {
	var entry models.WeightEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if entry.Weight <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weight must be positive"})
		return
	}
	if entry.Date == "" {
		entry.Date = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", entry.Date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	if err := s.store.UpsertWeight(r.Context(), entry); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// --- Settings ---

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	rd := &settings.RestDefaults
	rd.CompoundSec = clampSec(rd.CompoundSec)
	rd.AccessorySec = clampSec(rd.AccessorySec)
	if err := s.store.PutSettings(r.Context(), settings); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func clampSec(sec int) int {
	if sec < engine.MinRestSec {
		return engine.MinRestSec
	}
	if sec > engine.MaxRestSec {
		return engine.MaxRestSec
	}
	return sec
}

// --- Storage health & export ---

func (s *Server) handleStorageHealth(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Health(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := storage.ExportAll(r.Context(), s.store, time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, export)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 30 days
		end = time.Now()
		start = end.AddDate(0, 0, -30)
		return
	}

	start, err = time.Parse(time.RFC3339, startStr)
	if err != nil {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	if endStr == "" {
		end = time.Now()
	} else {
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			end, err = time.Parse("2006-01-02", endStr)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			// End of day for date-only
			end = end.Add(24 * time.Hour)
		}
	}
	return
}
