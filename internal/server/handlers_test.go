package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/meltforce/fittrack/internal/engine"
	"github.com/meltforce/fittrack/internal/models"
	"github.com/meltforce/fittrack/internal/storage"
)

const testKey = "test-key"

// newTestServer wires a Server against a real SQLite store in a temp dir.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if err := storage.RunMigrations("sqlite://"+path, "../../migrations/sqlite"); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	store, err := storage.NewSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(store, nil, nil, nil, log)
	t.Cleanup(eng.Stop)
	return New(store, eng, testKey, log)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-API-Key", testKey)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

// TestAuthGuardsAPI verifies every /api/v1 route sits behind the API key.
func TestAuthGuardsAPI(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/exercises", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without key", rec.Code)
	}
}

// TestListExercises verifies the catalog endpoint and its query filter.
func TestListExercises(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/exercises", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	all := decode[[]map[string]any](t, rec)
	if len(all) != 14 {
		t.Errorf("exercises = %d, want 14", len(all))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/exercises?q=bench", nil)
	filtered := decode[[]map[string]any](t, rec)
	if len(filtered) != 1 {
		t.Errorf("filtered = %d, want 1", len(filtered))
	}
}

// TestTemplateLifecycle verifies create, get, update, duplicate, and delete
// through the HTTP surface.
func TestTemplateLifecycle(t *testing.T) {
	s := newTestServer(t)

	body := map[string]any{
		"name": "Upper A",
		"items": []map[string]any{
			{"exercise_id": 101, "name": "Barbell Bench Press", "muscle_group": "chest", "sets": 4, "type": "compound", "rest_mode": "auto"},
		},
	}
	rec := doJSON(t, s, http.MethodPost, "/api/v1/templates", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[models.Template](t, rec)
	if created.ID == "" || created.BuiltIn {
		t.Errorf("created = %+v, want generated id and built_in false", created)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/templates/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	created.Name = "Upper A v2"
	rec = doJSON(t, s, http.MethodPut, "/api/v1/templates/"+created.ID, created)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/templates/"+created.ID+"/duplicate", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	dup := decode[models.Template](t, rec)
	if dup.ID == created.ID || dup.Name != "Upper A v2 (copy)" {
		t.Errorf("duplicate = %+v", dup)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/templates/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/v1/templates/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

// TestTemplateValidationErrors verifies malformed templates are rejected
// with 422 and never stored.
func TestTemplateValidationErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"items": []map[string]any{{"exercise_id": 101, "sets": 3}}}},
		{"no items", map[string]any{"name": "Empty"}},
		{"unknown exercise", map[string]any{"name": "Bad", "items": []map[string]any{{"exercise_id": 99999, "sets": 3}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/v1/templates", tc.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", rec.Code)
			}
		})
	}
}

// TestWorkoutFlow verifies the session lifecycle over HTTP: start, log a set,
// reject a bad set, finish into history.
func TestWorkoutFlow(t *testing.T) {
	s := newTestServer(t)

	tplBody := map[string]any{
		"name": "Quick Day",
		"items": []map[string]any{
			{"exercise_id": 101, "name": "Barbell Bench Press", "muscle_group": "chest", "sets": 2, "type": "compound", "rest_mode": "auto"},
		},
	}
	tpl := decode[models.Template](t, doJSON(t, s, http.MethodPost, "/api/v1/templates", tplBody))

	rec := doJSON(t, s, http.MethodPost, "/api/v1/workout/start", map[string]any{"template_id": tpl.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}

	// Starting again without confirmation conflicts with the live session.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/workout/start", map[string]any{"template_id": tpl.ID})
	if rec.Code != http.StatusConflict {
		t.Errorf("double start status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/workout/sets", map[string]any{"weight": 100, "reps": 8})
	if rec.Code != http.StatusOK {
		t.Fatalf("log set status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/workout/sets", map[string]any{"weight": -5, "reps": 8})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid set status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/workout/finish", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("finish status = %d: %s", rec.Code, rec.Body.String())
	}
	result := decode[map[string]any](t, rec)
	if result["sets_logged"] != float64(1) {
		t.Errorf("sets_logged = %v, want 1", result["sets_logged"])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/workout", nil)
	state := decode[map[string]any](t, rec)
	if state["workout"] != nil {
		t.Errorf("workout = %v, want null after finish", state["workout"])
	}

	// The finished sets are queryable history.
	rec = doJSON(t, s, http.MethodGet, "/api/v1/sets", nil)
	sets := decode[[]models.CompletedSet](t, rec)
	if len(sets) != 1 {
		t.Errorf("history sets = %d, want 1", len(sets))
	}

	// Finishing again without a session conflicts.
	rec = doJSON(t, s, http.MethodPost, "/api/v1/workout/finish", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("finish without session status = %d, want 409", rec.Code)
	}
}

// TestWorkoutStartUnknownTemplate verifies starting from a missing template
// maps to 404.
func TestWorkoutStartUnknownTemplate(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/api/v1/workout/start", map[string]any{"template_id": "tpl_nope"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestWeightEndpoints verifies the weight log's validation and upsert.
func TestWeightEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/v1/weight", map[string]any{"weight": 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero weight status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPost, "/api/v1/weight", map[string]any{"date": "01/06/2025", "weight": 82})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/weight", map[string]any{"date": "2025-06-01", "weight": 82.4})
	if rec.Code != http.StatusOK {
		t.Fatalf("log weight status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/v1/weight", nil)
	entries := decode[[]models.WeightEntry](t, rec)
	if len(entries) != 1 || entries[0].Weight != 82.4 {
		t.Errorf("entries = %+v", entries)
	}
}

// TestSettingsClamp verifies rest defaults are clamped into the valid range
// on write.
func TestSettingsClamp(t *testing.T) {
	s := newTestServer(t)

	body := map[string]any{"rest_defaults": map[string]any{"compound_sec": 5, "accessory_sec": 9999, "auto_adjust": true}}
	rec := doJSON(t, s, http.MethodPut, "/api/v1/settings", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	settings := decode[models.Settings](t, rec)
	if settings.RestDefaults.CompoundSec != engine.MinRestSec {
		t.Errorf("compound = %d, want clamped %d", settings.RestDefaults.CompoundSec, engine.MinRestSec)
	}
	if settings.RestDefaults.AccessorySec != engine.MaxRestSec {
		t.Errorf("accessory = %d, want clamped %d", settings.RestDefaults.AccessorySec, engine.MaxRestSec)
	}
}

// TestStorageHealthEndpoint verifies the health report shape.
func TestStorageHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/v1/storage/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	report := decode[storage.HealthReport](t, rec)
	if report.Status != "healthy" {
		t.Errorf("status = %q, want healthy on a fresh store", report.Status)
	}
}

// TestValidateTemplateNormalizes verifies in-place normalization: zero sets
// become one, empty rest mode defaults to auto, custom rest is clamped.
func TestValidateTemplateNormalizes(t *testing.T) {
	sec := 9999
	tpl := &models.Template{
		Name: "T",
		Items: []models.TemplateItem{
			{ExerciseID: 101, Sets: 0},
			{ExerciseID: 601, Sets: 3, RestMode: models.RestCustom, RestSec: &sec},
		},
	}
	if err := validateTemplate(tpl); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if tpl.Items[0].Sets != 1 {
		t.Errorf("sets = %d, want raised to 1", tpl.Items[0].Sets)
	}
	if tpl.Items[0].RestMode != models.RestAuto {
		t.Errorf("rest mode = %q, want auto default", tpl.Items[0].RestMode)
	}
	if *tpl.Items[1].RestSec != engine.MaxRestSec {
		t.Errorf("rest sec = %d, want clamped %d", *tpl.Items[1].RestSec, engine.MaxRestSec)
	}
}

// TestParseTimeRange verifies both accepted date formats and the default window.
func TestParseTimeRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?start=2025-06-01&end=2025-06-10", nil)
	start, end, err := parseTimeRange(req)
	if err != nil {
		t.Fatal(err)
	}
	if start.Format("2006-01-02") != "2025-06-01" {
		t.Errorf("start = %v", start)
	}
	// Date-only end is pushed to end of day.
	if !end.After(start.AddDate(0, 0, 9)) {
		t.Errorf("end = %v, want inclusive of 2025-06-10", end)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	start, end, err = parseTimeRange(req)
	if err != nil {
		t.Fatal(err)
	}
	if days := end.Sub(start).Hours() / 24; days < 29 || days > 31 {
		t.Errorf("default window = %.1f days, want ~30", days)
	}

	req = httptest.NewRequest(http.MethodGet, "/?start=junk", nil)
	if _, _, err := parseTimeRange(req); err == nil {
		t.Error("expected error for malformed start")
	}
}
