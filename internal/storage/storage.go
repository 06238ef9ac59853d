// Package storage persists templates, workout history, body weight, settings,
// and the live session snapshot. Two drivers are provided: a local SQLite file
// (the default, offline-first) and Postgres for self-hosted deployments.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/meltforce/fittrack/internal/catalog"
	"github.com/meltforce/fittrack/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the full persistence surface. Both *Postgres and *SQLite satisfy it.
type Store interface {
	// Templates
	ListTemplates(ctx context.Context) ([]models.Template, error)
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
	SaveTemplate(ctx context.Context, tpl *models.Template) error
	UpdateTemplate(ctx context.Context, tpl *models.Template) error
	DeleteTemplate(ctx context.Context, id string) error

	// Workout history (append-only sink, independently editable post-hoc)
	AppendCompletedSets(ctx context.Context, sets []models.CompletedSet) error
	QueryCompletedSets(ctx context.Context, start, end time.Time) ([]models.CompletedSet, error)
	UpdateCompletedSet(ctx context.Context, set models.CompletedSet) error
	DeleteCompletedSet(ctx context.Context, id uuid.UUID) error

	// Body weight
	UpsertWeight(ctx context.Context, entry models.WeightEntry) error
	ListWeight(ctx context.Context) ([]models.WeightEntry, error)

	// Settings and live-session snapshot (key-value JSON blobs)
	GetSettings(ctx context.Context) (models.Settings, error)
	PutSettings(ctx context.Context, s models.Settings) error
	SaveSession(ctx context.Context, aw *models.ActiveWorkout) error
	LoadSession(ctx context.Context) (*models.ActiveWorkout, error)
	ClearSession(ctx context.Context) error

	Health(ctx context.Context) (HealthReport, error)
	Close() error
}

// app_state keys.
const (
	stateKeySettings = "settings"
	stateKeySession  = "active_workout"
	stateKeySeeded   = "seeded_templates_v1"
)

// Storage health thresholds, approximating the stored-state footprint the
// original on-device quota checks enforced.
const (
	healthQuotaBytes    = 5 * 1024 * 1024
	healthWarnBytes     = 4 * 1024 * 1024
	healthCriticalBytes = 4*1024*1024 + 512*1024
)

// HealthReport describes how full the state store is.
type HealthReport struct {
	Status     string `json:"status"` // healthy | warning | critical
	SizeBytes  int64  `json:"size_bytes"`
	Percentage int    `json:"percentage"`
}

func healthReport(size int64) HealthReport {
	status := "healthy"
	if size >= healthCriticalBytes {
		status = "critical"
	} else if size >= healthWarnBytes {
		status = "warning"
	}
	pct := int(float64(size) / healthQuotaBytes * 100)
	return HealthReport{Status: status, SizeBytes: size, Percentage: pct}
}

// stateKV is the low-level key-value access both drivers implement; the
// JSON-blob operations below are shared on top of it.
type stateKV interface {
	getState(ctx context.Context, key string) ([]byte, bool, error)
	putState(ctx context.Context, key string, value []byte) error
	deleteState(ctx context.Context, key string) error
}

func getSettings(ctx context.Context, kv stateKV) (models.Settings, error) {
	defaults := models.Settings{RestDefaults: models.DefaultRestDefaults()}
	raw, ok, err := kv.getState(ctx, stateKeySettings)
	if err != nil {
		return defaults, fmt.Errorf("reading settings: %w", err)
	}
	if !ok {
		return defaults, nil
	}
	var s models.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return defaults, fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}

func putSettings(ctx context.Context, kv stateKV, s models.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return kv.putState(ctx, stateKeySettings, raw)
}

func saveSession(ctx context.Context, kv stateKV, aw *models.ActiveWorkout) error {
	if aw == nil {
		return kv.deleteState(ctx, stateKeySession)
	}
	raw, err := json.Marshal(aw)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return kv.putState(ctx, stateKeySession, raw)
}

func loadSession(ctx context.Context, kv stateKV) (*models.ActiveWorkout, error) {
	raw, ok, err := kv.getState(ctx, stateKeySession)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var aw models.ActiveWorkout
	if err := json.Unmarshal(raw, &aw); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &aw, nil
}

// SeedStarterTemplates inserts the built-in Push/Pull/Legs templates once per
// installation. The seed flag is set even when nothing was added so templates
// deleted on purpose stay deleted.
func SeedStarterTemplates(ctx context.Context, s Store, log *slog.Logger) error {
	kv, ok := s.(stateKV)
	if !ok {
		return nil
	}
	_, seeded, err := kv.getState(ctx, stateKeySeeded)
	if err != nil {
		return fmt.Errorf("checking seed flag: %w", err)
	}
	if seeded {
		return nil
	}

	existing, err := s.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, t := range existing {
		have[t.ID] = true
	}

	added := 0
	for _, tpl := range catalog.StarterTemplates() {
		if have[tpl.ID] {
			continue
		}
		tpl := tpl
		if err := s.SaveTemplate(ctx, &tpl); err != nil {
			return fmt.Errorf("seeding template %s: %w", tpl.ID, err)
		}
		added++
	}
	if added > 0 {
		log.Info("starter templates seeded", "count", added)
	}
	return kv.putState(ctx, stateKeySeeded, []byte("1"))
}

// Export is a full data dump for backup.
type Export struct {
	Version       string                `json:"version"`
	ExportDate    time.Time             `json:"export_date"`
	Templates     []models.Template     `json:"templates"`
	CompletedSets []models.CompletedSet `json:"completed_sets"`
	WeightHistory []models.WeightEntry  `json:"weight_history"`
	Settings      models.Settings       `json:"settings"`
}

// ExportAll assembles a complete backup of the store's contents.
func ExportAll(ctx context.Context, s Store, now time.Time) (*Export, error) {
	templates, err := s.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting templates: %w", err)
	}
	sets, err := s.QueryCompletedSets(ctx, time.Time{}, now.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("exporting sets: %w", err)
	}
	weight, err := s.ListWeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting weight: %w", err)
	}
	settings, err := s.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("exporting settings: %w", err)
	}
	return &Export{
		Version:       "1.0",
		ExportDate:    now,
		Templates:     templates,
		CompletedSets: sets,
		WeightHistory: weight,
		Settings:      settings,
	}, nil
}

// WeeklyVolume is one week's logged-set count, newest week last.
type WeeklyVolume struct {
	Label string `json:"label"` // W-1 is the oldest bucket shown
	Sets  int    `json:"sets"`
}

// WeeklySetCounts buckets completed sets into the last n calendar weeks
// anchored on today, matching the volume chart's aggregation.
func WeeklySetCounts(sets []models.CompletedSet, n int, now time.Time) []WeeklyVolume {
	out := make([]WeeklyVolume, 0, n)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := n - 1; i >= 0; i-- {
		start := day.AddDate(0, 0, -i*7)
		end := start.AddDate(0, 0, 7)
		count := 0
		for _, s := range sets {
			if !s.Date.Before(start) && s.Date.Before(end) {
				count++
			}
		}
		out = append(out, WeeklyVolume{Label: fmt.Sprintf("W-%d", n-i), Sets: count})
	}
	return out
}
