package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/google/uuid"
	"github.com/meltforce/fittrack/internal/models"
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a local SQLite file. This is the default,
// offline-first driver; all state lives on the device running the server.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (or creates) the SQLite database at path, creating parent
// directories as needed.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Concurrent writes from handlers and the rest ticker share one connection.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// --- Templates ---

func (s *SQLite) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, notes, built_in, items, created_at, updated_at
		 FROM templates ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *tpl)
	}
	return result, rows.Err()
}

func (s *SQLite) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, notes, built_in, items, created_at, updated_at
		 FROM templates WHERE id = ?`, id)
	tpl, err := scanTemplate(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return tpl, err
}

func (s *SQLite) SaveTemplate(ctx context.Context, tpl *models.Template) error {
	items, now, err := prepareTemplate(tpl)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO templates (id, name, notes, built_in, items, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT (id) DO UPDATE
		   SET name = excluded.name, notes = excluded.notes,
		       items = excluded.items, updated_at = excluded.updated_at`,
		tpl.ID, tpl.Name, tpl.Notes, tpl.BuiltIn, items, tpl.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("saving template: %w", err)
	}
	return nil
}

func (s *SQLite) UpdateTemplate(ctx context.Context, tpl *models.Template) error {
	items, now, err := prepareTemplate(tpl)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE templates SET name = ?, notes = ?, items = ?, updated_at = ? WHERE id = ?`,
		tpl.Name, tpl.Notes, items, now, tpl.ID)
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLite) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	return requireAffected(res)
}

// --- Workout history ---

// AppendCompletedSets batch-inserts finalized history records.
func (s *SQLite) AppendCompletedSets(ctx context.Context, sets []models.CompletedSet) error {
	if len(sets) == 0 {
		return nil
	}

	query := `INSERT INTO completed_sets (id, date, exercise_id, exercise_name, muscle_group, weight, reps, rir) VALUES `
	args := make([]any, 0, len(sets)*8)
	valueStrings := make([]string, 0, len(sets))

	for _, cs := range sets {
		valueStrings = append(valueStrings, "(?,?,?,?,?,?,?,?)")
		args = append(args, cs.ID.String(), cs.Date, cs.ExerciseID, cs.ExerciseName,
			cs.MuscleGroup, cs.Weight, cs.Reps, cs.RIR)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting completed sets: %w", err)
	}
	return nil
}

func (s *SQLite) QueryCompletedSets(ctx context.Context, start, end time.Time) ([]models.CompletedSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, exercise_id, exercise_name, muscle_group, weight, reps, rir
		 FROM completed_sets
		 WHERE date >= ? AND date < ?
		 ORDER BY date ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying completed sets: %w", err)
	}
	defer rows.Close()

	var result []models.CompletedSet
	for rows.Next() {
		var cs models.CompletedSet
		var id string
		if err := rows.Scan(&id, &cs.Date, &cs.ExerciseID, &cs.ExerciseName,
			&cs.MuscleGroup, &cs.Weight, &cs.Reps, &cs.RIR); err != nil {
			return nil, fmt.Errorf("scanning completed set: %w", err)
		}
		cs.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing set id %q: %w", id, err)
		}
		result = append(result, cs)
	}
	return result, rows.Err()
}

func (s *SQLite) UpdateCompletedSet(ctx context.Context, set models.CompletedSet) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE completed_sets SET weight = ?, reps = ?, rir = ? WHERE id = ?`,
		set.Weight, set.Reps, set.RIR, set.ID.String())
	if err != nil {
		return fmt.Errorf("updating completed set: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLite) DeleteCompletedSet(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM completed_sets WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting completed set: %w", err)
	}
	return requireAffected(res)
}

// --- Body weight ---

func (s *SQLite) UpsertWeight(ctx context.Context, entry models.WeightEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO weight_entries (date, weight) VALUES (?, ?)
		 ON CONFLICT (date) DO UPDATE SET weight = excluded.weight`,
		entry.Date, entry.Weight)
	if err != nil {
		return fmt.Errorf("upserting weight: %w", err)
	}
	return nil
}

func (s *SQLite) ListWeight(ctx context.Context) ([]models.WeightEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date, weight FROM weight_entries ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying weight entries: %w", err)
	}
	defer rows.Close()

	var result []models.WeightEntry
	for rows.Next() {
		var e models.WeightEntry
		if err := rows.Scan(&e.Date, &e.Weight); err != nil {
			return nil, fmt.Errorf("scanning weight entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// --- Settings and session snapshot ---

func (s *SQLite) GetSettings(ctx context.Context) (models.Settings, error) {
	return getSettings(ctx, s)
}

func (s *SQLite) PutSettings(ctx context.Context, settings models.Settings) error {
	return putSettings(ctx, s, settings)
}

func (s *SQLite) SaveSession(ctx context.Context, aw *models.ActiveWorkout) error {
	return saveSession(ctx, s, aw)
}

func (s *SQLite) LoadSession(ctx context.Context) (*models.ActiveWorkout, error) {
	return loadSession(ctx, s)
}

func (s *SQLite) ClearSession(ctx context.Context) error {
	return s.deleteState(ctx, stateKeySession)
}

func (s *SQLite) getState(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLite) putState(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	return err
}

func (s *SQLite) deleteState(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, key)
	return err
}

// Health approximates the stored-state footprint from the app_state blobs.
func (s *SQLite) Health(ctx context.Context) (HealthReport, error) {
	var size int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(LENGTH(value) + LENGTH(key)), 0) FROM app_state`).Scan(&size)
	if err != nil {
		return HealthReport{}, fmt.Errorf("measuring state size: %w", err)
	}
	return healthReport(size), nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
