package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meltforce/fittrack/internal/models"
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres creates a Postgres store and verifies connectivity.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

// RunMigrations applies all pending migrations from the given directory.
// The DSN scheme selects the migrate database driver (postgres or sqlite).
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// --- Templates ---

func (db *Postgres) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := db.pool.Query(ctx,
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

func (db *Postgres) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, name, notes, built_in, items, created_at, updated_at
		 FROM templates WHERE id = $1`, id)
	tpl, err := scanTemplate(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return tpl, err
}

func (db *Postgres) SaveTemplate(ctx context.Context, tpl *models.Template) error {
	items, now, err := prepareTemplate(tpl)
	if err != nil {
		return err
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO templates (id, name, notes, built_in, items, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (id) DO UPDATE
		   SET name = $2, notes = $3, items = $5, updated_at = $7`,
		tpl.ID, tpl.Name, tpl.Notes, tpl.BuiltIn, items, tpl.CreatedAt, now)
	if err != nil {
		return fmt.Errorf("saving template: %w", err)
	}
	return nil
}

func (db *Postgres) UpdateTemplate(ctx context.Context, tpl *models.Template) error {
	items, now, err := prepareTemplate(tpl)
	if err != nil {
		return err
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE templates SET name = $2, notes = $3, items = $4, updated_at = $5 WHERE id = $1`,
		tpl.ID, tpl.Name, tpl.Notes, items, now)
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Workout history ---

// AppendCompletedSets batch-inserts finalized history records.
func (db *Postgres) AppendCompletedSets(ctx context.Context, sets []models.CompletedSet) error {
	if len(sets) == 0 {
		return nil
	}

	query := `INSERT INTO completed_sets (id, date, exercise_id, exercise_name, muscle_group, weight, reps, rir) VALUES `
	args := make([]any, 0, len(sets)*8)
	valueStrings := make([]string, 0, len(sets))

	for i, s := range sets {
		base := i * 8
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args, s.ID, s.Date, s.ExerciseID, s.ExerciseName, s.MuscleGroup, s.Weight, s.Reps, s.RIR)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	if _, err := db.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting completed sets: %w", err)
	}
	return nil
}

func (db *Postgres) QueryCompletedSets(ctx context.Context, start, end time.Time) ([]models.CompletedSet, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, date, exercise_id, exercise_name, muscle_group, weight, reps, rir
		 FROM completed_sets
		 WHERE date >= $1 AND date < $2
		 ORDER BY date ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("querying completed sets: %w", err)
	}
	defer rows.Close()

	var result []models.CompletedSet
	for rows.Next() {
		var s models.CompletedSet
		if err := rows.Scan(&s.ID, &s.Date, &s.ExerciseID, &s.ExerciseName,
			&s.MuscleGroup, &s.Weight, &s.Reps, &s.RIR); err != nil {
			return nil, fmt.Errorf("scanning completed set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (db *Postgres) UpdateCompletedSet(ctx context.Context, set models.CompletedSet) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE completed_sets SET weight = $2, reps = $3, rir = $4 WHERE id = $1`,
		set.ID, set.Weight, set.Reps, set.RIR)
	if err != nil {
		return fmt.Errorf("updating completed set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) DeleteCompletedSet(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM completed_sets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting completed set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Body weight ---

func (db *Postgres) UpsertWeight(ctx context.Context, entry models.WeightEntry) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO weight_entries (date, weight) VALUES ($1, $2)
		 ON CONFLICT (date) DO UPDATE SET weight = $2`,
		entry.Date, entry.Weight)
	if err != nil {
		return fmt.Errorf("upserting weight: %w", err)
	}
	return nil
}

func (db *Postgres) ListWeight(ctx context.Context) ([]models.WeightEntry, error) {
	rows, err := db.pool.Query(ctx,
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

func (db *Postgres) GetSettings(ctx context.Context) (models.Settings, error) {
	return getSettings(ctx, db)
}

func (db *Postgres) PutSettings(ctx context.Context, s models.Settings) error {
	return putSettings(ctx, db, s)
}

func (db *Postgres) SaveSession(ctx context.Context, aw *models.ActiveWorkout) error {
	return saveSession(ctx, db, aw)
}

func (db *Postgres) LoadSession(ctx context.Context) (*models.ActiveWorkout, error) {
	return loadSession(ctx, db)
}

func (db *Postgres) ClearSession(ctx context.Context) error {
	return db.deleteState(ctx, stateKeySession)
}

func (db *Postgres) getState(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := db.pool.QueryRow(ctx,
		`SELECT value FROM app_state WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (db *Postgres) putState(ctx context.Context, key string, value []byte) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO app_state (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		key, value)
	return err
}

func (db *Postgres) deleteState(ctx context.Context, key string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM app_state WHERE key = $1`, key)
	return err
}

// Health approximates the stored-state footprint from the app_state blobs.
func (db *Postgres) Health(ctx context.Context) (HealthReport, error) {
	var size int64
	err := db.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(LENGTH(value) + LENGTH(key)), 0) FROM app_state`).Scan(&size)
	if err != nil {
		return HealthReport{}, fmt.Errorf("measuring state size: %w", err)
	}
	return healthReport(size), nil
}

// --- shared scan/prepare helpers ---

func scanTemplate(scan func(dest ...any) error) (*models.Template, error) {
	var tpl models.Template
	var items []byte
	if err := scan(&tpl.ID, &tpl.Name, &tpl.Notes, &tpl.BuiltIn, &items,
		&tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &tpl.Items); err != nil {
		return nil, fmt.Errorf("decoding template items: %w", err)
	}
	return &tpl, nil
}

func prepareTemplate(tpl *models.Template) ([]byte, time.Time, error) {
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now
	if tpl.Items == nil {
		tpl.Items = []models.TemplateItem{}
	}
	items, err := json.Marshal(tpl.Items)
	if err != nil {
		return nil, now, fmt.Errorf("encoding template items: %w", err)
	}
	return items, now, nil
}
