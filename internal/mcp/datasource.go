package mcp

import (
	"context"
	"time"

	"github.com/meltforce/fittrack/internal/models"
	"github.com/meltforce/fittrack/internal/storage"
)

// DataSource abstracts the data layer for MCP tools; *storage.Postgres and
// *storage.SQLite both satisfy it.
type DataSource interface {
	QueryCompletedSets(ctx context.Context, start, end time.Time) ([]models.CompletedSet, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
	ListWeight(ctx context.Context) ([]models.WeightEntry, error)
}

// Compile-time check: the store implementations satisfy DataSource.
var (
	_ DataSource = (storage.Store)(nil)
)

// SessionSource reports the live session, if any. Satisfied by
// *engine.Engine; a nil source is treated as "no session".
type SessionSource interface {
	Active() *models.ActiveWorkout
	SaveWarning() string
}
