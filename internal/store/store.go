// Package store persists analysis run history in Postgres or SQLite.
package store

import (
	"context"

	"github.com/ecolyze/ecolyze/internal/model"
)

// Store defines the run-history persistence interface.
type Store interface {
	// CreateRun records the start of an analysis run for the given year.
	CreateRun(ctx context.Context, year int) (*model.Run, error)

	// CompleteRun records the outcome of a run. runErr is empty on
	// success.
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, rowsLoaded int64, summaryRows int, runErr string) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
