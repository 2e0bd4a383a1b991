// Package store persists analyses and feedback behind a driver-agnostic
// interface with Postgres and SQLite implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadpulse/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// ErrForbidden is returned when a record exists but belongs to another user.
var ErrForbidden = eris.New("store: forbidden")

// Store defines the persistence interface for analyses and feedback.
type Store interface {
	// Analyses
	SaveAnalysis(ctx context.Context, a *model.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	GetLastAnalysis(ctx context.Context, userID string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, userID string, limit int) ([]model.Analysis, error)

	// Feedback. SaveFeedback verifies the analysis belongs to the same user.
	SaveFeedback(ctx context.Context, f *model.Feedback) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	case "sqlite":
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
