package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadpulse/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	video_url      TEXT NOT NULL,
	video_id       TEXT,
	results        TEXT NOT NULL,
	total_comments INTEGER NOT NULL DEFAULT 0,
	hot_leads      INTEGER NOT NULL DEFAULT 0,
	warm_leads     INTEGER NOT NULL DEFAULT 0,
	cold_leads     INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS feedback (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	rating      INTEGER NOT NULL,
	comment     TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON analyses(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_feedback_analysis_id ON feedback(analysis_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	resultsJSON, err := json.Marshal(a.Results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal results")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, user_id, video_url, video_id, results, total_comments, hot_leads, warm_leads, cold_leads, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.VideoURL, a.VideoID, string(resultsJSON),
		a.TotalComments, a.Counts.Hot, a.Counts.Warm, a.Counts.Cold, a.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert analysis")
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, video_url, video_id, results, total_comments, hot_leads, warm_leads, cold_leads, created_at
		 FROM analyses WHERE id = ?`,
		id,
	)
	return scanAnalysis(row)
}

func (s *SQLiteStore) GetLastAnalysis(ctx context.Context, userID string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, video_url, video_id, results, total_comments, hot_leads, warm_leads, cold_leads, created_at
		 FROM analyses WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`,
		userID,
	)
	return scanAnalysis(row)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, userID string, limit int) ([]model.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, video_url, video_id, results, total_comments, hot_leads, warm_leads, cold_leads, created_at
		 FROM analyses WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

func (s *SQLiteStore) SaveFeedback(ctx context.Context, f *model.Feedback) error {
	var ownerID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM analyses WHERE id = ?`, f.AnalysisID,
	).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: lookup analysis owner")
	}
	if ownerID != f.UserID {
		return ErrForbidden
	}

	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, user_id, analysis_id, rating, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.UserID, f.AnalysisID, f.Rating, f.Comment, f.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert feedback")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanAnalysis(row scannable) (*model.Analysis, error) {
	var a model.Analysis
	var videoID sql.NullString
	var resultsJSON string

	err := row.Scan(&a.ID, &a.UserID, &a.VideoURL, &videoID, &resultsJSON,
		&a.TotalComments, &a.Counts.Hot, &a.Counts.Warm, &a.Counts.Cold, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan analysis")
	}

	a.VideoID = videoID.String
	if err := json.Unmarshal([]byte(resultsJSON), &a.Results); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal results")
	}
	return &a, nil
}
