package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadpulse/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool. Statement
// preparation is left to pgx's per-connection cache.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id        TEXT NOT NULL,
	video_url      TEXT NOT NULL,
	video_id       TEXT,
	results        JSONB NOT NULL,
	total_comments INTEGER NOT NULL DEFAULT 0,
	hot_leads      INTEGER NOT NULL DEFAULT 0,
	warm_leads     INTEGER NOT NULL DEFAULT 0,
	cold_leads     INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS feedback (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id     TEXT NOT NULL,
	analysis_id TEXT NOT NULL REFERENCES analyses(id),
	rating      INTEGER NOT NULL,
	comment     TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON analyses(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_feedback_analysis_id ON feedback(analysis_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	resultsJSON, err := json.Marshal(a.Results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal results")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, user_id, video_url, video_id, results, total_comments, hot_leads, warm_leads, cold_leads, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.UserID, a.VideoURL, a.VideoID, resultsJSON,
		a.TotalComments, a.Counts.Hot, a.Counts.Warm, a.Counts.Cold, a.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert analysis")
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, video_url, video_id, results, total_comments, hot_leads, warm_leads, cold_leads, created_at
		 FROM analyses WHERE id = $1`,
		id,
	)
	return scanAnalysisPG(row)
}

func (s *PostgresStore) GetLastAnalysis(ctx context.Context, userID string) (*model.Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, video_url, video_id, results, total_comments, hot_leads, warm_leads, cold_leads, created_at
		 FROM analyses WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`,
		userID,
	)
	return scanAnalysisPG(row)
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, userID string, limit int) ([]model.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, video_url, video_id, results, total_comments, hot_leads, warm_leads, cold_leads, created_at
		 FROM analyses WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysisPG(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func (s *PostgresStore) SaveFeedback(ctx context.Context, f *model.Feedback) error {
	var ownerID string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM analyses WHERE id = $1`, f.AnalysisID,
	).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return eris.Wrap(err, "postgres: lookup analysis owner")
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO feedback (id, user_id, analysis_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.UserID, f.AnalysisID, f.Rating, f.Comment, f.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert feedback")
}

func scanAnalysisPG(row pgx.Row) (*model.Analysis, error) {
	var a model.Analysis
	var resultsJSON []byte

	err := row.Scan(&a.ID, &a.UserID, &a.VideoURL, &a.VideoID, &resultsJSON,
		&a.TotalComments, &a.Counts.Hot, &a.Counts.Warm, &a.Counts.Cold, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan analysis")
	}

	if err := json.Unmarshal(resultsJSON, &a.Results); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal results")
	}
	return &a, nil
}
