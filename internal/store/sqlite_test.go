package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadpulse/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleAnalysis(userID string) *model.Analysis {
	return &model.Analysis{
		UserID:   userID,
		VideoURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		VideoID:  "dQw4w9WgXcQ",
		Results: []model.ClassifiedComment{
			{
				Comment:    model.Comment{ID: "c1", Username: "alice", Text: "How much?"},
				LeadType:   model.LeadHot,
				LeadReason: "Asked about pricing",
				Reply:      "Happy to share details!",
			},
			{
				Comment:    model.Comment{ID: "c2", Username: "bob", Text: "Nice video"},
				LeadType:   model.LeadCold,
				LeadReason: "General praise",
				Reply:      "Thanks for watching!",
			},
		},
		TotalComments: 2,
		Counts:        model.LeadCounts{Hot: 1, Cold: 1},
	}
}

func TestSQLiteStore_SaveAndGetAnalysis(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleAnalysis("user-1")
	require.NoError(t, s.SaveAnalysis(ctx, a))
	assert.NotEmpty(t, a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := s.GetAnalysis(ctx, a.ID)
	require.NoError(t, err)

	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "dQw4w9WgXcQ", got.VideoID)
	assert.Equal(t, 2, got.TotalComments)
	assert.Equal(t, model.LeadCounts{Hot: 1, Cold: 1}, got.Counts)
	require.Len(t, got.Results, 2)
	assert.Equal(t, model.LeadHot, got.Results[0].LeadType)
	assert.Equal(t, "alice", got.Results[0].Username)
}

func TestSQLiteStore_GetAnalysis_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAnalysis(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_GetLastAnalysis(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := sampleAnalysis("user-1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.SaveAnalysis(ctx, older))

	newer := sampleAnalysis("user-1")
	newer.VideoURL = "https://youtu.be/abc12345678"
	require.NoError(t, s.SaveAnalysis(ctx, newer))

	// Another user's analysis must not leak.
	other := sampleAnalysis("user-2")
	require.NoError(t, s.SaveAnalysis(ctx, other))

	got, err := s.GetLastAnalysis(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.Equal(t, "https://youtu.be/abc12345678", got.VideoURL)
}

func TestSQLiteStore_GetLastAnalysis_None(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetLastAnalysis(context.Background(), "nobody")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_ListAnalyses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		a := sampleAnalysis("user-1")
		a.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveAnalysis(ctx, a))
	}

	got, err := s.ListAnalyses(ctx, "user-1", 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// Newest first.
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt) || got[0].CreatedAt.Equal(got[1].CreatedAt))
}

func TestSQLiteStore_SaveFeedback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleAnalysis("user-1")
	require.NoError(t, s.SaveAnalysis(ctx, a))

	f := &model.Feedback{
		UserID:     "user-1",
		AnalysisID: a.ID,
		Rating:     5,
		Comment:    "spot on",
	}
	require.NoError(t, s.SaveFeedback(ctx, f))
	assert.NotEmpty(t, f.ID)
}

func TestSQLiteStore_SaveFeedback_WrongOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleAnalysis("user-1")
	require.NoError(t, s.SaveAnalysis(ctx, a))

	f := &model.Feedback{UserID: "user-2", AnalysisID: a.ID, Rating: 1}
	err := s.SaveFeedback(ctx, f)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestSQLiteStore_SaveFeedback_MissingAnalysis(t *testing.T) {
	s := newTestStore(t)

	f := &model.Feedback{UserID: "user-1", AnalysisID: "missing", Rating: 3}
	err := s.SaveFeedback(context.Background(), f)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	assert.Error(t, err)
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, s.Close())
}
