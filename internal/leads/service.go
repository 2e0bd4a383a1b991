// Package leads runs the end-to-end analysis pipeline: fetch a video's
// comments, classify them, tally lead counts, and persist the result.
package leads

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadpulse/internal/classifier"
	"github.com/sells-group/leadpulse/internal/model"
	"github.com/sells-group/leadpulse/internal/resilience"
	"github.com/sells-group/leadpulse/internal/store"
	"github.com/sells-group/leadpulse/pkg/youtube"
)

// Service coordinates the comment analysis pipeline.
type Service struct {
	youtube     youtube.Client
	classifier  *classifier.Classifier
	store       store.Store
	retry       resilience.RetryConfig
	maxComments int
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithStore enables persistence of analyses and feedback. Without a store
// the pipeline still runs but results are not saved.
func WithStore(st store.Store) Option {
	return func(s *Service) {
		s.store = st
	}
}

// WithMaxComments caps how many fetched comments enter classification.
func WithMaxComments(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxComments = n
		}
	}
}

// WithRetry overrides the retry policy for comment fetches.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg
	}
}

// WithLogger overrides the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service.
func NewService(yt youtube.Client, cls *classifier.Classifier, opts ...Option) *Service {
	s := &Service{
		youtube:     yt,
		classifier:  cls,
		retry:       resilience.DefaultRetryConfig(),
		maxComments: 100,
		logger:      zap.L(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// shouldRetryFetch retries transient YouTube failures but not quota or
// not-found errors.
func shouldRetryFetch(err error) bool {
	var apiErr *youtube.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}

// FetchComments resolves the video id from rawURL and fetches its newest
// top-level comments, mapped into domain comments with display-ready dates.
func (s *Service) FetchComments(ctx context.Context, rawURL string) (string, []model.Comment, error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return "", nil, err
	}

	cfg := s.retry
	cfg.ShouldRetry = shouldRetryFetch
	cfg.OnRetry = resilience.RetryLogger("youtube", "list_comments")

	page, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*youtube.CommentPage, error) {
		return s.youtube.ListComments(ctx, videoID)
	})
	if err != nil {
		return videoID, nil, err
	}

	now := s.now()
	comments := make([]model.Comment, 0, len(page.Comments))
	for _, c := range page.Comments {
		if len(comments) >= s.maxComments {
			break
		}
		comments = append(comments, model.Comment{
			ID:       c.ID,
			Username: c.Author,
			Avatar:   c.AvatarURL,
			Text:     c.Text,
			Date:     youtube.FormatRelativeTime(c.PublishedAt, now),
			Likes:    c.Likes,
		})
	}

	s.logger.Info("fetched comments",
		zap.String("video_id", videoID),
		zap.Int("count", len(comments)),
		zap.Int("total_results", page.TotalResults))

	return videoID, comments, nil
}

// Classify grades an already fetched set of comments.
func (s *Service) Classify(ctx context.Context, comments []model.Comment) (*classifier.Outcome, error) {
	return s.classifier.Classify(ctx, comments)
}

// Analyze runs the full pipeline for one video and persists the result when
// a store is configured. The classifier outcome is returned alongside the
// analysis so callers can report timing and batch counts.
func (s *Service) Analyze(ctx context.Context, userID, videoURL string) (*model.Analysis, *classifier.Outcome, error) {
	videoID, comments, err := s.FetchComments(ctx, videoURL)
	if err != nil {
		return nil, nil, err
	}

	outcome, err := s.classifier.Classify(ctx, comments)
	if err != nil {
		return nil, nil, err
	}

	analysis := &model.Analysis{
		UserID:        userID,
		VideoURL:      videoURL,
		VideoID:       videoID,
		Results:       outcome.Comments,
		TotalComments: len(outcome.Comments),
		Counts:        model.CountLeads(outcome.Comments),
		CreatedAt:     s.now().UTC(),
	}

	if s.store != nil {
		if err := s.store.SaveAnalysis(ctx, analysis); err != nil {
			// Classification succeeded; losing the save should not lose the
			// results. Log and return what we have.
			s.logger.Error("save analysis failed",
				zap.String("video_id", videoID),
				zap.Error(err))
		}
	}

	return analysis, outcome, nil
}

// LastAnalysis returns the user's most recent saved analysis.
func (s *Service) LastAnalysis(ctx context.Context, userID string) (*model.Analysis, error) {
	if s.store == nil {
		return nil, store.ErrNotFound
	}
	return s.store.GetLastAnalysis(ctx, userID)
}

// SaveAnalysis persists an externally classified analysis, filling counts
// from its results.
func (s *Service) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if s.store == nil {
		return errors.New("leads: no store configured")
	}
	a.TotalComments = len(a.Results)
	a.Counts = model.CountLeads(a.Results)
	return s.store.SaveAnalysis(ctx, a)
}

// RecordFeedback saves a user's rating for one of their analyses.
func (s *Service) RecordFeedback(ctx context.Context, f *model.Feedback) error {
	if s.store == nil {
		return errors.New("leads: no store configured")
	}
	return s.store.SaveFeedback(ctx, f)
}

// Reply posts a reply under a comment and returns the new comment id.
func (s *Service) Reply(ctx context.Context, parentID, text string) (string, error) {
	return s.youtube.InsertReply(ctx, parentID, text)
}
