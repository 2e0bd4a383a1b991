// Package classifier grades YouTube comments as hot, warm, or cold leads by
// fanning batches of comments out to a generative model under a global
// deadline and merging the graded results back onto the originals.
package classifier

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadpulse/internal/model"
	"github.com/sells-group/leadpulse/pkg/gemini"
)

// defaultTimeout bounds an entire Classify call, all batches included.
const defaultTimeout = 20 * time.Second

// Classifier orchestrates batched comment classification.
type Classifier struct {
	gemini  gemini.Client
	rubric  *Rubric
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRubric overrides the built-in grading rubric.
func WithRubric(r *Rubric) Option {
	return func(c *Classifier) {
		c.rubric = r
	}
}

// WithTimeout overrides the global classification deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		c.timeout = d
	}
}

// WithLogger overrides the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		c.logger = l
	}
}

// New creates a Classifier backed by the given model client.
func New(client gemini.Client, opts ...Option) *Classifier {
	c := &Classifier{
		gemini:  client,
		rubric:  DefaultRubric(),
		timeout: defaultTimeout,
		logger:  zap.L(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Outcome is the result of a successful Classify call.
type Outcome struct {
	Comments         []model.ClassifiedComment `json:"comments"`
	TotalClassified  int                       `json:"totalClassified"`
	BatchesProcessed int                       `json:"batchesProcessed"`
	ProcessingTime   float64                   `json:"processingTime"`
}

// Classify grades every usable comment in the input. Comments missing an id
// or text are silently dropped; if none remain an InvalidInputError is
// returned without any model call. Batches run concurrently; the whole call
// is all-or-nothing — a failed batch or an elapsed deadline discards all
// partial results.
//
// Every usable comment appears exactly once in the outcome, in input order.
// Comments the model skipped or misattributed get a cold fallback grade.
func (c *Classifier) Classify(ctx context.Context, comments []model.Comment) (*Outcome, error) {
	valid := make([]model.Comment, 0, len(comments))
	for _, comment := range comments {
		if comment.ID != "" && comment.Text != "" {
			valid = append(valid, comment)
		}
	}
	if len(valid) == 0 {
		return nil, &InvalidInputError{Reason: "no comments with both id and text"}
	}

	requests := make([]model.ClassificationRequest, len(valid))
	for i, comment := range valid {
		requests[i] = model.ClassificationRequest{ID: comment.ID, Text: comment.Text}
	}

	batchSize := batchSizeFor(len(requests))
	batches := Split(requests, batchSize)

	c.logger.Info("classifying comments",
		zap.Int("comments", len(valid)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", batchSize))

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Each batch writes into its own slot, so no mutex is needed and input
	// order survives the fan-out.
	batchResults := make([][]model.ClassificationResult, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	for i, batch := range batches {
		g.Go(func() error {
			results, err := c.executeBatch(gctx, batch, i)
			if err != nil {
				return err
			}
			batchResults[i] = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		elapsed := roundSeconds(time.Since(start))
		// Batch errors caused by the global deadline surface as wrapped
		// context errors; report those as a timeout, not a batch failure.
		if ctx.Err() == context.DeadlineExceeded {
			c.logger.Warn("classification timed out",
				zap.Float64("elapsed_s", elapsed),
				zap.Int("comments", len(valid)))
			return nil, &TimeoutError{Elapsed: elapsed}
		}
		return nil, err
	}

	byID := make(map[string]model.ClassificationResult)
	total := 0
	for _, results := range batchResults {
		total += len(results)
		for _, r := range results {
			byID[r.ID] = r
		}
	}

	classified := make([]model.ClassifiedComment, len(valid))
	for i, comment := range valid {
		result, ok := byID[comment.ID]
		if !ok {
			result = model.ClassificationResult{
				ID:         comment.ID,
				LeadType:   model.LeadCold,
				LeadReason: fallbackReason,
				Reply:      defaultReply,
			}
		}
		classified[i] = model.ClassifiedComment{
			Comment:    comment,
			LeadType:   result.LeadType,
			LeadReason: result.LeadReason,
			Reply:      result.Reply,
		}
	}

	elapsed := roundSeconds(time.Since(start))
	c.logger.Info("classification complete",
		zap.Int("classified", total),
		zap.Int("batches", len(batches)),
		zap.Float64("elapsed_s", elapsed))

	return &Outcome{
		Comments:         classified,
		TotalClassified:  total,
		BatchesProcessed: len(batches),
		ProcessingTime:   elapsed,
	}, nil
}

// roundSeconds reports d as seconds with two decimal places.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
