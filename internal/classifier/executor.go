package classifier

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadpulse/internal/model"
	"github.com/sells-group/leadpulse/pkg/gemini"
)

// Generation settings tuned for deterministic, compact classification output.
// maxOutputTokens is sized per batch; batches are small enough that 4096
// tokens comfortably covers the full array.
const (
	genTemperature     = 0.3
	genTopK            = 40
	genTopP            = 0.95
	genMaxOutputTokens = 4096
)

// executeBatch classifies one batch: builds the prompt, calls the model, and
// parses the returned array. index is the zero-based batch position, used for
// error attribution.
func (c *Classifier) executeBatch(ctx context.Context, batch []model.ClassificationRequest, index int) ([]model.ClassificationResult, error) {
	temperature := genTemperature
	topK := genTopK
	topP := genTopP
	maxTokens := genMaxOutputTokens

	resp, err := c.gemini.GenerateContent(ctx, gemini.GenerateContentRequest{
		Contents: []gemini.Content{
			{Parts: []gemini.Part{{Text: c.rubric.buildPrompt(batch)}}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:     &temperature,
			TopK:            &topK,
			TopP:            &topP,
			MaxOutputTokens: &maxTokens,
		},
	})
	if err != nil {
		var statusErr *gemini.StatusError
		if errors.As(err, &statusErr) {
			return nil, &BatchError{Index: index, Message: statusErr.Message}
		}
		return nil, &BatchError{Index: index, Message: err.Error()}
	}

	text := resp.Text()
	if text == "" {
		return nil, &BatchError{Index: index, Message: "returned empty response"}
	}

	if resp.Truncated() {
		c.logger.Warn("model output truncated, attempting repair",
			zap.Int("batch", index+1),
			zap.Int("batch_size", len(batch)))
	}

	results, err := ParseResponse(text, resp.Truncated())
	if err != nil {
		return nil, eris.Wrapf(err, "classifier: batch %d", index+1)
	}
	return results, nil
}
