package classifier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadpulse/internal/model"
)

func makeRequests(n int) []model.ClassificationRequest {
	reqs := make([]model.ClassificationRequest, n)
	for i := range reqs {
		reqs[i] = model.ClassificationRequest{
			ID:   fmt.Sprintf("c%d", i+1),
			Text: fmt.Sprintf("comment %d", i+1),
		}
	}
	return reqs
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		batchSize int
		wantSizes []int
	}{
		{name: "empty", total: 0, batchSize: 4, wantSizes: nil},
		{name: "single_short_batch", total: 3, batchSize: 4, wantSizes: []int{3}},
		{name: "exact_fit", total: 8, batchSize: 4, wantSizes: []int{4, 4}},
		{name: "short_tail", total: 10, batchSize: 4, wantSizes: []int{4, 4, 2}},
		{name: "size_one", total: 3, batchSize: 1, wantSizes: []int{1, 1, 1}},
		{name: "clamped_zero", total: 2, batchSize: 0, wantSizes: []int{1, 1}},
		{name: "hundred_at_twelve", total: 100, batchSize: 12, wantSizes: []int{12, 12, 12, 12, 12, 12, 12, 12, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs := makeRequests(tt.total)
			batches := Split(reqs, tt.batchSize)

			require.Len(t, batches, len(tt.wantSizes))
			for i, want := range tt.wantSizes {
				assert.Len(t, batches[i], want, "batch %d", i)
			}

			// Concatenating the batches must reproduce the input exactly.
			flat := make([]model.ClassificationRequest, 0, tt.total)
			for _, b := range batches {
				flat = append(flat, b...)
			}
			assert.Equal(t, reqs, flat)
		})
	}
}

func TestBatchSizeFor(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{total: 1, want: 4},
		{total: 10, want: 4},
		{total: 11, want: 6},
		{total: 20, want: 6},
		{total: 21, want: 8},
		{total: 50, want: 8},
		{total: 51, want: 12},
		{total: 100, want: 12},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("total_%d", tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, batchSizeFor(tt.total))
		})
	}
}
