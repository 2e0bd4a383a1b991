package classifier

import "github.com/sells-group/leadpulse/internal/model"

// Split partitions requests into contiguous batches of at most batchSize,
// preserving input order. The last batch may be short. batchSize must be
// at least 1; Split has no opinion on what size is optimal.
func Split(requests []model.ClassificationRequest, batchSize int) [][]model.ClassificationRequest {
	if len(requests) == 0 {
		return nil
	}
	if batchSize < 1 {
		batchSize = 1
	}

	batches := make([][]model.ClassificationRequest, 0, (len(requests)+batchSize-1)/batchSize)
	for i := 0; i < len(requests); i += batchSize {
		end := i + batchSize
		if end > len(requests) {
			end = len(requests)
		}
		batches = append(batches, requests[i:end])
	}
	return batches
}

// batchSizeFor picks the batch size for a given total volume. Larger pools
// get larger batches to bound the round-trip count; smaller pools get finer
// granularity to bound per-call latency.
func batchSizeFor(total int) int {
	switch {
	case total > 50:
		return 12
	case total > 20:
		return 8
	case total > 10:
		return 6
	default:
		return 4
	}
}
