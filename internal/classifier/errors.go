package classifier

import "fmt"

// InvalidInputError reports a classify call with no usable comments. It is
// returned before any network call is made.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "classifier: invalid input: " + e.Reason
}

// BatchError reports a single batch whose model call failed or returned no
// usable text. Index is the zero-based batch position.
type BatchError struct {
	Index   int
	Message string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("classifier: batch %d failed: %s", e.Index+1, e.Message)
}

// parseExcerptLen bounds how much of the offending model output a ParseError
// carries for diagnostics.
const parseExcerptLen = 500

// ParseError reports model output that could not be coerced into a
// classification array, even after truncation repair. Excerpt holds the
// leading portion of the raw text.
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("classifier: unparseable model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the global deadline elapsed before every batch
// settled. No partial results are returned; the caller must retry.
type TimeoutError struct {
	Elapsed float64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("classifier: deadline exceeded after %.2fs", e.Elapsed)
}
