// Package extract is the boundary to the external language-model oracle
// that turns timecard document text into structured wage records. The core
// treats the oracle as opaque, possibly slow and possibly failing; callers
// bound each attempt with a context deadline and retry transient failures.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

// Extractor turns document text into a structured extraction.
type Extractor interface {
	Extract(ctx context.Context, documentText string) (*wage.Extraction, error)
}

// Error is an extraction adapter failure. Transient failures (timeouts,
// throttling, 5xx) are retryable within the pipeline's bounded retry;
// permanent failures (malformed payloads) are not.
type Error struct {
	Msg       string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("extraction failed: %s", e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable extraction failure.
// Context deadline expiry counts as transient: a timed-out attempt is
// treated like any other adapter failure, subject to the retry bound.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Transient
	}
	return false
}
