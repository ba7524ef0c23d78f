package invoke

import (
	"fmt"
	"time"
)

// ExhaustedRetriesError is returned when a call fails for good, either
// past the retry bound or on a status that retrying cannot fix. It
// carries the last HTTP response's status and body and the number of
// attempts performed; Status is zero when every attempt failed at the
// transport level, in which case Transport holds the last transport
// error.
type ExhaustedRetriesError struct {
	Status    int
	Body      []byte
	Attempts  int
	Transport error
}

func (e *ExhaustedRetriesError) Error() string {
	if e.Status == 0 && e.Transport != nil {
		return fmt.Sprintf("retries exhausted: %v", e.Transport)
	}
	// A single attempt means the status was deterministic, not that
	// the retry budget ran out.
	if e.Attempts == 1 {
		return fmt.Sprintf("request failed: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("retries exhausted: status %d: %s", e.Status, e.Body)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Transport
}

// AsyncTimeoutError is returned when an async job does not reach a
// terminal status within its wall-clock bound.
type AsyncTimeoutError struct {
	StatusURL string
	Elapsed   time.Duration
}

func (e *AsyncTimeoutError) Error() string {
	return fmt.Sprintf("async polling timed out after %s (%s)", e.Elapsed, e.StatusURL)
}
