// Package harness runs backend loading and per-request work on bounded worker
// pools with deadlines. A deadline abandons the wait, never the work.
package harness

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable matches every *UnavailableError.
	ErrUnavailable = errors.New("search backend not available")
	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("timed out")
)

// TimeoutError reports that Op did not finish within Deadline.
type TimeoutError struct {
	Op       string
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Deadline)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// UnavailableError reports that the backend could not be made ready.
type UnavailableError struct {
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnavailable, e.Cause)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}
