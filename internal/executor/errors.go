package executor

import (
	"fmt"
	"time"
)

// ExitError reports a child that exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// TimeoutError reports a child killed because its timeout elapsed.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout)
}

// InterruptedError reports a child killed because the caller's context was
// cancelled (typically SIGINT).
type InterruptedError struct {
	Command string
	Cause   error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("%s interrupted: %v", e.Command, e.Cause)
}

func (e *InterruptedError) Unwrap() error {
	return e.Cause
}
