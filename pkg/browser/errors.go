package browser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoActivePage is returned by operations that need a page when none is open.
var ErrNoActivePage = errors.New("no active page")

// ConnectionExhaustedError is returned when every remote connection attempt failed.
type ConnectionExhaustedError struct {
	Target   string
	Attempts uint
	Last     error
}

func (e *ConnectionExhaustedError) Error() string {
	return fmt.Sprintf("failed to connect to %s after %d attempt(s): %v", e.Target, e.Attempts, e.Last)
}

func (e *ConnectionExhaustedError) Unwrap() error {
	return e.Last
}

// SessionInvalidError marks a session that failed its liveness check. It only
// drives recreation and is never returned to callers.
type SessionInvalidError struct {
	Err error
}

func (e *SessionInvalidError) Error() string {
	return fmt.Sprintf("session failed liveness check: %v", e.Err)
}

func (e *SessionInvalidError) Unwrap() error {
	return e.Err
}

// StatusReportError is returned when the in-band status update could not be sent.
type StatusReportError struct {
	Status Status
	Err    error
}

func (e *StatusReportError) Error() string {
	return fmt.Sprintf("failed to report status %q: %v", e.Status, e.Err)
}

func (e *StatusReportError) Unwrap() error {
	return e.Err
}

// StepError is one failed teardown step.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// TeardownError aggregates every step that failed during shutdown.
type TeardownError struct {
	Steps []*StepError
}

func (e *TeardownError) Error() string {
	parts := make([]string, 0, len(e.Steps))
	for _, s := range e.Steps {
		parts = append(parts, s.Error())
	}
	return fmt.Sprintf("teardown failed (%d step(s)): %s", len(e.Steps), strings.Join(parts, "; "))
}

func (e *TeardownError) Unwrap() []error {
	errs := make([]error, 0, len(e.Steps))
	for _, s := range e.Steps {
		errs = append(errs, s)
	}
	return errs
}
