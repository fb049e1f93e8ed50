package textpatch

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes carried by *Error.
const (
	CodeIO                = "IO"
	CodePatternMiss       = "PATTERN_MISS"
	CodeExpectationFailed = "EXPECTATION_FAILED"
	CodeUnbalanced        = "UNBALANCED"
	CodeInvalidPattern    = "INVALID_PATTERN"
	CodeCanceled          = "CANCELED"
)

// Error represents a structured failure while running a pipeline. It satisfies the error
// interface so it can be returned directly from Apply* helpers.
type Error struct {
	Code     string
	Message  string
	Path     string
	Step     int // 1-based; zero when the failure is not tied to a step
	StepName string
	Statuses []StepResult
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "patch error"
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

func asPatchError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Message: err.Error(), Err: err}
}

func describeStatuses(statuses []StepResult) string {
	if len(statuses) == 0 {
		return ""
	}
	var applied, noop, skipped []string
	var failed string
	for _, status := range statuses {
		label := fmt.Sprintf("%d", status.Index+1)
		switch status.Status {
		case StatusApplied:
			applied = append(applied, label)
		case StatusNoOp:
			noop = append(noop, label)
		case StatusSkipped:
			skipped = append(skipped, label)
		case StatusFailed:
			if failed == "" {
				failed = fmt.Sprintf("Failed at step %s (%s).", label, status.Name)
			}
		}
	}

	parts := make([]string, 0, 4)
	if len(applied) > 0 {
		parts = append(parts, fmt.Sprintf("Steps applied: %s.", strings.Join(applied, ", ")))
	}
	if len(noop) > 0 {
		parts = append(parts, fmt.Sprintf("Steps without match: %s.", strings.Join(noop, ", ")))
	}
	if len(skipped) > 0 {
		parts = append(parts, fmt.Sprintf("Steps skipped by guard: %s.", strings.Join(skipped, ", ")))
	}
	if failed != "" {
		parts = append(parts, failed)
	}
	return strings.Join(parts, "\n")
}

// FormatError renders Error values into a human readable message suitable for
// surfacing to end users.
func FormatError(err *Error) string {
	if err == nil {
		return "Unknown error occurred."
	}
	message := err.Error()
	if message == "" {
		message = "Unknown error occurred."
	}
	var parts []string
	if err.Path != "" {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Path, message))
	} else {
		parts = append(parts, message)
	}
	if err.Code != "" && err.Code != CodeIO {
		parts[0] = fmt.Sprintf("[%s] %s", err.Code, parts[0])
	}
	if summary := describeStatuses(err.Statuses); summary != "" {
		parts = append(parts, "", summary)
	}
	return strings.Join(parts, "\n")
}
