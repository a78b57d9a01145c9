package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// ErrJobIDParseFailed indicates parsing job ID from output failed
	ErrJobIDParseFailed = errors.New("could not retrieve the job id")

	// ErrMalformedOutput indicates scheduler output is not the expected JSON document
	ErrMalformedOutput = errors.New("malformed scheduler output")

	// ErrUnknownState indicates a remote state token that is missing from the state table
	ErrUnknownState = errors.New("unknown remote job state")

	// ErrNonZeroExit indicates the scheduler command exited with a non-zero code
	ErrNonZeroExit = errors.New("scheduler command returned a non-zero exit code")

	// ErrQueryByUser indicates a job list query filtered by user
	ErrQueryByUser = errors.New("cannot query by user with HyperQueue")

	// ErrMissingResources indicates a job template without a resource request
	ErrMissingResources = errors.New("job template has no resources")

	// ErrNoSteps indicates a job template without executable steps
	ErrNoSteps = errors.New("job template has no executable steps")
)

// ValidationError represents a malformed or incomplete resource request or template
type ValidationError struct {
	Field  string // Field that failed validation
	Reason string // Human readable reason
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Is allows errors.Is to match ValidationError
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ParseError represents an error interpreting scheduler output
type ParseError struct {
	Scheduler string // Scheduler name
	Line      int    // Entry index or line number (0 if not applicable)
	Content   string // Offending content
	Reason    string // Reason for parse failure
	Err       error  // Optional sentinel, see ErrUnknownState
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s parse error at entry %d (%s): %s",
			e.Scheduler, e.Line, e.Content, e.Reason)
	}
	if e.Content != "" {
		return fmt.Sprintf("%s parse error (%s): %s", e.Scheduler, e.Content, e.Reason)
	}
	return fmt.Sprintf("%s parse error: %s", e.Scheduler, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchedulerError represents a failed scheduler command or unusable output.
// It always carries the exit code and both raw streams.
type SchedulerError struct {
	Op       string // Operation (submit, job list, cancel, job info)
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error // Underlying error
}

func (e *SchedulerError) Error() string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("hq %s: %v (retval=%d)", e.Op, e.Err, e.ExitCode))
	msg.WriteString(fmt.Sprintf("\nstdout='%s'", strings.TrimSpace(e.Stdout)))
	msg.WriteString(fmt.Sprintf("\nstderr='%s'", strings.TrimSpace(e.Stderr)))
	return msg.String()
}

func (e *SchedulerError) Unwrap() error {
	return e.Err
}

// FeatureNotAvailableError is returned when a caller asks for a capability
// the queue system cannot express. It is never silently degraded.
type FeatureNotAvailableError struct {
	Feature string
	Err     error
}

func (e *FeatureNotAvailableError) Error() string {
	return fmt.Sprintf("feature not available (%s): %v", e.Feature, e.Err)
}

func (e *FeatureNotAvailableError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewValidationError creates a new ValidationError
func NewValidationError(field string, reason string) *ValidationError {
	return &ValidationError{
		Field:  field,
		Reason: reason,
	}
}

// NewParseError creates a new ParseError
func NewParseError(scheduler string, line int, content string, reason string) *ParseError {
	return &ParseError{
		Scheduler: scheduler,
		Line:      line,
		Content:   content,
		Reason:    reason,
	}
}

// NewSchedulerError creates a new SchedulerError
func NewSchedulerError(op string, retval int, stdout, stderr string, err error) *SchedulerError {
	return &SchedulerError{
		Op:       op,
		ExitCode: retval,
		Stdout:   stdout,
		Stderr:   stderr,
		Err:      err,
	}
}

// NewFeatureNotAvailableError creates a new FeatureNotAvailableError
func NewFeatureNotAvailableError(feature string, err error) *FeatureNotAvailableError {
	return &FeatureNotAvailableError{
		Feature: feature,
		Err:     err,
	}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsParseError checks if an error is a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsSchedulerError checks if an error is a SchedulerError
func IsSchedulerError(err error) bool {
	var se *SchedulerError
	return errors.As(err, &se)
}

// IsFeatureNotAvailable checks if an error is a FeatureNotAvailableError
func IsFeatureNotAvailable(err error) bool {
	var fe *FeatureNotAvailableError
	return errors.As(err, &fe)
}
