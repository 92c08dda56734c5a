package core

import (
	"errors"
	"fmt"
	"strings"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: element_not_found, wait_timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is matches another ExecutionError by code so wrapped copies still match
// the predefined sentinels.
func (e *ExecutionError) Is(target error) bool {
	t, ok := target.(*ExecutionError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Assertion errors
	ErrElementNotFound = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrConditionNotMet = &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "condition_not_met",
		Message:  "condition was not met",
	}

	// Timeout errors
	ErrWaitTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "wait_timeout",
		Message:  "wait condition timed out",
	}
	ErrPageLoadTimeout = &ExecutionError{
		Category: ErrCategoryTimeout,
		Code:     "page_load_timeout",
		Message:  "page did not finish loading",
	}

	// Session errors
	ErrSessionNotReady = &ExecutionError{
		Category: ErrCategorySession,
		Code:     "session_not_ready",
		Message:  "browser session is not ready",
	}
	ErrSessionClosed = &ExecutionError{
		Category: ErrCategorySession,
		Code:     "session_closed",
		Message:  "browser session is closed",
	}
	ErrServerUnreachable = &ExecutionError{
		Category: ErrCategoryConnection,
		Code:     "server_unreachable",
		Message:  "could not connect to automation server",
	}

	// Config errors
	ErrInvalidConfig = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
	ErrUnknownDriver = &ExecutionError{
		Category: ErrCategoryConfig,
		Code:     "unknown_driver",
		Message:  "unknown browser driver",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// SessionInitError reports that the browser or its driver process could not start.
// Fatal to the scenario; never retried.
type SessionInitError struct {
	Driver string // backend name: webdriver, chromedp, playwright
	Cause  error
}

func (e *SessionInitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to start %s session: %v", e.Driver, e.Cause)
	}
	return fmt.Sprintf("failed to start %s session", e.Driver)
}

// Unwrap returns the underlying error.
func (e *SessionInitError) Unwrap() error { return e.Cause }

// ElementNotFoundError reports that every selector of a fallback chain
// exhausted its wait budget.
type ElementNotFoundError struct {
	Element   string     // logical element name, e.g. "search box"
	Condition string     // presence, clickable, visible, count > N
	Attempted []Selector // selectors tried, in attempted order
	Cause     error      // last probe error, if any
}

func (e *ElementNotFoundError) Error() string {
	tried := make([]string, len(e.Attempted))
	for i, s := range e.Attempted {
		tried[i] = s.String()
	}
	msg := fmt.Sprintf("element %q not found (%s); tried [%s]", e.Element, e.Condition, strings.Join(tried, ", "))
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the last probe error.
func (e *ElementNotFoundError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrElementNotFound) match.
func (e *ElementNotFoundError) Is(target error) bool {
	return target == ErrElementNotFound
}

// StepAssertionError reports a false step post-condition.
type StepAssertionError struct {
	Step     string // step description
	Expected string // human-readable expectation
	Actual   string // observed value
}

func (e *StepAssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Step, e.Expected, e.Actual)
}

// CaptureError reports a failed screenshot or artifact write.
// It is logged and never escalated.
type CaptureError struct {
	Scenario string
	Path     string
	Cause    error
}

func (e *CaptureError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("capture for %q (%s) failed: %v", e.Scenario, e.Path, e.Cause)
	}
	return fmt.Sprintf("capture for %q failed: %v", e.Scenario, e.Cause)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error { return e.Cause }

// CategoryOf classifies any error produced by the suite.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryNone
	}
	var (
		initErr    *SessionInitError
		notFound   *ElementNotFoundError
		assertErr  *StepAssertionError
		captureErr *CaptureError
		execErr    *ExecutionError
	)
	switch {
	case errors.As(err, &initErr):
		return ErrCategorySession
	case errors.As(err, &notFound), errors.As(err, &assertErr):
		return ErrCategoryAssertion
	case errors.As(err, &captureErr):
		return ErrCategoryCapture
	case errors.As(err, &execErr):
		return execErr.Category
	default:
		return ErrCategoryUnknown
	}
}
