package core

// StepStatus represents the execution status of a step or scenario
type StepStatus int

const (
	StatusPending StepStatus = iota // Not yet started
	StatusRunning                   // Currently executing
	StatusPassed                    // Completed successfully
	StatusFailed                    // Post-condition false or element not found
	StatusErrored                   // Unexpected error (session start, crash)
	StatusSkipped                   // Previous step failed
)

// String returns the string representation of StepStatus
func (s StepStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state
func (s StepStatus) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the status indicates success
func (s StepStatus) IsSuccess() bool {
	return s == StatusPassed
}

// StatusFromError maps a step error to a terminal status.
func StatusFromError(err error) StepStatus {
	switch CategoryOf(err) {
	case ErrCategoryNone:
		return StatusPassed
	case ErrCategoryAssertion, ErrCategoryTimeout:
		return StatusFailed
	default:
		return StatusErrored
	}
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryAssertion                       // Element not found, post-condition false
	ErrCategoryTimeout                         // Wait or page load timed out
	ErrCategorySession                         // Browser/driver failed to start or is gone
	ErrCategoryConnection                      // Automation server unreachable
	ErrCategoryCapture                         // Screenshot or artifact write failed
	ErrCategoryConfig                          // Invalid configuration
	ErrCategoryUnknown                         // Anything else
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategorySession:
		return "session"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryCapture:
		return "capture"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}
