package core

import (
	"time"
)

// ScenarioResult captures the outcome of executing one scenario
type ScenarioResult struct {
	// Identity
	ID   string   `json:"id"`
	Name string   `json:"name"`
	URI  string   `json:"uri,omitempty"` // Feature file the scenario came from
	Tags []string `json:"tags,omitempty"`

	// Status
	Status   StepStatus    `json:"status"`
	Category ErrorCategory `json:"errorCategory,omitempty"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Failure info
	FailedStep string `json:"failedStep,omitempty"`
	Error      string `json:"error,omitempty"`

	// Artifacts
	Attachments []Attachment `json:"attachments,omitempty"`
}

// SuiteResult captures the outcome of a whole run
type SuiteResult struct {
	// Identity
	Name  string `json:"name"`
	RunID string `json:"runId"`

	// Timing
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`

	// Results
	Scenarios []ScenarioResult `json:"scenarios"`

	// Summary
	TotalScenarios   int `json:"totalScenarios"`
	PassedScenarios  int `json:"passedScenarios"`
	FailedScenarios  int `json:"failedScenarios"`
	SkippedScenarios int `json:"skippedScenarios"`
	Captures         int `json:"captures"` // Failure captures attempted
}

// ComputeSummary calculates scenario counts from the Scenarios slice
func (s *SuiteResult) ComputeSummary() {
	s.TotalScenarios = len(s.Scenarios)
	s.PassedScenarios = 0
	s.FailedScenarios = 0
	s.SkippedScenarios = 0

	for _, sc := range s.Scenarios {
		switch sc.Status {
		case StatusPassed:
			s.PassedScenarios++
		case StatusFailed, StatusErrored:
			s.FailedScenarios++
		case StatusSkipped:
			s.SkippedScenarios++
		}
	}
}

// Success returns true if every scenario passed
func (s *SuiteResult) Success() bool {
	for _, sc := range s.Scenarios {
		if !sc.Status.IsSuccess() {
			return false
		}
	}
	return len(s.Scenarios) > 0
}
