// Package report holds the outcome of a pipeline run.
package report

import "time"

// Step statuses.
const (
	StatusPassed  = "passed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// StepResult captures the outcome of a single step.
type StepResult struct {
	Step       string        `json:"step"`
	Status     string        `json:"status"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	ExitCode   int           `json:"exit_code"`
	Error      string        `json:"error,omitempty"`
	Note       string        `json:"note,omitempty"`
}

// Summary aggregates pipeline execution results.
type Summary struct {
	TotalSteps int           `json:"total_steps"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	ExitCode   int           `json:"exit_code"`
}

// Run is the report of one pipeline run.
type Run struct {
	RunID   string       `json:"run_id"`
	Version string       `json:"version"`
	Steps   []StepResult `json:"steps"`
	Summary Summary      `json:"summary"`
}

// Summarize counts results by status. The exit code is that of the first
// failed step.
func Summarize(results []StepResult) Summary {
	s := Summary{TotalSteps: len(results)}
	for _, r := range results {
		s.Duration += r.Duration
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
			if s.ExitCode == 0 {
				s.ExitCode = r.ExitCode
			}
		default:
			s.Skipped++
		}
	}
	s.DurationMS = s.Duration.Milliseconds()
	return s
}
