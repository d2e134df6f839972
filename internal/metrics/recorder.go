// Package metrics records step, compile and archive observations.
package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultSkipped ResultLabel = "skipped"
)

// ResultFor maps an exit code to a result label.
func ResultFor(code int) ResultLabel {
	if code == 0 {
		return ResultSuccess
	}
	return ResultFailed
}

// Recorder receives observations from the pipeline. Implementations must be
// safe for concurrent use since per-project work reports from several workers.
type Recorder interface {
	ObserveStepDuration(step string, d time.Duration)
	IncStepResult(step string, result ResultLabel)
	IncCompileResult(project string, result ResultLabel)
	ObserveArchiveSize(module, kind string, bytes int64)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not written).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStepDuration(string, time.Duration) {}
func (NoopRecorder) IncStepResult(string, ResultLabel)         {}
func (NoopRecorder) IncCompileResult(string, ResultLabel)      {}
func (NoopRecorder) ObserveArchiveSize(string, string, int64)  {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
