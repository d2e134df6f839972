// Package pipeline sequences the build steps of a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/bgricker/relbuild/internal/config"
	"github.com/charmbracelet/log"
)

// Step flags in canonical order.
const (
	FlagPreBuild          = "PreBuild"
	FlagPreBuildCallback  = "PreBuildCallback"
	FlagBuild             = "Build"
	FlagTest              = "Test"
	FlagPostBuild         = "PostBuild"
	FlagPostBuildCallback = "PostBuildCallback"
)

// Order is the canonical step order.
var Order = []string{
	FlagPreBuild,
	FlagPreBuildCallback,
	FlagBuild,
	FlagTest,
	FlagPostBuild,
	FlagPostBuildCallback,
}

// Step is one independently executable phase of the pipeline.
type Step interface {
	// Flag is the stable name used for selection and logging.
	Flag() string
	// Run executes the step and returns its exit code. A non-zero code or a
	// non-nil error fails the pipeline.
	Run(ctx context.Context, b *config.Build, logger *log.Logger) (int, error)
}

// ErrUnknownStep is returned when a selection names a step that does not exist.
var ErrUnknownStep = errors.New("unknown step")

// StepError is the failure of a pipeline run. It names the first failing step
// and carries the exit code the process should end with.
type StepError struct {
	Step string
	Code int
	Err  error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("step %s failed with exit code %d", e.Step, e.Code)
	}
	return fmt.Sprintf("step %s failed with exit code %d: %v", e.Step, e.Code, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
