package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/metrics"
	"github.com/bgricker/relbuild/internal/report"
	"github.com/charmbracelet/log"
)

// Dispatcher runs steps in their fixed order and stops at the first failure.
type Dispatcher struct {
	steps   []Step
	metrics metrics.Recorder
}

// NewDispatcher creates a dispatcher over steps, which must be given in
// canonical order.
func NewDispatcher(steps []Step, recorder metrics.Recorder) *Dispatcher {
	return &Dispatcher{steps: steps, metrics: metrics.OrNoop(recorder)}
}

// Flags returns the step flags in dispatch order.
func (d *Dispatcher) Flags() []string {
	out := make([]string, 0, len(d.steps))
	for _, s := range d.steps {
		out = append(out, s.Flag())
	}
	return out
}

// Select resolves a step selection, compared case-insensitively, into the set
// of flags to run. An empty selection selects every step.
func (d *Dispatcher) Select(names []string) (map[string]bool, error) {
	selected := make(map[string]bool, len(d.steps))
	if len(names) == 0 {
		for _, s := range d.steps {
			selected[s.Flag()] = true
		}
		return selected, nil
	}

	var unknown []string
	for _, name := range names {
		flag, ok := d.lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		selected[flag] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s (known steps: %s)", ErrUnknownStep, strings.Join(unknown, ", "), strings.Join(d.Flags(), ", "))
	}
	return selected, nil
}

func (d *Dispatcher) lookup(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, s := range d.steps {
		if strings.EqualFold(s.Flag(), name) {
			return s.Flag(), true
		}
	}
	return "", false
}

// Dispatch runs the steps selected by b.Steps. Every step appears in the
// returned results; steps not selected or not reached are skipped. The
// returned error is a *StepError for the first failing step.
func (d *Dispatcher) Dispatch(ctx context.Context, b *config.Build, logger *log.Logger) ([]report.StepResult, error) {
	selected, err := d.Select(b.Steps)
	if err != nil {
		return nil, err
	}

	results := make([]report.StepResult, 0, len(d.steps))
	var failure *StepError
	for _, step := range d.steps {
		flag := step.Flag()
		switch {
		case failure != nil:
			d.metrics.IncStepResult(flag, metrics.ResultSkipped)
			results = append(results, report.StepResult{Step: flag, Status: report.StatusSkipped, Note: "not attempted after " + failure.Step + " failed"})
			continue
		case !selected[flag]:
			logger.Debug("step not selected", "step", flag)
			d.metrics.IncStepResult(flag, metrics.ResultSkipped)
			results = append(results, report.StepResult{Step: flag, Status: report.StatusSkipped, Note: "not selected"})
			continue
		}

		res, stepErr := d.run(ctx, step, b, logger)
		results = append(results, res)
		failure = stepErr
	}

	if failure != nil {
		return results, failure
	}
	return results, nil
}

func (d *Dispatcher) run(ctx context.Context, step Step, b *config.Build, logger *log.Logger) (report.StepResult, *StepError) {
	flag := step.Flag()
	slog := logger.WithPrefix(flag)
	slog.Info("starting")

	start := time.Now()
	code, err := step.Run(ctx, b, slog)
	elapsed := time.Since(start)
	if code == 0 && err != nil {
		code = builderr.CodeOf(err)
	}

	d.metrics.ObserveStepDuration(flag, elapsed)
	d.metrics.IncStepResult(flag, metrics.ResultFor(code))

	res := report.StepResult{
		Step:       flag,
		Duration:   elapsed,
		DurationMS: elapsed.Milliseconds(),
		ExitCode:   code,
		Status:     report.StatusPassed,
	}
	if code == 0 {
		slog.Info("completed", "duration", elapsed.Round(time.Millisecond))
		return res, nil
	}

	res.Status = report.StatusFailed
	if err != nil {
		res.Error = err.Error()
	}
	slog.Error("failed", "code", code, "err", err)
	return res, &StepError{Step: flag, Code: code, Err: err}
}
