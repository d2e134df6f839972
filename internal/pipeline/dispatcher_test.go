package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/metrics"
	"github.com/bgricker/relbuild/internal/report"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStep struct {
	flag string
	code int
	err  error
	ran  *[]string
}

func (s fakeStep) Flag() string { return s.flag }

func (s fakeStep) Run(context.Context, *config.Build, *log.Logger) (int, error) {
	*s.ran = append(*s.ran, s.flag)
	return s.code, s.err
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// fakeSteps returns the canonical steps with per-flag results.
func fakeSteps(ran *[]string, codes map[string]int, errs map[string]error) []Step {
	steps := make([]Step, 0, len(Order))
	for _, flag := range Order {
		steps = append(steps, fakeStep{flag: flag, code: codes[flag], err: errs[flag], ran: ran})
	}
	return steps
}

func statuses(results []report.StepResult) map[string]string {
	out := map[string]string{}
	for _, r := range results {
		out[r.Step] = r.Status
	}
	return out
}

func TestDispatchRunsAllStepsInOrder(t *testing.T) {
	var ran []string
	d := NewDispatcher(fakeSteps(&ran, nil, nil), nil)

	results, err := d.Dispatch(context.Background(), &config.Build{}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, Order, ran)
	assert.Len(t, results, len(Order))
	assert.Equal(t, 6, report.Summarize(results).Passed)
}

func TestDispatchSelectionKeepsCanonicalOrder(t *testing.T) {
	var ran []string
	d := NewDispatcher(fakeSteps(&ran, nil, nil), nil)

	b := &config.Build{Steps: []string{"postbuildcallback", "TEST", "PreBuild", "build", "PostBuild", "prebuildcallback"}}
	_, err := d.Dispatch(context.Background(), b, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, Order, ran)
}

func TestDispatchOnlyBuild(t *testing.T) {
	var ran []string
	d := NewDispatcher(fakeSteps(&ran, nil, nil), nil)

	results, err := d.Dispatch(context.Background(), &config.Build{Steps: []string{"Build"}}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{FlagBuild}, ran)

	st := statuses(results)
	assert.Equal(t, report.StatusPassed, st[FlagBuild])
	assert.Equal(t, report.StatusSkipped, st[FlagPreBuild])
	assert.Equal(t, report.StatusSkipped, st[FlagTest])
	assert.Equal(t, report.StatusSkipped, st[FlagPostBuild])
}

func TestDispatchFailFast(t *testing.T) {
	var ran []string
	d := NewDispatcher(fakeSteps(&ran, map[string]int{FlagBuild: 4}, map[string]error{FlagBuild: errors.New("compile failed")}), nil)

	results, err := d.Dispatch(context.Background(), &config.Build{}, quietLogger())
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, FlagBuild, stepErr.Step)
	assert.Equal(t, 4, stepErr.Code)
	assert.Contains(t, err.Error(), "Build")
	assert.Contains(t, err.Error(), "compile failed")

	assert.Equal(t, []string{FlagPreBuild, FlagPreBuildCallback, FlagBuild}, ran)
	st := statuses(results)
	assert.Equal(t, report.StatusFailed, st[FlagBuild])
	assert.Equal(t, report.StatusSkipped, st[FlagTest])
	assert.Equal(t, report.StatusSkipped, st[FlagPostBuild])
	assert.Equal(t, report.StatusSkipped, st[FlagPostBuildCallback])
	assert.Equal(t, 4, report.Summarize(results).ExitCode)
}

func TestDispatchNonZeroCodeWithoutError(t *testing.T) {
	var ran []string
	d := NewDispatcher(fakeSteps(&ran, map[string]int{FlagTest: 2}, nil), nil)

	_, err := d.Dispatch(context.Background(), &config.Build{}, quietLogger())
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, FlagTest, stepErr.Step)
	assert.Equal(t, 2, stepErr.Code)
	assert.NotContains(t, ran, FlagPostBuild)
}

func TestDispatchErrorWithoutCode(t *testing.T) {
	var ran []string
	d := NewDispatcher(fakeSteps(&ran, nil, map[string]error{FlagPreBuild: builderr.New(9, "boom")}), nil)

	_, err := d.Dispatch(context.Background(), &config.Build{}, quietLogger())
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 9, stepErr.Code)
	assert.Equal(t, []string{FlagPreBuild}, ran)

	var be *builderr.Error
	assert.ErrorAs(t, err, &be)
}

func TestDispatchUnknownStep(t *testing.T) {
	var ran []string
	d := NewDispatcher(fakeSteps(&ran, nil, nil), nil)

	_, err := d.Dispatch(context.Background(), &config.Build{Steps: []string{"Build", "Deploy"}}, quietLogger())
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Contains(t, err.Error(), "Deploy")
	assert.Empty(t, ran)
}

func TestFlags(t *testing.T) {
	var ran []string
	assert.Equal(t, Order, NewDispatcher(fakeSteps(&ran, nil, nil), nil).Flags())
}

type resultRecorder struct {
	metrics.NoopRecorder
	results map[string]metrics.ResultLabel
}

func (r *resultRecorder) IncStepResult(step string, result metrics.ResultLabel) {
	r.results[step] = result
}

func TestDispatchRecordsEveryStepResult(t *testing.T) {
	var ran []string
	recorder := &resultRecorder{results: map[string]metrics.ResultLabel{}}
	d := NewDispatcher(fakeSteps(&ran, map[string]int{FlagBuild: 1}, nil), recorder)

	_, err := d.Dispatch(context.Background(), &config.Build{Steps: []string{"PreBuild", "Build", "Test"}}, quietLogger())
	require.Error(t, err)

	assert.Equal(t, map[string]metrics.ResultLabel{
		FlagPreBuild:          metrics.ResultSuccess,
		FlagPreBuildCallback:  metrics.ResultSkipped,
		FlagBuild:             metrics.ResultFailed,
		FlagTest:              metrics.ResultSkipped,
		FlagPostBuild:         metrics.ResultSkipped,
		FlagPostBuildCallback: metrics.ResultSkipped,
	}, recorder.results)
}
