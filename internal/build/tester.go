package build

import (
	"context"
	"path/filepath"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/parallel"
	"github.com/bgricker/relbuild/internal/runner"
	"github.com/charmbracelet/log"
)

// Tester runs the toolchain's test command against the test projects.
type Tester struct {
	Exec       runner.Executor
	Executable string
}

// TesterArgs returns the test runner arguments for project.
func TesterArgs(project discovery.Project, b *config.Build) []string {
	args := []string{
		"test", project.Path,
		"--configuration", b.Configuration,
		"--no-build",
		"--no-restore",
	}
	if b.TestResults {
		results := filepath.Join(b.TestArtifactsDir, project.Name+".results.xml")
		args = append(args, "--logger", "trx;LogFileName="+results)
	}
	if b.TestCaseFilter != "" {
		args = append(args, "--filter", b.TestCaseFilter)
	}
	return args
}

// Test runs every test project in parallel. Every project is run to
// completion; the result is the exit code and error of the first failing
// project in project order.
func (t *Tester) Test(ctx context.Context, b *config.Build, logger *log.Logger) (int, error) {
	failures := make([]error, len(b.TestProjects))
	indexes := make([]int, len(b.TestProjects))
	for i := range indexes {
		indexes[i] = i
	}
	_ = parallel.ForEach(ctx, indexes, b.Limit(), func(ctx context.Context, i int) error {
		failures[i] = t.run(ctx, b.TestProjects[i], b, logger)
		return failures[i]
	})

	for _, err := range failures {
		if err != nil {
			return builderr.CodeOf(err), err
		}
	}
	return 0, nil
}

func (t *Tester) run(ctx context.Context, project discovery.Project, b *config.Build, logger *log.Logger) error {
	plog := logger.With("project", project.Name)
	args := TesterArgs(project, b)
	plog.Debug(runner.FormatCommand(t.Executable, args))

	code, err := t.Exec.Run(ctx, t.Executable, args,
		func(line string) { plog.Debug(line) },
		func(line string) { plog.Error(line) },
	)
	if err != nil {
		return builderr.Wrap(err, code, "test run failed for %s", project.Name)
	}
	if code != 0 {
		return builderr.New(code, "tests failed for %s with exit code %d", project.Name, code)
	}
	plog.Info("tests passed")
	return nil
}
