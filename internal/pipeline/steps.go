package pipeline

import (
	"context"

	"github.com/bgricker/relbuild/internal/build"
	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/callback"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/fsutil"
	"github.com/bgricker/relbuild/internal/metrics"
	"github.com/bgricker/relbuild/internal/pack"
	"github.com/bgricker/relbuild/internal/parallel"
	"github.com/bgricker/relbuild/internal/patch"
	"github.com/bgricker/relbuild/internal/retry"
	"github.com/bgricker/relbuild/internal/runner"
	"github.com/bgricker/relbuild/internal/stage"
	"github.com/bgricker/relbuild/internal/version"
	"github.com/charmbracelet/log"
)

// NewSteps wires the six steps in canonical order. Every external process
// runs through exec.
func NewSteps(b *config.Build, exec runner.Executor, recorder metrics.Recorder, logger *log.Logger) []Step {
	recorder = metrics.OrNoop(recorder)
	invoker := &callback.Invoker{Exec: exec, Shell: b.ScriptShell}
	return []Step{
		&PreBuildStep{Retry: retry.DefaultPolicy(), DetectToolchain: version.DetectToolchain},
		NewPreBuildCallback(invoker),
		&BuildStep{Builder: &build.Builder{
			Compiler: &build.Compiler{Exec: exec, Executable: b.Compiler},
			Patcher:  patch.NewPatcher(logger),
			Metrics:  recorder,
		}},
		&TestStep{Tester: &build.Tester{Exec: exec, Executable: b.Compiler}, Retry: retry.DefaultPolicy()},
		&PostBuildStep{Packager: pack.New(pack.NewArchiver(b, exec, logger), recorder)},
		NewPostBuildCallback(invoker),
	}
}

// PreBuildStep checks the toolchain and cleans the release artifacts dir and
// the projects' bin dirs.
type PreBuildStep struct {
	Retry           retry.Policy
	DetectToolchain func(ctx context.Context, executable string) (version.Info, error)
}

func (*PreBuildStep) Flag() string { return FlagPreBuild }

func (s *PreBuildStep) Run(ctx context.Context, b *config.Build, logger *log.Logger) (int, error) {
	s.checkToolchain(ctx, b, logger)

	if err := fsutil.InitDir(ctx, b.ReleaseArtifactsDir, s.Retry, logger); err != nil {
		return builderr.CodeGeneral, builderr.Wrap(err, builderr.CodeGeneral, "init release artifacts dir")
	}

	var binDirs []string
	for _, p := range append(append([]discovery.Project{}, b.ReleaseProjects...), b.TestProjects...) {
		if fsutil.IsDir(p.BinDir()) {
			binDirs = append(binDirs, p.BinDir())
		}
	}
	err := parallel.ForEach(ctx, binDirs, b.Limit(), func(ctx context.Context, dir string) error {
		logger.Debug("cleaning bin dir", "dir", dir)
		return fsutil.InitDir(ctx, dir, s.Retry, logger)
	})
	if err != nil {
		return builderr.CodeGeneral, builderr.Wrap(err, builderr.CodeGeneral, "clean bin dirs")
	}
	return 0, nil
}

func (s *PreBuildStep) checkToolchain(ctx context.Context, b *config.Build, logger *log.Logger) {
	if s.DetectToolchain == nil {
		return
	}
	info, err := s.DetectToolchain(ctx, b.Compiler)
	switch {
	case err != nil && version.Missing(err):
		logger.Warn("compiler not found on PATH", "compiler", b.Compiler)
	case err != nil:
		logger.Warn("unable to detect compiler version", "compiler", b.Compiler, "err", err)
	case b.ToolchainVersion != "" && !version.CompareMajorMinor(b.ToolchainVersion, info.Version):
		logger.Warn("compiler version mismatch", "required", b.ToolchainVersion, "found", info.Version)
	default:
		logger.Debug("compiler detected", "compiler", info.Name, "version", info.Version)
	}
}

// CallbackStep runs a list of callback scripts from the resolved build.
type CallbackStep struct {
	flag    string
	scripts func(*config.Build) []string
	Invoker *callback.Invoker
}

// NewPreBuildCallback runs the pre-build callbacks.
func NewPreBuildCallback(inv *callback.Invoker) *CallbackStep {
	return &CallbackStep{flag: FlagPreBuildCallback, Invoker: inv, scripts: func(b *config.Build) []string { return b.PreBuildCallbacks }}
}

// NewPostBuildCallback runs the post-build callbacks.
func NewPostBuildCallback(inv *callback.Invoker) *CallbackStep {
	return &CallbackStep{flag: FlagPostBuildCallback, Invoker: inv, scripts: func(b *config.Build) []string { return b.PostBuildCallbacks }}
}

func (s *CallbackStep) Flag() string { return s.flag }

func (s *CallbackStep) Run(ctx context.Context, b *config.Build, logger *log.Logger) (int, error) {
	scripts := s.scripts(b)
	if len(scripts) == 0 {
		logger.Info("no callbacks found")
		return 0, nil
	}
	if err := s.Invoker.Invoke(ctx, scripts, b.SolutionDir, b.ReleaseArtifactsDir, logger); err != nil {
		return builderr.CodeOf(err), err
	}
	return 0, nil
}

// BuildStep patches and compiles the release projects.
type BuildStep struct {
	Builder *build.Builder
}

func (*BuildStep) Flag() string { return FlagBuild }

func (s *BuildStep) Run(ctx context.Context, b *config.Build, logger *log.Logger) (int, error) {
	if err := s.Builder.Build(ctx, b, logger); err != nil {
		return builderr.CodeOf(err), err
	}
	return 0, nil
}

// TestStep runs the test projects.
type TestStep struct {
	Tester *build.Tester
	Retry  retry.Policy
}

func (*TestStep) Flag() string { return FlagTest }

func (s *TestStep) Run(ctx context.Context, b *config.Build, logger *log.Logger) (int, error) {
	if len(b.TestProjects) == 0 {
		logger.Info("no test projects found, skipping tests")
		return 0, nil
	}
	if b.TestCaseFilter != "" {
		logger.Info("running tests", "filter", b.TestCaseFilter)
	}
	if b.TestResults {
		if err := fsutil.InitDir(ctx, b.TestArtifactsDir, s.Retry, logger); err != nil {
			return builderr.CodeGeneral, builderr.Wrap(err, builderr.CodeGeneral, "init test artifacts dir")
		}
	}
	return s.Tester.Test(ctx, b, logger)
}

// PostBuildStep stages the compiled output and, when requested, packages it.
type PostBuildStep struct {
	Packager *pack.Packager
}

func (*PostBuildStep) Flag() string { return FlagPostBuild }

func (s *PostBuildStep) Run(ctx context.Context, b *config.Build, logger *log.Logger) (int, error) {
	if err := stage.Stage(ctx, b, logger); err != nil {
		return builderr.CodeOf(err), err
	}
	if !b.Package {
		return 0, nil
	}
	sets, err := s.Packager.Package(ctx, b, logger)
	if err != nil {
		return builderr.CodeOf(err), err
	}
	archives := 0
	for _, set := range sets {
		archives += len(set.Paths())
	}
	logger.Info("packaging complete", "modules", len(sets), "archives", archives)
	return 0, nil
}
