package build

import (
	"context"
	"errors"
	"fmt"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/metrics"
	"github.com/bgricker/relbuild/internal/parallel"
	"github.com/bgricker/relbuild/internal/patch"
	"github.com/charmbracelet/log"
)

// ErrNoSolutions is returned when solution builds are requested but the
// solution dir holds no solution file.
var ErrNoSolutions = errors.New("no solution files to build")

// Builder stamps the run's version into the release projects and compiles
// them. Every patch is reverted whether the compile succeeds or not.
type Builder struct {
	Compiler *Compiler
	Patcher  *patch.Patcher
	Metrics  metrics.Recorder
}

// Build compiles every release project in parallel, or every solution file
// in turn when b.BuildSolutions is set.
func (bd *Builder) Build(ctx context.Context, b *config.Build, logger *log.Logger) error {
	if b.BuildSolutions {
		return bd.buildSolutions(ctx, b, logger)
	}
	return parallel.ForEach(ctx, b.ReleaseProjects, b.Limit(), func(ctx context.Context, project discovery.Project) error {
		return bd.buildProject(ctx, project, b, logger.With("project", project.Name))
	})
}

func (bd *Builder) buildProject(ctx context.Context, project discovery.Project, b *config.Build, logger *log.Logger) (err error) {
	pt, err := bd.Patcher.Apply(project, b.Version)
	if err != nil {
		return builderr.Wrap(err, builderr.CodeGeneral, "version patch failed")
	}
	defer func() {
		if rerr := pt.Revert(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	err = bd.Compiler.Compile(ctx, project.Path, b, logger)
	metrics.OrNoop(bd.Metrics).IncCompileResult(project.Name, metrics.ResultFor(builderr.CodeOf(err)))
	return err
}

func (bd *Builder) buildSolutions(ctx context.Context, b *config.Build, logger *log.Logger) (err error) {
	if len(b.Solutions) == 0 {
		return fmt.Errorf("%w in %s", ErrNoSolutions, b.SolutionDir)
	}

	patches, err := bd.Patcher.ApplyAll(b.ReleaseProjects, b.Version)
	if err != nil {
		return builderr.Wrap(err, builderr.CodeGeneral, "version patch failed")
	}
	defer func() {
		if rerr := patches.Revert(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	recorder := metrics.OrNoop(bd.Metrics)
	for _, sln := range b.Solutions {
		cerr := bd.Compiler.Compile(ctx, sln, b, logger.With("solution", sln))
		for _, project := range b.ReleaseProjects {
			recorder.IncCompileResult(project.Name, metrics.ResultFor(builderr.CodeOf(cerr)))
		}
		if cerr != nil {
			return cerr
		}
	}
	return nil
}
