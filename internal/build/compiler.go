// Package build drives the external compiler and test runner.
package build

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/runner"
	"github.com/charmbracelet/log"
)

const stderrTailLines = 20

// Compiler invokes the toolchain's build or publish command.
type Compiler struct {
	Exec       runner.Executor
	Executable string
}

// Action returns the compiler verb for the run: "publish" or "build".
func Action(b *config.Build) string {
	if b.Publish {
		return "publish"
	}
	return "build"
}

// Args returns the compiler arguments for target, a project or solution file.
func Args(target string, b *config.Build) []string {
	args := []string{
		Action(b),
		target,
		"--configuration", b.Configuration,
		"--verbosity", "quiet",
		"/p:Version=" + b.Version.String(),
	}
	if b.Publish {
		return append(args, "--runtime", b.Runtime)
	}
	// the patched version must reach every assembly
	return append(args, "--no-incremental")
}

// Compile builds target. Compiler stdout is logged at debug level and stderr
// at error level. A non-zero exit code yields a *builderr.Error carrying it.
func (c *Compiler) Compile(ctx context.Context, target string, b *config.Build, logger *log.Logger) error {
	name := strings.TrimSuffix(filepath.Base(target), filepath.Ext(target))
	args := Args(target, b)
	logger.Info(Action(b), "target", name, "version", b.Version.String())
	logger.Debug(runner.FormatCommand(c.Executable, args))

	var (
		mu     sync.Mutex
		stderr strings.Builder
	)
	code, err := c.Exec.Run(ctx, c.Executable, args,
		func(line string) { logger.Debug(line) },
		func(line string) {
			logger.Error(line)
			mu.Lock()
			stderr.WriteString(line + "\n")
			mu.Unlock()
		},
	)
	if err != nil {
		return builderr.Wrap(err, code, "%s failed for %s", Action(b), name)
	}
	if code != 0 {
		msg := runner.TailLines(stderr.String(), stderrTailLines)
		if msg == "" {
			msg = "see logs for details"
		}
		return builderr.New(code, "%s failed for %s with exit code %d: %s", Action(b), name, code, msg)
	}
	return nil
}
