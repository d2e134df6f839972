// Package callback runs user supplied pre and post build scripts.
package callback

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/runner"
	"github.com/charmbracelet/log"
)

// Invoker runs callback scripts one after another.
type Invoker struct {
	Exec runner.Executor
	// Shell runs .ps1 scripts. Scripts with other extensions run through
	// bash, or directly when executable.
	Shell string
}

// Command returns the executable and arguments that run script against the
// solution and artifacts dirs.
func (inv *Invoker) Command(script, slnDir, artifactsDir string) (string, []string) {
	switch strings.ToLower(filepath.Ext(script)) {
	case ".ps1":
		shell := inv.Shell
		if shell == "" {
			shell = "pwsh"
		}
		return shell, []string{
			"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass",
			"-File", script,
			"-slnDir", slnDir,
			"-artifactsDir", artifactsDir,
		}
	case ".sh":
		return "bash", []string{script, "--slnDir", slnDir, "--artifactsDir", artifactsDir}
	default:
		return script, []string{"--slnDir", slnDir, "--artifactsDir", artifactsDir}
	}
}

// Invoke runs scripts in the given order. Script stdout is logged at debug
// level and stderr at warning level. The first script exiting non-zero stops
// the sequence with a *builderr.Error carrying its stderr and exit code.
func (inv *Invoker) Invoke(ctx context.Context, scripts []string, slnDir, artifactsDir string, logger *log.Logger) error {
	for _, script := range scripts {
		slog := logger.With("callback", filepath.Base(script))
		name, args := inv.Command(script, slnDir, artifactsDir)
		slog.Info("invoking callback")
		slog.Debug(runner.FormatCommand(name, args))

		var stderr strings.Builder
		code, err := inv.Exec.Run(ctx, name, args,
			func(line string) { slog.Debug(line) },
			func(line string) {
				slog.Warn(line)
				stderr.WriteString(line + "\n")
			},
		)
		if err != nil {
			return builderr.Wrap(err, code, "callback %s", filepath.Base(script))
		}
		if code != 0 {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = "no error output"
			}
			return builderr.New(code, "callback %s failed with exit code %d: %s", filepath.Base(script), code, msg)
		}
	}
	return nil
}
