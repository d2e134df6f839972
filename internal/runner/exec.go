package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
)

// ExitNotFound is reported when the executable could not be started.
const ExitNotFound = 127

// LineFunc receives one line of process output without its trailing newline.
type LineFunc func(line string)

// Executor runs external processes. Compiler, test runner, script runner and
// archive tool invocations all go through it.
type Executor interface {
	Run(ctx context.Context, name string, args []string, onStdout, onStderr LineFunc) (int, error)
}

// Options configure how the runner starts processes.
type Options struct {
	Dir string
	Env []string
}

// Runner executes external processes and streams their output line by line.
type Runner struct {
	opts Options
}

// New creates a runner with the supplied options.
func New(opts Options) *Runner {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	opts.Env = append([]string{}, opts.Env...)
	return &Runner{opts: opts}
}

// Run starts name with args and blocks until it exits. Each stdout and stderr
// line is passed to the matching callback; the two callbacks may run
// concurrently with each other but each is called from a single goroutine.
// A process that ran and exited non-zero yields its exit code and a nil
// error; an error is returned only when the process could not be run.
func (r *Runner) Run(ctx context.Context, name string, args []string, onStdout, onStderr LineFunc) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.opts.Dir
	cmd.Env = r.opts.Env

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ExitNotFound, fmt.Errorf("stdout pipe for %s: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ExitNotFound, fmt.Errorf("stderr pipe for %s: %w", name, err)
	}

	if err := cmd.Start(); err != nil {
		return ExitNotFound, fmt.Errorf("start %s: %w", name, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stdout, onStdout)
	}()
	go func() {
		defer wg.Done()
		scanLines(stderr, onStderr)
	}()
	wg.Wait()

	err = cmd.Wait()
	code := exitCode(err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return code, fmt.Errorf("run %s: %w", name, ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return code, fmt.Errorf("run %s: %w", name, err)
		}
	}
	return code, nil
}

func scanLines(r io.Reader, fn LineFunc) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if fn != nil {
			fn(scanner.Text())
		}
	}
	// drain whatever the scanner refused so the process never blocks on a full pipe
	_, _ = io.Copy(io.Discard, r)
}

// FormatCommand renders a command line for logging, quoting arguments that
// contain whitespace.
func FormatCommand(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(name))
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"") {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// MergeEnv overlays maps onto a KEY=VALUE environment, returning a sorted copy.
func MergeEnv(base []string, overlays ...map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(overlays)*4)
	for _, kv := range base {
		if idx := strings.Index(kv, "="); idx != -1 {
			key := kv[:idx]
			envMap[key] = kv[idx+1:]
		}
	}
	for _, overlay := range overlays {
		for k, v := range overlay {
			envMap[k] = v
		}
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%s", k, envMap[k]))
	}
	return out
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(interface{ ExitStatus() int }); ok {
			return status.ExitStatus()
		}
		return exitErr.ExitCode()
	}
	return 1
}

// TailLines keeps the last maxLines lines of input.
func TailLines(input string, maxLines int) string {
	if input == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(input, "\n"), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}
