package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/version"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// ErrInvalid marks configuration values that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Resolver turns a Config into an immutable Build.
type Resolver struct {
	Log *log.Logger
	// NewSource opens the version source for the solution dir. A nil func
	// uses the git repository containing the solution dir.
	NewSource func(dir string) version.Source
	// Getwd defaults to os.Getwd.
	Getwd func() (string, error)
}

// Resolve validates cfg, locates the solution dir, resolves the version and
// discovers the projects and callback scripts of the run.
func (r Resolver) Resolve(cfg Config) (*Build, error) {
	logger := r.Log
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	slnDir, err := r.solutionDir(cfg.SolutionDir, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("solution dir resolved", "dir", slnDir)

	newSource := r.NewSource
	if newSource == nil {
		newSource = func(dir string) version.Source { return version.NewGitSource(dir) }
	}
	v, err := version.Resolve(cfg.Version, newSource(slnDir), logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	projects, err := discovery.Classify(slnDir, cfg.ReleaseFilter, cfg.TestFilter, logger)
	if err != nil {
		return nil, err
	}

	envFile, required := cfg.EnvFile, cfg.EnvFile != ""
	if !required {
		envFile = filepath.Join(slnDir, DefaultEnvFile)
	} else {
		envFile = rooted(slnDir, envFile)
	}
	env, err := LoadEnvFile(envFile, required)
	if err != nil {
		return nil, err
	}
	if env == nil {
		envFile = ""
	}

	b := &Build{
		RunID:               uuid.NewString(),
		SolutionDir:         slnDir,
		Configuration:       cfg.Configuration,
		Version:             v,
		ReleaseArtifactsDir: rooted(slnDir, cfg.ReleaseArtifactsDir),
		TestArtifactsDir:    rooted(slnDir, cfg.TestArtifactsDir),
		Publish:             cfg.Publish,
		Package:             cfg.Package,
		Runtime:             cfg.Runtime,
		BuildSolutions:      cfg.BuildSolutions,
		ReleaseFilter:       discovery.ProjectFilter(cfg.ReleaseFilter),
		TestFilter:          discovery.ProjectFilter(cfg.TestFilter),
		TestCaseFilter:      cfg.TestCaseFilter,
		TestResults:         cfg.TestResults,
		BinFolderRoles:      slices.Clone(cfg.BinFolderRoles),
		Steps:               SplitSteps(cfg.Steps),
		ReleaseProjects:     projects.Release,
		TestProjects:        projects.Test,
		Solutions:           discovery.Solutions(slnDir),
		PreBuildCallbacks:   discovery.SortByName(discovery.Files(slnDir, cfg.PreBuildCallbackFilter, "pre-build callbacks", logger)),
		PostBuildCallbacks:  discovery.SortByName(discovery.Files(slnDir, cfg.PostBuildCallbackFilter, "post-build callbacks", logger)),
		Compiler:            cfg.Compiler,
		ToolchainVersion:    cfg.ToolchainVersion,
		ScriptShell:         cfg.ScriptShell,
		Archiver:            strings.ToLower(cfg.Archiver),
		ArchiveTool:         cfg.ArchiveTool,
		Parallelism:         cfg.Parallelism,
		EnvFile:             envFile,
		Env:                 env,
	}

	logger.Debug("configuration resolved",
		"configuration", b.Configuration,
		"version", b.Version.String(),
		"release_projects", len(b.ReleaseProjects),
		"test_projects", len(b.TestProjects),
		"publish", b.Publish,
		"package", b.Package,
		"runtime", b.Runtime,
	)
	return b, nil
}

func (r Resolver) solutionDir(given string, logger *log.Logger) (string, error) {
	if given != "" {
		info, err := os.Stat(given)
		if err != nil {
			return "", fmt.Errorf("solution dir %q: %w", given, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%w: solution dir %q is not a directory", ErrInvalid, given)
		}
		return discovery.FindSolutionDir(given, logger)
	}
	getwd := r.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	wd, err := getwd()
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	return discovery.FindSolutionDir(wd, logger)
}

// Validate rejects configurations that cannot produce a run.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Configuration) == "" {
		return fmt.Errorf("%w: configuration name must not be empty", ErrInvalid)
	}
	if strings.TrimSpace(cfg.ReleaseFilter) == "" {
		return fmt.Errorf("%w: release filter must not be empty", ErrInvalid)
	}
	if cfg.Publish && strings.TrimSpace(cfg.Runtime) == "" {
		return fmt.Errorf("%w: publishing requires a runtime identifier", ErrInvalid)
	}
	if cfg.Parallelism < 0 {
		return fmt.Errorf("%w: parallelism must not be negative", ErrInvalid)
	}
	switch strings.ToLower(cfg.Format) {
	case FormatPretty, FormatJSON:
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrInvalid, cfg.Format)
	}
	switch strings.ToLower(cfg.Archiver) {
	case ArchiverZip, ArchiverTool:
	default:
		return fmt.Errorf("%w: unsupported archiver %q", ErrInvalid, cfg.Archiver)
	}
	return nil
}

func rooted(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
