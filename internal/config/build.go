package config

import (
	"os"
	"strings"

	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/parallel"
	"github.com/bgricker/relbuild/internal/runner"
	"github.com/bgricker/relbuild/internal/version"
)

// Build is the resolved configuration of one run. It is created once by the
// Resolver (or loaded from a snapshot) and shared read-only by every step.
type Build struct {
	RunID         string                  `yaml:"run_id"`
	SolutionDir   string                  `yaml:"solution_dir"`
	Configuration string                  `yaml:"configuration"`
	Version       version.SemanticVersion `yaml:"version"`

	ReleaseArtifactsDir string `yaml:"release_artifacts_dir"`
	TestArtifactsDir    string `yaml:"test_artifacts_dir"`

	Publish        bool   `yaml:"publish"`
	Package        bool   `yaml:"package"`
	Runtime        string `yaml:"runtime"`
	BuildSolutions bool   `yaml:"build_solutions"`

	ReleaseFilter  string   `yaml:"release_filter"`
	TestFilter     string   `yaml:"test_filter"`
	TestCaseFilter string   `yaml:"test_case_filter,omitempty"`
	TestResults    bool     `yaml:"test_results"`
	BinFolderRoles []string `yaml:"bin_folder_roles,omitempty"`
	Steps          []string `yaml:"steps,omitempty"`

	ReleaseProjects    []discovery.Project `yaml:"release_projects"`
	TestProjects       []discovery.Project `yaml:"test_projects,omitempty"`
	Solutions          []string            `yaml:"solutions,omitempty"`
	PreBuildCallbacks  []string            `yaml:"pre_build_callbacks,omitempty"`
	PostBuildCallbacks []string            `yaml:"post_build_callbacks,omitempty"`

	Compiler         string `yaml:"compiler"`
	ToolchainVersion string `yaml:"toolchain_version,omitempty"`
	ScriptShell      string `yaml:"script_shell"`
	Archiver         string `yaml:"archiver"`
	ArchiveTool      string `yaml:"archive_tool"`
	Parallelism      int    `yaml:"parallelism,omitempty"`

	// EnvFile is re-read whenever a snapshot is loaded; its values are never
	// written to the snapshot.
	EnvFile string            `yaml:"env_file,omitempty"`
	Env     map[string]string `yaml:"-"`
}

// Limit returns the bounded fan-out width for per-project work.
func (b *Build) Limit() int {
	if b.Parallelism > 0 {
		return b.Parallelism
	}
	return parallel.DefaultLimit()
}

// HasBinFolderRole reports whether role is configured, compared case-insensitively.
func (b *Build) HasBinFolderRole(role string) bool {
	for _, r := range b.BinFolderRoles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// ProcessEnv returns the environment for external processes: the current
// process environment with the env file values layered on top.
func (b *Build) ProcessEnv() []string {
	return runner.MergeEnv(os.Environ(), b.Env)
}

// NewExecutor creates a process runner working in the solution dir.
func (b *Build) NewExecutor() runner.Executor {
	return runner.New(runner.Options{Dir: b.SolutionDir, Env: b.ProcessEnv()})
}
