package config

import (
	"strings"
)

// Config captures CLI options sourced from the config file, environment or flags.
type Config struct {
	SolutionDir   string `mapstructure:"solution_dir" yaml:"solution_dir"`
	Configuration string `mapstructure:"configuration" yaml:"configuration"`
	Version       string `mapstructure:"version" yaml:"version"`

	ReleaseFilter  string `mapstructure:"release_filter" yaml:"release_filter"`
	TestFilter     string `mapstructure:"test_filter" yaml:"test_filter"`
	TestCaseFilter string `mapstructure:"test_case_filter" yaml:"test_case_filter"`
	TestResults    bool   `mapstructure:"test_results" yaml:"test_results"`

	ReleaseArtifactsDir string `mapstructure:"release_artifacts_dir" yaml:"release_artifacts_dir"`
	TestArtifactsDir    string `mapstructure:"test_artifacts_dir" yaml:"test_artifacts_dir"`

	Publish        bool     `mapstructure:"publish" yaml:"publish"`
	Package        bool     `mapstructure:"package" yaml:"package"`
	Runtime        string   `mapstructure:"runtime" yaml:"runtime"`
	BuildSolutions bool     `mapstructure:"build_solutions" yaml:"build_solutions"`
	BinFolderRoles []string `mapstructure:"bin_folder_roles" yaml:"bin_folder_roles"`
	Steps          []string `mapstructure:"steps" yaml:"steps"`

	PreBuildCallbackFilter  string `mapstructure:"pre_build_callback_filter" yaml:"pre_build_callback_filter"`
	PostBuildCallbackFilter string `mapstructure:"post_build_callback_filter" yaml:"post_build_callback_filter"`

	Compiler         string `mapstructure:"compiler" yaml:"compiler"`
	ToolchainVersion string `mapstructure:"toolchain_version" yaml:"toolchain_version"`
	ScriptShell      string `mapstructure:"script_shell" yaml:"script_shell"`
	Archiver         string `mapstructure:"archiver" yaml:"archiver"`
	ArchiveTool      string `mapstructure:"archive_tool" yaml:"archive_tool"`
	Parallelism      int    `mapstructure:"parallelism" yaml:"parallelism"`
	EnvFile          string `mapstructure:"env_file" yaml:"env_file"`

	Verbose     bool   `mapstructure:"verbose" yaml:"verbose"`
	Format      string `mapstructure:"format" yaml:"format"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

const (
	// FormatPretty renders human readable output.
	FormatPretty = "pretty"
	// FormatJSON renders machine readable output.
	FormatJSON = "json"

	// ArchiverZip packages modules in-process.
	ArchiverZip = "zip"
	// ArchiverTool packages modules with an external archive tool.
	ArchiverTool = "tool"

	// DefaultEnvFile is looked up in the solution dir when no env file is configured.
	DefaultEnvFile = ".relbuild.env"
)

// Default returns the baseline configuration used when no flags or config file specify values.
func Default() Config {
	return Config{
		Configuration:           "release",
		ReleaseFilter:           "*.csproj",
		TestFilter:              "*.tests.csproj",
		ReleaseArtifactsDir:     ".releaseArtifacts",
		TestArtifactsDir:        ".testArtifacts",
		Runtime:                 "win-x64",
		PreBuildCallbackFilter:  "*.PreBuild.Callback.ps1",
		PostBuildCallbackFilter: "*.PostBuild.Callback.ps1",
		Compiler:                "dotnet",
		ScriptShell:             "pwsh",
		Archiver:                ArchiverZip,
		ArchiveTool:             "7z",
		Format:                  FormatPretty,
	}
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	applyString(&cfg.SolutionDir, flags.SolutionDir)
	applyString(&cfg.Configuration, flags.Configuration)
	applyString(&cfg.Version, flags.Version)
	applyString(&cfg.ReleaseFilter, flags.ReleaseFilter)
	applyString(&cfg.TestFilter, flags.TestFilter)
	applyString(&cfg.TestCaseFilter, flags.TestCaseFilter)
	applyString(&cfg.ReleaseArtifactsDir, flags.ReleaseArtifactsDir)
	applyString(&cfg.TestArtifactsDir, flags.TestArtifactsDir)
	applyString(&cfg.Runtime, flags.Runtime)
	applyString(&cfg.Archiver, flags.Archiver)
	applyString(&cfg.EnvFile, flags.EnvFile)
	applyString(&cfg.Format, flags.Format)
	applyString(&cfg.MetricsFile, flags.MetricsFile)

	applyBool(&cfg.Publish, flags.Publish)
	applyBool(&cfg.Package, flags.Package)
	applyBool(&cfg.TestResults, flags.TestResults)
	applyBool(&cfg.BuildSolutions, flags.BuildSolutions)
	applyBool(&cfg.Verbose, flags.Verbose)

	if len(flags.Steps.Values) > 0 {
		cfg.Steps = append([]string{}, flags.Steps.Values...)
	}
	if len(flags.BinFolderRoles.Values) > 0 {
		cfg.BinFolderRoles = append([]string{}, flags.BinFolderRoles.Values...)
	}
	if flags.Parallelism.Set {
		cfg.Parallelism = flags.Parallelism.Value
	}
}

func applyString(dst *string, flag StringFlag) {
	if flag.Set {
		*dst = flag.Value
	}
}

func applyBool(dst *bool, flag BoolFlag) {
	if flag.Set {
		*dst = flag.Value
	}
}

// SplitSteps normalizes a step selection. Entries may themselves hold several
// names separated by '|' or ','.
func SplitSteps(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, name := range strings.FieldsFunc(entry, func(r rune) bool { return r == '|' || r == ',' }) {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	SolutionDir         StringFlag
	Configuration       StringFlag
	Version             StringFlag
	ReleaseFilter       StringFlag
	TestFilter          StringFlag
	TestCaseFilter      StringFlag
	ReleaseArtifactsDir StringFlag
	TestArtifactsDir    StringFlag
	Runtime             StringFlag
	Archiver            StringFlag
	EnvFile             StringFlag
	Format              StringFlag
	MetricsFile         StringFlag

	Publish        BoolFlag
	Package        BoolFlag
	TestResults    BoolFlag
	BuildSolutions BoolFlag
	Verbose        BoolFlag

	Steps          SliceFlag
	BinFolderRoles SliceFlag
	Parallelism    IntFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and whether it captured values via CLI.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}

// IntFlag represents an int flag and whether it was set.
type IntFlag struct {
	Value int
	Set   bool
}
