package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable prefix for relbuild configuration.
const envPrefix = "RELBUILD"

// DefaultFileName is read from the working directory when no config file is given.
const DefaultFileName = ".relbuild.yml"

// Loader handles loading and merging configuration from the config file and
// the environment.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader seeded with Default values. Every key can be
// overridden through a RELBUILD_<KEY> environment variable.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := Default()
	defaults := map[string]any{
		"solution_dir":               d.SolutionDir,
		"configuration":              d.Configuration,
		"version":                    d.Version,
		"release_filter":             d.ReleaseFilter,
		"test_filter":                d.TestFilter,
		"test_case_filter":           d.TestCaseFilter,
		"test_results":               d.TestResults,
		"release_artifacts_dir":      d.ReleaseArtifactsDir,
		"test_artifacts_dir":         d.TestArtifactsDir,
		"publish":                    d.Publish,
		"package":                    d.Package,
		"runtime":                    d.Runtime,
		"build_solutions":            d.BuildSolutions,
		"bin_folder_roles":           d.BinFolderRoles,
		"steps":                      d.Steps,
		"pre_build_callback_filter":  d.PreBuildCallbackFilter,
		"post_build_callback_filter": d.PostBuildCallbackFilter,
		"compiler":                   d.Compiler,
		"toolchain_version":          d.ToolchainVersion,
		"script_shell":               d.ScriptShell,
		"archiver":                   d.Archiver,
		"archive_tool":               d.ArchiveTool,
		"parallelism":                d.Parallelism,
		"env_file":                   d.EnvFile,
		"verbose":                    d.Verbose,
		"format":                     d.Format,
		"metrics_file":               d.MetricsFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	return &Loader{v: v}
}

// Load reads configFile, or DefaultFileName inside root when configFile is
// empty. A missing default file is ignored; a missing explicit file is an
// error. Environment variables take precedence over file values.
func (l *Loader) Load(root, configFile string) (Config, error) {
	explicit := configFile != ""
	if !explicit {
		configFile = filepath.Join(root, DefaultFileName)
	}

	l.v.SetConfigFile(configFile)
	l.v.SetConfigType("yaml")

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)
		if !missing || explicit {
			return Config{}, fmt.Errorf("read config %q: %w", configFile, err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", configFile, err)
	}
	return cfg, nil
}
