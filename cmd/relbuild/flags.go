package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/bgricker/relbuild/internal/config"
	"github.com/spf13/cobra"
)

var stringFlags = map[string]func(*config.FlagValues) *config.StringFlag{
	"solution-dir":          func(v *config.FlagValues) *config.StringFlag { return &v.SolutionDir },
	"configuration":         func(v *config.FlagValues) *config.StringFlag { return &v.Configuration },
	"version":               func(v *config.FlagValues) *config.StringFlag { return &v.Version },
	"release-filter":        func(v *config.FlagValues) *config.StringFlag { return &v.ReleaseFilter },
	"test-filter":           func(v *config.FlagValues) *config.StringFlag { return &v.TestFilter },
	"test-case-filter":      func(v *config.FlagValues) *config.StringFlag { return &v.TestCaseFilter },
	"release-artifacts-dir": func(v *config.FlagValues) *config.StringFlag { return &v.ReleaseArtifactsDir },
	"test-artifacts-dir":    func(v *config.FlagValues) *config.StringFlag { return &v.TestArtifactsDir },
	"runtime":               func(v *config.FlagValues) *config.StringFlag { return &v.Runtime },
	"archiver":              func(v *config.FlagValues) *config.StringFlag { return &v.Archiver },
	"env-file":              func(v *config.FlagValues) *config.StringFlag { return &v.EnvFile },
	"format":                func(v *config.FlagValues) *config.StringFlag { return &v.Format },
	"metrics-file":          func(v *config.FlagValues) *config.StringFlag { return &v.MetricsFile },
}

var boolFlags = map[string]func(*config.FlagValues) *config.BoolFlag{
	"publish":         func(v *config.FlagValues) *config.BoolFlag { return &v.Publish },
	"package":         func(v *config.FlagValues) *config.BoolFlag { return &v.Package },
	"zip":             func(v *config.FlagValues) *config.BoolFlag { return &v.Package },
	"test-results":    func(v *config.FlagValues) *config.BoolFlag { return &v.TestResults },
	"build-solutions": func(v *config.FlagValues) *config.BoolFlag { return &v.BuildSolutions },
	"verbose":         func(v *config.FlagValues) *config.BoolFlag { return &v.Verbose },
}

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	for name, field := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", name, err)
		}
		*field(&values) = config.StringFlag{Value: v, Set: true}
	}

	for name, field := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", name, err)
		}
		// --zip and --package share a field; an explicit true wins
		if dst := field(&values); !dst.Set || v {
			*dst = config.BoolFlag{Value: v, Set: true}
		}
	}

	if flags.Changed("step") {
		v, err := flags.GetStringArray("step")
		if err != nil {
			return values, fmt.Errorf("parse --step: %w", err)
		}
		values.Steps = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("bin-folder-role") {
		v, err := flags.GetStringArray("bin-folder-role")
		if err != nil {
			return values, fmt.Errorf("parse --bin-folder-role: %w", err)
		}
		values.BinFolderRoles = config.SliceFlag{Values: append([]string{}, v...)}
	}

	if flags.Changed("parallelism") {
		v, err := flags.GetInt("parallelism")
		if err != nil {
			return values, fmt.Errorf("parse --parallelism: %w", err)
		}
		values.Parallelism = config.IntFlag{Value: v, Set: true}
	}

	return values, nil
}

// loadConfig layers the config file, RELBUILD_* environment variables and
// explicitly set flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	root, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("determine working directory: %w", err)
	}

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("parse --config: %w", err)
	}

	cfg, err := config.NewLoader().Load(root, configFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	flags, err := gatherFlags(cmd)
	if err != nil {
		return config.Config{}, err
	}
	config.ApplyFlags(&cfg, flags)
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))

	return cfg, nil
}
