package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "relbuild",
		Short:         "Relbuild versions, builds, tests and packages release projects",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("config", "", "config file (default ./.relbuild.yml)")
	persistent.String("solution-dir", "", "solution dir (default: nearest dir with a .sln file)")
	persistent.StringP("configuration", "c", "", "build configuration name (default release)")
	persistent.String("version", "", "version to stamp (default: highest version tag)")
	persistent.String("release-filter", "", "release project file filter (default *.csproj)")
	persistent.String("test-filter", "", "test project file filter, excluded from release (default *.tests.csproj)")
	persistent.String("test-case-filter", "", "filter expression passed to the test runner")
	persistent.Bool("test-results", false, "write test results into the test artifacts dir")
	persistent.String("release-artifacts-dir", "", "release artifacts dir, relative to the solution dir")
	persistent.String("test-artifacts-dir", "", "test artifacts dir, relative to the solution dir")
	persistent.Bool("publish", false, "publish instead of build")
	persistent.Bool("package", false, "archive the staged modules")
	persistent.Bool("zip", false, "alias for --package")
	persistent.StringP("runtime", "r", "", "target runtime identifier when publishing (default win-x64)")
	persistent.Bool("build-solutions", false, "compile solution files instead of individual projects")
	persistent.StringArray("bin-folder-role", nil, "project role whose assemblies go into a bin folder (repeatable)")
	persistent.StringArray("step", nil, "step to run, may hold several separated by | or , (repeatable)")
	persistent.String("archiver", "", "archiver (zip|tool)")
	persistent.String("env-file", "", "env file for external processes (default <solution-dir>/.relbuild.env)")
	persistent.Int("parallelism", 0, "maximum concurrent projects (default: number of CPUs)")
	persistent.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	persistent.BoolP("verbose", "v", false, "log debug output and external process output")
	persistent.String("format", "", "output format (pretty|json)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newResolveCmd())
	cmd.AddCommand(newStepsCmd())

	return cmd
}
