package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/metrics"
	"github.com/bgricker/relbuild/internal/output"
	"github.com/bgricker/relbuild/internal/pipeline"
	"github.com/bgricker/relbuild/internal/report"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the selected pipeline steps",
		Long: `Run executes PreBuild, PreBuildCallback, Build, Test, PostBuild and
PostBuildCallback in that order, skipping steps not selected with --step.
The first failing step stops the run and its exit code becomes the
process exit code.`,
		Args: cobra.NoArgs,
		RunE: runPipeline,
	}
	cmd.Flags().String("from", "", "run from a build snapshot written by 'relbuild resolve --out'")
	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := validateFormat(cfg.Format); err != nil {
		return err
	}

	logger := output.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)

	b, err := buildFor(cmd, cfg, logger)
	if err != nil {
		return err
	}
	logger = logger.With("run", b.RunID)

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var prom *metrics.PrometheusRecorder
	if cfg.MetricsFile != "" {
		prom = metrics.NewPrometheusRecorder(nil)
		recorder = prom
	}

	dispatcher := pipeline.NewDispatcher(pipeline.NewSteps(b, b.NewExecutor(), recorder, logger), recorder)
	results, runErr := dispatcher.Dispatch(cmd.Context(), b, logger)
	if results == nil {
		return runErr
	}

	run := report.Run{
		RunID:   b.RunID,
		Version: b.Version.String(),
		Steps:   results,
		Summary: report.Summarize(results),
	}
	if err := render(cmd.OutOrStdout(), cfg.Format, run); err != nil {
		return errors.Join(runErr, err)
	}

	if prom != nil {
		if err := prom.WriteFile(cfg.MetricsFile); err != nil {
			logger.Warn("metrics not written", "err", err)
		}
	}

	return runErr
}

// buildFor resolves cfg, or loads the snapshot named by --from. A --step flag
// overrides the steps recorded in a snapshot.
func buildFor(cmd *cobra.Command, cfg config.Config, logger *log.Logger) (*config.Build, error) {
	from, err := cmd.Flags().GetString("from")
	if err != nil {
		return nil, fmt.Errorf("parse --from: %w", err)
	}
	if from == "" {
		return config.Resolver{Log: logger}.Resolve(cfg)
	}

	b, err := config.LoadSnapshot(from)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("step") {
		b.Steps = config.SplitSteps(cfg.Steps)
	}
	logger.Debug("build loaded from snapshot", "path", from, "version", b.Version.String())
	return b, nil
}

func render(w io.Writer, format string, run report.Run) error {
	if format == config.FormatJSON {
		return output.NewJSON(w).Render(run)
	}
	return output.NewPretty(w).RenderResults(run)
}

func validateFormat(format string) error {
	switch format {
	case config.FormatPretty, config.FormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", config.ErrInvalid, format)
	}
}
