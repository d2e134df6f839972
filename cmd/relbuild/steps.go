package main

import (
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/output"
	"github.com/bgricker/relbuild/internal/pipeline"
	"github.com/spf13/cobra"
)

func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the pipeline steps in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := validateFormat(cfg.Format); err != nil {
				return err
			}
			if cfg.Format == config.FormatJSON {
				return output.NewJSON(cmd.OutOrStdout()).RenderSteps(pipeline.Order)
			}
			return output.NewPretty(cmd.OutOrStdout()).RenderSteps(pipeline.Order)
		},
	}
}
