package main

import (
	"fmt"

	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the build configuration without running any step",
		Args:  cobra.NoArgs,
		RunE:  resolveBuild,
	}
	cmd.Flags().String("out", "", "write the resolved build to this file for 'relbuild run --from'")
	return cmd
}

func resolveBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := output.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
	b, err := config.Resolver{Log: logger}.Resolve(cfg)
	if err != nil {
		return err
	}

	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("parse --out: %w", err)
	}
	if out != "" {
		if err := config.SaveSnapshot(out, b); err != nil {
			return err
		}
		logger.Info("build resolved", "path", out, "version", b.Version.String(), "projects", len(b.ReleaseProjects))
		return nil
	}

	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode build: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
