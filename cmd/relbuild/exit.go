package main

import (
	"errors"
	"io/fs"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/pipeline"
)

// Process exit codes outside of step failures, which exit with the failing
// step's own code.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitConfigError  = 2
	ExitNotFound     = 5
)

func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) && stepErr.Code != 0 {
		return stepErr.Code
	}

	switch {
	case errors.Is(err, config.ErrInvalid),
		errors.Is(err, pipeline.ErrUnknownStep),
		errors.Is(err, discovery.ErrNoReleaseProjects):
		return ExitConfigError
	case errors.Is(err, discovery.ErrNoSolution),
		errors.Is(err, fs.ErrNotExist):
		return ExitNotFound
	}

	var buildErr *builderr.Error
	if errors.As(err, &buildErr) && buildErr.Code != 0 {
		return buildErr.Code
	}
	return ExitGeneralError
}
