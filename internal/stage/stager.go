// Package stage copies compiled output into the release artifacts tree.
package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/fsutil"
	"github.com/bgricker/relbuild/internal/parallel"
	"github.com/charmbracelet/log"
)

// BinFolder receives the assemblies of projects with a bin-folder role.
const BinFolder = "bin"

// PackageExtensions are copied from every project's bin tree into the root of
// the release artifacts dir.
var PackageExtensions = []string{".nupkg", ".snupkg"}

// Stage stages every release project into <ReleaseArtifactsDir>/<project> in
// parallel. A failing project does not stop the others; the first failure is
// returned once all projects are done.
func Stage(ctx context.Context, b *config.Build, logger *log.Logger) error {
	if err := os.MkdirAll(b.ReleaseArtifactsDir, 0o755); err != nil {
		return fmt.Errorf("create release artifacts dir: %w", err)
	}
	return parallel.ForEach(ctx, b.ReleaseProjects, b.Limit(), func(_ context.Context, project discovery.Project) error {
		plog := logger.With("project", project.Name)
		if err := Project(project, b, plog); err != nil {
			plog.Error("staging failed", "err", err)
			return err
		}
		return nil
	})
}

// ModuleDir returns the staged module dir of project.
func ModuleDir(project discovery.Project, b *config.Build) string {
	return filepath.Join(b.ReleaseArtifactsDir, project.Name)
}

// Project stages a single release project.
func Project(project discovery.Project, b *config.Build, logger *log.Logger) error {
	out, err := OutputDir(project, b)
	if err != nil {
		return builderr.Wrap(err, builderr.CodeGeneral, "stage %s", project.Name)
	}
	logger.Debug("output dir resolved", "dir", out)

	if err := Prune(out, b.Publish, logger); err != nil {
		return builderr.Wrap(err, builderr.CodeGeneral, "stage %s", project.Name)
	}

	jobType, isWebJob, err := WebJobType(out)
	if err != nil {
		logger.Warn("webjob settings unreadable, staging as regular output", "err", err)
	}
	if isWebJob {
		target, err := RelocateWebJob(out, jobType, project.Name)
		if err != nil {
			return builderr.Wrap(err, builderr.CodeGeneral, "relocate webjob %s", project.Name)
		}
		logger.Info("webjob detected", "type", jobType, "dir", target)
	}

	module := ModuleDir(project, b)
	if err := os.RemoveAll(module); err != nil {
		return builderr.Wrap(err, builderr.CodeGeneral, "stage %s", project.Name)
	}
	if err := fsutil.CopyDir(out, module); err != nil {
		return builderr.Wrap(err, builderr.CodeGeneral, "copy %s to artifacts", project.Name)
	}

	if b.HasBinFolderRole(project.Role()) {
		moved, err := MoveAssembliesToBin(module)
		if err != nil {
			return builderr.Wrap(err, builderr.CodeGeneral, "move %s assemblies to bin", project.Name)
		}
		logger.Debug("assemblies moved to bin folder", "role", project.Role(), "count", moved)
	}

	packages, err := CopyPackages(project, b.ReleaseArtifactsDir)
	if err != nil {
		return builderr.Wrap(err, builderr.CodeGeneral, "copy %s packages", project.Name)
	}
	for _, p := range packages {
		logger.Debug("package staged", "file", filepath.Base(p))
	}

	logger.Info("staged", "dir", module)
	return nil
}

// MoveAssembliesToBin moves the top-level *.dll files of module into its bin
// sub-folder and returns how many were moved.
func MoveAssembliesToBin(module string) (int, error) {
	entries, err := os.ReadDir(module)
	if err != nil {
		return 0, err
	}
	bin := filepath.Join(module, BinFolder)
	moved := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dll") {
			continue
		}
		if err := os.MkdirAll(bin, 0o755); err != nil {
			return moved, err
		}
		if err := os.Rename(filepath.Join(module, e.Name()), filepath.Join(bin, e.Name())); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// CopyPackages copies the package files found below the project's bin dir
// into artifactsDir and returns their new paths.
func CopyPackages(project discovery.Project, artifactsDir string) ([]string, error) {
	if !fsutil.IsDir(project.BinDir()) {
		return nil, nil
	}
	found, err := fsutil.FindFilesByExtension(project.BinDir(), PackageExtensions...)
	if err != nil {
		return nil, err
	}
	var copied []string
	for _, src := range found {
		dst := filepath.Join(artifactsDir, filepath.Base(src))
		if err := fsutil.CopyFile(src, dst); err != nil {
			return copied, err
		}
		copied = append(copied, dst)
	}
	return copied, nil
}
