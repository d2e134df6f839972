package pack

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/fsutil"
	"github.com/bgricker/relbuild/internal/metrics"
	"github.com/bgricker/relbuild/internal/parallel"
	"github.com/bgricker/relbuild/internal/version"
	"github.com/charmbracelet/log"
)

const (
	// SplitThreshold is the primary archive size, in bytes, above which the
	// runtimes dir is split into archives of its own.
	SplitThreshold int64 = 10_000_000

	// RuntimesDir holds the platform-specific native dependencies of a module.
	RuntimesDir = "runtimes"

	RuntimesSuffix = "_Runtimes"
	ToolSuffix     = "_Tool"
)

// ArchiveSet lists the archives written for one module. Runtimes and Tool are
// empty unless the module was split.
type ArchiveSet struct {
	Module   string
	Primary  string
	Runtimes string
	Tool     string
}

// Paths returns the archives of the set.
func (s ArchiveSet) Paths() []string {
	out := []string{s.Primary}
	if s.Runtimes != "" {
		out = append(out, s.Runtimes, s.Tool)
	}
	return out
}

// Packager archives every module below the release artifacts dir.
type Packager struct {
	Archiver Archiver
	Metrics  metrics.Recorder

	threshold int64
}

// New creates a Packager splitting at SplitThreshold.
func New(a Archiver, recorder metrics.Recorder) *Packager {
	return &Packager{Archiver: a, Metrics: metrics.OrNoop(recorder), threshold: SplitThreshold}
}

// ArchiveName returns the file name of a module archive.
func ArchiveName(module string, v version.SemanticVersion, suffix string) string {
	return fmt.Sprintf("%s_%s%s.zip", module, v.String(), suffix)
}

// Package archives all modules in parallel. Modules never wait on each other;
// the first failure is returned after every module is done.
func (p *Packager) Package(ctx context.Context, b *config.Build, logger *log.Logger) ([]ArchiveSet, error) {
	modules, err := fsutil.SubDirs(b.ReleaseArtifactsDir)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}

	sets := make([]ArchiveSet, len(modules))
	indexes := make([]int, len(modules))
	for i := range modules {
		indexes[i] = i
	}
	err = parallel.ForEach(ctx, indexes, b.Limit(), func(ctx context.Context, i int) error {
		module := modules[i]
		mlog := logger.With("module", filepath.Base(module))
		set, err := p.Module(ctx, module, b.ReleaseArtifactsDir, b.Version, mlog)
		if err != nil {
			mlog.Error("packaging failed", "err", err)
			return err
		}
		sets[i] = set
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sets, nil
}

// Module archives one module dir into root. The primary archive holds the
// module as staged. When the module has a runtimes dir and the primary archive
// exceeds the threshold, the runtimes dir is archived on its own, removed from
// the module, and the stripped module is archived with the tool suffix.
func (p *Packager) Module(ctx context.Context, moduleDir, root string, v version.SemanticVersion, logger *log.Logger) (ArchiveSet, error) {
	name := filepath.Base(moduleDir)
	set := ArchiveSet{Module: name, Primary: filepath.Join(root, ArchiveName(name, v, ""))}

	if staged, err := fsutil.DirSize(moduleDir); err == nil {
		logger.Debug("archiving module", "staged_bytes", staged)
	}
	size, err := p.archive(ctx, moduleDir, set.Primary, "primary", name)
	if err != nil {
		return ArchiveSet{}, err
	}

	runtimes := filepath.Join(moduleDir, RuntimesDir)
	if !fsutil.IsDir(runtimes) {
		logger.Info("packaged", "archive", filepath.Base(set.Primary), "bytes", size)
		return set, nil
	}
	if size <= p.limit() {
		logger.Info("packaged with runtimes", "archive", filepath.Base(set.Primary), "bytes", size)
		return set, nil
	}

	logger.Info("primary archive above threshold, splitting runtimes", "bytes", size, "threshold", p.limit())
	set.Runtimes = filepath.Join(root, ArchiveName(name, v, RuntimesSuffix))
	if _, err := p.archive(ctx, runtimes, set.Runtimes, "runtimes", name); err != nil {
		return ArchiveSet{}, err
	}
	if err := os.RemoveAll(runtimes); err != nil {
		return ArchiveSet{}, builderr.Wrap(err, builderr.CodeGeneral, "remove runtimes of %s", name)
	}
	set.Tool = filepath.Join(root, ArchiveName(name, v, ToolSuffix))
	if _, err := p.archive(ctx, moduleDir, set.Tool, "tool", name); err != nil {
		return ArchiveSet{}, err
	}
	logger.Info("packaged", "archives", len(set.Paths()))
	return set, nil
}

func (p *Packager) archive(ctx context.Context, src, dst, kind, module string) (int64, error) {
	if err := p.Archiver.Archive(ctx, src, dst); err != nil {
		return 0, builderr.Wrap(err, builderr.CodeOf(err), "package %s", module)
	}
	info, err := os.Stat(dst)
	if err != nil {
		return 0, builderr.Wrap(err, builderr.CodeGeneral, "package %s", module)
	}
	metrics.OrNoop(p.Metrics).ObserveArchiveSize(module, kind, info.Size())
	return info.Size(), nil
}

func (p *Packager) limit() int64 {
	if p.threshold > 0 {
		return p.threshold
	}
	return SplitThreshold
}
