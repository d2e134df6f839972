// Package patch stamps a resolved version into project files and guarantees
// the original content is restored afterwards.
package patch

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/version"
	"github.com/charmbracelet/log"
)

// BackupSuffix is appended to a project path to form its backup path.
const BackupSuffix = ".temp"

// ErrPatchActive is returned when a project is patched again before the
// previous patch was reverted.
var ErrPatchActive = errors.New("project already has an active version patch")

// ErrStaleBackup is returned when a backup left by an earlier run no longer
// matches the project file it was taken from.
var ErrStaleBackup = errors.New("stale backup does not match project")

// Patcher tracks the active patches of a run. At most one patch per project
// file may be active at any time.
type Patcher struct {
	log *log.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// NewPatcher creates a Patcher logging to logger.
func NewPatcher(logger *log.Logger) *Patcher {
	return &Patcher{log: logger, active: make(map[string]struct{})}
}

// Patch is an applied version patch. Revert must be called on every path,
// typically deferred right after a successful Apply.
type Patch struct {
	Project    discovery.Project
	BackupPath string

	original []byte
	mode     fs.FileMode
	patcher  *Patcher
	once     sync.Once
	err      error
}

// Apply backs up the project file and writes v into its primary PropertyGroup.
// When Apply fails the project file is left as it was found.
func (p *Patcher) Apply(project discovery.Project, v version.SemanticVersion) (*Patch, error) {
	key := patchKey(project.Path)
	if err := p.acquire(key); err != nil {
		return nil, fmt.Errorf("patch %s: %w", project.Name, err)
	}

	pt, err := p.apply(project, v)
	if err != nil {
		p.release(key)
		return nil, fmt.Errorf("patch %s: %w", project.Name, err)
	}
	return pt, nil
}

func (p *Patcher) apply(project discovery.Project, v version.SemanticVersion) (*Patch, error) {
	logger := p.log.With("project", project.Name)
	backup := project.Path + BackupSuffix

	if _, err := os.Stat(backup); err == nil {
		if err := recoverBackup(project.Path, backup, logger); err != nil {
			return nil, err
		}
	}

	info, err := os.Stat(project.Path)
	if err != nil {
		return nil, err
	}
	original, err := os.ReadFile(project.Path)
	if err != nil {
		return nil, err
	}
	patched, err := SetVersion(original, v)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(backup, original, info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}
	if err := os.WriteFile(project.Path, patched, info.Mode().Perm()); err != nil {
		if rerr := restore(backup, project.Path); rerr != nil {
			return nil, errors.Join(fmt.Errorf("write patched project: %w", err), rerr)
		}
		return nil, fmt.Errorf("write patched project: %w", err)
	}

	logger.Debug("version patched", "version", v.String(), "backup", backup)
	return &Patch{
		Project:    project,
		BackupPath: backup,
		original:   original,
		mode:       info.Mode().Perm(),
		patcher:    p,
	}, nil
}

// Active reports whether path currently carries an unreverted patch.
func (p *Patcher) Active(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[patchKey(path)]
	return ok
}

func (p *Patcher) acquire(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.active[key]; ok {
		return ErrPatchActive
	}
	p.active[key] = struct{}{}
	return nil
}

func (p *Patcher) release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, key)
}

// Revert restores the project file from its backup and removes the backup.
// Calling Revert more than once is safe; later calls return the first result.
func (pt *Patch) Revert() error {
	pt.once.Do(func() {
		defer pt.patcher.release(patchKey(pt.Project.Path))

		err := restore(pt.BackupPath, pt.Project.Path)
		if errors.Is(err, fs.ErrNotExist) {
			// backup vanished; fall back to the content read at apply time
			err = os.WriteFile(pt.Project.Path, pt.original, pt.mode)
		}
		if err != nil {
			pt.err = fmt.Errorf("revert %s: %w", pt.Project.Name, err)
			pt.patcher.log.Error("version revert failed", "project", pt.Project.Name, "err", err)
			return
		}
		pt.patcher.log.Debug("version reverted", "project", pt.Project.Name)
	})
	return pt.err
}

// ApplyAll patches every project. When one patch fails, the patches already
// applied are reverted before the error is returned.
func (p *Patcher) ApplyAll(projects []discovery.Project, v version.SemanticVersion) (Patches, error) {
	patches := make(Patches, 0, len(projects))
	for _, project := range projects {
		pt, err := p.Apply(project, v)
		if err != nil {
			return nil, errors.Join(err, patches.Revert())
		}
		patches = append(patches, pt)
	}
	return patches, nil
}

// Patches is a group of patches reverted together.
type Patches []*Patch

// Revert reverts every patch, continuing past failures, and joins their errors.
func (ps Patches) Revert() error {
	var errs []error
	for _, pt := range ps {
		if err := pt.Revert(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// recoverBackup deals with a backup left behind by an interrupted run. The
// project is restored only when it is exactly the backup with a version
// stamped in; any other difference means the project was edited since.
func recoverBackup(target, backup string, logger *log.Logger) error {
	saved, err := os.ReadFile(backup)
	if err != nil {
		return err
	}
	current, err := os.ReadFile(target)
	if err != nil {
		return err
	}

	switch {
	case bytes.Equal(saved, current):
		logger.Warn("removing stale backup", "backup", backup)
		return os.Remove(backup)
	case stampedFrom(saved, current):
		logger.Warn("restoring project from stale backup", "backup", backup)
		return restore(backup, target)
	default:
		return fmt.Errorf("%w: remove or restore %s by hand", ErrStaleBackup, backup)
	}
}

// stampedFrom reports whether current equals saved with the version found in
// current written into it.
func stampedFrom(saved, current []byte) bool {
	raw, err := StampedVersion(current)
	if err != nil || raw == "" {
		return false
	}
	v, err := version.Parse(raw)
	if err != nil {
		return false
	}
	patched, err := SetVersion(saved, v)
	return err == nil && bytes.Equal(patched, current)
}

// restore copies backup over target and removes backup.
func restore(backup, target string) error {
	content, err := os.ReadFile(backup)
	if err != nil {
		return err
	}
	info, err := os.Stat(backup)
	if err != nil {
		return err
	}
	if err := os.WriteFile(target, content, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Remove(backup)
}

func patchKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return strings.ToLower(filepath.Clean(path))
}
