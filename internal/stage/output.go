package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/fsutil"
	"github.com/charmbracelet/log"
)

// PublishDir is the compiler's publish output directory name.
const PublishDir = "publish"

// CultureDirs are the localized resource directories the compiler emits for
// referenced packages. They are never shipped.
var CultureDirs = []string{
	"cs", "de", "es", "fr", "it", "ja", "ko", "pl", "pt-BR", "ru", "tr", "zh-Hans", "zh-Hant",
}

// OutputDir resolves the compiler output directory of project:
// bin/<configuration>, then its only sub-directory when there is exactly one
// (the target framework), then the publish directory when publishing.
func OutputDir(project discovery.Project, b *config.Build) (string, error) {
	dir, ok := fsutil.FindEntry(project.BinDir(), b.Configuration)
	if !ok || !fsutil.IsDir(dir) {
		return "", fmt.Errorf("output dir %s not found", filepath.Join(project.BinDir(), b.Configuration))
	}

	subDirs, err := fsutil.SubDirs(dir)
	if err != nil {
		return "", fmt.Errorf("read output dir: %w", err)
	}
	if len(subDirs) == 1 {
		dir = subDirs[0]
	}

	if !b.Publish {
		return dir, nil
	}
	if publish, ok := fsutil.FindEntry(dir, PublishDir); ok && fsutil.IsDir(publish) {
		return publish, nil
	}
	if rid, ok := fsutil.FindEntry(dir, b.Runtime); ok && b.Runtime != "" {
		if publish, ok := fsutil.FindEntry(rid, PublishDir); ok && fsutil.IsDir(publish) {
			return publish, nil
		}
	}
	return dir, nil
}

// Prune removes the culture directories from dir, and any publish directory
// left over from an earlier run when publishing is off.
func Prune(dir string, publishing bool, logger *log.Logger) error {
	remove := make(map[string]struct{}, len(CultureDirs)+1)
	for _, name := range CultureDirs {
		remove[strings.ToLower(name)] = struct{}{}
	}
	if !publishing {
		remove[PublishDir] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, ok := remove[strings.ToLower(e.Name())]; !ok {
			continue
		}
		logger.Debug("pruning output dir", "dir", e.Name())
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("prune %s: %w", e.Name(), err)
		}
	}
	return nil
}
