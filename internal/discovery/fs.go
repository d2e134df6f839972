package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	// ErrNoReleaseProjects indicates that classification left no project to build.
	ErrNoReleaseProjects = errors.New("no release projects found")
	// ErrNoSolution indicates that no solution file exists in a directory or its parents.
	ErrNoSolution = errors.New("no solution file found")
)

// SolutionPattern matches solution files.
const SolutionPattern = "*.sln"

var projectExtensions = []string{".csproj", ".fsproj", ".vbproj"}

var skippedDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
}

// Files returns the absolute paths of files under root whose base name
// matches pattern, compared case-insensitively, sorted lexicographically.
// Enumeration errors are logged as warnings and yield an empty result so an
// unstable sub-tree never aborts discovery.
func Files(root, pattern, what string, logger *log.Logger) []string {
	logger.Debug("resolving files", "what", what, "filter", pattern)
	lowerPattern := strings.ToLower(pattern)
	if _, err := path.Match(lowerPattern, ""); err != nil {
		logger.Warn("invalid filter", "what", what, "filter", pattern, "err", err)
		return nil
	}

	var found []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skippedDirs[d.Name()]; skip && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := path.Match(lowerPattern, strings.ToLower(d.Name())); ok {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		logger.Warn("file discovery failed", "what", what, "filter", pattern, "err", err)
		return nil
	}

	out := make([]string, 0, len(found))
	for _, p := range found {
		out = append(out, absClean(p))
	}
	sort.Strings(out)
	return out
}

// Projects holds the disjoint release and test project sets of a run.
type Projects struct {
	Release []Project
	Test    []Project
}

// Classify discovers release and test projects below root. Any release
// candidate whose path equals a test project path, case-insensitively, is
// removed. An empty release set is a fatal configuration error.
func Classify(root, releaseFilter, testFilter string, logger *log.Logger) (Projects, error) {
	releaseFilter = ProjectFilter(releaseFilter)
	testFilter = ProjectFilter(testFilter)

	releasePaths := Files(root, releaseFilter, "release projects", logger)
	testPaths := Files(root, testFilter, "test projects", logger)

	release := Subtract(releasePaths, testPaths)
	if len(release) == 0 {
		return Projects{}, fmt.Errorf("%w under %s with release filter %q", ErrNoReleaseProjects, root, releaseFilter)
	}

	projects := Projects{
		Release: make([]Project, 0, len(release)),
		Test:    make([]Project, 0, len(testPaths)),
	}
	for _, p := range release {
		logger.Debug("release project found", "path", p)
		projects.Release = append(projects.Release, NewProject(p))
	}
	for _, p := range testPaths {
		logger.Debug("test project found", "path", p)
		projects.Test = append(projects.Test, NewProject(p))
	}
	return projects, nil
}

// Subtract returns the entries of paths that do not equal, case-insensitively
// after cleaning, any entry of exclude. The order of paths is preserved.
func Subtract(paths, exclude []string) []string {
	excluded := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		excluded[normalize(p)] = struct{}{}
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := excluded[normalize(p)]; ok {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ProjectFilter appends the default project extension to filters that name
// no project extension, so "*.tests" and "*.tests.csproj" are equivalent.
func ProjectFilter(filter string) string {
	filter = strings.TrimRight(strings.TrimSpace(filter), ".")
	lower := strings.ToLower(filter)
	for _, ext := range projectExtensions {
		if strings.HasSuffix(lower, ext) {
			return filter
		}
	}
	return filter + projectExtensions[0]
}

// FindSolutionDir walks from start towards the file system root and returns
// the first directory that contains a solution file.
func FindSolutionDir(start string, logger *log.Logger) (string, error) {
	dir := absClean(start)
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("directory %q: %w", start, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", start)
	}
	for {
		logger.Debug("looking for solution files", "dir", dir)
		if len(Solutions(dir)) > 0 {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w in %s or any parent dir", ErrNoSolution, absClean(start))
		}
		dir = parent
	}
}

// Solutions lists the solution files directly inside dir.
func Solutions(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := path.Match(SolutionPattern, strings.ToLower(e.Name())); ok {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

// SortByName orders paths by file name, then by full path.
func SortByName(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := append([]string{}, paths...)
	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := strings.ToLower(filepath.Base(out[i])), strings.ToLower(filepath.Base(out[j]))
		if bi != bj {
			return bi < bj
		}
		return out[i] < out[j]
	})
	return out
}

func normalize(p string) string {
	return strings.ToLower(absClean(p))
}

func absClean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
