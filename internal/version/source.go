package version

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ShortHashLength is the number of commit hash characters appended as build
// metadata.
const ShortHashLength = 7

// Source supplies version-control facts used for version resolution.
type Source interface {
	// Tags returns every tag name in the repository.
	Tags() ([]string, error)
	// ShortHash returns the abbreviated hash of the current commit.
	ShortHash() (string, error)
}

// GitSource reads tags and HEAD from the git repository containing Dir.
type GitSource struct {
	Dir string
}

// NewGitSource creates a GitSource rooted at dir. Parent directories are
// searched for the .git directory.
func NewGitSource(dir string) *GitSource {
	return &GitSource{Dir: dir}
}

func (s *GitSource) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(s.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %q: %w", s.Dir, err)
	}
	return repo, nil
}

// Tags implements Source.
func (s *GitSource) Tags() ([]string, error) {
	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	iter, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer iter.Close()

	var tags []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return tags, nil
}

// ShortHash implements Source.
func (s *GitSource) ShortHash() (string, error) {
	repo, err := s.open()
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	hash := head.Hash().String()
	if len(hash) > ShortHashLength {
		hash = hash[:ShortHashLength]
	}
	return hash, nil
}

// Resolve determines the build version. An explicit literal wins; otherwise
// the highest semantic-version tag is used. In both cases the short commit
// hash is appended as metadata when none is present. A repository without
// version tags resolves to 0.0.0 with no metadata.
func Resolve(literal string, src Source, logger *log.Logger) (SemanticVersion, error) {
	if literal != "" {
		v, err := Parse(literal)
		if err != nil {
			return SemanticVersion{}, err
		}
		if v.Metadata != "" || src == nil {
			return v, nil
		}
		hash, err := src.ShortHash()
		if err != nil {
			logger.Warn("commit hash unavailable, using literal version as is", "version", v.String(), "err", err)
			return v, nil
		}
		v = v.WithMetadata(hash)
		logger.Debug("version resolved from literal", "version", v.String())
		return v, nil
	}

	if src == nil {
		return SemanticVersion{}, errors.New("no version given and no version source available")
	}

	tags, err := src.Tags()
	if err != nil {
		return SemanticVersion{}, fmt.Errorf("resolve version from tags: %w", err)
	}

	versions := make([]SemanticVersion, 0, len(tags))
	for _, tag := range tags {
		v, err := Parse(tag)
		if err != nil {
			logger.Debug("ignoring non-version tag", "tag", tag)
			continue
		}
		versions = append(versions, v)
	}

	latest, ok := Max(versions)
	if !ok {
		logger.Warn("no version tags found in repository")
		return SemanticVersion{}, nil
	}

	hash, err := src.ShortHash()
	if err != nil {
		return SemanticVersion{}, fmt.Errorf("resolve commit hash: %w", err)
	}
	latest = latest.WithMetadata(hash)
	logger.Debug("version resolved from tags", "version", latest.String(), "tags", len(versions))
	return latest, nil
}
