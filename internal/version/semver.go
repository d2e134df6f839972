package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// SemanticVersion is a major.minor.patch version with optional pre-release
// and build metadata.
type SemanticVersion struct {
	Major      int
	Minor      int
	Patch      int
	PreRelease string
	Metadata   string
}

var semverRegex = regexp.MustCompile(`^[vV]?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([0-9A-Za-z.-]+))?(?:\+([0-9A-Za-z.-]+))?$`)

// Parse reads a semantic version. A leading "v" is accepted and missing
// minor or patch components default to zero.
func Parse(raw string) (SemanticVersion, error) {
	trimmed := strings.TrimSpace(raw)
	match := semverRegex.FindStringSubmatch(trimmed)
	if match == nil {
		return SemanticVersion{}, fmt.Errorf("invalid semantic version %q", raw)
	}

	var v SemanticVersion
	parts := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, target := range parts {
		if match[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(match[i+1])
		if err != nil {
			return SemanticVersion{}, fmt.Errorf("invalid semantic version %q: %w", raw, err)
		}
		*target = n
	}
	v.PreRelease = match[4]
	v.Metadata = match[5]

	if !semver.IsValid(v.canonical()) {
		return SemanticVersion{}, fmt.Errorf("invalid semantic version %q", raw)
	}
	return v, nil
}

// MustParse is like Parse but panics on invalid input.
func MustParse(raw string) SemanticVersion {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the full SemVer 2.0 form including pre-release and metadata.
func (v SemanticVersion) String() string {
	var b strings.Builder
	b.WriteString(v.Core())
	if v.PreRelease != "" {
		b.WriteString("-")
		b.WriteString(v.PreRelease)
	}
	if v.Metadata != "" {
		b.WriteString("+")
		b.WriteString(v.Metadata)
	}
	return b.String()
}

// Core returns major.minor.patch.
func (v SemanticVersion) Core() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AssemblyVersion returns the numeric binary-compatibility version, which
// only tracks major and minor.
func (v SemanticVersion) AssemblyVersion() string {
	return fmt.Sprintf("%d.%d.0.0", v.Major, v.Minor)
}

// FileVersion returns the four-part numeric file version.
func (v SemanticVersion) FileVersion() string {
	return fmt.Sprintf("%d.%d.%d.0", v.Major, v.Minor, v.Patch)
}

// WithMetadata returns a copy carrying metadata when v has none yet.
func (v SemanticVersion) WithMetadata(metadata string) SemanticVersion {
	if v.Metadata == "" {
		v.Metadata = metadata
	}
	return v
}

// IsZero reports whether v is 0.0.0 without pre-release or metadata.
func (v SemanticVersion) IsZero() bool {
	return v == SemanticVersion{}
}

// Compare orders versions by semantic-version precedence. Build metadata is
// ignored.
func (v SemanticVersion) Compare(other SemanticVersion) int {
	return semver.Compare(v.canonical(), other.canonical())
}

// Max returns the highest version in versions and false when it is empty.
func Max(versions []SemanticVersion) (SemanticVersion, bool) {
	if len(versions) == 0 {
		return SemanticVersion{}, false
	}
	best := versions[0]
	for _, v := range versions[1:] {
		if v.Compare(best) > 0 {
			best = v
		}
	}
	return best, true
}

// MarshalYAML encodes the version as its SemVer 2.0 string.
func (v SemanticVersion) MarshalYAML() (any, error) {
	return v.String(), nil
}

// UnmarshalYAML decodes a SemVer string.
func (v *SemanticVersion) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v SemanticVersion) canonical() string {
	s := "v" + v.Core()
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	return s
}
