package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/version"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	tags []string
	hash string
}

func (s stubSource) Tags() ([]string, error) { return s.tags, nil }

func (s stubSource) ShortHash() (string, error) {
	if s.hash == "" {
		return "", errors.New("no commits")
	}
	return s.hash, nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func solutionTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Acme.sln"), "")
	writeFile(t, filepath.Join(root, "src", "Acme.Web", "Acme.Web.csproj"), "<Project/>")
	writeFile(t, filepath.Join(root, "src", "Acme.Jobs", "Acme.Jobs.csproj"), "<Project/>")
	writeFile(t, filepath.Join(root, "test", "Acme.Web.Tests", "Acme.Web.Tests.csproj"), "<Project/>")
	writeFile(t, filepath.Join(root, "build", "02-b.PreBuild.Callback.ps1"), "")
	writeFile(t, filepath.Join(root, "build", "01-a.PreBuild.Callback.ps1"), "")
	return root
}

func testResolver(src version.Source) Resolver {
	return Resolver{
		Log:       log.New(io.Discard),
		NewSource: func(string) version.Source { return src },
	}
}

func TestResolveBuildsConfiguration(t *testing.T) {
	root := solutionTree(t)
	cfg := Default()
	cfg.SolutionDir = filepath.Join(root, "src")
	cfg.Steps = []string{"Build|Test"}

	b, err := testResolver(stubSource{tags: []string{"v1.2.0", "v1.10.0", "nightly"}, hash: "abcdef1"}).Resolve(cfg)
	require.NoError(t, err)

	assert.Equal(t, root, b.SolutionDir)
	assert.Equal(t, "1.10.0+abcdef1", b.Version.String())
	assert.Equal(t, filepath.Join(root, ".releaseArtifacts"), b.ReleaseArtifactsDir)
	assert.Equal(t, filepath.Join(root, ".testArtifacts"), b.TestArtifactsDir)
	assert.Equal(t, []string{"Build", "Test"}, b.Steps)
	assert.NotEmpty(t, b.RunID)

	var names []string
	for _, p := range b.ReleaseProjects {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Acme.Jobs", "Acme.Web"}, names)
	require.Len(t, b.TestProjects, 1)
	assert.Equal(t, "Acme.Web.Tests", b.TestProjects[0].Name)

	require.Len(t, b.PreBuildCallbacks, 2)
	assert.Equal(t, "01-a.PreBuild.Callback.ps1", filepath.Base(b.PreBuildCallbacks[0]))
	assert.Empty(t, b.PostBuildCallbacks)
	assert.Equal(t, []string{filepath.Join(root, "Acme.sln")}, b.Solutions)
}

func TestResolveFromWorkingDirectory(t *testing.T) {
	root := solutionTree(t)
	r := testResolver(stubSource{})
	r.Getwd = func() (string, error) { return filepath.Join(root, "test", "Acme.Web.Tests"), nil }

	cfg := Default()
	cfg.Version = "2.0.0-rc.1"
	b, err := r.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, root, b.SolutionDir)
	assert.Equal(t, "2.0.0-rc.1", b.Version.String())
}

func TestResolveNoReleaseProjects(t *testing.T) {
	root := solutionTree(t)
	cfg := Default()
	cfg.SolutionDir = root
	cfg.ReleaseFilter = "*.tests.csproj"

	_, err := testResolver(stubSource{}).Resolve(cfg)
	assert.ErrorIs(t, err, discovery.ErrNoReleaseProjects)
}

func TestResolveMissingSolution(t *testing.T) {
	cfg := Default()
	cfg.SolutionDir = t.TempDir()

	_, err := testResolver(stubSource{}).Resolve(cfg)
	assert.ErrorIs(t, err, discovery.ErrNoSolution)
}

func TestResolveInvalidVersion(t *testing.T) {
	cfg := Default()
	cfg.SolutionDir = solutionTree(t)
	cfg.Version = "not-a-version"

	_, err := testResolver(stubSource{}).Resolve(cfg)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestResolveLoadsEnvFile(t *testing.T) {
	root := solutionTree(t)
	writeFile(t, filepath.Join(root, DefaultEnvFile), "NUGET_TOKEN=secret\nDOTNET_NOLOGO=1\n")
	cfg := Default()
	cfg.SolutionDir = root

	b, err := testResolver(stubSource{}).Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, DefaultEnvFile), b.EnvFile)
	assert.Equal(t, "secret", b.Env["NUGET_TOKEN"])
	assert.Contains(t, b.ProcessEnv(), "DOTNET_NOLOGO=1")
}

func TestResolveMissingExplicitEnvFile(t *testing.T) {
	cfg := Default()
	cfg.SolutionDir = solutionTree(t)
	cfg.EnvFile = "missing.env"

	_, err := testResolver(stubSource{}).Resolve(cfg)
	require.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	root := solutionTree(t)
	writeFile(t, filepath.Join(root, DefaultEnvFile), "TOKEN=abc\n")
	cfg := Default()
	cfg.SolutionDir = root
	cfg.Version = "3.1.4"
	cfg.BinFolderRoles = []string{"Web"}

	b, err := testResolver(stubSource{hash: "1234567"}).Resolve(cfg)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "build.yml")
	require.NoError(t, SaveSnapshot(path, b))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "abc")
	assert.Contains(t, string(data), "version: 3.1.4+1234567")

	loaded, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, b, loaded)
}

func TestLoadSnapshotRequiresProjects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.yml")
	writeFile(t, path, "configuration: release\n")

	_, err := LoadSnapshot(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBuildHelpers(t *testing.T) {
	b := &Build{BinFolderRoles: []string{"Web"}, Parallelism: 3}
	assert.True(t, b.HasBinFolderRole("web"))
	assert.False(t, b.HasBinFolderRole("Jobs"))
	assert.Equal(t, 3, b.Limit())

	b.Parallelism = 0
	assert.Positive(t, b.Limit())
}
