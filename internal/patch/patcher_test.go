package patch

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bgricker/relbuild/internal/discovery"
	"github.com/bgricker/relbuild/internal/version"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPatcher() *Patcher {
	return NewPatcher(log.New(io.Discard))
}

func writeProject(t *testing.T, dir, name, content string) discovery.Project {
	t.Helper()
	path := filepath.Join(dir, name, name+".csproj")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return discovery.NewProject(path)
}

func readString(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestApplyAndRevertRoundTrip(t *testing.T) {
	project := writeProject(t, t.TempDir(), "Acme.Web", sdkProject)
	p := newTestPatcher()

	pt, err := p.Apply(project, version.MustParse("3.2.1"))
	require.NoError(t, err)
	assert.True(t, p.Active(project.Path))
	assert.FileExists(t, project.Path+BackupSuffix)
	assert.Contains(t, readString(t, project.Path), "<Version>3.2.1</Version>")

	require.NoError(t, pt.Revert())
	assert.Equal(t, sdkProject, readString(t, project.Path))
	assert.NoFileExists(t, project.Path+BackupSuffix)
	assert.False(t, p.Active(project.Path))

	// idempotent
	require.NoError(t, pt.Revert())
}

func TestApplyTwiceIsRejected(t *testing.T) {
	project := writeProject(t, t.TempDir(), "Acme.Web", sdkProject)
	p := newTestPatcher()

	pt, err := p.Apply(project, version.MustParse("1.0.0"))
	require.NoError(t, err)
	defer pt.Revert()

	upper := discovery.NewProject(strings.ToUpper(project.Path))
	_, err = p.Apply(upper, version.MustParse("1.0.1"))
	assert.ErrorIs(t, err, ErrPatchActive)

	require.NoError(t, pt.Revert())
	pt2, err := p.Apply(project, version.MustParse("1.0.1"))
	require.NoError(t, err)
	require.NoError(t, pt2.Revert())
	assert.Equal(t, sdkProject, readString(t, project.Path))
}

func TestApplyFailureLeavesProjectUntouched(t *testing.T) {
	content := `<Project><ItemGroup/></Project>`
	project := writeProject(t, t.TempDir(), "Acme.Broken", content)
	p := newTestPatcher()

	_, err := p.Apply(project, version.MustParse("1.0.0"))
	assert.ErrorIs(t, err, ErrNoPropertyGroup)
	assert.Equal(t, content, readString(t, project.Path))
	assert.NoFileExists(t, project.Path+BackupSuffix)
	assert.False(t, p.Active(project.Path))
}

func TestApplyRestoresBackupOfInterruptedRun(t *testing.T) {
	interrupted, err := SetVersion([]byte(sdkProject), version.MustParse("9.9.9+abc1234"))
	require.NoError(t, err)
	project := writeProject(t, t.TempDir(), "Acme.Web", string(interrupted))
	require.NoError(t, os.WriteFile(project.Path+BackupSuffix, []byte(sdkProject), 0o644))
	p := newTestPatcher()

	pt, err := p.Apply(project, version.MustParse("1.0.0"))
	require.NoError(t, err)
	require.NoError(t, pt.Revert())

	assert.Equal(t, sdkProject, readString(t, project.Path))
	assert.NoFileExists(t, project.Path+BackupSuffix)
}

func TestApplyRemovesBackupMatchingProject(t *testing.T) {
	project := writeProject(t, t.TempDir(), "Acme.Web", sdkProject)
	require.NoError(t, os.WriteFile(project.Path+BackupSuffix, []byte(sdkProject), 0o644))
	p := newTestPatcher()

	pt, err := p.Apply(project, version.MustParse("1.0.0"))
	require.NoError(t, err)
	require.NoError(t, pt.Revert())

	assert.Equal(t, sdkProject, readString(t, project.Path))
}

func TestApplyRejectsBackupOfEditedProject(t *testing.T) {
	edited := "<Project><PropertyGroup><Version>9.9.9</Version><Nullable>enable</Nullable></PropertyGroup></Project>"
	project := writeProject(t, t.TempDir(), "Acme.Web", edited)
	require.NoError(t, os.WriteFile(project.Path+BackupSuffix, []byte(sdkProject), 0o644))
	p := newTestPatcher()

	_, err := p.Apply(project, version.MustParse("1.0.0"))
	require.ErrorIs(t, err, ErrStaleBackup)
	assert.Contains(t, err.Error(), project.Path+BackupSuffix)

	assert.Equal(t, edited, readString(t, project.Path))
	assert.Equal(t, sdkProject, readString(t, project.Path+BackupSuffix))
	assert.False(t, p.Active(project.Path))
}

func TestRevertWithoutBackupUsesOriginal(t *testing.T) {
	project := writeProject(t, t.TempDir(), "Acme.Web", sdkProject)
	p := newTestPatcher()

	pt, err := p.Apply(project, version.MustParse("1.0.0"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(pt.BackupPath))

	require.NoError(t, pt.Revert())
	assert.Equal(t, sdkProject, readString(t, project.Path))
}

func TestApplyAllRevertsOnFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeProject(t, dir, "Acme.A", sdkProject)
	bad := writeProject(t, dir, "Acme.B", "<Project/>")
	p := newTestPatcher()

	_, err := p.ApplyAll([]discovery.Project{good, bad}, version.MustParse("1.0.0"))
	assert.ErrorIs(t, err, ErrNoPropertyGroup)
	assert.Equal(t, sdkProject, readString(t, good.Path))
	assert.False(t, p.Active(good.Path))
}

func TestConcurrentPatchesOnDistinctProjects(t *testing.T) {
	dir := t.TempDir()
	p := newTestPatcher()
	var projects []discovery.Project
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		projects = append(projects, writeProject(t, dir, "Acme."+name, sdkProject))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(projects))
	for i, project := range projects {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pt, err := p.Apply(project, version.MustParse("1.2.3"))
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = pt.Revert()
		}()
	}
	wg.Wait()

	for i, project := range projects {
		require.NoError(t, errs[i])
		assert.Equal(t, sdkProject, readString(t, project.Path))
	}
}
