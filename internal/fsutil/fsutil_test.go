package fsutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bgricker/relbuild/internal/retry"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxTries: 3, Delay: time.Millisecond}
}

func TestInitDirCreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, InitDir(context.Background(), dir, fastPolicy(), log.New(io.Discard)))
	assert.True(t, IsDir(dir))
}

func TestInitDirCleansExisting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "old.txt"), "x")
	writeFile(t, filepath.Join(dir, "nested", "deep.txt"), "y")

	require.NoError(t, InitDir(context.Background(), dir, fastPolicy(), log.New(io.Discard)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, IsDir(dir))
}

func TestCopyDirRecursive(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "app.dll"), "dll")
	writeFile(t, filepath.Join(src, "sub", "cfg.json"), "{}")

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, CopyDir(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "sub", "cfg.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
	assert.FileExists(t, filepath.Join(dst, "app.dll"))
}

func TestCopyDirMissingSource(t *testing.T) {
	err := CopyDir(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	assert.Error(t, err)
}

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "Lib.1.0.0.nupkg"), "")
	writeFile(t, filepath.Join(root, "b", "Lib.1.0.0.SNUPKG"), "")
	writeFile(t, filepath.Join(root, "b", "Lib.dll"), "")

	got, err := FindFilesByExtension(root, ".nupkg", ".snupkg")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDirSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "12345")
	writeFile(t, filepath.Join(root, "x", "b"), "123")

	size, err := DirSize(root)
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
}

func TestCopyFileReplaces(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	writeFile(t, src, "new")
	writeFile(t, dst, "old content")

	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestFindEntryIgnoresCase(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Release"), 0o755))

	got, ok := FindEntry(dir, "release")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "Release"), got)

	_, ok = FindEntry(dir, "debug")
	assert.False(t, ok)
}

func TestSubDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "net8.0", "a.dll"), "")
	writeFile(t, filepath.Join(dir, "file.txt"), "")

	got, err := SubDirs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "net8.0")}, got)
}
