// Package pack archives staged modules.
package pack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgricker/relbuild/internal/builderr"
	"github.com/bgricker/relbuild/internal/config"
	"github.com/bgricker/relbuild/internal/runner"
	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
)

// Archiver writes the content of srcDir, without srcDir itself, into a zip
// archive at archivePath.
type Archiver interface {
	Archive(ctx context.Context, srcDir, archivePath string) error
}

// NewArchiver returns the archiver configured for the run.
func NewArchiver(b *config.Build, exec runner.Executor, logger *log.Logger) Archiver {
	if strings.EqualFold(b.Archiver, config.ArchiverTool) {
		return &ToolArchiver{Exec: exec, Executable: b.ArchiveTool, Log: logger}
	}
	return ZipArchiver{}
}

// ZipArchiver archives in-process.
type ZipArchiver struct{}

// Archive implements Archiver.
func (ZipArchiver) Archive(ctx context.Context, srcDir, archivePath string) (err error) {
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(archivePath)
		}
	}()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil || rel == "." {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
			_, err = zw.CreateHeader(hdr)
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		return copyInto(w, path)
	})
	if err != nil {
		zw.Close()
		return fmt.Errorf("archive %s: %w", srcDir, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func copyInto(w io.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(w, src)
	return err
}

// ToolArchiver archives with an external 7-Zip compatible tool.
type ToolArchiver struct {
	Exec       runner.Executor
	Executable string
	Log        *log.Logger
}

// Archive implements Archiver.
func (a *ToolArchiver) Archive(ctx context.Context, srcDir, archivePath string) error {
	// the tool appends to an existing archive
	if err := os.Remove(archivePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return builderr.Wrap(err, builderr.CodeGeneral, "remove previous archive %s", filepath.Base(archivePath))
	}

	args := []string{"a", "-tzip", archivePath, filepath.Join(srcDir, "*")}
	a.Log.Debug(runner.FormatCommand(a.Executable, args))

	var stderr strings.Builder
	code, err := a.Exec.Run(ctx, a.Executable, args,
		func(line string) { a.Log.Debug(line) },
		func(line string) { stderr.WriteString(line + "\n") },
	)
	if err != nil {
		return builderr.Wrap(err, code, "archive %s", filepath.Base(archivePath))
	}
	if code != 0 {
		return builderr.New(code, "archive %s failed with exit code %d: %s", filepath.Base(archivePath), code, strings.TrimSpace(stderr.String()))
	}
	return nil
}
