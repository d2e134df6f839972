package stage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgricker/relbuild/internal/fsutil"
)

const (
	// WebJobSettingsFile is inspected for the webjob property.
	WebJobSettingsFile = "appsettings.json"
	webJobKey          = "webjob"
)

// WebJobType reads the webjob type from the settings file in dir. Keys are
// matched case-insensitively. A missing file, a missing key or a non-string
// value means dir is not a webjob.
func WebJobType(dir string) (string, bool, error) {
	path, ok := fsutil.FindEntry(dir, WebJobSettingsFile)
	if !ok {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var settings map[string]json.RawMessage
	if err := json.Unmarshal(data, &settings); err != nil {
		return "", false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	for key, raw := range settings {
		if !strings.EqualFold(key, webJobKey) {
			continue
		}
		var jobType string
		if err := json.Unmarshal(raw, &jobType); err != nil || strings.TrimSpace(jobType) == "" {
			return "", false, nil
		}
		return strings.TrimSpace(jobType), true, nil
	}
	return "", false, nil
}

// WebJobDir returns the nested webjob location below root.
func WebJobDir(root, jobType, projectName string) string {
	return filepath.Join(root, "app_data", "jobs", jobType, projectName)
}

// RelocateWebJob moves the whole content of dir into
// app_data/jobs/<jobType>/<projectName> below dir. The target lies inside the
// source, so content is parked in a sibling holding dir first.
func RelocateWebJob(dir, jobType, projectName string) (string, error) {
	holding, err := os.MkdirTemp(filepath.Dir(dir), ".webjob-")
	if err != nil {
		return "", fmt.Errorf("create holding dir: %w", err)
	}
	defer os.RemoveAll(holding)

	if err := fsutil.CopyDir(dir, holding); err != nil {
		return "", err
	}
	if err := fsutil.ClearDir(dir); err != nil {
		return "", fmt.Errorf("clear %s: %w", dir, err)
	}
	target := WebJobDir(dir, jobType, projectName)
	if err := fsutil.CopyDir(holding, target); err != nil {
		return "", err
	}
	return target, nil
}
