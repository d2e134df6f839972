package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SaveSnapshot writes the resolved build configuration to path as YAML.
func SaveSnapshot(path string, b *Build) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %q: %w", path, err)
	}
	return nil
}

// LoadSnapshot reads a build configuration written by SaveSnapshot. The env
// file it references is loaded again when it still exists.
func LoadSnapshot(path string) (*Build, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w", path, err)
	}
	var b Build
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot %q: %v", ErrInvalid, path, err)
	}
	if len(b.ReleaseProjects) == 0 {
		return nil, fmt.Errorf("%w: snapshot %q lists no release projects", ErrInvalid, path)
	}
	env, err := LoadEnvFile(b.EnvFile, false)
	if err != nil {
		return nil, err
	}
	b.Env = env
	return &b, nil
}
