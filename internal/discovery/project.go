package discovery

import (
	"path/filepath"
	"strings"
)

// Project is a discovered project file.
type Project struct {
	Path string `yaml:"path"`
	Name string `yaml:"name"`
}

// NewProject derives the project name from the file name without extension.
func NewProject(path string) Project {
	base := filepath.Base(path)
	return Project{
		Path: path,
		Name: strings.TrimSuffix(base, filepath.Ext(base)),
	}
}

// Dir returns the directory containing the project file.
func (p Project) Dir() string {
	return filepath.Dir(p.Path)
}

// BinDir returns the compiler's bin directory for the project.
func (p Project) BinDir() string {
	return filepath.Join(p.Dir(), "bin")
}

// Role returns the last dot-separated segment of the project name, e.g.
// "Web" for "Acme.Portal.Web".
func (p Project) Role() string {
	if idx := strings.LastIndex(p.Name, "."); idx != -1 {
		return p.Name[idx+1:]
	}
	return p.Name
}
