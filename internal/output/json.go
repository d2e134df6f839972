package output

import (
	"encoding/json"
	"io"

	"github.com/bgricker/relbuild/internal/report"
)

// JSONRenderer emits structured execution data.
type JSONRenderer struct {
	out io.Writer
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// Render encodes the run report as JSON.
func (j *JSONRenderer) Render(run report.Run) error {
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// RenderSteps encodes the step flags as a JSON array.
func (j *JSONRenderer) RenderSteps(flags []string) error {
	enc := json.NewEncoder(j.out)
	return enc.Encode(flags)
}
