package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bgricker/relbuild/internal/report"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorGreen   = lipgloss.Color("82")
	colorRed     = lipgloss.Color("196")
	colorDimGray = lipgloss.Color("240")
)

// PrettyRenderer renders execution results in a human-friendly format.
type PrettyRenderer struct {
	out    io.Writer
	passed lipgloss.Style
	failed lipgloss.Style
	dim    lipgloss.Style
	bold   lipgloss.Style
}

// NewPretty creates a PrettyRenderer writing to the provided writer. Styling
// is dropped when out is not a terminal.
func NewPretty(out io.Writer) *PrettyRenderer {
	r := lipgloss.NewRenderer(out)
	return &PrettyRenderer{
		out:    out,
		passed: r.NewStyle().Foreground(colorGreen),
		failed: r.NewStyle().Foreground(colorRed).Bold(true),
		dim:    r.NewStyle().Foreground(colorDimGray),
		bold:   r.NewStyle().Bold(true),
	}
}

// RenderSteps lists step flags in dispatch order.
func (p *PrettyRenderer) RenderSteps(flags []string) error {
	for i, flag := range flags {
		if _, err := fmt.Fprintf(p.out, "%d. %s\n", i+1, flag); err != nil {
			return err
		}
	}
	return nil
}

// RenderResults shows the outcome of every step followed by a summary line.
func (p *PrettyRenderer) RenderResults(run report.Run) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (version %s)\n", run.RunID, run.Version)
	for _, res := range run.Steps {
		fmt.Fprintf(&b, "  %s %s", p.glyph(res.Status), res.Step)
		if res.Status == report.StatusSkipped {
			if res.Note != "" {
				fmt.Fprintf(&b, " %s", p.dim.Render("("+res.Note+")"))
			}
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, " (%s)", formatDuration(res.Duration))
		if res.Status == report.StatusFailed {
			fmt.Fprintf(&b, " exit code %d", res.ExitCode)
		}
		b.WriteString("\n")
		if res.Status == report.StatusFailed && res.Error != "" {
			fmt.Fprintf(&b, "%s\n", indent(res.Error, "      "))
		}
	}

	s := run.Summary
	summary := fmt.Sprintf("SUMMARY: %d passed, %d failed, %d skipped (%s)", s.Passed, s.Failed, s.Skipped, formatDuration(s.Duration))
	fmt.Fprintln(&b, p.bold.Render(summary))

	_, err := io.WriteString(p.out, b.String())
	return err
}

func (p *PrettyRenderer) glyph(status string) string {
	switch status {
	case report.StatusPassed:
		return p.passed.Render("✓")
	case report.StatusFailed:
		return p.failed.Render("✗")
	case report.StatusSkipped:
		return p.dim.Render("-")
	default:
		return "?"
	}
}

func indent(s, pad string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Millisecond).String()
}
