// Package output renders run reports and builds the logger.
package output

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewLogger creates the run logger. Verbose output includes debug messages
// and timestamps.
func NewLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		TimeFormat:      "15:04:05.000",
	})
}
