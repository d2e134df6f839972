package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStepDuration("Build", 150*time.Millisecond)
	pr.IncStepResult("Build", ResultSuccess)
	pr.IncCompileResult("Acme.Web", ResultFailed)
	pr.ObserveArchiveSize("Acme.Web", "primary", 1024)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["relbuild_step_duration_seconds"])
	assert.True(t, names["relbuild_step_results_total"])
	assert.True(t, names["relbuild_compile_results_total"])
	assert.True(t, names["relbuild_archive_size_bytes"])
}

func TestPrometheusRecorderWriteFile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncStepResult("Test", ResultFailed)

	path := filepath.Join(t.TempDir(), "relbuild.prom")
	require.NoError(t, pr.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `relbuild_step_results_total{result="failed",step="Test"} 1`)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncStepResult("Build", ResultSuccess)
	pr.ObserveStepDuration("Build", time.Second)

	r := OrNoop(nil)
	r.IncCompileResult("x", ResultSuccess)
	assert.Equal(t, ResultFailed, ResultFor(3))
	assert.Equal(t, ResultSuccess, ResultFor(0))
}
