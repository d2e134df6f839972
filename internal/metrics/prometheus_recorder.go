package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "relbuild"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg            *prom.Registry
	stepDuration   *prom.HistogramVec
	stepResults    *prom.CounterVec
	compileResults *prom.CounterVec
	archiveBytes   *prom.GaugeVec
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of individual pipeline steps",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"step"}),
		stepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Step result counts by outcome",
		}, []string{"step", "result"}),
		compileResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "compile_results_total",
			Help:      "Compiler invocation results by project",
		}, []string{"project", "result"}),
		archiveBytes: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_size_bytes",
			Help:      "Size of the archives written per module",
		}, []string{"module", "kind"}),
	}
	reg.MustRegister(pr.stepDuration, pr.stepResults, pr.compileResults, pr.archiveBytes)
	return pr
}

func (p *PrometheusRecorder) ObserveStepDuration(step string, d time.Duration) {
	if p == nil || p.stepDuration == nil {
		return
	}
	p.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStepResult(step string, result ResultLabel) {
	if p == nil || p.stepResults == nil {
		return
	}
	p.stepResults.WithLabelValues(step, string(result)).Inc()
}

func (p *PrometheusRecorder) IncCompileResult(project string, result ResultLabel) {
	if p == nil || p.compileResults == nil {
		return
	}
	p.compileResults.WithLabelValues(project, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveArchiveSize(module, kind string, bytes int64) {
	if p == nil || p.archiveBytes == nil {
		return
	}
	p.archiveBytes.WithLabelValues(module, kind).Set(float64(bytes))
}

// WriteFile writes every registered metric to path in the text exposition
// format, replacing the file atomically.
func (p *PrometheusRecorder) WriteFile(path string) error {
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("write metrics %q: %w", path, err)
	}
	return nil
}
