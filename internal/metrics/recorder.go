// Package metrics records run and step outcomes in a Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Recorder holds the metric families published by the pipeline.
type Recorder struct {
	registry *prometheus.Registry

	runDurationSeconds *prometheus.HistogramVec
	stepStatusCounter  *prometheus.CounterVec
	rowsFetched        prometheus.Counter
	rowsWritten        prometheus.Counter
}

// NewRecorder creates a Recorder with its own registry, including the Go and
// process collectors.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "etl_run_duration_seconds",
			Help:    "Duration of full pipeline runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		stepStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "etl_step_status_total",
			Help: "Total step executions by step and status.",
		}, []string{"step", "status"}),
		rowsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etl_rows_fetched_total",
			Help: "Total weather records assembled from the provider.",
		}),
		rowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "etl_rows_written_total",
			Help: "Total weather records merged into the destination table.",
		}),
	}

	registry.MustRegister(r.runDurationSeconds)
	registry.MustRegister(r.stepStatusCounter)
	registry.MustRegister(r.rowsFetched)
	registry.MustRegister(r.rowsWritten)
	return r
}

// Registry returns the underlying registry for exposition.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordRun records one full pipeline run.
func (r *Recorder) RecordRun(status string, d time.Duration) {
	r.runDurationSeconds.WithLabelValues(status).Observe(d.Seconds())
}

// RecordStep records one step outcome.
func (r *Recorder) RecordStep(step, status string) {
	r.stepStatusCounter.WithLabelValues(step, status).Inc()
}

// AddRowsFetched counts records assembled by the extract step.
func (r *Recorder) AddRowsFetched(n int) {
	r.rowsFetched.Add(float64(n))
}

// AddRowsWritten counts records written by the load step.
func (r *Recorder) AddRowsWritten(n int) {
	r.rowsWritten.Add(float64(n))
}
