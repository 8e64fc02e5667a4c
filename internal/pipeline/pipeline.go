// Package pipeline sequences the extract and load steps into a single run.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/metrics"
	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

const moduleName = "pipeline"

// Step is one unit of pipeline work.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
}

// Runner executes steps strictly in order and stops at the first failure.
// There is no retry and no partial continuation: a failed extract means the
// load never starts.
type Runner struct {
	steps    []Step
	recorder *metrics.Recorder
	timeout  time.Duration
}

// NewRunner builds a Runner over the given steps.
func NewRunner(steps []Step, recorder *metrics.Recorder, cfg config.PipelineConfig) *Runner {
	return &Runner{
		steps:    steps,
		recorder: recorder,
		timeout:  cfg.RunTimeout(),
	}
}

// Run executes all steps once. The run is bounded by the configured timeout
// when one is set.
func (r *Runner) Run(ctx context.Context) error {
	runID := uuid.New().String()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	logger.Infof("Pipeline run %s started (%d steps).", runID, len(r.steps))

	for _, step := range r.steps {
		stepStart := time.Now()
		logger.Infof("Step '%s' started.", step.Name())

		if err := step.Execute(ctx); err != nil {
			r.recorder.RecordStep(step.Name(), "failed")
			r.recorder.RecordRun("failed", time.Since(start))
			logger.Errorf("Step '%s' failed after %v: %v", step.Name(), time.Since(stepStart), err)
			return exception.Newf(exception.KindOf(err), moduleName, "run %s aborted at step '%s'", runID, step.Name(), err)
		}

		r.recorder.RecordStep(step.Name(), "completed")
		logger.Infof("Step '%s' completed in %v.", step.Name(), time.Since(stepStart))
	}

	r.recorder.RecordRun("completed", time.Since(start))
	logger.Infof("Pipeline run %s completed in %v.", runID, time.Since(start))
	return nil
}
