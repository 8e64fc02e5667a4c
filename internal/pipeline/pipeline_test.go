package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/metrics"
	"github.com/datamesa/weatheretl/internal/pipeline"
	"github.com/datamesa/weatheretl/internal/support/exception"
)

type fakeStep struct {
	name     string
	err      error
	executed bool
	gotCtx   context.Context
}

func (s *fakeStep) Name() string { return s.name }

func (s *fakeStep) Execute(ctx context.Context) error {
	s.executed = true
	s.gotCtx = ctx
	return s.err
}

func TestRunExecutesStepsInOrder(t *testing.T) {
	var order []string
	extract := &orderedStep{name: "extract", order: &order}
	load := &orderedStep{name: "load", order: &order}

	runner := pipeline.NewRunner([]pipeline.Step{extract, load}, metrics.NewRecorder(), config.PipelineConfig{})

	require.NoError(t, runner.Run(context.Background()))
	assert.Equal(t, []string{"extract", "load"}, order)
}

type orderedStep struct {
	name  string
	order *[]string
}

func (s *orderedStep) Name() string { return s.name }

func (s *orderedStep) Execute(ctx context.Context) error {
	*s.order = append(*s.order, s.name)
	return nil
}

func TestRunShortCircuitsOnFailure(t *testing.T) {
	extract := &fakeStep{name: "extract", err: exception.Upstream("fetcher", "API returned status 500", nil)}
	load := &fakeStep{name: "load"}

	runner := pipeline.NewRunner([]pipeline.Step{extract, load}, metrics.NewRecorder(), config.PipelineConfig{})

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, extract.executed)
	assert.False(t, load.executed, "load must not run after a failed extract")
	assert.Contains(t, err.Error(), "aborted at step 'extract'")
	assert.True(t, exception.IsKind(err, exception.KindUpstream))
}

func TestRunPreservesFailureKind(t *testing.T) {
	step := &fakeStep{name: "load", err: exception.Upsert("loader", "merge failed", nil)}

	runner := pipeline.NewRunner([]pipeline.Step{step}, metrics.NewRecorder(), config.PipelineConfig{})

	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, exception.KindUpsert, exception.KindOf(err))
}

func TestRunAppliesTimeout(t *testing.T) {
	step := &fakeStep{name: "extract"}

	runner := pipeline.NewRunner([]pipeline.Step{step}, metrics.NewRecorder(), config.PipelineConfig{RunTimeoutSeconds: 60})

	require.NoError(t, runner.Run(context.Background()))
	_, hasDeadline := step.gotCtx.Deadline()
	assert.True(t, hasDeadline)
}

func TestRunWithoutTimeout(t *testing.T) {
	step := &fakeStep{name: "extract"}

	runner := pipeline.NewRunner([]pipeline.Step{step}, metrics.NewRecorder(), config.PipelineConfig{})

	require.NoError(t, runner.Run(context.Background()))
	_, hasDeadline := step.gotCtx.Deadline()
	assert.False(t, hasDeadline)
}
