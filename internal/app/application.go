// Package app wires the ETL components together and drives one invocation.
package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/forecast"
	"github.com/datamesa/weatheretl/internal/loader"
	"github.com/datamesa/weatheretl/internal/metrics"
	"github.com/datamesa/weatheretl/internal/pipeline"
	"github.com/datamesa/weatheretl/internal/snapshot"
	"github.com/datamesa/weatheretl/internal/storage"
	"github.com/datamesa/weatheretl/internal/support/logger"
	"github.com/datamesa/weatheretl/internal/tomorrow"
)

// Commands accepted by RunApplication.
const (
	CommandExtract  = "extract"
	CommandLoad     = "load"
	CommandRun      = "run"
	CommandSchedule = "schedule"
)

// RunApplication sets up the Fx container for the given command and runs it
// to completion. The returned error is the pipeline's failure, if any.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, command string) error {
	cfg, err := config.LoadConfig(envFilePath, embeddedConfig)
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logger.SetLogLevel(cfg.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.System.Logging.Level)

	runErr := make(chan error, 1)

	opts := []fx.Option{
		fx.Supply(
			cfg,
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
			fx.Annotate(command, fx.ResultTags(`name:"command"`)),
		),
		fx.Provide(func() chan error { return runErr }),

		fx.Provide(
			metrics.NewRecorder,
			newClient,
			newAssembler,
			newSink,
			newStore,
			newLoader,
			newExtractStep,
			newLoadStep,
			newRunner,
			newScheduler,
		),

		fx.Invoke(fx.Annotate(startPipeline, fx.ParamTags(
			"",               // lc fx.Lifecycle
			"",               // shutdowner fx.Shutdowner
			"",               // runner *pipeline.Runner
			"",               // scheduler *pipeline.Scheduler
			`name:"appCtx"`,  // appCtx context.Context
			`name:"command"`, // command string
			"",               // runErr chan error
		))),
	}
	opts = append(opts, stepOptions(command)...)

	app := fx.New(opts...)
	app.Run()

	if app.Err() != nil {
		return app.Err()
	}
	select {
	case err := <-runErr:
		return err
	default:
		return nil
	}
}

// stepOptions selects which steps the runner executes. Only the steps a
// command needs are resolved, so `extract` never opens a database connection
// and `load` never builds the provider client.
func stepOptions(command string) []fx.Option {
	switch command {
	case CommandExtract:
		return []fx.Option{fx.Provide(func(e *pipeline.ExtractStep) []pipeline.Step {
			return []pipeline.Step{e}
		})}
	case CommandLoad:
		return []fx.Option{fx.Provide(func(l *pipeline.LoadStep) []pipeline.Step {
			return []pipeline.Step{l}
		})}
	default:
		return []fx.Option{fx.Provide(func(e *pipeline.ExtractStep, l *pipeline.LoadStep) []pipeline.Step {
			return []pipeline.Step{e, l}
		})}
	}
}

func newClient(cfg *config.Config) (*tomorrow.Client, error) {
	return tomorrow.NewClient(cfg.Weather)
}

func newAssembler(client *tomorrow.Client) *forecast.Assembler {
	return forecast.NewAssembler(client)
}

func newSink(lc fx.Lifecycle, cfg *config.Config) (storage.Sink, error) {
	sink, err := storage.New(context.Background(), cfg.Snapshot)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		return sink.Close()
	}})
	return sink, nil
}

func newStore(cfg *config.Config, sink storage.Sink) (*snapshot.Store, error) {
	return snapshot.NewStore(cfg.Snapshot, sink)
}

func newLoader(lc fx.Lifecycle, cfg *config.Config) (*loader.Loader, error) {
	l, err := loader.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
		return l.Close()
	}})
	return l, nil
}

func newExtractStep(cfg *config.Config, assembler *forecast.Assembler, store *snapshot.Store, recorder *metrics.Recorder) *pipeline.ExtractStep {
	return pipeline.NewExtractStep(cfg.Weather, assembler, store, recorder)
}

func newLoadStep(store *snapshot.Store, l *loader.Loader, recorder *metrics.Recorder) *pipeline.LoadStep {
	return pipeline.NewLoadStep(store, l, recorder)
}

func newRunner(steps []pipeline.Step, recorder *metrics.Recorder, cfg *config.Config) *pipeline.Runner {
	return pipeline.NewRunner(steps, recorder, cfg.Pipeline)
}

func newScheduler(runner *pipeline.Runner, recorder *metrics.Recorder, cfg *config.Config) *pipeline.Scheduler {
	return pipeline.NewScheduler(runner, recorder, cfg.Pipeline)
}

// startPipeline is invoked by Fx to begin pipeline execution on startup.
func startPipeline(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	runner *pipeline.Runner,
	scheduler *pipeline.Scheduler,
	appCtx context.Context,
	command string,
	runErr chan error,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in pipeline execution: %v", r)
					}
					logger.Infof("Requesting application shutdown after pipeline completion.")
					if err := shutdowner.Shutdown(); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				var err error
				if command == CommandSchedule {
					err = scheduler.Run(appCtx)
				} else {
					err = runner.Run(appCtx)
				}
				if err != nil {
					logger.Errorf("Pipeline execution failed: %v", err)
				}
				runErr <- err
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			return nil
		},
	})
}
