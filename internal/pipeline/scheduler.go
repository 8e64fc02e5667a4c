package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/metrics"
	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

// Scheduler repeats full pipeline runs at a fixed interval and exposes the
// Prometheus endpoint while running. A failed run is logged and counted; the
// schedule keeps going.
type Scheduler struct {
	runner      *Runner
	recorder    *metrics.Recorder
	interval    string
	metricsAddr string
}

// NewScheduler builds a Scheduler from the pipeline configuration.
func NewScheduler(runner *Runner, recorder *metrics.Recorder, cfg config.PipelineConfig) *Scheduler {
	return &Scheduler{
		runner:      runner,
		recorder:    recorder,
		interval:    cfg.FetchInterval,
		metricsAddr: cfg.MetricsAddr,
	}
}

// Run blocks until the context is cancelled, executing the pipeline once per
// interval. The first run fires immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	interval, err := time.ParseDuration(s.interval)
	if err != nil {
		return exception.Newf(exception.KindConfiguration, moduleName, "invalid fetch interval %q", s.interval, err)
	}

	var metricsServer *http.Server
	if s.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.recorder.Registry(), promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: s.metricsAddr, Handler: mux}
		go func() {
			logger.Infof("Serving metrics on %s/metrics.", s.metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("Metrics server failed: %v", err)
			}
		}()
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, err = scheduler.Every(interval).Do(func() {
		if err := s.runner.Run(ctx); err != nil {
			logger.Errorf("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return exception.Newf(exception.KindInternal, moduleName, "failed to schedule pipeline job", err)
	}

	logger.Infof("Scheduling pipeline every %v.", interval)
	scheduler.StartAsync()

	<-ctx.Done()
	logger.Infof("Stopping scheduler.")
	scheduler.Stop()

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Metrics server shutdown: %v", err)
		}
	}
	return nil
}
