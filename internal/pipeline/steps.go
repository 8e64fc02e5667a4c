package pipeline

import (
	"context"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/forecast"
	"github.com/datamesa/weatheretl/internal/loader"
	"github.com/datamesa/weatheretl/internal/location"
	"github.com/datamesa/weatheretl/internal/metrics"
	"github.com/datamesa/weatheretl/internal/snapshot"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

// ExtractStep fetches the configured locations, assembles the canonical table
// and writes the parquet snapshot.
type ExtractStep struct {
	cfg       config.WeatherConfig
	assembler *forecast.Assembler
	store     *snapshot.Store
	recorder  *metrics.Recorder
}

// NewExtractStep builds the extract step.
func NewExtractStep(cfg config.WeatherConfig, assembler *forecast.Assembler, store *snapshot.Store, recorder *metrics.Recorder) *ExtractStep {
	return &ExtractStep{cfg: cfg, assembler: assembler, store: store, recorder: recorder}
}

func (s *ExtractStep) Name() string { return "extract" }

// Execute runs the fetch/transform/snapshot sequence. Any failure leaves the
// previous snapshot untouched.
func (s *ExtractStep) Execute(ctx context.Context) error {
	locations, err := location.Load(s.cfg.LocationsPath)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %d locations from %s.", len(locations), s.cfg.LocationsPath)

	table, err := s.assembler.Assemble(ctx, locations, s.cfg.SnapshotTime)
	if err != nil {
		return err
	}
	if err := s.store.Write(ctx, table); err != nil {
		return err
	}

	s.recorder.AddRowsFetched(table.Len())
	return nil
}

// LoadStep reads the parquet snapshot back and upserts it into the
// destination table.
type LoadStep struct {
	store    *snapshot.Store
	loader   *loader.Loader
	recorder *metrics.Recorder
}

// NewLoadStep builds the load step.
func NewLoadStep(store *snapshot.Store, l *loader.Loader, recorder *metrics.Recorder) *LoadStep {
	return &LoadStep{store: store, loader: l, recorder: recorder}
}

func (s *LoadStep) Name() string { return "load" }

// Execute upserts the snapshot contents. Re-running against an unchanged
// snapshot is idempotent: matched rows update in place, nothing duplicates.
func (s *LoadStep) Execute(ctx context.Context) error {
	table, err := s.store.Read(ctx)
	if err != nil {
		return err
	}
	if err := s.loader.Upsert(ctx, table); err != nil {
		return err
	}

	s.recorder.AddRowsWritten(table.Len())
	return nil
}
