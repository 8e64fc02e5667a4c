// Package storage abstracts the snapshot sink so the parquet writer does not
// care whether files land on the local filesystem or in a GCS bucket.
package storage

import (
	"context"
	"io"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/support/exception"
)

const moduleName = "storage"

// Sink is a destination for snapshot objects.
type Sink interface {
	// Put writes an object, replacing any existing object with the same name.
	Put(ctx context.Context, objectName string, data io.Reader) error
	// Get opens an object for reading. The caller closes the returned reader.
	Get(ctx context.Context, objectName string) (io.ReadCloser, error)
	// Name identifies the sink in logs.
	Name() string
	// Close releases any held resources.
	Close() error
}

// New builds the sink selected by the snapshot configuration.
func New(ctx context.Context, cfg config.SnapshotConfig) (Sink, error) {
	switch cfg.StorageType {
	case "", "local":
		return newLocalSink(cfg.Properties)
	case "gcs":
		return newGCSSink(ctx, cfg.Properties)
	default:
		return nil, exception.Newf(exception.KindConfiguration, moduleName, "unsupported storage type %q", cfg.StorageType)
	}
}
