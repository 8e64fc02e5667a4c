// Package snapshot serializes the assembled weather table to a parquet file
// in a storage sink, and reads it back for the load step.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/forecast"
	"github.com/datamesa/weatheretl/internal/storage"
	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

const moduleName = "snapshot"

// parallelism for the parquet marshalling workers.
const parquetConcurrency = 4

// Store writes and reads the snapshot file through a storage sink.
type Store struct {
	sink     storage.Sink
	fileName string
	codec    parquet.CompressionCodec
}

// NewStore builds a Store from the snapshot configuration.
func NewStore(cfg config.SnapshotConfig, sink storage.Sink) (*Store, error) {
	codec, err := compressionCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}
	fileName := cfg.FileName
	if fileName == "" {
		fileName = "weather_data.parquet"
	}
	return &Store{sink: sink, fileName: fileName, codec: codec}, nil
}

// FileName returns the object name the store writes.
func (s *Store) FileName() string {
	return s.fileName
}

// Write serializes the table and uploads it, overwriting any previous
// snapshot. The canonical columns are always present, even for an empty
// table.
func (s *Store) Write(ctx context.Context, table *forecast.Table) error {
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(forecast.FileRecord), parquetConcurrency)
	if err != nil {
		return exception.IO(moduleName, "failed to create parquet writer", err)
	}
	pw.CompressionType = s.codec

	for _, record := range table.Records() {
		if err := pw.Write(forecast.ToFileRecord(record)); err != nil {
			return exception.IO(moduleName, "failed to write parquet row", err)
		}
	}
	if err := stopWriter(pw); err != nil {
		return err
	}

	if err := s.sink.Put(ctx, s.fileName, buf); err != nil {
		return exception.IO(moduleName, "failed to store snapshot "+s.fileName, err)
	}
	logger.Infof("Wrote snapshot %q (%d rows) to %s.", s.fileName, table.Len(), s.sink.Name())
	return nil
}

// Read loads the snapshot back into a table.
func (s *Store) Read(ctx context.Context) (*forecast.Table, error) {
	rc, err := s.sink.Get(ctx, s.fileName)
	if err != nil {
		return nil, exception.IO(moduleName, "failed to open snapshot "+s.fileName, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, exception.IO(moduleName, "failed to read snapshot "+s.fileName, err)
	}

	bf := buffer.NewBufferFileFromBytes(data)
	pr, err := reader.NewParquetReader(bf, new(forecast.FileRecord), parquetConcurrency)
	if err != nil {
		return nil, exception.IO(moduleName, "failed to open parquet snapshot "+s.fileName, err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	records := make([]forecast.Record, 0, num)
	if num > 0 {
		rows := make([]forecast.FileRecord, num)
		if err := pr.Read(&rows); err != nil {
			return nil, exception.IO(moduleName, "failed to read parquet rows from "+s.fileName, err)
		}
		for _, row := range rows {
			records = append(records, forecast.FromFileRecord(row))
		}
	}

	logger.Infof("Read snapshot %q (%d rows) from %s.", s.fileName, len(records), s.sink.Name())
	return forecast.NewTable(records), nil
}

// stopWriter finalizes the parquet file, converting library panics into
// errors.
func stopWriter(pw *writer.ParquetWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = exception.IO(moduleName, "parquet writer panicked during finalize", fmt.Errorf("%v", r))
		}
	}()
	if stopErr := pw.WriteStop(); stopErr != nil {
		return exception.IO(moduleName, "failed to finalize parquet file", stopErr)
	}
	return nil
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "", "NONE":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	default:
		return 0, exception.Newf(exception.KindConfiguration, moduleName, "unsupported compression type %q", name)
	}
}
