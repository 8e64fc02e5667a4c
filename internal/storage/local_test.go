package storage_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/storage"
	"github.com/datamesa/weatheretl/internal/support/exception"
)

func newLocalSink(t *testing.T) (storage.Sink, string) {
	t.Helper()
	dir := t.TempDir()
	sink, err := storage.New(context.Background(), config.SnapshotConfig{
		StorageType: "local",
		Properties:  map[string]interface{}{"base_dir": dir},
	})
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink, dir
}

func TestLocalSinkPutAndGet(t *testing.T) {
	sink, dir := newLocalSink(t)

	require.NoError(t, sink.Put(context.Background(), "weather_data.parquet", strings.NewReader("payload")))

	written, err := os.ReadFile(filepath.Join(dir, "weather_data.parquet"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(written))

	rc, err := sink.Get(context.Background(), "weather_data.parquet")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestLocalSinkPutOverwrites(t *testing.T) {
	sink, _ := newLocalSink(t)

	require.NoError(t, sink.Put(context.Background(), "obj", strings.NewReader("first")))
	require.NoError(t, sink.Put(context.Background(), "obj", strings.NewReader("second")))

	rc, err := sink.Get(context.Background(), "obj")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "second", string(got))
}

func TestLocalSinkGetMissingObject(t *testing.T) {
	sink, _ := newLocalSink(t)

	_, err := sink.Get(context.Background(), "missing.parquet")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindIO))
}

func TestLocalSinkRejectsEscapingNames(t *testing.T) {
	sink, _ := newLocalSink(t)

	err := sink.Put(context.Background(), "../outside", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes the base directory")
}

func TestLocalSinkRequiresBaseDir(t *testing.T) {
	_, err := storage.New(context.Background(), config.SnapshotConfig{StorageType: "local"})
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestNewUnknownStorageType(t *testing.T) {
	_, err := storage.New(context.Background(), config.SnapshotConfig{StorageType: "s3"})
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}
