package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

type localOptions struct {
	BaseDir string `mapstructure:"base_dir"`
}

// localSink writes snapshot objects under a base directory on the local
// filesystem.
type localSink struct {
	baseDir string
}

var _ Sink = (*localSink)(nil)

func newLocalSink(properties map[string]interface{}) (Sink, error) {
	var opts localOptions
	if err := mapstructure.Decode(properties, &opts); err != nil {
		return nil, exception.Configuration(moduleName, "failed to decode local storage properties", err)
	}
	if opts.BaseDir == "" {
		return nil, exception.Configuration(moduleName, "local storage requires a base_dir property", nil)
	}
	if err := os.MkdirAll(opts.BaseDir, 0o755); err != nil {
		return nil, exception.IO(moduleName, "failed to create base directory "+opts.BaseDir, err)
	}
	return &localSink{baseDir: opts.BaseDir}, nil
}

func (s *localSink) Put(ctx context.Context, objectName string, data io.Reader) error {
	path, err := s.resolve(objectName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exception.IO(moduleName, "failed to create directory for "+path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return exception.IO(moduleName, "failed to create "+path, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return exception.IO(moduleName, "failed to write "+path, err)
	}
	logger.Debugf("Wrote object %q to local sink.", path)
	return nil
}

func (s *localSink) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	path, err := s.resolve(objectName)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, exception.IO(moduleName, "failed to open "+path, err)
	}
	return file, nil
}

func (s *localSink) Name() string {
	return "local:" + s.baseDir
}

func (s *localSink) Close() error {
	return nil
}

// resolve joins the object name onto the base directory and rejects paths
// that escape it.
func (s *localSink) resolve(objectName string) (string, error) {
	full := filepath.Join(s.baseDir, objectName)
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", exception.IO(moduleName, "failed to resolve base directory", err)
	}
	absFull, err := filepath.Abs(full)
	if err != nil {
		return "", exception.IO(moduleName, "failed to resolve object path", err)
	}
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(os.PathSeparator)) {
		return "", exception.Newf(exception.KindIO, moduleName, "object name %q escapes the base directory", objectName)
	}
	return full, nil
}
