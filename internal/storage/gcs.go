package storage

import (
	"context"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"
	"github.com/mitchellh/mapstructure"
	"google.golang.org/api/option"

	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

type gcsOptions struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// gcsSink writes snapshot objects into a GCS bucket, optionally under a
// prefix.
type gcsSink struct {
	client *gcs.Client
	bucket string
	prefix string
}

var _ Sink = (*gcsSink)(nil)

func newGCSSink(ctx context.Context, properties map[string]interface{}) (Sink, error) {
	var opts gcsOptions
	if err := mapstructure.Decode(properties, &opts); err != nil {
		return nil, exception.Configuration(moduleName, "failed to decode gcs storage properties", err)
	}
	if opts.Bucket == "" {
		return nil, exception.Configuration(moduleName, "gcs storage requires a bucket property", nil)
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, exception.IO(moduleName, "failed to create GCS client", err)
	}
	return &gcsSink{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *gcsSink) Put(ctx context.Context, objectName string, data io.Reader) error {
	name := s.objectPath(objectName)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return exception.IO(moduleName, "failed to upload gs://"+s.bucket+"/"+name, err)
	}
	if err := w.Close(); err != nil {
		return exception.IO(moduleName, "failed to finalize gs://"+s.bucket+"/"+name, err)
	}
	logger.Debugf("Uploaded object to gs://%s/%s.", s.bucket, name)
	return nil
}

func (s *gcsSink) Get(ctx context.Context, objectName string) (io.ReadCloser, error) {
	name := s.objectPath(objectName)
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return nil, exception.IO(moduleName, "failed to open gs://"+s.bucket+"/"+name, err)
	}
	return r, nil
}

func (s *gcsSink) Name() string {
	return "gcs:" + s.bucket
}

func (s *gcsSink) Close() error {
	return s.client.Close()
}

func (s *gcsSink) objectPath(objectName string) string {
	if s.prefix == "" {
		return objectName
	}
	return path.Join(s.prefix, objectName)
}
