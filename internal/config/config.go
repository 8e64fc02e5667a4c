// Package config loads and holds the application configuration. Defaults are
// defined in code, overlaid by the embedded YAML file, then overridden by
// environment variables (optionally sourced from a .env file).
package config

import (
	"time"
)

// EmbeddedConfig holds the raw bytes of the embedded configuration file,
// typically passed in from main.go.
type EmbeddedConfig []byte

// WeatherConfig configures the weather provider client and fetch window.
type WeatherConfig struct {
	// APIEndpoint is the provider's timelines endpoint.
	APIEndpoint string `yaml:"api_endpoint"`
	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key"`
	// LocationsPath points at the JSON file listing the tracked locations.
	LocationsPath string `yaml:"locations_path"`
	// SnapshotTime, when set, anchors the fetch window at an absolute instant
	// (RFC 3339). Empty means the provider's relative window tokens are used.
	SnapshotTime string `yaml:"snapshot_time"`
	// Fields are the provider field names requested per interval.
	Fields []string `yaml:"fields"`
	// Units is the unit system requested from the provider.
	Units string `yaml:"units"`
	// Timestep is the interval granularity requested from the provider.
	Timestep string `yaml:"timestep"`
	// HTTPTimeoutSeconds bounds each outbound provider call.
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds"`
	// ExtraParams are additional query parameters merged into every request.
	ExtraParams map[string]string `yaml:"extra_params"`
}

// HTTPTimeout returns the per-request timeout as a duration.
func (c WeatherConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// DatabaseConfig configures the upsert destination.
type DatabaseConfig struct {
	// Type selects the dialect: "postgres", "mysql" or "sqlite".
	Type string `yaml:"type"`
	// URI is the driver connection string (DSN).
	URI string `yaml:"uri"`
	// Table is the destination table name.
	Table string `yaml:"table"`
	// Schema is the destination schema name. Ignored for sqlite.
	Schema string `yaml:"schema"`
	// MergeStrategy selects how rows reach the destination: "merge" for the
	// staging-table + MERGE sequence, "onconflict" for a direct upsert
	// statement. Empty picks the dialect default.
	MergeStrategy string `yaml:"merge_strategy"`
	// KeyColumns are the natural-key columns used for conflict resolution.
	KeyColumns []string `yaml:"key_columns"`
}

// SnapshotConfig configures the columnar snapshot sink.
type SnapshotConfig struct {
	// StorageType selects the sink backend: "local" or "gcs".
	StorageType string `yaml:"storage_type"`
	// FileName is the object name written within the sink.
	FileName string `yaml:"file_name"`
	// Compression is the parquet codec ("SNAPPY", "GZIP" or "NONE").
	Compression string `yaml:"compression"`
	// Properties holds backend-specific settings (e.g. base_dir for local,
	// bucket for gcs), bound by the storage adapter.
	Properties map[string]interface{} `yaml:"properties"`
}

// PipelineConfig configures the step runner and scheduler.
type PipelineConfig struct {
	// RunTimeoutSeconds bounds one full extract+load run. Zero disables the
	// deadline.
	RunTimeoutSeconds int `yaml:"run_timeout_seconds"`
	// FetchInterval is the scheduling interval for the `schedule` command.
	FetchInterval string `yaml:"fetch_interval"`
	// MetricsAddr is the listen address for the Prometheus endpoint in
	// schedule mode. Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// RunTimeout returns the per-run deadline as a duration.
func (c PipelineConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// Config is the root of the application configuration.
type Config struct {
	Weather  WeatherConfig  `yaml:"weather"`
	Database DatabaseConfig `yaml:"database"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	System   SystemConfig   `yaml:"system"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Weather: WeatherConfig{
			APIEndpoint:        "https://api.tomorrow.io/v4/timelines",
			LocationsPath:      "locations.json",
			Fields:             []string{"temperature", "windSpeed"},
			Units:              "metric",
			Timestep:           "1h",
			HTTPTimeoutSeconds: 10,
		},
		Database: DatabaseConfig{
			Type:       "postgres",
			Table:      "weather_history_forecast",
			Schema:     "bronze_data",
			KeyColumns: []string{"latitude", "longitude", "snapshot_time"},
		},
		Snapshot: SnapshotConfig{
			StorageType: "local",
			FileName:    "weather_data.parquet",
			Compression: "SNAPPY",
			Properties:  map[string]interface{}{"base_dir": "data"},
		},
		Pipeline: PipelineConfig{
			RunTimeoutSeconds: 300,
			FetchInterval:     "1h",
			MetricsAddr:       ":9464",
		},
		System: SystemConfig{
			Logging: LoggingConfig{Level: "INFO"},
		},
	}
}
