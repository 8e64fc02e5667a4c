package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/support/logger"
)

const moduleName = "config"

// LoadConfig builds the effective configuration: defaults, then the embedded
// YAML, then environment variables. It is expected to be called once during
// startup.
func LoadConfig(envFilePath string, embedded EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Debugf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	if len(embedded) > 0 {
		var yamlCfg Config
		if err := yaml.Unmarshal(embedded, &yamlCfg); err != nil {
			return nil, exception.Configuration(moduleName, "failed to unmarshal embedded config", err)
		}
		mergeConfig(cfg, &yamlCfg)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// mergeConfig overlays non-zero values from source onto dest.
func mergeConfig(dest, source *Config) {
	if source.Weather.APIEndpoint != "" {
		dest.Weather.APIEndpoint = source.Weather.APIEndpoint
	}
	if source.Weather.APIKey != "" {
		dest.Weather.APIKey = source.Weather.APIKey
	}
	if source.Weather.LocationsPath != "" {
		dest.Weather.LocationsPath = source.Weather.LocationsPath
	}
	if source.Weather.SnapshotTime != "" {
		dest.Weather.SnapshotTime = source.Weather.SnapshotTime
	}
	if len(source.Weather.Fields) > 0 {
		dest.Weather.Fields = source.Weather.Fields
	}
	if source.Weather.Units != "" {
		dest.Weather.Units = source.Weather.Units
	}
	if source.Weather.Timestep != "" {
		dest.Weather.Timestep = source.Weather.Timestep
	}
	if source.Weather.HTTPTimeoutSeconds != 0 {
		dest.Weather.HTTPTimeoutSeconds = source.Weather.HTTPTimeoutSeconds
	}
	if len(source.Weather.ExtraParams) > 0 {
		dest.Weather.ExtraParams = source.Weather.ExtraParams
	}

	if source.Database.Type != "" {
		dest.Database.Type = source.Database.Type
	}
	if source.Database.URI != "" {
		dest.Database.URI = source.Database.URI
	}
	if source.Database.Table != "" {
		dest.Database.Table = source.Database.Table
	}
	if source.Database.Schema != "" {
		dest.Database.Schema = source.Database.Schema
	}
	if source.Database.MergeStrategy != "" {
		dest.Database.MergeStrategy = source.Database.MergeStrategy
	}
	if len(source.Database.KeyColumns) > 0 {
		dest.Database.KeyColumns = source.Database.KeyColumns
	}

	if source.Snapshot.StorageType != "" {
		dest.Snapshot.StorageType = source.Snapshot.StorageType
	}
	if source.Snapshot.FileName != "" {
		dest.Snapshot.FileName = source.Snapshot.FileName
	}
	if source.Snapshot.Compression != "" {
		dest.Snapshot.Compression = source.Snapshot.Compression
	}
	if len(source.Snapshot.Properties) > 0 {
		dest.Snapshot.Properties = source.Snapshot.Properties
	}

	if source.Pipeline.RunTimeoutSeconds != 0 {
		dest.Pipeline.RunTimeoutSeconds = source.Pipeline.RunTimeoutSeconds
	}
	if source.Pipeline.FetchInterval != "" {
		dest.Pipeline.FetchInterval = source.Pipeline.FetchInterval
	}
	if source.Pipeline.MetricsAddr != "" {
		dest.Pipeline.MetricsAddr = source.Pipeline.MetricsAddr
	}

	if source.System.Logging.Level != "" {
		dest.System.Logging.Level = source.System.Logging.Level
	}
}

// applyEnvOverrides maps the process environment onto the configuration.
// The variable names follow the original deployment contract.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Weather.APIKey, "TOMORROW_API_KEY")
	setString(&cfg.Weather.SnapshotTime, "SNAPSHOT_TIME")
	setString(&cfg.Weather.APIEndpoint, "TOMORROW_API_ENDPOINT")
	setString(&cfg.Weather.LocationsPath, "LOCATIONS_PATH")
	setInt(&cfg.Weather.HTTPTimeoutSeconds, "HTTP_TIMEOUT")

	setString(&cfg.Database.URI, "POSTGRES_URI")
	setString(&cfg.Database.Type, "DB_TYPE")
	setString(&cfg.Database.Table, "TABLE")
	setString(&cfg.Database.Schema, "SCHEMA")
	setString(&cfg.Database.MergeStrategy, "MERGE_STRATEGY")

	setString(&cfg.Snapshot.StorageType, "SNAPSHOT_STORAGE")
	if v := os.Getenv("SNAPSHOT_DIR"); v != "" {
		if cfg.Snapshot.Properties == nil {
			cfg.Snapshot.Properties = map[string]interface{}{}
		}
		cfg.Snapshot.Properties["base_dir"] = v
	}

	setString(&cfg.Pipeline.FetchInterval, "FETCH_INTERVAL")
	setString(&cfg.Pipeline.MetricsAddr, "METRICS_ADDR")
	setInt(&cfg.Pipeline.RunTimeoutSeconds, "RUN_TIMEOUT")

	setString(&cfg.System.Logging.Level, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Warnf("Ignoring non-numeric value %q for %s.", v, key)
			return
		}
		*dst = n
	}
}
