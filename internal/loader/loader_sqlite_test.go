package loader_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/datamesa/weatheretl/internal/config"
	"github.com/datamesa/weatheretl/internal/forecast"
	"github.com/datamesa/weatheretl/internal/loader"
)

// setupSqliteLoader opens an in-memory database with the destination table
// already created, so upserts run against a real engine instead of scripted
// statements.
func setupSqliteLoader(t *testing.T) (*loader.Loader, *gorm.DB) {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	require.NoError(t, gormDB.Exec(`CREATE TABLE weather_history_forecast (
		snapshot_time datetime,
		latitude real,
		longitude real,
		temperature real,
		wind_speed real,
		PRIMARY KEY (latitude, longitude, snapshot_time)
	)`).Error)

	l, err := loader.New(gormDB, config.DatabaseConfig{
		Type:       "sqlite",
		Table:      "weather_history_forecast",
		KeyColumns: []string{"latitude", "longitude", "snapshot_time"},
	})
	require.NoError(t, err)
	return l, gormDB
}

func temperatureAt(t *testing.T, gormDB *gorm.DB, ts time.Time) float64 {
	t.Helper()
	var temperature float64
	require.NoError(t, gormDB.Raw(
		"SELECT temperature FROM weather_history_forecast WHERE snapshot_time = ?", ts,
	).Scan(&temperature).Error)
	return temperature
}

func destinationCount(t *testing.T, gormDB *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, gormDB.Table("weather_history_forecast").Count(&count).Error)
	return count
}

func TestUpsertIsIdempotent(t *testing.T) {
	l, gormDB := setupSqliteLoader(t)
	ctx := context.Background()

	ts1 := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	ts2 := time.Date(2024, 11, 22, 11, 0, 0, 0, time.UTC)

	// Seed a pre-existing row sharing the first record's key with stale values.
	require.NoError(t, gormDB.Table("weather_history_forecast").Create(&forecast.Record{
		SnapshotTime: ts1,
		Latitude:     40.7128,
		Longitude:    -74.0060,
		Temperature:  1.0,
		WindSpeed:    0.5,
	}).Error)

	batch := forecast.NewTable([]forecast.Record{
		{SnapshotTime: ts1, Latitude: 40.7128, Longitude: -74.0060, Temperature: 21.5, WindSpeed: 5.2},
		{SnapshotTime: ts2, Latitude: 40.7128, Longitude: -74.0060, Temperature: 20.9, WindSpeed: 4.8},
	})

	require.NoError(t, l.Upsert(ctx, batch))

	// The matched row updated in place, the new row inserted.
	assert.Equal(t, int64(2), destinationCount(t, gormDB))
	assert.Equal(t, 21.5, temperatureAt(t, gormDB, ts1))
	assert.Equal(t, 20.9, temperatureAt(t, gormDB, ts2))

	// A second run of the same batch must leave the destination unchanged.
	require.NoError(t, l.Upsert(ctx, batch))

	assert.Equal(t, int64(2), destinationCount(t, gormDB))
	assert.Equal(t, 21.5, temperatureAt(t, gormDB, ts1))
	assert.Equal(t, 20.9, temperatureAt(t, gormDB, ts2))
}

func TestUpsertPreservesUnrelatedRows(t *testing.T) {
	l, gormDB := setupSqliteLoader(t)
	ctx := context.Background()

	other := time.Date(2024, 11, 21, 9, 0, 0, 0, time.UTC)
	require.NoError(t, gormDB.Table("weather_history_forecast").Create(&forecast.Record{
		SnapshotTime: other,
		Latitude:     51.5074,
		Longitude:    -0.1278,
		Temperature:  12.1,
		WindSpeed:    8.3,
	}).Error)

	batch := forecast.NewTable([]forecast.Record{
		{SnapshotTime: other, Latitude: 40.7128, Longitude: -74.0060, Temperature: 18.0, WindSpeed: 3.1},
	})
	require.NoError(t, l.Upsert(ctx, batch))

	// Rows with a different key are untouched.
	assert.Equal(t, int64(2), destinationCount(t, gormDB))
	var temperature float64
	require.NoError(t, gormDB.Raw(
		"SELECT temperature FROM weather_history_forecast WHERE latitude = ?", 51.5074,
	).Scan(&temperature).Error)
	assert.Equal(t, 12.1, temperature)
}
