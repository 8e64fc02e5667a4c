package location_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesa/weatheretl/internal/location"
	"github.com/datamesa/weatheretl/internal/support/exception"
)

func writeLocations(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeLocations(t, `{
		"locations": [
			{"name": "New York", "lat": 40.7128, "lon": -74.0060},
			{"lat": 51.5074, "lon": -0.1278}
		]
	}`)

	locations, err := location.Load(path)
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "New York", locations[0].Name)
	assert.Equal(t, 40.7128, locations[0].Lat)
	assert.Equal(t, "", locations[1].Name)
}

func TestLoadEmptyList(t *testing.T) {
	path := writeLocations(t, `{"locations": []}`)

	locations, err := location.Load(path)
	require.NoError(t, err)
	assert.Empty(t, locations)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := location.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeLocations(t, `{"locations": [`)

	_, err := location.Load(path)
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestLoadMissingLocationsKey(t *testing.T) {
	path := writeLocations(t, `{"places": []}`)

	_, err := location.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing the "locations" key`)
}

func TestLoadReportsAllInvalidEntries(t *testing.T) {
	path := writeLocations(t, `{
		"locations": [
			{"lat": 95.0, "lon": 0.0},
			{"lat": 0.0, "lon": -200.0},
			{"lat": 35.6762, "lon": 139.6503}
		]
	}`)

	_, err := location.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 0")
	assert.Contains(t, err.Error(), "index 1")
	assert.NotContains(t, err.Error(), "index 2")
}

func TestQuery(t *testing.T) {
	loc := location.Location{Lat: 40.7128, Lon: -74.006}
	assert.Equal(t, "40.7128, -74.006", loc.Query())
}
