// Package location reads the static list of tracked geographic points.
package location

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/datamesa/weatheretl/internal/support/exception"
)

const moduleName = "location"

// Location is one tracked geographic point.
type Location struct {
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Query renders the location as the provider's "lat, lon" query value.
func (l Location) Query() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + ", " + strconv.FormatFloat(l.Lon, 'f', -1, 64)
}

type locationsFile struct {
	Locations []Location `json:"locations"`
}

// Load reads the locations file at path. The file must be a JSON document
// with a top-level "locations" array of {lat, lon} objects.
func Load(path string) ([]Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.Configuration(moduleName, "failed to read locations file "+path, err)
	}

	var file locationsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, exception.Configuration(moduleName, "failed to parse locations file "+path, err)
	}
	if file.Locations == nil {
		return nil, exception.Configuration(moduleName, `locations file `+path+` is missing the "locations" key`, nil)
	}

	var invalid *multierror.Error
	for i, loc := range file.Locations {
		if err := validate(loc); err != nil {
			invalid = multierror.Append(invalid, fmt.Errorf("location at index %d: %w", i, err))
		}
	}
	if err := invalid.ErrorOrNil(); err != nil {
		return nil, exception.Configuration(moduleName, "locations file "+path+" contains invalid entries", err)
	}
	return file.Locations, nil
}

func validate(loc Location) error {
	switch {
	case math.IsNaN(loc.Lat) || math.IsNaN(loc.Lon):
		return exception.Configuration(moduleName, "coordinates must be numeric", nil)
	case loc.Lat < -90 || loc.Lat > 90:
		return exception.Newf(exception.KindConfiguration, moduleName, "latitude %v out of range", loc.Lat)
	case loc.Lon < -180 || loc.Lon > 180:
		return exception.Newf(exception.KindConfiguration, moduleName, "longitude %v out of range", loc.Lon)
	}
	return nil
}
