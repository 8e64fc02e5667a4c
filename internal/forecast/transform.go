package forecast

import (
	"time"

	"github.com/datamesa/weatheretl/internal/location"
	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/tomorrow"
)

const moduleName = "forecast"

// Row is the flat transform output before type normalization. The timestamp
// is carried through as the provider's string; the assembler parses it.
type Row struct {
	Latitude     float64
	Longitude    float64
	SnapshotTime string
	Temperature  float64
	WindSpeed    float64
}

// Transform maps one provider interval and its originating location into the
// flat row shape. It is a pure function.
func Transform(iv tomorrow.Interval, loc location.Location) Row {
	return Row{
		Latitude:     loc.Lat,
		Longitude:    loc.Lon,
		SnapshotTime: iv.StartTime,
		Temperature:  iv.Values.Temperature,
		WindSpeed:    iv.Values.WindSpeed,
	}
}

// Normalize parses the row's timestamp and produces the typed canonical
// record.
func Normalize(row Row) (Record, error) {
	ts, err := time.Parse(time.RFC3339, row.SnapshotTime)
	if err != nil {
		return Record{}, exception.Newf(exception.KindSchema, moduleName, "invalid interval timestamp %q", row.SnapshotTime, err)
	}
	return Record{
		SnapshotTime: ts.UTC(),
		Latitude:     row.Latitude,
		Longitude:    row.Longitude,
		Temperature:  row.Temperature,
		WindSpeed:    row.WindSpeed,
	}, nil
}
