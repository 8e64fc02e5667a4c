package tomorrow

import (
	"github.com/datamesa/weatheretl/internal/location"
	"github.com/datamesa/weatheretl/internal/support/exception"
)

// Values carries the requested fields of one interval.
type Values struct {
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"windSpeed"`
}

// Interval is one hourly entry of a timeline.
type Interval struct {
	StartTime string `json:"startTime"`
	Values    Values `json:"values"`
}

// Observation pairs an interval with the location it was fetched for.
type Observation struct {
	Interval Interval
	Location location.Location
}

// Window is the fetch time window sent to the provider. Start and End are
// either absolute RFC 3339 timestamps or the provider's relative tokens
// ("nowMinus1h", "nowPlus5d").
type Window struct {
	Start string
	End   string
}

type timeline struct {
	Intervals []Interval `json:"intervals"`
}

type timelinesData struct {
	Timelines []timeline `json:"timelines"`
}

// timelinesResponse mirrors the provider's response envelope. Decoding is
// followed by an explicit shape check instead of blind path traversal.
type timelinesResponse struct {
	Data timelinesData `json:"data"`
}

// intervals validates the expected data.timelines[0].intervals path and
// returns its content.
func (r *timelinesResponse) intervals() ([]Interval, error) {
	if len(r.Data.Timelines) == 0 {
		return nil, exception.Schema(moduleName, "response is missing data.timelines", nil)
	}
	if r.Data.Timelines[0].Intervals == nil {
		return nil, exception.Schema(moduleName, "response is missing data.timelines[0].intervals", nil)
	}
	return r.Data.Timelines[0].Intervals, nil
}
