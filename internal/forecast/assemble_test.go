package forecast_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesa/weatheretl/internal/forecast"
	"github.com/datamesa/weatheretl/internal/location"
	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/tomorrow"
)

type fakeFetcher struct {
	observations []tomorrow.Observation
	err          error
	gotWindow    tomorrow.Window
}

func (f *fakeFetcher) Fetch(ctx context.Context, locations []location.Location, window tomorrow.Window) ([]tomorrow.Observation, error) {
	f.gotWindow = window
	return f.observations, f.err
}

func TestComputeWindowDefaultTokens(t *testing.T) {
	window, err := forecast.ComputeWindow("")
	require.NoError(t, err)

	assert.Equal(t, tomorrow.Window{Start: "nowMinus1h", End: "nowPlus5d"}, window)
}

func TestComputeWindowAbsolute(t *testing.T) {
	window, err := forecast.ComputeWindow("2024-01-10T00:00:00Z")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-09T23:00:00Z", window.Start)
	assert.Equal(t, "2024-01-15T00:00:00Z", window.End)
}

func TestComputeWindowNaiveTimestamp(t *testing.T) {
	window, err := forecast.ComputeWindow("2024-01-10T12:30:00")
	require.NoError(t, err)

	assert.Equal(t, "2024-01-10T11:30:00Z", window.Start)
	assert.Equal(t, "2024-01-15T12:30:00Z", window.End)
}

func TestComputeWindowInvalid(t *testing.T) {
	_, err := forecast.ComputeWindow("not-a-time")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindConfiguration))
}

func TestAssemble(t *testing.T) {
	loc := location.Location{Lat: 40.7128, Lon: -74.0060}
	fetcher := &fakeFetcher{observations: []tomorrow.Observation{
		{
			Interval: tomorrow.Interval{StartTime: "2024-11-22T10:00:00Z", Values: tomorrow.Values{Temperature: 21.5, WindSpeed: 5.2}},
			Location: loc,
		},
		{
			Interval: tomorrow.Interval{StartTime: "2024-11-22T11:00:00Z", Values: tomorrow.Values{Temperature: 20.9, WindSpeed: 4.8}},
			Location: loc,
		},
	}}

	table, err := forecast.NewAssembler(fetcher).Assemble(context.Background(), []location.Location{loc}, "")
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	records := table.Records()
	assert.Equal(t, time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC), records[0].SnapshotTime)
	assert.Equal(t, 21.5, records[0].Temperature)
	assert.Equal(t, tomorrow.Window{Start: "nowMinus1h", End: "nowPlus5d"}, fetcher.gotWindow)
}

func TestAssembleDeduplicatesByKeyLastWins(t *testing.T) {
	loc := location.Location{Lat: 1, Lon: 2}
	fetcher := &fakeFetcher{observations: []tomorrow.Observation{
		{
			Interval: tomorrow.Interval{StartTime: "2024-11-22T10:00:00Z", Values: tomorrow.Values{Temperature: 10}},
			Location: loc,
		},
		{
			Interval: tomorrow.Interval{StartTime: "2024-11-22T11:00:00Z", Values: tomorrow.Values{Temperature: 11}},
			Location: loc,
		},
		{
			Interval: tomorrow.Interval{StartTime: "2024-11-22T10:00:00Z", Values: tomorrow.Values{Temperature: 12}},
			Location: loc,
		},
	}}

	table, err := forecast.NewAssembler(fetcher).Assemble(context.Background(), []location.Location{loc}, "")
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	records := table.Records()
	// The duplicate key keeps its original position with the last value.
	assert.Equal(t, 12.0, records[0].Temperature)
	assert.Equal(t, 11.0, records[1].Temperature)
}

func TestAssembleEmptyResultKeepsColumns(t *testing.T) {
	table, err := forecast.NewAssembler(&fakeFetcher{}).Assemble(context.Background(), nil, "")
	require.NoError(t, err)

	assert.Equal(t, 0, table.Len())
	assert.Len(t, table.Columns(), 5)
}

func TestAssembleFetchFailureYieldsNoTable(t *testing.T) {
	fetcher := &fakeFetcher{err: exception.Upstream("fetcher", "API returned status 500", errors.New("boom"))}

	table, err := forecast.NewAssembler(fetcher).Assemble(context.Background(), []location.Location{{Lat: 1, Lon: 2}}, "")
	require.Error(t, err)
	assert.Nil(t, table)
	assert.True(t, exception.IsKind(err, exception.KindUpstream))
}

func TestAssembleBadIntervalTimestamp(t *testing.T) {
	fetcher := &fakeFetcher{observations: []tomorrow.Observation{
		{Interval: tomorrow.Interval{StartTime: "garbage"}, Location: location.Location{Lat: 1, Lon: 2}},
	}}

	_, err := forecast.NewAssembler(fetcher).Assemble(context.Background(), []location.Location{{Lat: 1, Lon: 2}}, "")
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindSchema))
}
