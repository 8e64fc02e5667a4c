package forecast

import (
	"context"
	"time"

	"github.com/datamesa/weatheretl/internal/location"
	"github.com/datamesa/weatheretl/internal/support/exception"
	"github.com/datamesa/weatheretl/internal/support/logger"
	"github.com/datamesa/weatheretl/internal/tomorrow"
)

// Relative window tokens understood by the provider, used when no snapshot
// time is given. The window is deliberately asymmetric: a short look-back for
// history and a long look-forward for forecast.
const (
	defaultStartToken = "nowMinus1h"
	defaultEndToken   = "nowPlus5d"

	lookBack    = time.Hour
	lookForward = 5 * 24 * time.Hour
)

// snapshotTimeLayouts are the accepted snapshot-time formats, tried in order.
var snapshotTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

// ComputeWindow derives the fetch window from an optional snapshot time.
// Empty input yields the provider's relative tokens; otherwise the window is
// rendered as absolute RFC 3339 instants around the parsed snapshot time.
func ComputeWindow(snapshotTime string) (tomorrow.Window, error) {
	if snapshotTime == "" {
		return tomorrow.Window{Start: defaultStartToken, End: defaultEndToken}, nil
	}

	var ts time.Time
	var err error
	for _, layout := range snapshotTimeLayouts {
		if ts, err = time.Parse(layout, snapshotTime); err == nil {
			break
		}
	}
	if err != nil {
		return tomorrow.Window{}, exception.Newf(exception.KindConfiguration, moduleName, "invalid snapshot time %q", snapshotTime, err)
	}

	return tomorrow.Window{
		Start: ts.Add(-lookBack).UTC().Format(time.RFC3339),
		End:   ts.Add(lookForward).UTC().Format(time.RFC3339),
	}, nil
}

// Fetcher is the provider-facing dependency of the assembler.
type Fetcher interface {
	Fetch(ctx context.Context, locations []location.Location, window tomorrow.Window) ([]tomorrow.Observation, error)
}

// Assembler drives the fetch/transform chain across all locations and
// produces one canonical table per run.
type Assembler struct {
	fetcher Fetcher
}

// NewAssembler creates an Assembler over the given fetcher.
func NewAssembler(fetcher Fetcher) *Assembler {
	return &Assembler{fetcher: fetcher}
}

// Assemble fetches all locations for the window derived from snapshotTime and
// returns the assembled table. Any collaborator failure aborts the run; there
// is no partial result.
//
// Records sharing a (latitude, longitude, snapshot_time) key are collapsed to
// the last one fetched, keeping the merge step unambiguous.
func (a *Assembler) Assemble(ctx context.Context, locations []location.Location, snapshotTime string) (*Table, error) {
	window, err := ComputeWindow(snapshotTime)
	if err != nil {
		return nil, err
	}

	observations, err := a.fetcher.Fetch(ctx, locations, window)
	if err != nil {
		return nil, err
	}

	type key struct {
		lat, lon float64
		ts       int64
	}
	var records []Record
	seen := make(map[key]int)
	for _, obs := range observations {
		record, err := Normalize(Transform(obs.Interval, obs.Location))
		if err != nil {
			return nil, err
		}
		k := key{lat: record.Latitude, lon: record.Longitude, ts: record.SnapshotTime.UnixMilli()}
		if idx, ok := seen[k]; ok {
			records[idx] = record
			continue
		}
		seen[k] = len(records)
		records = append(records, record)
	}

	logger.Infof("Assembled %d weather records across %d locations.", len(records), len(locations))
	return NewTable(records), nil
}
