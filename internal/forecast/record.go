// Package forecast defines the canonical weather record shape and assembles
// fetched provider data into it.
package forecast

import (
	"time"
)

// Columns is the canonical column set, in canonical order. It is part of the
// external contract shared by the snapshot file and the destination table.
var Columns = []string{"snapshot_time", "latitude", "longitude", "temperature", "wind_speed"}

// Record is the canonical row persisted to both sinks.
type Record struct {
	SnapshotTime time.Time `gorm:"column:snapshot_time;primaryKey"`
	Latitude     float64   `gorm:"column:latitude;primaryKey"`
	Longitude    float64   `gorm:"column:longitude;primaryKey"`
	Temperature  float64   `gorm:"column:temperature"`
	WindSpeed    float64   `gorm:"column:wind_speed"`
}

// TableName returns the default destination table name.
func (Record) TableName() string {
	return "weather_history_forecast"
}

// FileRecord is the parquet representation of a Record. Timestamps are stored
// as epoch milliseconds per the TIMESTAMP_MILLIS converted type.
type FileRecord struct {
	SnapshotTime int64   `parquet:"name=snapshot_time,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	Latitude     float64 `parquet:"name=latitude,type=DOUBLE"`
	Longitude    float64 `parquet:"name=longitude,type=DOUBLE"`
	Temperature  float64 `parquet:"name=temperature,type=DOUBLE"`
	WindSpeed    float64 `parquet:"name=wind_speed,type=DOUBLE"`
}

// ToFileRecord converts a Record for parquet serialization.
func ToFileRecord(r Record) FileRecord {
	return FileRecord{
		SnapshotTime: r.SnapshotTime.UnixMilli(),
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		Temperature:  r.Temperature,
		WindSpeed:    r.WindSpeed,
	}
}

// FromFileRecord converts a parquet row back into a Record.
func FromFileRecord(f FileRecord) Record {
	return Record{
		SnapshotTime: time.UnixMilli(f.SnapshotTime).UTC(),
		Latitude:     f.Latitude,
		Longitude:    f.Longitude,
		Temperature:  f.Temperature,
		WindSpeed:    f.WindSpeed,
	}
}

// Table is an ordered collection of records with the fixed canonical column
// set, which it exposes even when empty.
type Table struct {
	records []Record
}

// NewTable builds a table over the given records, preserving their order.
func NewTable(records []Record) *Table {
	return &Table{records: records}
}

// Columns returns the canonical column names in canonical order.
func (t *Table) Columns() []string {
	cols := make([]string, len(Columns))
	copy(cols, Columns)
	return cols
}

// Records returns the table's rows in order.
func (t *Table) Records() []Record {
	return t.records
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.records)
}
