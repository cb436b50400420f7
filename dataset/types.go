package dataset

import (
	"iter"
	"slices"
	"time"

	"calls_dashboard/formatting"
)

// Required input columns, in the order the CSV export writes them.
const (
	ColTimestamp = "timestamp"
	ColTitle     = "title"
	ColTownship  = "township"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
)

// RequiredColumns lists the columns every source must carry.
var RequiredColumns = []string{ColTimestamp, ColTitle, ColTownship, ColLatitude, ColLongitude}

// RawRow is one row of the source table before preparation.
type RawRow struct {
	Timestamp string
	Title     string
	Township  string
	Latitude  *float64
	Longitude *float64
}

// CallRecord is one prepared emergency call. Derived fields are filled once at load.
type CallRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Township  string    `json:"township"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`

	Year   int    `json:"Year"`
	Month  int    `json:"Month"`
	Hour   int    `json:"Hour"`
	Day    int    `json:"Day"`
	Reason string `json:"Reason"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (r CallRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Dataset is the prepared, read-only call table shared by every session.
type Dataset struct {
	records  []CallRecord
	source   string
	loadedAt time.Time
}

// New wraps already prepared records. The slice is copied.
func New(records []CallRecord, source string) *Dataset {
	return &Dataset{
		records:  slices.Clone(records),
		source:   source,
		loadedAt: time.Now().UTC(),
	}
}

// Uncategorized counts records whose title has no colon, so their Reason is
// the whole title.
func (d *Dataset) Uncategorized() int {
	n := 0
	for _, r := range d.records {
		if !formatting.HasReasonPrefix(r.Title) {
			n++
		}
	}
	return n
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// At returns a copy of the i-th record.
func (d *Dataset) At(i int) CallRecord { return d.records[i] }

// All iterates the records in load order.
func (d *Dataset) All() iter.Seq[CallRecord] {
	return func(yield func(CallRecord) bool) {
		for _, r := range d.records {
			if !yield(r) {
				return
			}
		}
	}
}

// Records returns a copy of every record in load order.
func (d *Dataset) Records() []CallRecord { return slices.Clone(d.records) }

// Source describes where the records were loaded from.
func (d *Dataset) Source() string { return d.source }

// LoadedAt is when preparation finished.
func (d *Dataset) LoadedAt() time.Time { return d.loadedAt }
