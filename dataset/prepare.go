package dataset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"calls_dashboard/formatting"
)

// Options controls how raw values are interpreted.
type Options struct {
	// Location is used for timestamps without a zone. Defaults to UTC.
	Location *time.Location
	// TimestampLayout, if set, is tried before the built-in layouts.
	TimestampLayout string
}

var defaultLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
}

var errNoLayout = errors.New("no known timestamp layout matches")

// Prepare parses timestamps and derives the calendar and reason columns for
// every row. Any unparseable timestamp aborts the whole load.
func Prepare(rows []RawRow, source string, opts Options) (*Dataset, error) {
	parser := newTimestampParser(opts)
	records := make([]CallRecord, 0, len(rows))
	for i, row := range rows {
		ts, err := parser.parse(row.Timestamp)
		if err != nil {
			return nil, &ParseError{Row: i + 1, Column: ColTimestamp, Value: row.Timestamp, Err: err}
		}
		records = append(records, derive(ts, row))
	}
	return New(records, source), nil
}

func derive(ts time.Time, row RawRow) CallRecord {
	return CallRecord{
		Timestamp: ts,
		Title:     row.Title,
		Township:  row.Township,
		Latitude:  row.Latitude,
		Longitude: row.Longitude,
		Year:      ts.Year(),
		Month:     int(ts.Month()),
		Hour:      ts.Hour(),
		Day:       DayOfWeek(ts),
		Reason:    formatting.ExtractReason(row.Title),
	}
}

// DayOfWeek returns the weekday index with Monday=0 and Sunday=6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

type timestampParser struct {
	layouts []string
	loc     *time.Location
	last    int
}

func newTimestampParser(opts Options) *timestampParser {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	layouts := make([]string, 0, len(defaultLayouts)+1)
	if l := strings.TrimSpace(opts.TimestampLayout); l != "" {
		layouts = append(layouts, l)
	}
	layouts = append(layouts, defaultLayouts...)
	return &timestampParser{layouts: layouts, loc: loc}
}

// parse tries the layout that matched last time first; exports usually use a
// single layout throughout.
func (p *timestampParser) parse(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if ts, err := time.ParseInLocation(p.layouts[p.last], value, p.loc); err == nil {
		return ts, nil
	}
	for i, layout := range p.layouts {
		if i == p.last {
			continue
		}
		if ts, err := time.ParseInLocation(layout, value, p.loc); err == nil {
			p.last = i
			return ts, nil
		}
	}
	return time.Time{}, errNoLayout
}

// ParseCoordinate parses an optional latitude/longitude cell. Empty and
// NaN-style markers mean absent.
func ParseCoordinate(raw string) (*float64, error) {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "", "nan", "na", "n/a", "null", "<na>":
		return nil, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinate: %w", err)
	}
	return &v, nil
}
