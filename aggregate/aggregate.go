// Package aggregate computes the KPIs, frequency tables and summaries shown on
// the dashboard. Every function is a pure function of a filtered view.
package aggregate

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/samber/lo"

	"calls_dashboard/dataset"
)

// ErrNoData is returned by Mode and TopN when the view is empty.
var ErrNoData = errors.New("no data available")

// Bucket is one row of a frequency table.
type Bucket[K cmp.Ordered] struct {
	Key   K   `json:"key"`
	Count int `json:"count"`
}

// Share is a bucket with its percentage of the total.
type Share[K cmp.Ordered] struct {
	Key     K       `json:"key"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Key extractors for the grouping columns.
var (
	ByReason = func(r dataset.CallRecord) string { return r.Reason }
	ByCity   = func(r dataset.CallRecord) string { return r.Township }
	ByTitle  = func(r dataset.CallRecord) string { return r.Title }
	ByYear   = func(r dataset.CallRecord) int { return r.Year }
	ByMonth  = func(r dataset.CallRecord) int { return r.Month }
	ByHour   = func(r dataset.CallRecord) int { return r.Hour }
	ByDay    = func(r dataset.CallRecord) int { return r.Day }
)

// TotalCount is the number of records in the view.
func TotalCount(view []dataset.CallRecord) int {
	return len(view)
}

// Count tallies key(r) over the view.
func Count[K cmp.Ordered](view []dataset.CallRecord, key func(dataset.CallRecord) K) map[K]int {
	return lo.CountValuesBy(view, key)
}

// Mode returns the most frequent key and its count. Ties go to the smallest
// key in ascending order.
func Mode[K cmp.Ordered](view []dataset.CallRecord, key func(dataset.CallRecord) K) (K, int, error) {
	var best K
	if len(view) == 0 {
		return best, 0, ErrNoData
	}
	bestCount := 0
	for k, c := range Count(view, key) {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best, bestCount, nil
}

// TopN returns the n most frequent keys, count descending and ties by
// ascending key. n <= 0 returns every key.
func TopN[K cmp.Ordered](view []dataset.CallRecord, key func(dataset.CallRecord) K, n int) ([]Bucket[K], error) {
	if len(view) == 0 {
		return nil, ErrNoData
	}
	buckets := ValueCounts(view, key)
	if n > 0 && n < len(buckets) {
		buckets = buckets[:n]
	}
	return buckets, nil
}

// ValueCounts is the full frequency table ordered like TopN. An empty view
// gives an empty table.
func ValueCounts[K cmp.Ordered](view []dataset.CallRecord, key func(dataset.CallRecord) K) []Bucket[K] {
	buckets := toBuckets(Count(view, key))
	slices.SortFunc(buckets, byCountDesc[K])
	return buckets
}

// GroupCount is the full frequency table ordered by ascending key.
func GroupCount[K cmp.Ordered](view []dataset.CallRecord, key func(dataset.CallRecord) K) []Bucket[K] {
	buckets := toBuckets(Count(view, key))
	slices.SortFunc(buckets, func(a, b Bucket[K]) int { return cmp.Compare(a.Key, b.Key) })
	return buckets
}

// Shares is ValueCounts with each bucket's percentage of the view.
func Shares[K cmp.Ordered](view []dataset.CallRecord, key func(dataset.CallRecord) K) []Share[K] {
	buckets := ValueCounts(view, key)
	out := make([]Share[K], 0, len(buckets))
	total := float64(len(view))
	for _, b := range buckets {
		out = append(out, Share[K]{Key: b.Key, Count: b.Count, Percent: 100 * float64(b.Count) / total})
	}
	return out
}

func toBuckets[K cmp.Ordered](counts map[K]int) []Bucket[K] {
	buckets := make([]Bucket[K], 0, len(counts))
	for k, c := range counts {
		buckets = append(buckets, Bucket[K]{Key: k, Count: c})
	}
	return buckets
}

func byCountDesc[K cmp.Ordered](a, b Bucket[K]) int {
	if c := cmp.Compare(b.Count, a.Count); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}

// Column names a grouping column.
type Column string

const (
	ColReason Column = "reason"
	ColCity   Column = "city"
	ColYear   Column = "year"
	ColMonth  Column = "month"
	ColHour   Column = "hour"
	ColDay    Column = "day"
	ColTitle  Column = "title"
)

// Columns lists every grouping column.
var Columns = []Column{ColReason, ColCity, ColYear, ColMonth, ColHour, ColDay, ColTitle}

// ParseColumn validates a column name.
func ParseColumn(name string) (Column, error) {
	col := Column(name)
	if slices.Contains(Columns, col) {
		return col, nil
	}
	return "", fmt.Errorf("unknown column %q", name)
}

// Numeric reports whether the column holds integer keys.
func (c Column) Numeric() bool {
	switch c {
	case ColYear, ColMonth, ColHour, ColDay:
		return true
	}
	return false
}

// ColumnCounts is ValueCounts for a column chosen at runtime. Integer keys are
// ordered numerically before being rendered as strings.
func ColumnCounts(view []dataset.CallRecord, col Column) ([]Bucket[string], error) {
	var ints func(dataset.CallRecord) int
	switch col {
	case ColReason:
		return ValueCounts(view, ByReason), nil
	case ColCity:
		return ValueCounts(view, ByCity), nil
	case ColTitle:
		return ValueCounts(view, ByTitle), nil
	case ColYear:
		ints = ByYear
	case ColMonth:
		ints = ByMonth
	case ColHour:
		ints = ByHour
	case ColDay:
		ints = ByDay
	default:
		return nil, fmt.Errorf("unknown column %q", col)
	}
	counts := ValueCounts(view, ints)
	out := make([]Bucket[string], len(counts))
	for i, b := range counts {
		out[i] = Bucket[string]{Key: strconv.Itoa(b.Key), Count: b.Count}
	}
	return out, nil
}
