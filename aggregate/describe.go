package aggregate

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"calls_dashboard/dataset"
)

// NumericSummary describes one numeric column. Statistics that are undefined
// for the available count are nil.
type NumericSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q25    *float64 `json:"25%"`
	Q50    *float64 `json:"50%"`
	Q75    *float64 `json:"75%"`
	Max    *float64 `json:"max"`
}

// CategoricalSummary describes one text column.
type CategoricalSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Unique int     `json:"unique"`
	Top    *string `json:"top"`
	Freq   int     `json:"freq"`
}

type numericColumn struct {
	name  string
	value func(dataset.CallRecord) (float64, bool)
}

func intColumn(name string, key func(dataset.CallRecord) int) numericColumn {
	return numericColumn{name: name, value: func(r dataset.CallRecord) (float64, bool) {
		return float64(key(r)), true
	}}
}

var numericColumns = []numericColumn{
	{name: dataset.ColLatitude, value: func(r dataset.CallRecord) (float64, bool) {
		if r.Latitude == nil {
			return 0, false
		}
		return *r.Latitude, true
	}},
	{name: dataset.ColLongitude, value: func(r dataset.CallRecord) (float64, bool) {
		if r.Longitude == nil {
			return 0, false
		}
		return *r.Longitude, true
	}},
	intColumn("Year", ByYear),
	intColumn("Month", ByMonth),
	intColumn("Hour", ByHour),
	intColumn("Day", ByDay),
}

var categoricalColumns = []struct {
	name string
	key  func(dataset.CallRecord) string
}{
	{dataset.ColTitle, ByTitle},
	{dataset.ColTownship, ByCity},
	{"Reason", ByReason},
}

// DescribeNumeric summarises latitude, longitude, Year, Month, Hour and Day.
// Absent coordinates are left out of their column.
func DescribeNumeric(view []dataset.CallRecord) []NumericSummary {
	out := make([]NumericSummary, 0, len(numericColumns))
	for _, col := range numericColumns {
		values := make([]float64, 0, len(view))
		for _, r := range view {
			if v, ok := col.value(r); ok {
				values = append(values, v)
			}
		}
		out = append(out, summarize(col.name, values))
	}
	return out
}

func summarize(name string, values []float64) NumericSummary {
	s := NumericSummary{Column: name, Count: len(values)}
	if len(values) == 0 {
		return s
	}
	slices.Sort(values)
	s.Mean = ptr(stat.Mean(values, nil))
	if len(values) > 1 {
		s.Std = ptr(stat.StdDev(values, nil))
	}
	s.Min = ptr(values[0])
	s.Q25 = ptr(Quantile(values, 0.25))
	s.Q50 = ptr(Quantile(values, 0.5))
	s.Q75 = ptr(Quantile(values, 0.75))
	s.Max = ptr(values[len(values)-1])
	return s
}

// Quantile interpolates linearly between the closest ranks of sorted
// (h = p*(n-1)). sorted must be ascending and non-empty.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := p * float64(len(sorted)-1)
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// DescribeCategorical reports count, distinct values and the most frequent
// value of title, township and Reason.
func DescribeCategorical(view []dataset.CallRecord) []CategoricalSummary {
	out := make([]CategoricalSummary, 0, len(categoricalColumns))
	for _, col := range categoricalColumns {
		s := CategoricalSummary{Column: col.name, Count: len(view), Unique: len(Count(view, col.key))}
		if top, freq, err := Mode(view, col.key); err == nil {
			s.Top = &top
			s.Freq = freq
		}
		out = append(out, s)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
