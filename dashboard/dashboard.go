// Package dashboard runs one synchronous recompute: a Selection is applied to
// the loaded dataset and every widget's data is derived from the result.
package dashboard

import (
	"errors"
	"math/rand/v2"

	"calls_dashboard/aggregate"
	"calls_dashboard/dataset"
	"calls_dashboard/filter"
	"calls_dashboard/formatting"
)

// Settings bounds the size of the computed view.
type Settings struct {
	TopCities   int
	SampleSize  int
	PreviewRows int
	// Rand drives the display sample. Nil uses the global source.
	Rand *rand.Rand
}

// DefaultSettings mirrors the stock dashboard layout.
func DefaultSettings() Settings {
	return Settings{TopCities: 10, SampleSize: 1000, PreviewRows: 100}
}

// Stat is a KPI derived from a mode. NoData is set when the view is empty.
type Stat struct {
	Value  string `json:"value"`
	Count  int    `json:"count"`
	NoData bool   `json:"no_data"`
}

// KPIs are the four headline numbers.
type KPIs struct {
	TotalCalls          int    `json:"total_calls"`
	TotalCallsLabel     string `json:"total_calls_label"`
	MostCommonEmergency Stat   `json:"most_common_emergency"`
	TopCity             Stat   `json:"top_city"`
	PeakHour            Stat   `json:"peak_hour"`
}

// DayCount is one weekday of the calls-by-day series.
type DayCount struct {
	Day   int    `json:"day"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Trends holds the data behind the trend charts.
type Trends struct {
	TopCities  []aggregate.Bucket[string] `json:"top_cities"`
	Years      []aggregate.Bucket[int]    `json:"years"`
	Reasons    []aggregate.Share[string]  `json:"reasons"`
	Hours      []aggregate.Bucket[int]    `json:"hours"`
	Days       []DayCount                 `json:"days"`
	HourSample []int                      `json:"hour_sample"`
	HourBox    aggregate.BoxSummary       `json:"hour_box"`
}

// Stats are the descriptive statistics tables.
type Stats struct {
	Numeric     []aggregate.NumericSummary     `json:"numeric"`
	Categorical []aggregate.CategoricalSummary `json:"categorical"`
}

// View is everything the dashboard renders for one Selection.
type View struct {
	Selection filter.Selection     `json:"selection"`
	NoData    bool                 `json:"no_data"`
	KPIs      KPIs                 `json:"kpis"`
	Trends    Trends               `json:"trends"`
	Map       []aggregate.Point    `json:"map"`
	Stats     Stats                `json:"stats"`
	Preview   []dataset.CallRecord `json:"preview"`
}

// Build filters ds by sel and computes the full View.
func Build(ds *dataset.Dataset, sel filter.Selection, s Settings) View {
	return FromRecords(filter.Apply(ds, sel), sel, s)
}

// FromRecords computes the View of an already filtered record set.
func FromRecords(view []dataset.CallRecord, sel filter.Selection, s Settings) View {
	sample := aggregate.SampleForDisplay(view, s.SampleSize, s.Rand)
	hourSample := make([]int, len(sample))
	for i, r := range sample {
		hourSample[i] = r.Hour
	}

	top, err := aggregate.TopN(view, aggregate.ByCity, s.TopCities)
	if errors.Is(err, aggregate.ErrNoData) {
		top = []aggregate.Bucket[string]{}
	}

	return View{
		Selection: sel,
		NoData:    len(view) == 0,
		KPIs:      buildKPIs(view),
		Trends: Trends{
			TopCities:  top,
			Years:      aggregate.GroupCount(view, aggregate.ByYear),
			Reasons:    aggregate.Shares(view, aggregate.ByReason),
			Hours:      aggregate.GroupCount(view, aggregate.ByHour),
			Days:       dayCounts(view),
			HourSample: hourSample,
			HourBox:    aggregate.BoxStats(aggregate.HourValues(sample)),
		},
		Map: aggregate.MapPoints(view),
		Stats: Stats{
			Numeric:     aggregate.DescribeNumeric(view),
			Categorical: aggregate.DescribeCategorical(view),
		},
		Preview: aggregate.Preview(view, s.PreviewRows),
	}
}

func buildKPIs(view []dataset.CallRecord) KPIs {
	total := aggregate.TotalCount(view)
	k := KPIs{
		TotalCalls:      total,
		TotalCallsLabel: formatting.FormatCount(total),
	}
	k.MostCommonEmergency = modeStat(view, aggregate.ByReason, identity)
	k.TopCity = modeStat(view, aggregate.ByCity, identity)
	k.PeakHour = modeStat(view, aggregate.ByHour, formatting.FormatPeakHour)
	return k
}

func identity(s string) string { return s }

func modeStat[K int | string](view []dataset.CallRecord, key func(dataset.CallRecord) K, label func(K) string) Stat {
	v, n, err := aggregate.Mode(view, key)
	if err != nil {
		return Stat{NoData: true}
	}
	return Stat{Value: label(v), Count: n}
}

func dayCounts(view []dataset.CallRecord) []DayCount {
	groups := aggregate.GroupCount(view, aggregate.ByDay)
	out := make([]DayCount, len(groups))
	for i, g := range groups {
		out[i] = DayCount{Day: g.Key, Name: formatting.DayName(g.Key), Count: g.Count}
	}
	return out
}
