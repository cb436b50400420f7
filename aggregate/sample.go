package aggregate

import (
	"math/rand/v2"
	"slices"

	"calls_dashboard/dataset"
)

// SampleForDisplay draws min(n, len(view)) records without replacement and
// returns them in view order. rng may be nil.
func SampleForDisplay(view []dataset.CallRecord, n int, rng *rand.Rand) []dataset.CallRecord {
	if n <= 0 || len(view) == 0 {
		return []dataset.CallRecord{}
	}
	if n >= len(view) {
		return slices.Clone(view)
	}
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	idx := make([]int, len(view))
	for i := range idx {
		idx[i] = i
	}
	// Partial Fisher-Yates: the first n slots end up a uniform sample.
	for i := 0; i < n; i++ {
		j := i + intN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	picked := idx[:n]
	slices.Sort(picked)
	out := make([]dataset.CallRecord, n)
	for i, k := range picked {
		out[i] = view[k]
	}
	return out
}

// BoxSummary is the five-number summary drawn by a box plot. Whiskers reach
// the furthest values within 1.5 IQR of the box.
type BoxSummary struct {
	N            int       `json:"n"`
	Min          float64   `json:"min"`
	Q1           float64   `json:"q1"`
	Median       float64   `json:"median"`
	Q3           float64   `json:"q3"`
	Max          float64   `json:"max"`
	LowerWhisker float64   `json:"lower_whisker"`
	UpperWhisker float64   `json:"upper_whisker"`
	Outliers     []float64 `json:"outliers"`
}

// BoxStats summarises values. An empty input gives a zero summary.
func BoxStats(values []float64) BoxSummary {
	if len(values) == 0 {
		return BoxSummary{Outliers: []float64{}}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	b := BoxSummary{
		N:      len(sorted),
		Min:    sorted[0],
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
	iqr := b.Q3 - b.Q1
	lo, hi := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.LowerWhisker, b.UpperWhisker = b.Median, b.Median
	b.Outliers = []float64{}
	for _, v := range sorted {
		if v < lo || v > hi {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.LowerWhisker = min(b.LowerWhisker, v)
		b.UpperWhisker = max(b.UpperWhisker, v)
	}
	return b
}

// HourValues extracts Hour as floats for BoxStats and plotting.
func HourValues(view []dataset.CallRecord) []float64 {
	out := make([]float64, len(view))
	for i, r := range view {
		out[i] = float64(r.Hour)
	}
	return out
}

// Point is one mappable call location.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// MapPoints returns the coordinates of every record that has both.
func MapPoints(view []dataset.CallRecord) []Point {
	out := make([]Point, 0, len(view))
	for _, r := range view {
		if !r.HasCoordinates() {
			continue
		}
		out = append(out, Point{Latitude: *r.Latitude, Longitude: *r.Longitude})
	}
	return out
}

// Preview returns the first n records of the view.
func Preview(view []dataset.CallRecord, n int) []dataset.CallRecord {
	if n <= 0 {
		return []dataset.CallRecord{}
	}
	out := make([]dataset.CallRecord, min(n, len(view)))
	copy(out, view)
	return out
}
