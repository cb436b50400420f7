// Package filter narrows the prepared call table to the records matching a
// user's Reason, City and Year choices.
package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"

	"calls_dashboard/dataset"
)

// Selection is one client's choice of Reasons, Cities and Years. A record
// passes only if all three of its values are selected; an empty dimension
// selects nothing.
type Selection struct {
	Reasons []string `json:"reasons"`
	Cities  []string `json:"cities"`
	Years   []int    `json:"years"`
}

// Options are the distinct values offered by each filter, taken from the
// unfiltered dataset so they never change while a session narrows its view.
type Options struct {
	Reasons []string `json:"reasons"`
	Cities  []string `json:"cities"`
	Years   []int    `json:"years"`
}

// BuildOptions collects the sorted distinct Reasons, Cities and Years.
func BuildOptions(ds *dataset.Dataset) Options {
	reasons := map[string]struct{}{}
	cities := map[string]struct{}{}
	years := map[int]struct{}{}
	for r := range ds.All() {
		reasons[r.Reason] = struct{}{}
		cities[r.Township] = struct{}{}
		years[r.Year] = struct{}{}
	}
	return Options{
		Reasons: sortedKeys(reasons),
		Cities:  sortedKeys(cities),
		Years:   sortedKeys(years),
	}
}

// Default returns the selection of every option, which passes every record.
func Default(opts Options) Selection {
	return Selection{
		Reasons: slices.Clone(opts.Reasons),
		Cities:  slices.Clone(opts.Cities),
		Years:   slices.Clone(opts.Years),
	}
}

// Clone returns a deep copy of s.
func (s Selection) Clone() Selection {
	return Selection{
		Reasons: slices.Clone(s.Reasons),
		Cities:  slices.Clone(s.Cities),
		Years:   slices.Clone(s.Years),
	}
}

// Empty reports whether any dimension selects nothing.
func (s Selection) Empty() bool {
	return len(s.Reasons) == 0 || len(s.Cities) == 0 || len(s.Years) == 0
}

// Apply returns the records of ds passing sel, in load order.
func Apply(ds *dataset.Dataset, sel Selection) []dataset.CallRecord {
	if sel.Empty() {
		return []dataset.CallRecord{}
	}
	reasons := toSet(sel.Reasons)
	cities := toSet(sel.Cities)
	years := toSet(sel.Years)

	out := make([]dataset.CallRecord, 0, ds.Len())
	for r := range ds.All() {
		if _, ok := reasons[r.Reason]; !ok {
			continue
		}
		if _, ok := cities[r.Township]; !ok {
			continue
		}
		if _, ok := years[r.Year]; !ok {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Matches reports whether a single record passes sel.
func Matches(r dataset.CallRecord, sel Selection) bool {
	return slices.Contains(sel.Reasons, r.Reason) &&
		slices.Contains(sel.Cities, r.Township) &&
		slices.Contains(sel.Years, r.Year)
}

// Search ranks values by fuzzy match against query, best first. A blank
// query returns every value in its original order.
func Search(values []string, query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return slices.Clone(values)
	}
	matches := fuzzy.Find(query, values)
	return lo.Map(matches, func(m fuzzy.Match, _ int) string { return m.Str })
}

func toSet[K comparable](values []K) map[K]struct{} {
	return lo.SliceToMap(values, func(v K) (K, struct{}) { return v, struct{}{} })
}

func sortedKeys[K cmp.Ordered](m map[K]struct{}) []K {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}
