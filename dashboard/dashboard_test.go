package dashboard

import (
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calls_dashboard/aggregate"
	"calls_dashboard/dataset"
	"calls_dashboard/filter"
)

func f(v float64) *float64 { return &v }

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	rows := []dataset.RawRow{
		{Timestamp: "2020-05-01 10:00:00", Title: "EMS: CARDIAC EMERGENCY", Township: "A", Latitude: f(40.1), Longitude: f(-75.2)},
		{Timestamp: "2020-06-01 10:30:00", Title: "EMS: FALL VICTIM", Township: "A"},
		{Timestamp: "2021-01-01 12:00:00", Title: "Fire: BUILDING FIRE", Township: "B", Latitude: f(40.3), Longitude: f(-75.4)},
		{Timestamp: "2021-01-02 07:00:00", Title: "Traffic: VEHICLE ACCIDENT", Township: "C", Latitude: f(40.2), Longitude: f(-75.1)},
	}
	ds, err := dataset.Prepare(rows, "test", dataset.Options{})
	require.NoError(t, err)
	return ds
}

func TestBuildExampleSelection(t *testing.T) {
	ds := testDataset(t)
	sel := filter.Selection{Reasons: []string{"EMS"}, Cities: []string{"A"}, Years: []int{2020}}
	v := Build(ds, sel, DefaultSettings())

	assert.False(t, v.NoData)
	assert.Equal(t, 2, v.KPIs.TotalCalls)
	assert.Equal(t, "2", v.KPIs.TotalCallsLabel)
	assert.Equal(t, Stat{Value: "EMS", Count: 2}, v.KPIs.MostCommonEmergency)
	assert.Equal(t, Stat{Value: "A", Count: 2}, v.KPIs.TopCity)
	assert.Equal(t, Stat{Value: "10:00", Count: 2}, v.KPIs.PeakHour)

	assert.Equal(t, []aggregate.Bucket[int]{{Key: 2020, Count: 2}}, v.Trends.Years)
	assert.Len(t, v.Trends.HourSample, 2)
	assert.Len(t, v.Map, 1)
	assert.Len(t, v.Preview, 2)
}

func TestBuildAllMatchesDataset(t *testing.T) {
	ds := testDataset(t)
	v := Build(ds, filter.Default(filter.BuildOptions(ds)), DefaultSettings())

	assert.Equal(t, ds.Len(), v.KPIs.TotalCalls)
	assert.Equal(t, ds.Records(), v.Preview)
	assert.Equal(t, []aggregate.Bucket[int]{{Key: 2020, Count: 2}, {Key: 2021, Count: 2}}, v.Trends.Years)
	assert.Equal(t, "A", v.Trends.TopCities[0].Key)
	assert.Len(t, v.Map, 3)

	// 2021-01-01 was a Friday, 2021-01-02 a Saturday.
	var names []string
	for _, d := range v.Trends.Days {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "Fri")
	assert.Contains(t, names, "Sat")
}

func TestBuildEmptySelection(t *testing.T) {
	ds := testDataset(t)
	v := Build(ds, filter.Selection{}, DefaultSettings())

	assert.True(t, v.NoData)
	assert.Equal(t, 0, v.KPIs.TotalCalls)
	assert.True(t, v.KPIs.MostCommonEmergency.NoData)
	assert.True(t, v.KPIs.TopCity.NoData)
	assert.True(t, v.KPIs.PeakHour.NoData)
	assert.Empty(t, v.Trends.TopCities)
	assert.Empty(t, v.Trends.Years)
	assert.Empty(t, v.Trends.Reasons)
	assert.Empty(t, v.Map)
	assert.Empty(t, v.Preview)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, true, decoded["no_data"])
	trends := decoded["trends"].(map[string]any)
	assert.Equal(t, []any{}, trends["top_cities"])
	assert.Equal(t, []any{}, trends["years"])
}

func TestBuildRespectsSettings(t *testing.T) {
	ds := testDataset(t)
	s := Settings{TopCities: 1, SampleSize: 2, PreviewRows: 1, Rand: rand.New(rand.NewPCG(7, 7))}
	v := Build(ds, filter.Default(filter.BuildOptions(ds)), s)

	assert.Len(t, v.Trends.TopCities, 1)
	assert.Len(t, v.Trends.HourSample, 2)
	assert.Equal(t, 2, v.Trends.HourBox.N)
	assert.Len(t, v.Preview, 1)
}
