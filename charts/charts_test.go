package charts

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calls_dashboard/dashboard"
	"calls_dashboard/dataset"
	"calls_dashboard/filter"
)

func f(v float64) *float64 { return &v }

func testView(t *testing.T, sel func(filter.Options) filter.Selection) dashboard.View {
	t.Helper()
	rows := []dataset.RawRow{
		{Timestamp: "2020-05-01 10:00:00", Title: "EMS: CARDIAC EMERGENCY", Township: "LOWER MERION", Latitude: f(40.01), Longitude: f(-75.28)},
		{Timestamp: "2020-06-01 17:30:00", Title: "EMS: FALL VICTIM", Township: "NORRISTOWN", Latitude: f(40.12), Longitude: f(-75.34)},
		{Timestamp: "2021-01-01 12:00:00", Title: "Fire: BUILDING FIRE", Township: "ABINGTON"},
		{Timestamp: "2021-01-02 07:00:00", Title: "Traffic: VEHICLE ACCIDENT -", Township: "LOWER MERION", Latitude: f(40.03), Longitude: f(-75.27)},
	}
	ds, err := dataset.Prepare(rows, "test", dataset.Options{})
	require.NoError(t, err)
	return dashboard.Build(ds, sel(filter.BuildOptions(ds)), dashboard.DefaultSettings())
}

func allSelected(o filter.Options) filter.Selection { return filter.Default(o) }
func noneSelected(filter.Options) filter.Selection   { return filter.Selection{} }

func TestWritePNGEveryChart(t *testing.T) {
	for _, tc := range []struct {
		name string
		sel  func(filter.Options) filter.Selection
	}{
		{"all", allSelected},
		{"empty", noneSelected},
	} {
		v := testView(t, tc.sel)
		for _, name := range Names {
			t.Run(tc.name+"/"+string(name), func(t *testing.T) {
				var buf bytes.Buffer
				require.NoError(t, WritePNG(&buf, name, v, Size{WidthIn: 4, HeightIn: 3}))
				img, err := png.Decode(&buf)
				require.NoError(t, err)
				assert.Equal(t, 4*pngDPI, img.Bounds().Dx())
				assert.Equal(t, 3*pngDPI, img.Bounds().Dy())
			})
		}
	}
}

func TestPlotTitles(t *testing.T) {
	v := testView(t, allSelected)
	p, err := Plot(Days, v)
	require.NoError(t, err)
	assert.Equal(t, "Calls by Day of the Week", p.Title.Text)

	empty := testView(t, noneSelected)
	p, err = Plot(TopCities, empty)
	require.NoError(t, err)
	assert.Contains(t, p.Title.Text, "(no data)")

	_, err = Plot(Name("pie"), v)
	assert.Error(t, err)
}

func TestParseName(t *testing.T) {
	n, err := ParseName("hour-box")
	require.NoError(t, err)
	assert.Equal(t, HourBox, n)

	_, err = ParseName("hour_box")
	assert.Error(t, err)
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, "Emergency Calls \u2014 Report", testView(t, allSelected)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestSavePNGsAndPDF(t *testing.T) {
	dir := t.TempDir()
	v := testView(t, allSelected)

	paths, err := SavePNGs(filepath.Join(dir, "charts"), v, Size{})
	require.NoError(t, err)
	require.Len(t, paths, len(Names))
	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	pdf := filepath.Join(dir, "report.pdf")
	require.NoError(t, SavePDF(pdf, "Report", v))
	info, err := os.Stat(pdf)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestJoinLimited(t *testing.T) {
	assert.Equal(t, "(none)", joinLimited(nil, 3))
	assert.Equal(t, "a, b", joinLimited([]string{"a", "b"}, 3))
	assert.Equal(t, "a, b and 2 more", joinLimited([]string{"a", "b", "c", "d"}, 2))
}
