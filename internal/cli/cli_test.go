package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calls_dashboard/filter"
)

const sampleCSV = "timestamp,title,township,latitude,longitude\n" +
	"2015-12-10 17:40:00,EMS: BACK PAINS/INJURY,NEW HANOVER,40.29,-75.58\n" +
	"2015-12-11 17:10:00,EMS: DIABETIC EMERGENCY,NEW HANOVER,,\n" +
	"2016-01-03 08:05:00,Fire: GAS-ODOR/LEAK,NORRISTOWN,40.12,-75.35\n" +
	"2016-01-04 09:30:00,Traffic: VEHICLE ACCIDENT -,LOWER MERION,40.01,-75.27\n"

// setup writes the sample CSV and points config loading at a missing file so
// only defaults apply.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("STRICT_CONFIG", "")
	t.Setenv("DATASET_PATH", "")
	t.Setenv("DB_PATH", filepath.Join(dir, "calls.db"))
	path := filepath.Join(dir, "calls.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := run("test", args, &buf)
	return buf.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, "--version")
	assert.NoError(t, err)
	assert.Equal(t, "calls-dashboard test", strings.TrimSpace(out))
}

func TestHelpIsNotAnError(t *testing.T) {
	out, err := runCLI(t, "--help")
	assert.NoError(t, err)
	assert.Contains(t, out, "report")
}

func TestSubcommandsRegistered(t *testing.T) {
	parser, _, cmds := buildParser("test", &bytes.Buffer{})
	for _, name := range []string{"serve", "report", "chart", "import"} {
		assert.NotNil(t, parser.Find(name), name)
	}
	assert.NotNil(t, cmds.Report.globals)
	assert.Equal(t, "test", cmds.Chart.version)
}

func TestUnknownSubcommand(t *testing.T) {
	_, err := runCLI(t, "explode")
	assert.Error(t, err)
}

func TestReportHuman(t *testing.T) {
	path := setup(t)
	out, err := runCLI(t, "--dataset", path, "report", "--by", "hour")
	require.NoError(t, err)

	assert.Contains(t, out, "Total Calls:            4")
	assert.Contains(t, out, "Most Common Emergency:  EMS (2)")
	assert.Contains(t, out, "City with Most Calls:   NEW HANOVER (2)")
	assert.Contains(t, out, "Peak Call Hour:         17:00 (2)")
	assert.Contains(t, out, "Calls by Reason")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "Numeric Summary")
	assert.Contains(t, out, "Counts by hour")
	assert.Contains(t, out, "Calls by Hour")
	assert.Contains(t, out, "  8:00")
}

func TestReportFilters(t *testing.T) {
	path := setup(t)
	out, err := runCLI(t, "--dataset", path, "--json", "report", "--reason", "EMS", "--year", "2015")
	require.NoError(t, err)

	var got reportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 4, got.Rows)
	assert.False(t, got.NoData)
	assert.Equal(t, 2, got.KPIs.TotalCalls)
	assert.Equal(t, []string{"EMS"}, got.Selection.Reasons)
	assert.Equal(t, []int{2015}, got.Selection.Years)
	assert.Equal(t, "NEW HANOVER", got.KPIs.TopCity.Value)
	assert.Empty(t, got.Counts)
}

func TestReportJSONCounts(t *testing.T) {
	path := setup(t)
	out, err := runCLI(t, "--dataset", path, "--json", "report", "--by", "year")
	require.NoError(t, err)

	var got reportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Counts, 2)
	assert.Equal(t, "2015", got.Counts[0].Key)
	assert.Equal(t, 2, got.Counts[0].Count)
}

func TestReportTopRanksBeyondDefault(t *testing.T) {
	path := setup(t)
	var csv strings.Builder
	csv.WriteString("timestamp,title,township,latitude,longitude\n")
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&csv, "2016-01-%02d 10:00:00,EMS: FALL VICTIM,TOWN %02d,,\n", i+1, i)
	}
	wide := filepath.Join(filepath.Dir(path), "wide.csv")
	require.NoError(t, os.WriteFile(wide, []byte(csv.String()), 0o644))

	out, err := runCLI(t, "--dataset", wide, "report", "--top", "15")
	require.NoError(t, err)
	assert.Equal(t, 15, countLines(out, "  TOWN "))

	out, err = runCLI(t, "--dataset", wide, "--json", "report", "--top", "12")
	require.NoError(t, err)
	var got reportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Trends.TopCities, 12)

	out, err = runCLI(t, "--dataset", wide, "report")
	require.NoError(t, err)
	assert.Equal(t, 10, countLines(out, "  TOWN "))
}

func countLines(out, prefix string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func TestReportNoData(t *testing.T) {
	path := setup(t)
	out, err := runCLI(t, "--dataset", path, "report", "--city", "NOWHERE")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Calls:            0")
	assert.Contains(t, out, "Peak Call Hour:         No data")
	assert.Contains(t, out, "No data for the current selection.")
}

func TestReportRejectsUnknownColumn(t *testing.T) {
	path := setup(t)
	_, err := runCLI(t, "--dataset", path, "report", "--by", "zip")
	assert.Error(t, err)
}

func TestReportMissingDataset(t *testing.T) {
	path := setup(t)
	_, err := runCLI(t, "--dataset", filepath.Join(filepath.Dir(path), "nope.csv"), "report")
	assert.Error(t, err)
}

func TestChartWritesFiles(t *testing.T) {
	path := setup(t)
	outDir := filepath.Join(t.TempDir(), "charts")
	pdf := filepath.Join(t.TempDir(), "report.pdf")

	out, err := runCLI(t, "--dataset", path, "--json", "chart", "--out", outDir, "--pdf", pdf, "--width", "4", "--height", "3")
	require.NoError(t, err)

	var got chartJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.PNGs, 7)
	assert.Equal(t, int64(7), got.Rendered.ChartsRendered)
	assert.Equal(t, 4, got.Rows)
	for _, p := range got.PNGs {
		assert.FileExists(t, p)
	}
	data, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestImportThenReportFromSQLite(t *testing.T) {
	path := setup(t)
	db := filepath.Join(t.TempDir(), "calls.db")

	out, err := runCLI(t, "import", "--csv", path, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 4 rows")

	out, err = runCLI(t, "--dataset", db, "--json", "report", "--city", "NORRISTOWN")
	require.NoError(t, err)
	var got reportJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, db, got.Dataset)
	assert.Equal(t, 1, got.KPIs.TotalCalls)
	assert.Equal(t, "Fire", got.KPIs.MostCommonEmergency.Value)
}

func TestImportReportsReplacedImport(t *testing.T) {
	path := setup(t)
	db := filepath.Join(t.TempDir(), "calls.db")

	out, err := runCLI(t, "--json", "import", "--csv", path, "--db", db)
	require.NoError(t, err)
	var first importJSON
	require.NoError(t, json.Unmarshal([]byte(out), &first))
	assert.Nil(t, first.Replaced)

	out, err = runCLI(t, "--json", "import", "--csv", path, "--db", db)
	require.NoError(t, err)
	var second importJSON
	require.NoError(t, json.Unmarshal([]byte(out), &second))
	require.NotNil(t, second.Replaced)
	assert.Equal(t, first.ID, second.Replaced.ID)
	assert.Equal(t, 4, second.Replaced.Rows)
	assert.Equal(t, path, second.Replaced.Source)

	out, err = runCLI(t, "import", "--csv", path, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Replaced 4 rows imported from "+path)
}

func TestImportRejectsBadCSV(t *testing.T) {
	setup(t)
	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("timestamp,title,township,latitude,longitude\nyesterday,EMS: X,A,,\n"), 0o644))
	db := filepath.Join(t.TempDir(), "calls.db")

	_, err := runCLI(t, "import", "--csv", bad, "--db", db)
	assert.Error(t, err)
	assert.NoFileExists(t, db)
}

func TestImportRequiresCSV(t *testing.T) {
	setup(t)
	_, err := runCLI(t, "import")
	assert.Error(t, err)
}

func TestFilterFlagsSelection(t *testing.T) {
	opts := filter.Options{Reasons: []string{"EMS", "Fire"}, Cities: []string{"A", "B"}, Years: []int{2015, 2016}}

	sel := FilterFlags{}.Selection(opts)
	assert.Equal(t, filter.Default(opts), sel)

	sel = FilterFlags{Cities: []string{"B"}, Years: []int{2016}}.Selection(opts)
	assert.Equal(t, []string{"EMS", "Fire"}, sel.Reasons)
	assert.Equal(t, []string{"B"}, sel.Cities)
	assert.Equal(t, []int{2016}, sel.Years)
}

func TestNormalizePort(t *testing.T) {
	assert.Equal(t, ":8080", normalizePort("8080"))
	assert.Equal(t, ":8080", normalizePort(":8080"))
	assert.Equal(t, "127.0.0.1:9000", normalizePort("127.0.0.1:9000"))
	assert.Equal(t, "", normalizePort(""))
}
