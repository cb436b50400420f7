package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `lat,lng,desc,zip,title,timeStamp,twp,addr,e,timestamp,township,latitude,longitude
40.29,-75.58,x,19525,EMS: BACK PAINS/INJURY,ignored,NEW HANOVER,ADDR,1,2015-12-10 17:40:00,NEW HANOVER,40.2978759,-75.5812935
40.25,-75.26,x,19446,EMS: DIABETIC EMERGENCY,ignored,HATFIELD TOWNSHIP,ADDR,1,2015-12-10 17:40:00,HATFIELD TOWNSHIP,40.2580614,-75.2646799
40.12,-75.35,x,19401,Fire: GAS-ODOR/LEAK,ignored,NORRISTOWN,ADDR,1,2016-01-03 08:05:00,NORRISTOWN,,
`

func TestReadCSVIgnoresExtraColumns(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "2015-12-10 17:40:00", rows[0].Timestamp)
	assert.Equal(t, "EMS: BACK PAINS/INJURY", rows[0].Title)
	assert.Equal(t, "NEW HANOVER", rows[0].Township)
	require.NotNil(t, rows[0].Latitude)
	assert.InDelta(t, 40.2978759, *rows[0].Latitude, 1e-9)
	assert.Nil(t, rows[2].Latitude)
	assert.Nil(t, rows[2].Longitude)
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("timestamp,title,latitude,longitude\n2015-12-10 17:40:00,EMS: X,1,2\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "township")
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestReadCSVRaggedRowFails(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("timestamp,title,township,latitude,longitude\n2015-12-10 17:40:00,EMS: X\n"))
	assert.Error(t, err)
}

func TestReadCSVBadCoordinate(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("timestamp,title,township,latitude,longitude\n2015-12-10 17:40:00,EMS: X,A,north,2\n"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Row)
	assert.Equal(t, ColLatitude, perr.Column)
}

func TestReadCSVHeaderWithBOM(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("\ufefftimestamp,title,township,latitude,longitude\n2015-12-10 17:40:00,EMS: X,A,NaN,\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Latitude)
}

func TestPrepareDerivesColumns(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	ds, err := Prepare(rows, "sample", Options{})
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	first := ds.At(0)
	assert.Equal(t, 2015, first.Year)
	assert.Equal(t, 12, first.Month)
	assert.Equal(t, 17, first.Hour)
	// 2015-12-10 was a Thursday.
	assert.Equal(t, 3, first.Day)
	assert.Equal(t, "EMS", first.Reason)

	last := ds.At(2)
	assert.Equal(t, 2016, last.Year)
	assert.Equal(t, "Fire", last.Reason)
	// 2016-01-03 was a Sunday.
	assert.Equal(t, 6, last.Day)
	assert.False(t, last.HasCoordinates())
	assert.Equal(t, "sample", ds.Source())
}

func TestPrepareFailsOnAnyBadTimestamp(t *testing.T) {
	rows := []RawRow{
		{Timestamp: "2015-12-10 17:40:00", Title: "EMS: A", Township: "X"},
		{Timestamp: "yesterday", Title: "EMS: B", Township: "X"},
	}
	_, err := Prepare(rows, "bad", Options{})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Row)
	assert.Equal(t, ColTimestamp, perr.Column)
	assert.Equal(t, "yesterday", perr.Value)
}

func TestPrepareLayouts(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	rows := []RawRow{
		{Timestamp: "2020-03-01T09:15:00", Title: "EMS: A"},
		{Timestamp: "2020-03-01T09:15:00Z", Title: "EMS: A"},
		{Timestamp: "03/01/2020 09:15", Title: "EMS: A"},
		{Timestamp: "2020-03-01", Title: "EMS: A"},
		{Timestamp: "01.03.2020 09:15", Title: "EMS: A"},
	}
	ds, err := Prepare(rows, "layouts", Options{Location: loc, TimestampLayout: "02.01.2006 15:04"})
	require.NoError(t, err)
	assert.Equal(t, 9, ds.At(0).Hour)
	assert.Equal(t, loc, ds.At(0).Timestamp.Location())
	assert.Equal(t, time.UTC, ds.At(1).Timestamp.Location())
	assert.Equal(t, 9, ds.At(2).Hour)
	assert.Equal(t, 0, ds.At(3).Hour)
	assert.Equal(t, 3, ds.At(4).Month)
}

func TestPrepareTitleWithoutColon(t *testing.T) {
	ds, err := Prepare([]RawRow{{Timestamp: "2020-01-01 00:00:00", Title: "MISC"}}, "t", Options{})
	require.NoError(t, err)
	assert.Equal(t, "MISC", ds.At(0).Reason)
}

func TestUncategorizedCountsTitlesWithoutColon(t *testing.T) {
	ds, err := Prepare([]RawRow{
		{Timestamp: "2020-01-01 00:00:00", Title: "MISC"},
		{Timestamp: "2020-01-01 01:00:00", Title: "EMS: FALL VICTIM"},
		{Timestamp: "2020-01-01 02:00:00", Title: "ALARM TEST"},
	}, "t", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Uncategorized())
	assert.Zero(t, New(nil, "empty").Uncategorized())
}

func TestRecordsIsACopy(t *testing.T) {
	ds, err := Prepare([]RawRow{{Timestamp: "2020-01-01 00:00:00", Title: "EMS: A", Township: "X"}}, "t", Options{})
	require.NoError(t, err)
	recs := ds.Records()
	recs[0].Township = "MUTATED"
	assert.Equal(t, "X", ds.At(0).Township)

	var seen int
	for range ds.All() {
		seen++
	}
	assert.Equal(t, 1, seen)
}

func TestLoadCSVMissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadCSVFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	ds, err := LoadCSV(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, path, ds.Source())
}

func TestDayOfWeekMondayFirst(t *testing.T) {
	monday := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DayOfWeek(monday))
	assert.Equal(t, 6, DayOfWeek(monday.AddDate(0, 0, 6)))
}
