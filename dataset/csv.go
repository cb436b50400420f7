package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadCSV reads and prepares the call table from a CSV file.
func LoadCSV(path string, opts Options) (*Dataset, error) {
	rows, err := ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	return Prepare(rows, path, opts)
}

// ReadCSVFile reads the raw rows of a CSV file without preparing them.
func ReadCSVFile(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// ReadCSV reads raw rows from r. The header must contain every required
// column; other columns are ignored.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var rows []RawRow
	for line := 1; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		lat, err := ParseCoordinate(rec[idx[ColLatitude]])
		if err != nil {
			return nil, &ParseError{Row: line, Column: ColLatitude, Value: rec[idx[ColLatitude]], Err: err}
		}
		lng, err := ParseCoordinate(rec[idx[ColLongitude]])
		if err != nil {
			return nil, &ParseError{Row: line, Column: ColLongitude, Value: rec[idx[ColLongitude]], Err: err}
		}
		rows = append(rows, RawRow{
			Timestamp: rec[idx[ColTimestamp]],
			Title:     rec[idx[ColTitle]],
			Township:  rec[idx[ColTownship]],
			Latitude:  lat,
			Longitude: lng,
		})
	}
	return rows, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}
