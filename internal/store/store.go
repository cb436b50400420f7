package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"calls_dashboard/dataset"
)

// Store wraps SQLite access for the imported call table.
type Store struct {
	db *sql.DB
}

// Import describes one completed import run.
type Import struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	ImportedAt time.Time `json:"imported_at"`
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return s, nil
}

// OpenExisting opens a database that must already exist, as a dataset source.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return Open(path)
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS calls (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			title TEXT NOT NULL,
			township TEXT NOT NULL,
			latitude REAL,
			longitude REAL
		);`,
		`CREATE TABLE IF NOT EXISTS imports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT,
			rows INTEGER,
			imported_at TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceCalls swaps the stored table for rows in a single transaction and
// records the import.
func (s *Store) ReplaceCalls(ctx context.Context, source string, rows []dataset.RawRow) (*Import, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM calls`); err != nil {
		return nil, err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO calls(timestamp, title, township, latitude, longitude) VALUES(?,?,?,?,?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Timestamp, r.Title, r.Township, nullFloat(r.Latitude), nullFloat(r.Longitude)); err != nil {
			return nil, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	imp := &Import{Source: source, Rows: len(rows), ImportedAt: time.Now().UTC()}
	res, err := tx.ExecContext(ctx, `INSERT INTO imports(source, rows, imported_at) VALUES(?,?,?)`, imp.Source, imp.Rows, imp.ImportedAt)
	if err != nil {
		return nil, err
	}
	imp.ID, _ = res.LastInsertId()
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return imp, nil
}

// RawRows returns every stored row in import order.
func (s *Store) RawRows(ctx context.Context) ([]dataset.RawRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, title, township, latitude, longitude FROM calls ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dataset.RawRow
	for rows.Next() {
		var r dataset.RawRow
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&r.Timestamp, &r.Title, &r.Township, &lat, &lng); err != nil {
			return nil, err
		}
		r.Latitude = floatPtr(lat)
		r.Longitude = floatPtr(lng)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountCalls returns the number of stored rows.
func (s *Store) CountCalls(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&n)
	return n, err
}

// LastImport returns the most recent import, or nil if nothing was imported.
func (s *Store) LastImport(ctx context.Context) (*Import, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source, rows, imported_at FROM imports ORDER BY id DESC LIMIT 1`)
	var imp Import
	switch err := row.Scan(&imp.ID, &imp.Source, &imp.Rows, &imp.ImportedAt); {
	case err == nil:
		return &imp, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	default:
		return nil, err
	}
}

// LoadDataset reads and prepares the call table stored at path.
func LoadDataset(ctx context.Context, path string, opts dataset.Options) (*dataset.Dataset, error) {
	s, err := OpenExisting(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	rows, err := s.RawRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read %s: %w", path, dataset.ErrEmptySource)
	}
	return dataset.Prepare(rows, path, opts)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
