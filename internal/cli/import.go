package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"calls_dashboard/dataset"
	"calls_dashboard/internal/store"
)

type importJSON struct {
	ID         int64         `json:"id"`
	Source     string        `json:"source"`
	DB         string        `json:"db"`
	Rows       int           `json:"rows"`
	ImportedAt time.Time     `json:"imported_at"`
	Replaced   *store.Import `json:"replaced,omitempty"`
}

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	dbPath := c.DB
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	start := time.Now()
	rows, err := dataset.ReadCSVFile(c.CSV)
	if err != nil {
		return err
	}
	// Reject files the dashboard could not load before touching the store.
	if _, err := dataset.Prepare(rows, c.CSV, dataset.Options{Location: loc, TimestampLayout: cfg.TimestampLayout}); err != nil {
		return fmt.Errorf("validate %s: %w", c.CSV, err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	prev, err := st.LastImport(ctx)
	if err != nil {
		return fmt.Errorf("read previous import: %w", err)
	}
	imp, err := st.ReplaceCalls(ctx, c.CSV, rows)
	if err != nil {
		return fmt.Errorf("import %s: %w", c.CSV, err)
	}
	log.Printf("import: rows=%d source=%s db=%s duration_ms=%d", imp.Rows, c.CSV, dbPath, time.Since(start).Milliseconds())

	if wantJSON(c.globals) {
		return writeJSON(c.out, importJSON{
			ID:         imp.ID,
			Source:     imp.Source,
			DB:         dbPath,
			Rows:       imp.Rows,
			ImportedAt: imp.ImportedAt,
			Replaced:   prev,
		})
	}
	if prev != nil {
		fmt.Fprintf(c.out, "Replaced %d rows imported from %s at %s\n", prev.Rows, prev.Source, prev.ImportedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(c.out, "Imported %d rows from %s into %s\n", imp.Rows, c.CSV, dbPath)
	return nil
}
