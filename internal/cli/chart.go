package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"calls_dashboard/charts"
	"calls_dashboard/metrics"
)

type chartJSON struct {
	PNGs     []string         `json:"pngs"`
	PDF      string           `json:"pdf,omitempty"`
	NoData   bool             `json:"no_data"`
	Rows     int              `json:"rows"`
	Rendered metrics.Snapshot `json:"metrics"`
}

// Execute implements the go-flags Commander interface for ChartCommand.
func (c *ChartCommand) Execute(args []string) error {
	l, err := buildView(context.Background(), c.globals, c.FilterFlags, 0)
	if err != nil {
		return err
	}
	m := metrics.New()
	m.SetDataset(l.ds.Len(), l.ds.LoadedAt())

	size := charts.Size{WidthIn: l.cfg.Dashboard.ChartWidthIn, HeightIn: l.cfg.Dashboard.ChartHeightIn}
	if c.WidthIn > 0 {
		size.WidthIn = c.WidthIn
	}
	if c.HeightIn > 0 {
		size.HeightIn = c.HeightIn
	}

	start := time.Now()
	paths, err := charts.SavePNGs(c.Out, l.view, size)
	for range paths {
		m.RecordChart(nil)
	}
	if err != nil {
		m.RecordChart(err)
		return fmt.Errorf("render charts: %w", err)
	}
	if c.PDF != "" {
		title := fmt.Sprintf("911 Emergency Calls Report - %s", l.ds.Source())
		if err := charts.SavePDF(c.PDF, title, l.view); err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
	}
	log.Printf("charts: rendered=%d pdf=%t duration_ms=%d", len(paths), c.PDF != "", time.Since(start).Milliseconds())

	if wantJSON(c.globals) {
		return writeJSON(c.out, chartJSON{
			PNGs:     paths,
			PDF:      c.PDF,
			NoData:   l.view.NoData,
			Rows:     l.view.KPIs.TotalCalls,
			Rendered: m.Snapshot(),
		})
	}
	for _, p := range paths {
		fmt.Fprintln(c.out, p)
	}
	if c.PDF != "" {
		fmt.Fprintln(c.out, c.PDF)
	}
	return nil
}
