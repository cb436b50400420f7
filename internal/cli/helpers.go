package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"calls_dashboard/config"
	"calls_dashboard/dashboard"
	"calls_dashboard/dataset"
	"calls_dashboard/filter"
	"calls_dashboard/internal/app"
)

// loadConfig resolves configuration the same way the server does, then
// applies the global flag overrides.
func loadConfig(g *GlobalFlags) (config.Config, error) {
	if g != nil && g.Config != "" {
		os.Setenv("CONFIG_PATH", g.Config)
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if g != nil && g.Dataset != "" {
		cfg.DatasetPath = g.Dataset
	}
	return cfg, nil
}

// loaded is a dataset plus the view of one filter selection over it.
type loaded struct {
	cfg  config.Config
	ds   *dataset.Dataset
	sel  filter.Selection
	view dashboard.View
}

// buildView loads the dataset and computes the view for the filter flags.
// buildView loads the dataset and recomputes the dashboard for the filter
// flags. topCities > 0 overrides the configured ranking length.
func buildView(ctx context.Context, g *GlobalFlags, f FilterFlags, topCities int) (*loaded, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	ds, err := app.LoadDataset(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sel := f.Selection(filter.BuildOptions(ds))
	settings := app.Settings(cfg)
	if topCities > 0 {
		settings.TopCities = topCities
	}
	return &loaded{
		cfg:  cfg,
		ds:   ds,
		sel:  sel,
		view: dashboard.Build(ds, sel, settings),
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func wantJSON(g *GlobalFlags) bool {
	return g != nil && g.JSON
}

func normalizePort(port string) string {
	if port == "" || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}
