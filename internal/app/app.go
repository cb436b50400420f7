package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"calls_dashboard/charts"
	"calls_dashboard/config"
	"calls_dashboard/dashboard"
	"calls_dashboard/dataset"
	"calls_dashboard/internal/events"
	"calls_dashboard/internal/httpapi"
	"calls_dashboard/internal/session"
	"calls_dashboard/internal/store"
	"calls_dashboard/internal/watch"
	"calls_dashboard/metrics"
	"calls_dashboard/queue"
)

const (
	sessionPruneInterval = time.Minute
	renderWait           = 2 * time.Second
)

// App wires the dashboard components together.
type App struct {
	cfg      config.Config
	dataset  *dataset.Dataset
	sessions *session.Manager
	metrics  *metrics.Metrics
	events   *events.Bus
	watcher  *watch.Watcher
	renderer *queue.Queue
	router   *httpapi.Router
	handler  http.Handler
}

// New loads the dataset once and builds the HTTP surface over it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	ds, err := LoadDataset(ctx, cfg)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	bus := events.NewBus()
	sessions := session.NewManager(cfg.Session.TTL(), cfg.Session.MaxSessions)

	var watcher *watch.Watcher
	deps := httpapi.Deps{
		Dataset:    ds,
		Settings:   Settings(cfg),
		ChartSize:  charts.Size{WidthIn: cfg.Dashboard.ChartWidthIn, HeightIn: cfg.Dashboard.ChartHeightIn},
		PreviewCap: config.MaxPreviewRows,
		Sessions:   sessions,
		Metrics:    m,
		Events:     bus,
	}
	var renderer *queue.Queue
	if cfg.Render.Workers > 0 {
		renderer = queue.New(cfg.Render.QueueSize, cfg.Render.Workers, cfg.Render.Timeout())
		deps.Renderer = renderer
		deps.RenderWait = renderWait
	}
	if cfg.WatchDataset {
		watcher = watch.New(cfg.DatasetPath, func(evt fsnotify.Event) {
			bus.Publish(events.Event{
				Type: events.DatasetChanged,
				Path: evt.Name,
				Op:   evt.Op.String(),
				At:   time.Now().UTC(),
			})
		})
		deps.Watcher = watcher
	}
	router := httpapi.NewRouter(deps)
	return &App{
		cfg:      cfg,
		dataset:  ds,
		sessions: sessions,
		metrics:  m,
		events:   bus,
		watcher:  watcher,
		renderer: renderer,
		router:   router,
		handler:  router.Handler(),
	}, nil
}

// Settings maps the dashboard config onto recompute settings.
func Settings(cfg config.Config) dashboard.Settings {
	s := dashboard.DefaultSettings()
	if cfg.Dashboard.TopCities > 0 {
		s.TopCities = cfg.Dashboard.TopCities
	}
	if cfg.Dashboard.SampleSize > 0 {
		s.SampleSize = cfg.Dashboard.SampleSize
	}
	if cfg.Dashboard.PreviewRows >= 0 {
		s.PreviewRows = min(cfg.Dashboard.PreviewRows, config.MaxPreviewRows)
	}
	return s
}

// LoadDataset picks the loader by file extension: .db, .sqlite and .sqlite3
// are read from the store, everything else is parsed as CSV.
func LoadDataset(ctx context.Context, cfg config.Config) (*dataset.Dataset, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	opts := dataset.Options{Location: loc, TimestampLayout: cfg.TimestampLayout}
	start := time.Now()

	var ds *dataset.Dataset
	switch strings.ToLower(filepath.Ext(cfg.DatasetPath)) {
	case ".db", ".sqlite", ".sqlite3":
		ds, err = store.LoadDataset(ctx, cfg.DatasetPath, opts)
	default:
		ds, err = dataset.LoadCSV(cfg.DatasetPath, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", cfg.DatasetPath, err)
	}
	log.Printf("dataset: rows=%d source=%s duration_ms=%d", ds.Len(), ds.Source(), time.Since(start).Milliseconds())
	if n := ds.Uncategorized(); n > 0 {
		log.Printf("dataset: titles_without_reason=%d (reason is the whole title)", n)
	}
	return ds, nil
}

// Run starts the watcher, render workers, session pruning, and HTTP server
// until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			log.Printf("watcher disabled: %v", err)
		}
	}
	if a.renderer != nil {
		a.renderer.Start(ctx)
	}
	go a.pruneSessions(ctx)

	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		if a.renderer != nil {
			a.renderer.Stop(shutdownCtx)
		}
	}()
	log.Printf("http listening on %s", a.cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) pruneSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.sessions.Prune(); n > 0 {
				log.Printf("sessions: pruned=%d active=%d", n, a.sessions.Len())
			}
			a.metrics.SetActiveSessions(a.sessions.Len())
		}
	}
}

func (a *App) Dataset() *dataset.Dataset { return a.dataset }
func (a *App) Sessions() *session.Manager { return a.sessions }
func (a *App) Metrics() *metrics.Metrics { return a.metrics }
func (a *App) Events() *events.Bus { return a.events }
func (a *App) Watcher() *watch.Watcher { return a.watcher }
func (a *App) Handler() http.Handler { return a.handler }
func (a *App) Router() *httpapi.Router { return a.router }
