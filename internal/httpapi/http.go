package httpapi

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"calls_dashboard/aggregate"
	"calls_dashboard/charts"
	"calls_dashboard/dashboard"
	"calls_dashboard/dataset"
	"calls_dashboard/filter"
	"calls_dashboard/internal/events"
	"calls_dashboard/internal/session"
	"calls_dashboard/metrics"
	"calls_dashboard/queue"
)

//go:embed static/*
var embeddedStatic embed.FS

// StaleChecker reports whether the dataset on disk changed after loading.
type StaleChecker interface {
	Stale() bool
	ChangedAt() time.Time
}

// Deps are the components the router serves.
type Deps struct {
	Dataset    *dataset.Dataset
	Settings   dashboard.Settings
	ChartSize  charts.Size
	PreviewCap int
	Sessions   *session.Manager
	Metrics    *metrics.Metrics
	Watcher    StaleChecker
	// Renderer, if set, runs chart renders on a bounded worker pool.
	Renderer   *queue.Queue
	RenderWait time.Duration
	Events     *events.Bus
}

// Router builds HTTP handlers for the dashboard UI, /api and /ops.
type Router struct {
	ds         *dataset.Dataset
	options    filter.Options
	defaults   filter.Selection
	settings   dashboard.Settings
	chartSize  charts.Size
	previewCap int
	sessions   *session.Manager
	metrics    *metrics.Metrics
	watcher    StaleChecker
	renderer   *queue.Queue
	renderWait time.Duration
	bus        *events.Bus
}

func NewRouter(d Deps) *Router {
	opts := filter.BuildOptions(d.Dataset)
	if d.Sessions == nil {
		d.Sessions = session.NewManager(0, 0)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.PreviewCap <= 0 {
		d.PreviewCap = d.Settings.PreviewRows
	}
	d.Metrics.SetDataset(d.Dataset.Len(), d.Dataset.LoadedAt())
	return &Router{
		ds:         d.Dataset,
		options:    opts,
		defaults:   filter.Default(opts),
		settings:   d.Settings,
		chartSize:  d.ChartSize,
		previewCap: d.PreviewCap,
		sessions:   d.Sessions,
		metrics:    d.Metrics,
		watcher:    d.Watcher,
		renderer:   d.Renderer,
		renderWait: d.RenderWait,
		bus:        d.Events,
	}
}

func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", r.root)
	mux.HandleFunc("/api/options", r.getOptions)
	mux.HandleFunc("/api/dashboard", r.dashboard)
	mux.HandleFunc("/api/sessions", r.createSession)
	mux.HandleFunc("/api/sessions/", r.sessionDetail)
	mux.HandleFunc("/api/charts/", r.chart)
	mux.HandleFunc("/api/counts/", r.counts)
	mux.HandleFunc("/api/preview", r.preview)
	mux.HandleFunc("/api/events", r.streamEvents)
	mux.HandleFunc("/ops/status", r.status)
	mux.HandleFunc("/ops/health", r.health)
}

// Handler returns a mux with every route registered, counting each response
// in the metrics.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	r.Register(mux)
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, req)
		r.metrics.RecordRequest(rec.status)
	})
}

func (r *Router) root(w http.ResponseWriter, req *http.Request) {
	if strings.HasPrefix(req.URL.Path, "/api/") {
		http.NotFound(w, req)
		return
	}
	switch {
	case req.URL.Path == "/":
		data, err := embeddedStatic.ReadFile("static/index.html")
		if err != nil {
			http.Error(w, "missing UI", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(data)
	case strings.HasPrefix(req.URL.Path, "/static/"):
		http.FileServer(http.FS(embeddedStatic)).ServeHTTP(w, req)
	default:
		http.NotFound(w, req)
	}
}

func (r *Router) getOptions(w http.ResponseWriter, req *http.Request) {
	if !allowMethod(w, req, http.MethodGet) {
		return
	}
	opts := r.options
	if q := req.URL.Query().Get("q"); q != "" {
		opts.Cities = filter.Search(opts.Cities, q)
	}
	respondJSON(w, opts)
}

func (r *Router) dashboard(w http.ResponseWriter, req *http.Request) {
	if !allowMethod(w, req, http.MethodGet) {
		return
	}
	sel, label, ok := r.selectionFor(w, req)
	if !ok {
		return
	}
	respondJSON(w, r.recompute(sel, label))
}

func (r *Router) createSession(w http.ResponseWriter, req *http.Request) {
	if !allowMethod(w, req, http.MethodPost) {
		return
	}
	s := r.sessions.Create(r.defaults)
	r.metrics.SetActiveSessions(r.sessions.Len())
	log.Printf("session created id=%s", s.ID)
	w.Header().Set("Location", "/api/sessions/"+s.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	respondJSON(w, s)
}

// sessionDetail serves /api/sessions/{id} and /api/sessions/{id}/filters.
func (r *Router) sessionDetail(w http.ResponseWriter, req *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(req.URL.Path, "/api/sessions/"), "/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, req)
		return
	}
	switch {
	case sub == "filters":
		r.updateFilters(w, req, id)
	case sub != "":
		http.NotFound(w, req)
	case req.Method == http.MethodGet:
		s, err := r.sessions.Get(id)
		if err != nil {
			sessionError(w, err)
			return
		}
		respondJSON(w, s)
	case req.Method == http.MethodDelete:
		if err := r.sessions.Delete(id); err != nil {
			sessionError(w, err)
			return
		}
		r.metrics.SetActiveSessions(r.sessions.Len())
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (r *Router) updateFilters(w http.ResponseWriter, req *http.Request, id string) {
	if !allowMethod(w, req, http.MethodPost) {
		return
	}
	var patch session.Patch
	if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s, err := r.sessions.Update(id, patch)
	if err != nil {
		sessionError(w, err)
		return
	}
	respondJSON(w, map[string]any{
		"session": s,
		"view":    r.recompute(s.Selection, s.ID),
	})
}

func (r *Router) chart(w http.ResponseWriter, req *http.Request) {
	if !allowMethod(w, req, http.MethodGet) {
		return
	}
	raw := strings.TrimPrefix(req.URL.Path, "/api/charts/")
	name, err := charts.ParseName(strings.TrimSuffix(raw, ".png"))
	if err != nil {
		http.NotFound(w, req)
		return
	}
	sel, label, ok := r.selectionFor(w, req)
	if !ok {
		return
	}
	view := r.recompute(sel, label)

	var buf bytes.Buffer
	err = r.render(req.Context(), string(name), label, func(context.Context) error {
		return charts.WritePNG(&buf, name, view, r.chartSize)
	})
	if errors.Is(err, queue.ErrFull) {
		http.Error(w, "too many chart renders in flight", http.StatusServiceUnavailable)
		return
	}
	r.metrics.RecordChart(err)
	if err != nil {
		log.Printf("chart render failed chart=%s: %v", name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (r *Router) render(ctx context.Context, id, source string, work func(context.Context) error) error {
	if r.renderer == nil {
		return work(ctx)
	}
	return r.renderer.Do(ctx, queue.Job{ID: id, Source: "session=" + source, Work: work}, r.renderWait)
}

func (r *Router) counts(w http.ResponseWriter, req *http.Request) {
	if !allowMethod(w, req, http.MethodGet) {
		return
	}
	col, err := aggregate.ParseColumn(strings.TrimPrefix(req.URL.Path, "/api/counts/"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sel, _, ok := r.selectionFor(w, req)
	if !ok {
		return
	}
	buckets, err := aggregate.ColumnCounts(filter.Apply(r.ds, sel), col)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, map[string]any{"column": col, "counts": buckets})
}

func (r *Router) preview(w http.ResponseWriter, req *http.Request) {
	if !allowMethod(w, req, http.MethodGet) {
		return
	}
	limit := r.settings.PreviewRows
	if raw := req.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	limit = min(limit, r.previewCap)
	sel, _, ok := r.selectionFor(w, req)
	if !ok {
		return
	}
	view := filter.Apply(r.ds, sel)
	respondJSON(w, map[string]any{
		"total": aggregate.TotalCount(view),
		"limit": limit,
		"rows":  aggregate.Preview(view, limit),
	})
}

// streamEvents pushes bus events to the browser as server-sent events.
func (r *Router) streamEvents(w http.ResponseWriter, req *http.Request) {
	if !allowMethod(w, req, http.MethodGet) {
		return
	}
	if r.bus == nil {
		http.NotFound(w, req)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch, cancel := r.bus.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.watcher != nil && r.watcher.Stale() {
		writeEvent(w, events.Event{Type: events.DatasetChanged, At: r.watcher.ChangedAt()})
	}
	flusher.Flush()

	for {
		select {
		case <-req.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("encode event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

func (r *Router) status(w http.ResponseWriter, req *http.Request) {
	if !allowMethod(w, req, http.MethodGet) {
		return
	}
	r.metrics.SetActiveSessions(r.sessions.Len())
	ds := map[string]any{
		"source":    r.ds.Source(),
		"rows":      r.ds.Len(),
		"loaded_at": r.ds.LoadedAt(),
		"stale":     false,
	}
	if r.watcher != nil {
		ds["stale"] = r.watcher.Stale()
		if at := r.watcher.ChangedAt(); !at.IsZero() {
			ds["changed_at"] = at
		}
	}
	payload := map[string]any{
		"dataset":  ds,
		"sessions": r.sessions.Len(),
		"metrics":  r.metrics.Snapshot(),
	}
	if r.renderer != nil {
		payload["render_queue"] = r.renderer.Stats()
	}
	respondJSON(w, payload)
}

// health answers 204 once the dataset is loaded, even with zero rows, and
// the render queue (if any) is accepting jobs.
func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if !allowMethod(w, req, http.MethodGet) {
		return
	}
	if r.ds == nil {
		http.Error(w, "dataset not loaded", http.StatusServiceUnavailable)
		return
	}
	if r.renderer != nil && !r.renderer.Healthy() {
		http.Error(w, "render queue not running", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) recompute(sel filter.Selection, label string) dashboard.View {
	start := time.Now()
	view := dashboard.Build(r.ds, sel, r.settings)
	elapsed := time.Since(start)
	r.metrics.RecordRecompute(view.KPIs.TotalCalls, elapsed)
	log.Printf("recompute session=%s rows=%d duration_ms=%d", label, view.KPIs.TotalCalls, elapsed.Milliseconds())
	return view
}

// selectionFor resolves the request's selection from ?session= or the
// reason/city/year parameters. It writes the error response itself.
func (r *Router) selectionFor(w http.ResponseWriter, req *http.Request) (filter.Selection, string, bool) {
	q := req.URL.Query()
	if id := q.Get("session"); id != "" {
		s, err := r.sessions.Get(id)
		if err != nil {
			sessionError(w, err)
			return filter.Selection{}, "", false
		}
		return s.Selection, s.ID, true
	}
	sel, err := SelectionFromQuery(q, r.defaults)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return filter.Selection{}, "", false
	}
	return sel, "-", true
}

// SelectionFromQuery reads repeated reason, city and year parameters. An
// absent parameter keeps the default; a present one selects exactly its
// non-empty values, so "?city=" selects no cities.
func SelectionFromQuery(q url.Values, defaults filter.Selection) (filter.Selection, error) {
	sel := defaults.Clone()
	if vals, ok := q["reason"]; ok {
		sel.Reasons = nonEmpty(vals)
	}
	if vals, ok := q["city"]; ok {
		sel.Cities = nonEmpty(vals)
	}
	if vals, ok := q["year"]; ok {
		years := []int{}
		for _, v := range nonEmpty(vals) {
			y, err := strconv.Atoi(v)
			if err != nil {
				return sel, errors.New("year must be an integer: " + v)
			}
			years = append(years, y)
		}
		sel.Years = years
	}
	return sel, nil
}

func nonEmpty(values []string) []string {
	out := []string{}
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func sessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func allowMethod(w http.ResponseWriter, req *http.Request, method string) bool {
	if req.Method != method {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
