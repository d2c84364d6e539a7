package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"graphfs/internal/engine"
	"graphfs/internal/metrics"
	"graphfs/internal/search"
	"graphfs/internal/store"
)

// ============
// HTTP Server
// ============

// serve runs the viewer over HTTP until ctx is done.
func serve(ctx context.Context, addr string, app *App, log *zap.Logger) error {
	app.start(ctx, nil)

	web, err := fs.Sub(assets, "web")
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           logRequests(log, metrics.Middleware(newMux(app, web, log))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("serving graphfs", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMux(app *App, web fs.FS, log *zap.Logger) *http.ServeMux {
	h := &handlers{app: app, log: log}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/view", h.view)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/events", h.events)
	mux.HandleFunc("POST /api/filter", h.filter)

	mux.HandleFunc("GET /api/node", h.nodeDetails)
	mux.HandleFunc("POST /api/node/click", h.nodeClick)
	mux.HandleFunc("POST /api/node/open", h.nodeOpen)
	mux.HandleFunc("POST /api/node/reveal", h.nodeReveal)
	mux.HandleFunc("POST /api/node/toggle", h.nodeToggle)
	mux.HandleFunc("POST /api/node/expand", h.placeholderExpand)
	mux.HandleFunc("GET /api/path-to-root", h.pathToRoot)

	mux.HandleFunc("POST /api/scan", h.scan)
	mux.HandleFunc("POST /api/scan/cancel", h.cancelScan)
	mux.HandleFunc("GET /api/scans", h.recentScans)
	mux.HandleFunc("POST /api/scans/open", h.openScan)
	mux.HandleFunc("GET /api/engines", h.engines)
	mux.HandleFunc("POST /api/engine", h.setEngine)
	mux.HandleFunc("GET /api/search", h.search)
	mux.HandleFunc("GET /api/memory", h.memory)

	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/", http.FileServer(http.FS(web)))
	return mux
}

func logRequests(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// ==================
// Handlers / Helpers
// ==================

type handlers struct {
	app *App
	log *zap.Logger
}

type idRequest struct {
	ID string `json:"id"`
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	v, err := h.app.GetView()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, v, http.StatusOK)
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.app.GetStatus(), http.StatusOK)
}

func (h *handlers) filter(w http.ResponseWriter, r *http.Request) {
	var in struct {
		TimeWindowMs int64 `json:"timeWindowMs"`
		ItemsPerDir  int   `json:"itemsPerDir"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	writeJSON(w, h.app.FilterChange(in.TimeWindowMs, in.ItemsPerDir), http.StatusOK)
}

func (h *handlers) nodeDetails(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeErr(w, http.StatusBadRequest, "missing 'id' query parameter")
		return
	}
	d, err := h.app.NodeDetails(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, d, http.StatusOK)
}

func (h *handlers) nodeClick(w http.ResponseWriter, r *http.Request) {
	var in idRequest
	if !readID(w, r, &in) {
		return
	}
	d, err := h.app.NodeClick(in.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, d, http.StatusOK)
}

func (h *handlers) nodeOpen(w http.ResponseWriter, r *http.Request) {
	h.shell(w, r, h.app.NodeDoubleClick)
}

func (h *handlers) nodeReveal(w http.ResponseWriter, r *http.Request) {
	h.shell(w, r, h.app.ShowInFolder)
}

func (h *handlers) shell(w http.ResponseWriter, r *http.Request, fn func(string) error) {
	var in idRequest
	if !readID(w, r, &in) {
		return
	}
	if err := fn(in.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *handlers) nodeToggle(w http.ResponseWriter, r *http.Request) {
	var in idRequest
	if !readID(w, r, &in) {
		return
	}
	writeJSON(w, map[string]bool{"changed": h.app.DirectoryClick(in.ID)}, http.StatusOK)
}

func (h *handlers) placeholderExpand(w http.ResponseWriter, r *http.Request) {
	var in idRequest
	if !readID(w, r, &in) {
		return
	}
	writeJSON(w, map[string]bool{"changed": h.app.PlaceholderClick(in.ID)}, http.StatusOK)
}

func (h *handlers) pathToRoot(w http.ResponseWriter, r *http.Request) {
	edges, err := h.app.PathToRoot(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if edges == nil {
		edges = []string{}
	}
	writeJSON(w, edges, http.StatusOK)
}

func (h *handlers) scan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Root string `json:"root"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	stats, err := h.app.Scan(in.Root)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, stats, http.StatusOK)
}

func (h *handlers) cancelScan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"canceled": h.app.CancelScan()}, http.StatusOK)
}

func (h *handlers) recentScans(w http.ResponseWriter, r *http.Request) {
	entries, err := h.app.RecentScans()
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, entries, http.StatusOK)
}

func (h *handlers) openScan(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Root string `json:"root"`
	}
	if !readJSON(w, r, &in) {
		return
	}
	if err := h.app.OpenScan(in.Root); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *handlers) engines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.app.ListEngines(), http.StatusOK)
}

func (h *handlers) setEngine(w http.ResponseWriter, r *http.Request) {
	var in idRequest
	if !readID(w, r, &in) {
		return
	}
	if err := h.app.SetEngine(in.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("q") == "" {
		writeErr(w, http.StatusBadRequest, "missing 'q' query parameter")
		return
	}
	limit, _ := strconv.Atoi(q.Get("max"))
	hits, err := h.app.Search(q.Get("q"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, hits, http.StatusOK)
}

func (h *handlers) memory(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.MemoryUsage()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, m, http.StatusOK)
}

// events streams engine events as server-sent events named like the desktop
// ones until the client goes away.
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	events, unsubscribe := h.app.eng.Subscribe(256)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("event not encoded", zap.String("event", eventName(ev)), zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName(ev), data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func readID(w http.ResponseWriter, r *http.Request, in *idRequest) bool {
	if !readJSON(w, r, in) {
		return false
	}
	if in.ID == "" {
		writeErr(w, http.StatusBadRequest, "missing JSON body: {\"id\": \"...\"}")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, map[string]string{"error": msg}, status)
}

// writeError maps engine and collaborator errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	writeErr(w, statusOf(err), err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownNode), errors.Is(err, store.ErrNotFound), errors.Is(err, search.ErrUnknown):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoTree), errors.Is(err, engine.ErrScanInProgress), errors.Is(err, engine.ErrScanCanceled):
		return http.StatusConflict
	case errors.Is(err, engine.ErrScanUnavailable), errors.Is(err, search.ErrUnavailable),
		errors.Is(err, search.ErrNoEngine), errors.Is(err, errNoArchive):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
