package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/doridoridoriand/regionwatch/internal/eventlog"
	"github.com/doridoridoriand/regionwatch/internal/log"
	"github.com/doridoridoriand/regionwatch/internal/report"
	"github.com/doridoridoriand/regionwatch/internal/scheduler"
	"github.com/doridoridoriand/regionwatch/internal/state"
	"github.com/goccy/go-json"
)

// Source is the read side of the state store.
type Source interface {
	Snapshot() []state.EndpointSnapshot
	GroupStatuses() []state.GroupSnapshot
}

// Engine is the command side of the scheduler.
type Engine interface {
	TriggerCycle() bool
	InProgress() bool
	LastCycle() scheduler.CycleStats
}

// Options configures the server.
type Options struct {
	Addr    string
	Period  time.Duration
	Metrics http.Handler
	Logger  *log.Logger
	Now     func() time.Time
}

// Server serves the JSON API, report downloads and the live websocket feed.
type Server struct {
	httpServer *http.Server
	source     Source
	engine     Engine
	events     *eventlog.Log
	period     time.Duration
	logger     *log.Logger
	now        func() time.Time

	mu      sync.Mutex
	changed chan struct{}
}

// New creates a configured HTTP server for the monitor.
func New(source Source, engine Engine, events *eventlog.Log, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Period <= 0 {
		opts.Period = scheduler.DefaultPeriod
	}
	s := &Server{
		source:  source,
		engine:  engine,
		events:  events,
		period:  opts.Period,
		logger:  opts.Logger,
		now:     opts.Now,
		changed: make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.Metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// NotifyChanged wakes websocket clients so they push fresh state.
func (s *Server) NotifyChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Server) changeSignal() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.httpServer.Addr})

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return context.Canceled
		}
		return err
	}
}

func (s *Server) routes(metricsHandler http.Handler) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/endpoints", s.handleEndpoints)
	api.HandleFunc("GET /api/groups", s.handleGroups)
	api.HandleFunc("GET /api/logs", s.handleLogs)
	api.HandleFunc("GET /api/state", s.handleState)
	api.HandleFunc("POST /api/cycle", s.handleCycle)
	api.HandleFunc("GET /api/report", s.handleReportJSON)
	api.HandleFunc("GET /api/report.txt", s.handleReportText)
	api.HandleFunc("GET /api/report.xlsx", s.handleReportXLSX)
	api.HandleFunc("GET /api/incidents.csv", s.handleIncidentsCSV)
	api.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// websocket and promhttp manage their own framing and compression
	root := http.NewServeMux()
	root.HandleFunc("GET /ws", s.handleWS)
	if metricsHandler != nil {
		root.Handle("GET /metrics", metricsHandler)
	}
	root.Handle("/", gziphandler.GzipHandler(api))
	return root
}

func (s *Server) handleEndpoints(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	snaps := s.source.Snapshot()
	out := make([]endpointView, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, newEndpointView(snap, now, s.period))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	groups := s.source.GroupStatuses()
	out := make([]groupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, newGroupView(g))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	severity, ok := eventlog.ParseSeverity(r.URL.Query().Get("severity"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown severity %q", r.URL.Query().Get("severity")))
		return
	}
	var entries []eventlog.Entry
	switch order := strings.ToLower(r.URL.Query().Get("order")); order {
	case "":
		entries = s.events.Filter(severity)
	case "asc", "desc":
		entries = s.events.Sorted(severity, order == "asc")
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown order %q", order))
		return
	}
	if entries == nil {
		entries = []eventlog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.buildState())
}

func (s *Server) buildState() stateView {
	now := s.now()
	view := stateView{
		GeneratedAt: now,
		InProgress:  s.engine.InProgress(),
		LastCycle:   s.engine.LastCycle(),
		Groups:      []groupView{},
		Endpoints:   []endpointView{},
		Logs:        s.events.Entries(),
	}
	for _, g := range s.source.GroupStatuses() {
		view.Groups = append(view.Groups, newGroupView(g))
	}
	for _, snap := range s.source.Snapshot() {
		view.Endpoints = append(view.Endpoints, newEndpointView(snap, now, s.period))
	}
	if view.Logs == nil {
		view.Logs = []eventlog.Entry{}
	}
	return view
}

func (s *Server) handleCycle(w http.ResponseWriter, _ *http.Request) {
	if !s.engine.TriggerCycle() {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"accepted": false,
			"error":    "a cycle is already in progress",
		})
		return
	}
	s.NotifyChanged()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": true})
}

func (s *Server) buildReport() report.Report {
	return report.Build(s.source.GroupStatuses(), s.source.Snapshot(), s.now())
}

func (s *Server) handleReportJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.buildReport())
}

func (s *Server) handleReportText(w http.ResponseWriter, _ *http.Request) {
	s.writeRendered(w, "text/plain; charset=utf-8", "", report.WriteText)
}

func (s *Server) handleReportXLSX(w http.ResponseWriter, _ *http.Request) {
	s.writeRendered(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "report.xlsx", report.WriteXLSX)
}

func (s *Server) handleIncidentsCSV(w http.ResponseWriter, _ *http.Request) {
	s.writeRendered(w, "text/csv; charset=utf-8", "incidents.csv", report.WriteCSV)
}

// writeRendered buffers the output so a render error can still become a 500.
func (s *Server) writeRendered(w http.ResponseWriter, contentType, filename string, render func(io.Writer, report.Report) error) {
	var buf bytes.Buffer
	if err := render(&buf, s.buildReport()); err != nil {
		s.logger.LogError("server", err, map[string]interface{}{"content_type": contentType})
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
