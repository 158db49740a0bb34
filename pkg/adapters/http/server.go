package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/sluice/internal/runtime"
	"github.com/aretw0/sluice/pkg/spec"
)

// Engine defines the interface for the migration runner.
type Engine interface {
	Run(ctx context.Context, m *spec.Migration) (runtime.Summary, error)
	Compile(m *spec.Migration) (*spec.Compiled, error)
}

var extensions = []string{".yaml", ".yml", ".json"}

// Server exposes the migrations of a directory over HTTP.
type Server struct {
	Engine Engine
	Dir    string
	Logger *slog.Logger

	mu      sync.Mutex
	running map[string]bool
}

// Option configures the handler.
type Option func(*handlerConfig)

type handlerConfig struct {
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// WithMetrics serves g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(c *handlerConfig) { c.gatherer = g }
}

// WithLogger sets the request error logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *handlerConfig) { c.logger = l }
}

// NewHandler creates a new HTTP handler running the migrations found in dir.
func NewHandler(engine Engine, dir string, opts ...Option) http.Handler {
	cfg := handlerConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}
	server := &Server{
		Engine:  engine,
		Dir:     dir,
		Logger:  cfg.logger,
		running: make(map[string]bool),
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/migrations", server.List)
	r.Post("/migrations/{name}/validate", server.Validate)
	r.Post("/migrations/{name}/run", server.Run)
	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// MigrationInfo describes one migration file.
type MigrationInfo struct {
	Name string `json:"name"`
	File string `json:"file"`
}

// RunResponse is the body of POST /migrations/{name}/run.
type RunResponse struct {
	Summary runtime.Summary `json:"summary"`
	Error   string          `json:"error,omitempty"`
}

// ValidateResponse is the body of POST /migrations/{name}/validate.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// List handles GET /migrations.
func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "List failed", err)
		return
	}
	infos := []MigrationInfo{}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || !slices.Contains(extensions, ext) {
			continue
		}
		infos = append(infos, MigrationInfo{Name: strings.TrimSuffix(e.Name(), ext), File: e.Name()})
	}
	writeJSON(w, http.StatusOK, infos)
}

// Validate handles POST /migrations/{name}/validate.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	m, ok := s.load(w, chi.URLParam(r, "name"))
	if !ok {
		return
	}
	if _, err := s.Engine.Compile(m); err != nil {
		resp := ValidateResponse{}
		problems := spec.ValidationErrors(err)
		if len(problems) == 0 {
			problems = []error{err}
		}
		for _, p := range problems {
			resp.Errors = append(resp.Errors, p.Error())
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true})
}

// Run handles POST /migrations/{name}/run. The migration runs within the request;
// a second request for the same migration meanwhile gets 409.
func (s *Server) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, ok := s.load(w, name)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		http.Error(w, "migration is already running", http.StatusConflict)
		return
	}
	s.running[name] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	sum, err := s.Engine.Run(r.Context(), m)
	if err != nil {
		s.Logger.Error("Run failed", "migration", name, "err", err)
		writeJSON(w, http.StatusInternalServerError, RunResponse{Summary: sum, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Summary: sum})
}

func (s *Server) load(w http.ResponseWriter, name string) (*spec.Migration, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		http.Error(w, "invalid migration name", http.StatusBadRequest)
		return nil, false
	}
	for _, ext := range extensions {
		path := filepath.Join(s.Dir, name+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := spec.Load(path)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Errors: []string{err.Error()}})
			return nil, false
		}
		if m.Name == "" {
			m.Name = name
		}
		return m, true
	}
	http.Error(w, "migration not found", http.StatusNotFound)
	return nil, false
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string, err error) {
	s.Logger.Error(msg, "err", err)
	http.Error(w, msg, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "error", err)
	}
}
