package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/internal/presentation/tui"
	"github.com/aretw0/sluice/internal/runtime"
	"github.com/aretw0/sluice/pkg/spec"
)

// ErrNotFound is returned when no migration file matches the requested name.
var ErrNotFound = errors.New("migration not found")

var extensions = []string{".yaml", ".yml", ".json"}

// Engine defines the interface required by the MCP server to run migrations.
type Engine interface {
	Run(ctx context.Context, m *spec.Migration) (runtime.Summary, error)
	Compile(m *spec.Migration) (*spec.Compiled, error)
}

// MigrationList is the result of list_migrations.
type MigrationList struct {
	Migrations []string `json:"migrations" jsonschema_description:"Names of the migration files in the served directory"`
}

// ValidateResult is the result of validate_migration.
type ValidateResult struct {
	Valid  bool     `json:"valid" jsonschema_description:"Whether the migration compiles"`
	Errors []string `json:"errors,omitempty" jsonschema_description:"Problems found while compiling"`
}

// DescribeResult is the result of describe_migration.
type DescribeResult struct {
	Markdown string `json:"markdown" jsonschema_description:"Markdown overview of the migration"`
}

// RunResult is the result of run_migration.
type RunResult struct {
	Summary runtime.Summary `json:"summary" jsonschema_description:"Record counts of the run"`
	Error   string          `json:"error,omitempty" jsonschema_description:"Failure that ended the run, if any"`
}

type migrationArgs struct {
	Name string `json:"name"`
}

// Server exposes the migrations of a directory as MCP tools.
type Server struct {
	engine    Engine
	dir       string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new MCP Server instance serving the migrations in dir.
func NewServer(engine Engine, dir string, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		dir:       dir,
		logger:    slog.New(slog.DiscardHandler),
		mcpServer: server.NewMCPServer("sluice-mcp", strings.TrimSpace(sluice.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_migrations",
		mcp.WithDescription("List the migrations available in the served directory."),
		mcp.WithOutputSchema[MigrationList](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("validate_migration",
		mcp.WithDescription("Compile a migration without touching its endpoints and report every problem found."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Migration name, the file name without extension")),
		mcp.WithOutputSchema[ValidateResult](),
	), mcp.NewStructuredToolHandler(s.handleValidate))

	s.mcpServer.AddTool(mcp.NewTool("describe_migration",
		mcp.WithDescription("Describe the endpoints, lookups and steps of a migration as markdown."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Migration name, the file name without extension")),
		mcp.WithOutputSchema[DescribeResult](),
	), mcp.NewStructuredToolHandler(s.handleDescribe))

	s.mcpServer.AddTool(mcp.NewTool("run_migration",
		mcp.WithDescription("Run a migration to completion and return its record counts."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Migration name, the file name without extension")),
		mcp.WithOutputSchema[RunResult](),
	), mcp.NewStructuredToolHandler(s.handleRun))
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (MigrationList, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return MigrationList{}, fmt.Errorf("list failed: %w", err)
	}
	res := MigrationList{Migrations: []string{}}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || !slices.Contains(extensions, ext) {
			continue
		}
		res.Migrations = append(res.Migrations, strings.TrimSuffix(e.Name(), ext))
	}
	return res, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args migrationArgs) (ValidateResult, error) {
	m, err := s.load(args.Name)
	if err != nil {
		return ValidateResult{}, err
	}
	if _, err := s.engine.Compile(m); err != nil {
		res := ValidateResult{}
		problems := spec.ValidationErrors(err)
		if len(problems) == 0 {
			problems = []error{err}
		}
		for _, p := range problems {
			res.Errors = append(res.Errors, p.Error())
		}
		return res, nil
	}
	return ValidateResult{Valid: true}, nil
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest, args migrationArgs) (DescribeResult, error) {
	m, err := s.load(args.Name)
	if err != nil {
		return DescribeResult{}, err
	}
	return DescribeResult{Markdown: tui.Describe(m)}, nil
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest, args migrationArgs) (RunResult, error) {
	m, err := s.load(args.Name)
	if err != nil {
		return RunResult{}, err
	}
	sum, err := s.engine.Run(ctx, m)
	if err != nil {
		s.logger.Error("MCP Run failed", "migration", args.Name, "err", err)
		return RunResult{Summary: sum, Error: err.Error()}, nil
	}
	return RunResult{Summary: sum}, nil
}

func (s *Server) load(name string) (*spec.Migration, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid migration name %q", name)
	}
	for _, ext := range extensions {
		path := filepath.Join(s.dir, name+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := spec.Load(path)
		if err != nil {
			return nil, err
		}
		if m.Name == "" {
			m.Name = name
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}
