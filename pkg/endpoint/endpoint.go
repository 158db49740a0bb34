package endpoint

import (
	"context"
	dbsql "database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strconv"

	backend "github.com/redis/go-redis/v9"

	sqladapter "github.com/aretw0/sluice/pkg/adapters/sql"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/registry"
	"github.com/aretw0/sluice/pkg/spec"
)

// ErrUnknownType is returned for endpoint types no adapter handles.
var ErrUnknownType = errors.New("unknown endpoint type")

// Set holds the opened endpoints of one migration and the connections behind them.
// Connections are shared between endpoints and ops that name the same database or server.
type Set struct {
	Source ports.Source
	Sink   ports.Sink
	// Tables are the lookup sources, loaded up front.
	Tables map[string]registry.Table

	dir     string
	logger  *slog.Logger
	dbs     map[string]database
	clients map[string]backend.UniversalClient
	closers []func() error
}

type database struct {
	db      *dbsql.DB
	dialect sqladapter.Dialect
}

// Option configures Open.
type Option func(*Set)

// WithLogger sets the logger handed to adapters.
func WithLogger(l *slog.Logger) Option {
	return func(s *Set) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty Set whose relative paths resolve against dir. Open fills one from a
// migration; New alone is enough to compile the adapter ops.
func New(dir string, opts ...Option) *Set {
	s := &Set{
		Tables:  make(map[string]registry.Table),
		dir:     dir,
		logger:  slog.New(slog.DiscardHandler),
		dbs:     make(map[string]database),
		clients: make(map[string]backend.UniversalClient),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens the source, the sink and the lookup sources of m.
// On error everything opened so far is closed.
func Open(ctx context.Context, m *spec.Migration, opts ...Option) (*Set, error) {
	s := New(m.Dir, opts...)
	if err := s.open(ctx, m); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Set) open(ctx context.Context, m *spec.Migration) error {
	var err error
	if s.Source, err = s.OpenSource(ctx, m.Source); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if s.Sink, err = s.OpenSink(ctx, m.Sink); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	for _, name := range slices.Sorted(maps.Keys(m.LookupSources)) {
		t, err := s.OpenTable(ctx, m.LookupSources[name])
		if err != nil {
			return fmt.Errorf("lookup source %s: %w", name, err)
		}
		s.Tables[name] = t
	}
	return nil
}

// Register adds the lookup source tables to r.
func (s *Set) Register(r *registry.Registry) {
	for name, t := range s.Tables {
		r.Register(name, t)
	}
}

// Close releases every connection and file, in reverse opening order.
func (s *Set) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Set) onClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// path resolves p against the migration directory.
func (s *Set) path(p string) string {
	if p == "" || p == "-" || filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// database opens, or reuses, a pooled connection.
func (s *Set) database(driver, dsn string) (*dbsql.DB, sqladapter.Dialect, error) {
	if driver == "sqlite" && dsn != "" && dsn != ":memory:" {
		dsn = s.path(dsn)
	}
	key := driver + "|" + dsn
	if h, ok := s.dbs[key]; ok {
		return h.db, h.dialect, nil
	}
	db, dialect, err := sqladapter.Open(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	s.dbs[key] = database{db: db, dialect: dialect}
	s.onClose(db.Close)
	return db, dialect, nil
}

// redis returns, or reuses, a client for addr and db.
func (s *Set) redis(c redisConfig) backend.UniversalClient {
	key := c.Addr + "/" + strconv.Itoa(c.DB)
	if client, ok := s.clients[key]; ok {
		return client
	}
	client := backend.NewClient(&backend.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
	s.clients[key] = client
	s.onClose(client.Close)
	return client
}

// sqlDriver picks the driver of sql endpoints: the type itself for sqlite and postgres.
func sqlDriver(typ string, c sqlConfig) (string, error) {
	switch typ {
	case "sqlite", "postgres":
		if c.Driver == "" {
			return typ, nil
		}
	}
	if c.Driver == "" {
		return "", errors.New("driver is required")
	}
	return c.Driver, nil
}
