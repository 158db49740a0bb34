package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
	"github.com/aretw0/sluice/pkg/structure"
)

// Sink stores each flushed collector as one Redis document, keyed by prefix plus the value
// of the key field, and indexes document ids in a sorted set under prefix + "index".
// Documents are JSON strings by default, or hashes with WithHash.
type Sink struct {
	client   backend.UniversalClient
	prefix   string
	keyField string
	ttl      time.Duration
	hash     bool
	nested   bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithPrefix sets the key prefix. Defaults to "sluice:".
func WithPrefix(prefix string) Option {
	return func(s *Sink) { s.prefix = prefix }
}

// WithKeyField names the field holding the document id. Defaults to "id".
// Collectors without it get a random UUID.
func WithKeyField(name string) Option {
	return func(s *Sink) { s.keyField = name }
}

// WithTTL sets the expiration of written documents.
func WithTTL(ttl time.Duration) Option {
	return func(s *Sink) { s.ttl = ttl }
}

// WithHash stores documents as hashes, one field per collected value.
func WithHash() Option {
	return func(s *Sink) { s.hash = true }
}

// WithNested collects into structure.Document, so put keys are dotted paths building
// nested documents. The key field is read from the top level of the document.
func WithNested() Option {
	return func(s *Sink) { s.nested = true }
}

// New creates a Sink over a new client for address.
func New(address, password string, db int, opts ...Option) *Sink {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Sink from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Sink {
	s := &Sink{
		client:   client,
		prefix:   "sluice:",
		keyField: "id",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewCollector implements ports.CollectorFactory.
func (s *Sink) NewCollector() ports.Collector {
	if s.nested {
		return structure.NewDocument()
	}
	return ports.Row{}
}

// Key returns the Redis key of document id.
func (s *Sink) Key(id string) string { return s.prefix + id }

func (s *Sink) indexKey() string { return s.prefix + "index" }

// Append writes the document and indexes it in one pipeline.
func (s *Sink) Append(ctx context.Context, c ports.Collector) error {
	fields := c.Fields()
	id := uuid.NewString()
	if v, ok := fields[s.keyField]; ok && v != nil {
		id = fmt.Sprint(v)
	}

	pipe := s.client.TxPipeline()
	if s.hash {
		values := make(map[string]any, len(fields))
		for k, v := range fields {
			values[k] = flatten(v)
		}
		key := s.Key(id)
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
	} else {
		data, err := json.Marshal(fields)
		if err != nil {
			return &domain.SinkError{Sink: "redis:" + s.prefix, Err: fmt.Errorf("marshal document %s: %w", id, err)}
		}
		pipe.Set(ctx, s.Key(id), data, s.ttl)
	}

	// Score is the expiry time, so expired ids can be trimmed from the index.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: id})

	if _, err := pipe.Exec(ctx); err != nil {
		return &domain.SinkError{Sink: "redis:" + s.prefix, Err: err}
	}
	return nil
}

// IDs lists the indexed document ids that have not expired, dropping the expired ones.
func (s *Sink) IDs(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("(%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("trim index: %w", err)
	}
	return s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
}

// flatten renders nested values as JSON, since hash fields hold strings.
func flatten(v any) any {
	if v == nil {
		return ""
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if _, ok := v.([]byte); ok {
			return v
		}
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339Nano)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return v
}
