package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/sluice/pkg/ports"
)

// Source yields the string and hash values of the keys matching a pattern, keyed by Redis
// key in sorted order. JSON strings are decoded; other types are skipped.
type Source struct {
	client backend.UniversalClient
	match  string
	logger *slog.Logger
}

// NewSource creates a Source over the keys matching a SCAN pattern.
func NewSource(client backend.UniversalClient, match string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Source{client: client, match: match, logger: logger}
}

func (s *Source) Capability() ports.Capability { return ports.Keyed }

func (s *Source) EachKeyed(ctx context.Context, fn func(key any, record any) error) error {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.match, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", s.match, err)
	}
	slices.Sort(keys)
	keys = slices.Compact(keys)

	for _, key := range keys {
		rec, ok, err := s.read(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(key, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) read(ctx context.Context, key string) (any, bool, error) {
	typ, err := s.client.Type(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("type %s: %w", key, err)
	}
	switch typ {
	case "string":
		raw, err := s.client.Get(ctx, key).Result()
		if err != nil {
			return nil, false, fmt.Errorf("get %s: %w", key, err)
		}
		var doc any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return raw, true, nil
		}
		return doc, true, nil
	case "hash":
		m, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, false, fmt.Errorf("hgetall %s: %w", key, err)
		}
		return m, true, nil
	case "none":
		// Expired or deleted since the scan.
		return nil, false, nil
	}
	s.logger.Debug("skipping key", "key", key, "type", typ)
	return nil, false, nil
}
