package redis

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/registry"
)

// LoadHash reads a whole hash into a lookup table.
func LoadHash(ctx context.Context, client backend.UniversalClient, key string) (*registry.MapTable, error) {
	m, err := client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load hash %s: %w", key, err)
	}
	return registry.Map(m), nil
}

// HashLookup returns a lookup reading one field of a hash per call.
func HashLookup(client backend.UniversalClient, key string) pipeline.LookupFunc {
	return func(ctx context.Context, k any) (any, bool, error) {
		v, err := client.HGet(ctx, key, fieldName(k)).Result()
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("hget %s: %w", key, err)
		}
		return v, true, nil
	}
}

// KeyLookup returns a lookup reading the string at prefix + key per call.
func KeyLookup(client backend.UniversalClient, prefix string) pipeline.LookupFunc {
	return func(ctx context.Context, k any) (any, bool, error) {
		v, err := client.Get(ctx, prefix+fieldName(k)).Result()
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("get %s: %w", prefix, err)
		}
		return v, true, nil
	}
}

func fieldName(k any) string {
	if b, ok := k.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(k)
}
