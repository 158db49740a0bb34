package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/sluice/pkg/ports"
)

// Mask replaces the values of masked fields.
const Mask = "***"

type piiMiddleware struct {
	next     ports.Sink
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks values of keys matching the patterns,
// in nested maps too. Nil values stay nil.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("mask pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.Sink) ports.Sink {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Append(ctx context.Context, c ports.Collector) error {
	// Deep Clone to avoid side effects on the collector the pipeline may keep writing.
	fields := deepCopyMap(c.Fields())
	maskMap(fields, m.patterns)
	return m.next.Append(ctx, ports.Row(fields))
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		// Handle nested maps
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v // shallow copy of value
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
			continue
		}
		if v == nil {
			continue
		}
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				break
			}
		}
	}
}
