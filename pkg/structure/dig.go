package structure

import (
	"strconv"

	"github.com/aretw0/sluice/pkg/ports"
)

// Dig reads the value at path inside v.
// It is the read-side counterpart of Bury: a nil segment selects the last element of an
// array, integers index arrays (negative from the end) or name map entries, strings name
// map entries. Records implementing ports.Record are read through Field.
func Dig(v any, path ...any) (any, bool) {
	cur := v
	for _, seg := range path {
		next, ok := step(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func step(v any, seg any) (any, bool) {
	switch c := v.(type) {
	case []any:
		return index(c, seg)
	case []string:
		items := make([]any, len(c))
		for i, s := range c {
			items[i] = s
		}
		return index(items, seg)
	case map[string]any:
		switch k := seg.(type) {
		case string:
			out, ok := c[k]
			return out, ok
		case int:
			out, ok := c[strconv.Itoa(k)]
			return out, ok
		}
	case map[string]string:
		switch k := seg.(type) {
		case string:
			out, ok := c[k]
			return out, ok
		case int:
			out, ok := c[strconv.Itoa(k)]
			return out, ok
		}
	case ports.Record:
		if seg == nil {
			return nil, false
		}
		return c.Field(seg)
	}
	return nil, false
}

func index(items []any, seg any) (any, bool) {
	switch k := seg.(type) {
	case nil:
		if len(items) == 0 {
			return nil, false
		}
		return items[len(items)-1], true
	case int:
		if k < 0 {
			k += len(items)
		}
		if k < 0 || k >= len(items) {
			return nil, false
		}
		return items[k], true
	}
	return nil, false
}
