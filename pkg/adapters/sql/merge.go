package sql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/sluice/pkg/domain"
)

// MergeAction decides the stored value of a column when UpsertSink updates an existing row.
type MergeAction string

const (
	// Coalesce keeps the existing value when the new one is nil.
	Coalesce MergeAction = "coalesce"
	// OverwriteNulls only fills columns that are NULL.
	OverwriteNulls MergeAction = "overwrite_nulls"
	// AlwaysOverwrite stores the new value, nil included.
	AlwaysOverwrite MergeAction = "always_overwrite"
	// KeepExisting never changes the column.
	KeepExisting MergeAction = "keep_existing"
	// Append joins old and new with a space.
	Append MergeAction = "append"
	// AppendLine joins old and new with a line break.
	AppendLine MergeAction = "append_line"
	// Prepend joins new and old with a space.
	Prepend MergeAction = "prepend"
	// PrependLine joins new and old with a line break.
	PrependLine MergeAction = "prepend_line"
	// Add sums numbers, or concatenates strings.
	Add MergeAction = "add"
)

var errNotAddable = errors.New("values cannot be added")

// ParseMergeAction validates a merge action name.
func ParseMergeAction(s string) (MergeAction, error) {
	switch a := MergeAction(s); a {
	case Coalesce, OverwriteNulls, AlwaysOverwrite, KeepExisting,
		Append, AppendLine, Prepend, PrependLine, Add:
		return a, nil
	}
	return "", fmt.Errorf("unknown merge action %q", s)
}

// Merge combines an existing column value with a new one.
// The joining actions ignore a nil side instead of rendering it.
func (a MergeAction) Merge(oldVal, newVal any) (any, error) {
	switch a {
	case Coalesce:
		if newVal == nil {
			return oldVal, nil
		}
		return newVal, nil
	case OverwriteNulls:
		if oldVal == nil {
			return newVal, nil
		}
		return oldVal, nil
	case AlwaysOverwrite:
		return newVal, nil
	case KeepExisting:
		return oldVal, nil
	case Append:
		return join(oldVal, newVal, " "), nil
	case AppendLine:
		return join(oldVal, newVal, "\n"), nil
	case Prepend:
		return join(newVal, oldVal, " "), nil
	case PrependLine:
		return join(newVal, oldVal, "\n"), nil
	case Add:
		return add(oldVal, newVal)
	}
	return nil, fmt.Errorf("unknown merge action %q", string(a))
}

func join(first, second any, sep string) any {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return text(first) + sep + text(second)
}

func text(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

func add(oldVal, newVal any) (any, error) {
	switch {
	case oldVal == nil:
		return newVal, nil
	case newVal == nil:
		return oldVal, nil
	}
	if a, ok := asInt(oldVal); ok {
		if b, ok := asInt(newVal); ok {
			return a + b, nil
		}
	}
	if a, ok := asFloat(oldVal); ok {
		if b, ok := asFloat(newVal); ok {
			return a + b, nil
		}
	}
	if a, ok := oldVal.(string); ok {
		if b, ok := newVal.(string); ok {
			return a + b, nil
		}
	}
	return nil, domain.NewValueError("add", []any{oldVal, newVal}, errNotAddable)
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if n, ok := asInt(v); ok {
		return float64(n), true
	}
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// mergeRow computes the columns to store for an update of existing with fields.
// Only columns present in fields are returned; the rest of the row is left untouched.
func mergeRow(existing, fields map[string]any, actions map[string]MergeAction, def MergeAction) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	if len(actions) == 0 {
		switch def {
		case AlwaysOverwrite:
			for k, v := range fields {
				out[k] = v
			}
			return out, nil
		case Coalesce:
			for k, v := range fields {
				if v != nil {
					out[k] = v
				}
			}
			return out, nil
		}
	}
	for k, v := range fields {
		oldVal, ok := lookupColumn(existing, k)
		if !ok {
			out[k] = v
			continue
		}
		action, ok := actions[k]
		if !ok {
			action = def
		}
		merged, err := action.Merge(oldVal, v)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", k, err)
		}
		out[k] = merged
	}
	return out, nil
}

// lookupColumn matches column names case-insensitively, as databases report them.
func lookupColumn(row map[string]any, name string) (any, bool) {
	if v, ok := row[name]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}
