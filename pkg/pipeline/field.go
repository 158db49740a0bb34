package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// load reads key like Field, but lets lazy records report read failures.
func load(ctx context.Context, data any, key any) (any, error) {
	if lr, ok := data.(ports.LazyRecord); ok {
		v, _, err := lr.Load(ctx, key)
		if err != nil {
			return nil, &domain.SourceError{Source: fmt.Sprintf("%T", data), Err: err}
		}
		return v, nil
	}
	v, _ := Field(data, key)
	return v, nil
}

// Field reads key from a record-shaped value.
// Maps are addressed by name, sequences by position (negative from the end), and
// ports.Record values through their Field method. Anything else has no fields.
func Field(data any, key any) (any, bool) {
	switch d := data.(type) {
	case nil:
		return nil, false
	case ports.Record:
		return d.Field(key)
	case map[string]any:
		v, ok := d[keyString(key)]
		return v, ok
	case map[string]string:
		v, ok := d[keyString(key)]
		if !ok {
			return nil, false
		}
		return v, true
	case ports.Row:
		v, ok := d[keyString(key)]
		return v, ok
	case map[any]any:
		if v, ok := d[key]; ok {
			return v, true
		}
		v, ok := d[keyString(key)]
		return v, ok
	case []any:
		i, ok := position(key, len(d))
		if !ok {
			return nil, false
		}
		return d[i], true
	case []string:
		i, ok := position(key, len(d))
		if !ok {
			return nil, false
		}
		return d[i], true
	}
	return reflectField(data, key)
}

func reflectField(data any, key any) (any, bool) {
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(keyString(key)).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		i, ok := position(key, rv.Len())
		if !ok {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

func keyString(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case int:
		return strconv.Itoa(k)
	case int64:
		return strconv.FormatInt(k, 10)
	}
	return fmt.Sprint(key)
}

func position(key any, n int) (int, bool) {
	var i int
	switch k := key.(type) {
	case int:
		i = k
	case int64:
		i = int(k)
	case string:
		v, err := strconv.Atoi(k)
		if err != nil {
			return 0, false
		}
		i = v
	default:
		return 0, false
	}
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}
