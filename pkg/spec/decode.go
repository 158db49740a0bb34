package spec

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

var (
	stepType = reflect.TypeOf(Step{})
	opType   = reflect.TypeOf(Op{})
)

// decode converts loosely typed YAML/JSON data into out. Unknown keys are errors, so
// misspelled step options are reported instead of ignored.
func decode(input, out any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			keysHook,
			opHook,
			stepHook,
		),
	}
	dec, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// rawStep has Step's fields but not its type, so decoding it does not re-enter stepHook.
type rawStep Step

func stepHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != stepType {
		return data, nil
	}
	m, ok := stringMap(data)
	if !ok {
		return nil, fmt.Errorf("step must be a mapping, got %T", data)
	}
	var rs rawStep
	if err := decode(m, &rs); err != nil {
		return nil, err
	}
	s := Step(rs)
	_, s.hasTake = m["take"]
	_, s.hasStatic = m["static"]
	return s, nil
}

// keysHook turns the map[any]any YAML produces for non-string keys (true:, 1:) into
// map[string]any, which is the only map shape mapstructure decodes into structs.
func keysHook(_ reflect.Type, _ reflect.Type, data any) (any, error) {
	return normalizeKeys(data), nil
}

func normalizeKeys(data any) any {
	switch v := data.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[fmt.Sprint(k)] = normalizeKeys(e)
		}
		return out
	case map[string]any:
		for k, e := range v {
			v[k] = normalizeKeys(e)
		}
		return v
	case []any:
		for i, e := range v {
			v[i] = normalizeKeys(e)
		}
		return v
	}
	return data
}

func opHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != opType {
		return data, nil
	}
	switch v := data.(type) {
	case Op:
		return v, nil
	case string:
		return Op{Name: v}, nil
	}
	m, ok := stringMap(data)
	if !ok || len(m) != 1 {
		return nil, fmt.Errorf("op must be a name or a single-key mapping, got %v", data)
	}
	for name, args := range m {
		return Op{Name: name, Args: args}, nil
	}
	return nil, nil
}

// stringMap accepts both map shapes the YAML decoder produces.
func stringMap(data any) (map[string]any, bool) {
	switch m := data.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}
