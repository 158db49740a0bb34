package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aretw0/sluice/pkg/domain"
)

var (
	errNotText    = errors.New("not a string")
	errNotBool    = errors.New("not a boolean")
	errNotInteger = errors.New("not an integral number")
	errFormat     = errors.New("template does not match its arguments")
)

// DefaultTrueValues are the tokens ParseBool reads as true.
var DefaultTrueValues = []any{1, "1", "true", "True", "TRUE", "yes", "Yes", "YES", "on", "On", "ON"}

// DefaultFalseValues are the tokens ParseBool reads as false.
var DefaultFalseValues = []any{0, "0", "false", "False", "FALSE", "no", "No", "NO", "off", "Off", "OFF", ""}

// ParseInt parses a string in the given base into an int64. Integral numbers pass through.
// A blank string, as an empty CSV cell, parses to nil.
func (it *Item) ParseInt(base int) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	if isBlank(it.value) {
		it.value = nil
		return it
	}
	switch v := it.value.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), base, 64)
		if err != nil {
			it.fail(domain.NewValueError("parse_int", it.value, err))
			return it
		}
		it.value = n
		return it
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), base, 64)
		if err != nil {
			it.fail(domain.NewValueError("parse_int", it.value, err))
			return it
		}
		it.value = n
		return it
	}
	n, ok := toInt64(it.value)
	if !ok {
		it.fail(domain.NewValueError("parse_int", it.value, errNotInteger))
		return it
	}
	it.value = n
	return it
}

// ParseFloat parses a string into a float64. Numbers pass through as float64.
// A blank string parses to nil.
func (it *Item) ParseFloat() *Item {
	if !it.live() || it.value == nil {
		return it
	}
	if isBlank(it.value) {
		it.value = nil
		return it
	}
	var (
		f   float64
		err error
	)
	switch v := it.value.(type) {
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		f, err = strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	default:
		var ok bool
		if f, ok = toFloat64(v); !ok {
			err = errors.New("not a number")
		}
	}
	if err != nil {
		it.fail(domain.NewValueError("parse_float", it.value, err))
		return it
	}
	it.value = f
	return it
}

func isBlank(v any) bool {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s) == ""
	case []byte:
		return len(bytes.TrimSpace(s)) == 0
	}
	return false
}

// ParseBool maps DefaultTrueValues to true and DefaultFalseValues to false.
// Booleans pass through; any other non-nil value is an error.
func (it *Item) ParseBool() *Item {
	return it.ParseBoolWith(DefaultTrueValues, DefaultFalseValues)
}

// ParseBoolWith is ParseBool with custom token lists.
// Numbers compare by value, so 1, int64(1) and 1.0 are the same token.
func (it *Item) ParseBoolWith(trueValues, falseValues []any) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	switch {
	case containsLoose(trueValues, it.value):
		it.value = true
	case containsLoose(falseValues, it.value):
		it.value = false
	default:
		if _, ok := it.value.(bool); ok {
			return it
		}
		it.fail(domain.NewValueError("parse_bool", it.value, errors.New("unrecognized value")))
	}
	return it
}

// FormatBool renders a boolean as one of two values ("Yes"/"No" when both are nil).
func (it *Item) FormatBool(trueValue, falseValue any) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	if trueValue == nil && falseValue == nil {
		trueValue, falseValue = "Yes", "No"
	}
	b, ok := it.value.(bool)
	if !ok {
		it.fail(domain.NewValueError("format_bool", it.value, errNotBool))
		return it
	}
	if b {
		it.value = trueValue
	} else {
		it.value = falseValue
	}
	return it
}

// FormatString renders the value with a fmt template. A []any value is spread over the
// template's verbs. An empty template renders the value with fmt.Sprint.
func (it *Item) FormatString(template string) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	if template == "" {
		it.value = fmt.Sprint(it.value)
		return it
	}
	args, ok := it.value.([]any)
	if !ok {
		args = []any{it.value}
	}
	s, err := sprintf(template, args)
	if err != nil {
		it.fail(err)
		return it
	}
	it.value = s
	return it
}

// sprintf formats args and reports verb/argument mismatches as value errors.
// nil arguments render as the empty string.
func sprintf(template string, args []any) (string, error) {
	clean := make([]any, len(args))
	for i, a := range args {
		if a == nil {
			a = ""
		}
		clean[i] = a
	}
	out := fmt.Sprintf(template, clean...)
	if strings.Contains(out, "%!") && !strings.Contains(fmt.Sprint(clean...), "%!") {
		return "", domain.NewValueError("format_string", args, fmt.Errorf("%w: %q", errFormat, template))
	}
	return out, nil
}

func containsLoose(list []any, v any) bool {
	for _, candidate := range list {
		if looseEqual(candidate, v) {
			return true
		}
	}
	return false
}

func looseEqual(a, b any) bool {
	fa, aNum := toFloat64(a)
	fb, bNum := toFloat64(b)
	if aNum && bNum {
		return fa == fb
	}
	if aNum != bNum {
		return false
	}
	if bs, ok := b.([]byte); ok {
		b = string(bs)
	}
	return a == b
}

func toInt64(v any) (int64, bool) {
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
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float32, float64:
		f, _ := toFloat64(n)
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}
