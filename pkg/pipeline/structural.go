package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sluice/pkg/domain"
)

// Split turns a string into a []any of tokens, then enters body over them.
// Trailing empty tokens are dropped, so the empty string splits into no tokens.
func (it *Item) Split(sep string, body ...Pipeline) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	s, ok := asString(it.value)
	if !ok {
		it.fail(domain.NewValueError("split", it.value, errNotText))
		return it
	}
	parts := strings.Split(s, sep)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	tokens := make([]any, len(parts))
	for i, tok := range parts {
		tokens[i] = tok
	}
	it.value = tokens
	return it.Enter(body...)
}

// Join concatenates a sequence with sep. nil elements render as empty strings.
func (it *Item) Join(sep string) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	elems, ok := elementsOf(it.value)
	if !ok {
		it.fail(domain.NewValueError("join", it.value, errNotSequence))
		return it
	}
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e != nil {
			parts[i] = fmt.Sprint(e)
		}
	}
	it.value = strings.Join(parts, sep)
	return it
}

// SplitKV turns "k1=v1\nk2=v2" into a map[string]any, then enters body over it.
// A trailing item separator is ignored; an item without kvSep maps to nil.
func (it *Item) SplitKV(kvSep, itemSep string, body ...Pipeline) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	s, ok := asString(it.value)
	if !ok {
		it.fail(domain.NewValueError("split_kv", it.value, errNotText))
		return it
	}
	if itemSep == "" {
		itemSep = "\n"
	}
	kv := map[string]any{}
	s = strings.TrimSuffix(s, itemSep)
	if s != "" {
		for _, item := range strings.Split(s, itemSep) {
			k, v, found := strings.Cut(item, kvSep)
			if found {
				kv[k] = v
			} else {
				kv[k] = nil
			}
		}
	}
	it.value = kv
	return it.Enter(body...)
}

// JoinKV is the inverse of SplitKV. Keys are written in lexical order.
func (it *Item) JoinKV(kvSep, itemSep string) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	if itemSep == "" {
		itemSep = "\n"
	}
	var m map[string]any
	switch v := it.value.(type) {
	case map[string]any:
		m = v
	case map[string]string:
		m = make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
	default:
		it.fail(domain.NewValueError("join_kv", it.value, errNotMapping))
		return it
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(itemSep)
		}
		b.WriteString(k)
		b.WriteString(kvSep)
		if v := m[k]; v != nil {
			fmt.Fprint(&b, v)
		}
	}
	it.value = b.String()
	return it
}

// Match applies a backtracking regular expression to a string and replaces the value with
// its capture groups: named groups by name, the others by number ("0" is the whole match).
// Groups that did not participate are nil. A string that does not match is an error.
func (it *Item) Match(pattern string, body ...Pipeline) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	s, ok := asString(it.value)
	if !ok {
		it.fail(domain.NewValueError("match", it.value, errNotText))
		return it
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		it.fail(domain.NewValueError("match", pattern, err))
		return it
	}
	m, err := re.FindStringMatch(s)
	if err != nil {
		it.fail(domain.NewValueError("match", it.value, err))
		return it
	}
	if m == nil {
		it.fail(domain.NewValueError("match", it.value, fmt.Errorf("no match for /%s/", pattern)))
		return it
	}
	captures := map[string]any{}
	for _, g := range m.Groups() {
		if len(g.Captures) == 0 {
			captures[g.Name] = nil
			continue
		}
		captures[g.Name] = g.String()
	}
	it.value = captures
	return it.Enter(body...)
}

// ParseJSON decodes a JSON document, then enters body over it.
func (it *Item) ParseJSON(body ...Pipeline) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	s, ok := asString(it.value)
	if !ok {
		it.fail(domain.NewValueError("parse_json", it.value, errNotText))
		return it
	}
	var doc any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		it.fail(domain.NewValueError("parse_json", it.value, err))
		return it
	}
	it.value = doc
	return it.Enter(body...)
}

// ParseYAML decodes a YAML document, then enters body over it.
func (it *Item) ParseYAML(body ...Pipeline) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	s, ok := asString(it.value)
	if !ok {
		it.fail(domain.NewValueError("parse_yaml", it.value, errNotText))
		return it
	}
	var doc any
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		it.fail(domain.NewValueError("parse_yaml", it.value, err))
		return it
	}
	it.value = doc
	return it.Enter(body...)
}

// Replace substitutes every occurrence of old in a string.
func (it *Item) Replace(old, replacement string) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	s, ok := asString(it.value)
	if !ok {
		it.fail(domain.NewValueError("replace", it.value, errNotText))
		return it
	}
	it.value = strings.ReplaceAll(s, old, replacement)
	return it
}

// ReplaceRegexp substitutes every match of pattern. replacement may reference groups as
// $1 or ${name}.
func (it *Item) ReplaceRegexp(pattern, replacement string) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	s, ok := asString(it.value)
	if !ok {
		it.fail(domain.NewValueError("replace_regexp", it.value, errNotText))
		return it
	}
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		it.fail(domain.NewValueError("replace_regexp", pattern, err))
		return it
	}
	out, err := re.Replace(s, replacement, -1, -1)
	if err != nil {
		it.fail(domain.NewValueError("replace_regexp", it.value, err))
		return it
	}
	it.value = out
	return it
}

// Trim removes leading and trailing white space.
func (it *Item) Trim() *Item {
	if !it.live() || it.value == nil {
		return it
	}
	s, ok := asString(it.value)
	if !ok {
		it.fail(domain.NewValueError("trim", it.value, errNotText))
		return it
	}
	it.value = strings.TrimSpace(s)
	return it
}
