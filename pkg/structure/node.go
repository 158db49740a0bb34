package structure

import (
	"fmt"
	"strconv"

	"github.com/aretw0/sluice/pkg/domain"
)

type kind uint8

const (
	kindArray kind = 1 << iota
	kindMap

	kindAny = kindArray | kindMap
)

func (k kind) String() string {
	switch k {
	case kindArray:
		return "array"
	case kindMap:
		return "map"
	case kindAny:
		return "array or map"
	}
	return "nothing"
}

// seq is the materialized form of an array; slices cannot grow in place once attached.
type seq struct {
	items []any
}

// Node addresses a (possibly not yet existing) position in a nested value.
// A handle obtained through a failing access carries the error, and so does every handle
// derived from it.
type Node struct {
	value  any
	parent *Node
	exists bool
	kinds  kind // allowed kinds; zero means undecided

	key  any // string or int position in parent
	push bool

	path string
	err  error
}

// New returns a blank, unmaterialized root node.
func New() *Node {
	return &Node{}
}

// Wrap returns a root node over an existing value.
// Nested []any and map[string]any values are copied, so later writes never alias v.
func Wrap(v any) *Node {
	return &Node{value: load(v), exists: v != nil}
}

// Err returns the error carried by this handle.
func (n *Node) Err() error { return n.err }

// Exists reports whether the node has been materialized.
func (n *Node) Exists() bool { return n.exists }

// Value returns the materialized value as plain []any / map[string]any trees.
// An unmaterialized node has no value.
func (n *Node) Value() any {
	if !n.exists {
		return nil
	}
	return export(n.value)
}

// Key addresses a map entry.
func (n *Node) Key(k string) *Node {
	if n.err != nil {
		return n.failedChild()
	}
	path := n.path + "." + k
	if err := n.enforce(kindMap); err != nil {
		return &Node{parent: n, path: path, err: err}
	}
	if n.exists {
		if m, ok := n.value.(map[string]any); ok {
			if v, ok := m[k]; ok {
				return &Node{value: v, parent: n, exists: true, key: k, path: path}
			}
		}
	}
	return &Node{parent: n, key: k, path: path}
}

// Index addresses an array slot, or a map entry named after the integer.
// Negative indexes count from the end of an already-materialized array.
func (n *Node) Index(i int) *Node {
	if n.err != nil {
		return n.failedChild()
	}
	path := n.path + "[" + strconv.Itoa(i) + "]"
	if err := n.enforce(kindAny); err != nil {
		return &Node{parent: n, path: path, err: err}
	}
	if n.exists {
		switch c := n.value.(type) {
		case *seq:
			if i < len(c.items) && i >= -len(c.items) {
				pos := i
				if pos < 0 {
					pos += len(c.items)
				}
				return &Node{value: c.items[pos], parent: n, exists: true, key: pos, path: path}
			}
		case map[string]any:
			if v, ok := c[strconv.Itoa(i)]; ok {
				return &Node{value: v, parent: n, exists: true, key: i, path: path}
			}
		}
	}
	return &Node{parent: n, key: i, path: path}
}

// Append addresses a new slot at the end of an array.
// Every call addresses a distinct slot.
func (n *Node) Append() *Node {
	if n.err != nil {
		return n.failedChild()
	}
	path := n.path + "[]"
	if err := n.enforce(kindArray); err != nil {
		return &Node{parent: n, path: path, err: err}
	}
	return &Node{parent: n, push: true, path: path}
}

// Set writes v under a map key (string) or array index (int).
func (n *Node) Set(key any, v any) error {
	if n.err != nil {
		return n.err
	}
	switch key.(type) {
	case string:
		if err := n.enforce(kindMap); err != nil {
			return err
		}
	case int:
		if err := n.enforce(kindAny); err != nil {
			return err
		}
	default:
		return n.fail(fmt.Sprintf("unsupported key %#v", key))
	}
	if err := n.materialize(); err != nil {
		return err
	}
	return n.assign(key, load(v))
}

// SetAppend writes v into a new slot at the end of the array.
func (n *Node) SetAppend(v any) error {
	return n.Push(v)
}

// Push appends v to the array.
func (n *Node) Push(v any) error {
	if n.err != nil {
		return n.err
	}
	if err := n.enforce(kindArray); err != nil {
		return err
	}
	if err := n.materialize(); err != nil {
		return err
	}
	s := n.value.(*seq)
	s.items = append(s.items, load(v))
	return nil
}

// Bury writes v at path below n, creating every missing level.
// Path segments are map keys (string), indexes (int) or nil for "append".
func (n *Node) Bury(v any, path ...any) error {
	if len(path) == 0 {
		return n.fail("bury needs at least one path segment")
	}
	cur := n
	for _, seg := range path[:len(path)-1] {
		switch s := seg.(type) {
		case nil:
			cur = cur.Append()
		case string:
			cur = cur.Key(s)
		case int:
			cur = cur.Index(s)
		default:
			return cur.fail(fmt.Sprintf("unsupported path segment %#v", seg))
		}
		if cur.err != nil {
			return cur.err
		}
	}
	last := path[len(path)-1]
	if last == nil {
		return cur.Push(v)
	}
	return cur.Set(last, v)
}

func (n *Node) enforce(k kind) error {
	if n.exists {
		var actual kind
		switch n.value.(type) {
		case *seq:
			actual = kindArray
		case map[string]any:
			actual = kindMap
		}
		if actual&k == 0 {
			return n.fail(fmt.Sprintf("value is not %s", article(k)))
		}
		n.kinds = actual
		return nil
	}
	next := k
	if n.kinds != 0 {
		next = n.kinds & k
	}
	if next == 0 {
		return n.fail(fmt.Sprintf("accessed as %s after being used as %s", k, n.kinds))
	}
	n.kinds = next
	return nil
}

// materialize makes the node real, ancestors first.
func (n *Node) materialize() error {
	if n.exists {
		return nil
	}
	if n.parent != nil && !n.parent.exists {
		if err := n.parent.materialize(); err != nil {
			return err
		}
	}
	switch {
	case n.kinds == 0:
		return n.fail("no kind decided")
	case n.kinds&kindArray != 0:
		n.value = &seq{}
	default:
		n.value = map[string]any{}
	}
	if n.parent != nil {
		switch {
		case n.push:
			s, ok := n.parent.value.(*seq)
			if !ok {
				return n.fail("parent is not an array")
			}
			s.items = append(s.items, n.value)
			n.key = len(s.items) - 1
			n.push = false
		case n.key != nil:
			if err := n.parent.assign(n.key, n.value); err != nil {
				return err
			}
		default:
			return n.fail("detached node")
		}
	}
	n.exists = true
	return nil
}

// assign stores v in the materialized container of n.
func (n *Node) assign(key any, v any) error {
	switch c := n.value.(type) {
	case map[string]any:
		switch k := key.(type) {
		case string:
			c[k] = v
		case int:
			c[strconv.Itoa(k)] = v
		}
		return nil
	case *seq:
		i, ok := key.(int)
		if !ok {
			return n.fail(fmt.Sprintf("cannot use key %#v on an array", key))
		}
		if i < 0 {
			i += len(c.items)
			if i < 0 {
				return n.fail(fmt.Sprintf("index %d out of range", key))
			}
		}
		for len(c.items) <= i {
			c.items = append(c.items, nil)
		}
		c.items[i] = v
		return nil
	}
	return n.fail("value is not a container")
}

func (n *Node) fail(reason string) error {
	return &domain.StructureError{Path: n.displayPath(), Reason: reason}
}

func (n *Node) failedChild() *Node {
	return &Node{parent: n, path: n.path, err: n.err}
}

func (n *Node) displayPath() string {
	if n.path == "" {
		return "$"
	}
	return "$" + n.path
}

func article(k kind) string {
	switch k {
	case kindArray:
		return "an array"
	case kindMap:
		return "a map"
	}
	return "an array or map"
}

// load converts plain nested values into the builder's internal representation.
func load(v any) any {
	switch c := v.(type) {
	case []any:
		s := &seq{items: make([]any, len(c))}
		for i, item := range c {
			s.items[i] = load(item)
		}
		return s
	case map[string]any:
		m := make(map[string]any, len(c))
		for k, item := range c {
			m[k] = load(item)
		}
		return m
	}
	return v
}

// export converts the internal representation back into plain values.
func export(v any) any {
	switch c := v.(type) {
	case *seq:
		out := make([]any, len(c.items))
		for i, item := range c.items {
			out[i] = export(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(c))
		for k, item := range c {
			out[k] = export(item)
		}
		return out
	}
	return v
}
