package structure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/sluice/pkg/domain"
)

// Document is a collector that builds one nested document per output record.
// Keys are dotted paths: "user.name", "tags[]", "lines[0].qty", "lines[-1].price".
type Document struct {
	root *Node
	err  error
}

// NewDocument returns an empty document collector.
func NewDocument() *Document {
	return &Document{root: New()}
}

// Put buries value at the dotted path key.
// The first failing path is kept and reported by Err.
func (d *Document) Put(key string, value any) {
	path, err := ParsePath(key)
	if err == nil {
		err = d.root.Bury(value, path...)
	}
	if err != nil && d.err == nil {
		d.err = err
	}
}

// Fields returns the document as a map. A document whose root became an array is
// returned under the empty key.
func (d *Document) Fields() map[string]any {
	switch v := d.root.Value().(type) {
	case map[string]any:
		return v
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"": v}
	}
}

// Err returns the first path or structure error seen by Put.
func (d *Document) Err() error { return d.err }

// ParsePath splits a dotted path into Bury segments.
// "a.b[].c[2]" becomes ["a", "b", nil, "c", 2].
func ParsePath(p string) ([]any, error) {
	if p == "" {
		return nil, &domain.StructureError{Reason: "empty path"}
	}
	var out []any
	for _, part := range strings.Split(p, ".") {
		name := part
		var brackets string
		if i := strings.IndexByte(part, '['); i >= 0 {
			name, brackets = part[:i], part[i:]
		}
		if strings.ContainsRune(name, ']') {
			return nil, &domain.StructureError{Path: p, Reason: fmt.Sprintf("malformed segment %q", part)}
		}
		if name != "" {
			out = append(out, name)
		} else if brackets == "" {
			return nil, &domain.StructureError{Path: p, Reason: "empty path segment"}
		}
		for brackets != "" {
			end := strings.IndexByte(brackets, ']')
			if brackets[0] != '[' || end < 0 {
				return nil, &domain.StructureError{Path: p, Reason: fmt.Sprintf("malformed selector %q", brackets)}
			}
			sel := brackets[1:end]
			brackets = brackets[end+1:]
			if sel == "" {
				out = append(out, nil)
				continue
			}
			i, err := strconv.Atoi(sel)
			if err != nil {
				return nil, &domain.StructureError{Path: p, Reason: fmt.Sprintf("bad index %q", sel)}
			}
			out = append(out, i)
		}
	}
	return out, nil
}
