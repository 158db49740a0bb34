package csv

import "strconv"

// Header maps column names to positions. Duplicate names resolve to the first column.
type Header struct {
	names []string
	pos   map[string]int
}

// NewHeader indexes names.
func NewHeader(names []string) *Header {
	h := &Header{names: names, pos: make(map[string]int, len(names))}
	for i, n := range names {
		if _, dup := h.pos[n]; !dup {
			h.pos[n] = i
		}
	}
	return h
}

// Names returns the column names in file order.
func (h *Header) Names() []string { return h.names }

// Row is one data line read under a header.
type Row struct {
	header *Header
	values []string
}

// Field implements ports.Record. String keys are column names; integer keys are positions,
// negative ones counting from the end. Short lines read their missing columns as absent.
func (r *Row) Field(key any) (any, bool) {
	var i int
	switch k := key.(type) {
	case string:
		p, ok := r.header.pos[k]
		if !ok {
			n, err := strconv.Atoi(k)
			if err != nil {
				return nil, false
			}
			p = n
		}
		i = p
	case int:
		i = k
	case int64:
		i = int(k)
	default:
		return nil, false
	}
	if i < 0 {
		i += len(r.values)
	}
	if i < 0 || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

// Values returns the raw line.
func (r *Row) Values() []string { return r.values }

// Map returns the line as a name -> value mapping.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.header.names))
	for i, n := range r.header.names {
		if _, seen := m[n]; seen {
			continue
		}
		if i < len(r.values) {
			m[n] = r.values[i]
		} else {
			m[n] = nil
		}
	}
	return m
}
