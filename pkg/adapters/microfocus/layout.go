package microfocus

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// Kind is how a column's bytes are decoded.
type Kind int

const (
	// Text is space- and NUL-trimmed character data.
	Text Kind = iota
	// Bytes is the raw slice.
	Bytes
	// Uint is a big-endian unsigned binary integer (COMP).
	Uint
	// Display is a numeric field stored as ASCII digits, optionally signed.
	Display
)

// Column is a named slice of a record body.
type Column struct {
	Name   string
	Offset int
	Length int
	Kind   Kind
}

// Layout describes the columns of a record body.
type Layout []Column

func (l Layout) index(name string) (int, bool) {
	for i, c := range l {
		if c.Name == name {
			return i, true
		}
	}
	return 0, false
}

// decode extracts column c from body. Columns beyond a short body are absent.
func (c Column) decode(body []byte) (any, bool) {
	if c.Offset < 0 || c.Length <= 0 || c.Offset+c.Length > len(body) {
		return nil, false
	}
	b := body[c.Offset : c.Offset+c.Length]
	switch c.Kind {
	case Bytes:
		out := make([]byte, len(b))
		copy(out, b)
		return out, true
	case Uint:
		switch len(b) {
		case 1:
			return int64(b[0]), true
		case 2:
			return int64(binary.BigEndian.Uint16(b)), true
		case 4:
			return int64(binary.BigEndian.Uint32(b)), true
		case 8:
			return int64(binary.BigEndian.Uint64(b)), true
		}
		var n int64
		for _, x := range b {
			n = n<<8 | int64(x)
		}
		return n, true
	case Display:
		s := strings.Trim(string(b), " \x00")
		if s == "" {
			return nil, true
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return string(b), true
		}
		return n, true
	}
	return strings.TrimRight(string(b), " \x00"), true
}
