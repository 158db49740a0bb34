package microfocus

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Record is one data record.
type Record struct {
	Type   RecordType
	Body   []byte
	layout Layout
}

// Field implements ports.Record. "type" and "body" are always available; other names and
// integer positions resolve through the layout.
func (r *Record) Field(key any) (any, bool) {
	switch k := key.(type) {
	case string:
		switch k {
		case "type":
			return r.Type.String(), true
		case "body":
			return r.Body, true
		}
		i, ok := r.layout.index(k)
		if !ok {
			return nil, false
		}
		return r.layout[i].decode(r.Body)
	case int:
		if k < 0 || k >= len(r.layout) {
			return nil, false
		}
		return r.layout[k].decode(r.Body)
	}
	return nil, false
}

// Map returns the decoded columns.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.layout))
	for _, c := range r.layout {
		v, _ := c.decode(r.Body)
		m[c.Name] = v
	}
	return m
}

// Reader reads records sequentially.
type Reader struct {
	r           *bufio.Reader
	header      *Header
	layout      Layout
	skipDeleted bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLayout decodes record bodies into named columns.
func WithLayout(l Layout) ReaderOption {
	return func(r *Reader) { r.layout = l }
}

// SkipDeleted drops records marked as deleted.
func SkipDeleted() ReaderOption {
	return func(r *Reader) { r.skipDeleted = true }
}

// NewReader reads and validates the file header.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	rd := &Reader{r: bufio.NewReader(r)}
	for _, opt := range opts {
		opt(rd)
	}
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	rd.header = h
	if err := rd.skipPadding(); err != nil {
		return nil, err
	}
	return rd, nil
}

// Header returns the decoded file header.
func (r *Reader) Header() *Header { return r.header }

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (*Record, error) {
	for {
		rec, err := r.next()
		if err != nil {
			return nil, err
		}
		if r.skipDeleted && rec.Type == Deleted {
			continue
		}
		return rec, nil
	}
}

func (r *Reader) next() (*Record, error) {
	width, mask := 2, uint32(0xFFF)
	if r.header.LongRecords {
		width, mask = 4, 0xFFFFFFF
	}
	hdr := make([]byte, width)
	if _, err := io.ReadFull(r.r, hdr); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read record header: %w", err)
	}
	var length uint32
	if width == 2 {
		length = uint32(binary.BigEndian.Uint16(hdr))
	} else {
		length = binary.BigEndian.Uint32(hdr)
	}
	length &= mask

	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, fmt.Errorf("read record body (%d bytes): %w", length, err)
	}
	if err := r.skipPadding(); err != nil {
		return nil, err
	}
	return &Record{Type: RecordType(hdr[0] >> 4), Body: body, layout: r.layout}, nil
}

// skipPadding advances to the next non-NUL byte.
func (r *Reader) skipPadding() error {
	for {
		b, err := r.r.ReadByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if b != 0 {
			return r.r.UnreadByte()
		}
	}
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([]*Record, error) {
	var out []*Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
