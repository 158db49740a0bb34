package microfocus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// HeaderSize is the fixed length of the file header.
const HeaderSize = 128

// RecordType is the top nibble of every record header.
type RecordType uint8

const (
	DuplicateSystem   RecordType = 0b0001
	Deleted           RecordType = 0b0010
	System            RecordType = 0b0011
	Normal            RecordType = 0b0100
	Reduced           RecordType = 0b0101
	Pointer           RecordType = 0b0110
	PointerRef        RecordType = 0b0111
	ReducedPointerRef RecordType = 0b1000
)

func (t RecordType) String() string {
	switch t {
	case DuplicateSystem:
		return "duplicate_system"
	case Deleted:
		return "deleted"
	case System:
		return "system"
	case Normal:
		return "normal"
	case Reduced:
		return "reduced"
	case Pointer:
		return "pointer"
	case PointerRef:
		return "pointer_ref"
	case ReducedPointerRef:
		return "reduced_pointer_ref"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Organization is how records are arranged in the file.
type Organization uint8

const (
	Sequential Organization = 1
	Indexed    Organization = 2
	Relative   Organization = 3
)

// ErrInvalidHeader is returned for files that do not start with a valid system header.
var ErrInvalidHeader = errors.New("invalid microfocus header")

// Header is the decoded file header.
type Header struct {
	Sequence       uint16
	CreationTime   time.Time
	Organization   Organization
	Compression    uint8
	IndexType      uint8
	VariableLength bool
	MinLength      uint32
	MaxLength      uint32
	IndexVersion   uint32
	// LongRecords is set when record headers are 4 bytes wide.
	LongRecords bool
}

// Map returns the header as a mapping, for use as an Item value.
func (h *Header) Map() map[string]any {
	return map[string]any{
		"sequence":        int64(h.Sequence),
		"creation_time":   h.CreationTime,
		"organization":    int64(h.Organization),
		"compression":     int64(h.Compression),
		"index_type":      int64(h.IndexType),
		"variable_length": h.VariableLength,
		"min_length":      int64(h.MinLength),
		"max_length":      int64(h.MaxLength),
		"index_version":   int64(h.IndexVersion),
	}
}

// ParseHeader decodes the 128-byte file header.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidHeader, len(b), HeaderSize)
	}
	if RecordType(b[0]>>4) != System {
		return nil, fmt.Errorf("%w: not a system record", ErrInvalidHeader)
	}

	h := &Header{}
	switch binary.BigEndian.Uint16(b) & 0xFFF {
	case 126:
		// Maximum record length below 4095 bytes.
	case 0:
		if binary.BigEndian.Uint32(b)&0xFFF != 124 {
			return nil, fmt.Errorf("%w: bad header record length", ErrInvalidHeader)
		}
		h.LongRecords = true
	default:
		return nil, fmt.Errorf("%w: bad header record length", ErrInvalidHeader)
	}

	// Field offsets are the same for both header lengths.
	h.Sequence = binary.BigEndian.Uint16(b[4:])
	if integrity := binary.BigEndian.Uint16(b[6:]); integrity != 0 {
		return nil, fmt.Errorf("%w: integrity flag set, file is corrupt", ErrInvalidHeader)
	}
	if marker := binary.BigEndian.Uint16(b[36:]); marker != 62 {
		return nil, fmt.Errorf("%w: bytes 36-37 are %d, want 62", ErrInvalidHeader, marker)
	}
	created := strings.TrimRight(string(b[8:22]), " \x00")
	if len(created) >= 12 {
		t, err := time.Parse("060102150405", created[:12])
		if err != nil {
			return nil, fmt.Errorf("%w: creation time %q: %v", ErrInvalidHeader, created, err)
		}
		h.CreationTime = t
	}
	h.Organization = Organization(b[39])
	h.Compression = b[41]
	h.IndexType = b[43]
	h.VariableLength = b[45] != 0
	h.MinLength = binary.BigEndian.Uint32(b[51:])
	h.MaxLength = binary.BigEndian.Uint32(b[55:])
	h.IndexVersion = binary.BigEndian.Uint32(b[105:])
	return h, nil
}
