package pipeline

import (
	"errors"
	"strings"
	"time"

	"github.com/aretw0/sluice/pkg/domain"
)

const (
	// DateLayout is the default layout of ParseDate and FormatDate.
	DateLayout = "2006-01-02"
	// DateTimeLayout is the default layout of ParseDateTime and FormatDateTime.
	DateTimeLayout = "2006-01-02 15:04:05"
)

var errNoZeroForm = errors.New("layout has no all-zero form")

// DateOption tunes date parsing and formatting.
type DateOption func(*dateConfig)

type dateConfig struct {
	zero bool
	loc  *time.Location
}

// ZeroDate treats the all-zero rendering of the layout ("0000-00-00") as nil:
// parsing it yields nil and formatting nil yields it.
func ZeroDate() DateOption {
	return func(c *dateConfig) { c.zero = true }
}

// InLocation parses times without zone information in loc instead of UTC.
func InLocation(loc *time.Location) DateOption {
	return func(c *dateConfig) { c.loc = loc }
}

// ParseDate parses a string with a Go time layout (DateLayout when empty).
func (it *Item) ParseDate(layout string, opts ...DateOption) *Item {
	if layout == "" {
		layout = DateLayout
	}
	return it.parseTime("parse_date", layout, opts)
}

// ParseDateTime parses a string with a Go time layout (DateTimeLayout when empty).
func (it *Item) ParseDateTime(layout string, opts ...DateOption) *Item {
	if layout == "" {
		layout = DateTimeLayout
	}
	return it.parseTime("parse_datetime", layout, opts)
}

// FormatDate renders a time.Time with a Go time layout (DateLayout when empty).
func (it *Item) FormatDate(layout string, opts ...DateOption) *Item {
	if layout == "" {
		layout = DateLayout
	}
	return it.formatTime("format_date", layout, opts)
}

// FormatDateTime renders a time.Time with a Go time layout (DateTimeLayout when empty).
func (it *Item) FormatDateTime(layout string, opts ...DateOption) *Item {
	if layout == "" {
		layout = DateTimeLayout
	}
	return it.formatTime("format_datetime", layout, opts)
}

func (it *Item) parseTime(op, layout string, opts []DateOption) *Item {
	if !it.live() || it.value == nil {
		return it
	}
	cfg := dateConfig{loc: time.UTC}
	for _, opt := range opts {
		opt(&cfg)
	}
	if t, ok := it.value.(time.Time); ok {
		it.value = t
		return it
	}
	s, ok := asString(it.value)
	if !ok {
		it.fail(domain.NewValueError(op, it.value, errNotText))
		return it
	}
	if cfg.zero {
		if zero, ok := ZeroForm(layout); ok && s == zero {
			it.value = nil
			return it
		}
	}
	t, err := time.ParseInLocation(layout, s, cfg.loc)
	if err != nil {
		it.fail(domain.NewValueError(op, it.value, err))
		return it
	}
	it.value = t
	return it
}

func (it *Item) formatTime(op, layout string, opts []DateOption) *Item {
	if !it.live() {
		return it
	}
	var cfg dateConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	switch v := it.value.(type) {
	case nil:
		if cfg.zero {
			zero, ok := ZeroForm(layout)
			if !ok {
				it.fail(domain.NewValueError(op, layout, errNoZeroForm))
				return it
			}
			it.value = zero
		}
	case time.Time:
		it.value = v.Format(layout)
	case *time.Time:
		if v == nil {
			return it
		}
		it.value = v.Format(layout)
	default:
		it.fail(domain.NewValueError(op, it.value, errors.New("not a time")))
	}
	return it
}

// ZeroForm renders layout with every numeric element set to zero, keeping its width:
// "2006-01-02 15:04:05" becomes "0000-00-00 00:00:00". Literal text is kept as is.
// Layouts containing month or weekday names, AM/PM markers or zones have no zero form.
func ZeroForm(layout string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(layout); {
		zero, n, ok := zeroElement(layout[i:])
		if !ok {
			return "", false
		}
		if n == 0 {
			b.WriteByte(layout[i])
			i++
			continue
		}
		b.WriteString(zero)
		i += n
	}
	return b.String(), true
}

// zeroElement recognizes the layout element at the start of s, following the rules of
// the time package. n is 0 when s starts with a literal byte.
func zeroElement(s string) (zero string, n int, ok bool) {
	has := func(p string) bool { return strings.HasPrefix(s, p) }
	switch s[0] {
	case 'J':
		if has("Jan") {
			return "", 0, false
		}
	case 'M':
		if has("Mon") || has("MST") {
			return "", 0, false
		}
	case 'P':
		if has("PM") {
			return "", 0, false
		}
	case 'p':
		if has("pm") {
			return "", 0, false
		}
	case '-', 'Z':
		if strings.HasPrefix(s[1:], "07") {
			return "", 0, false
		}
	case '0':
		if len(s) >= 2 && '1' <= s[1] && s[1] <= '6' {
			return "00", 2, true
		}
		if has("002") {
			return "000", 3, true
		}
	case '1':
		if has("15") {
			return "00", 2, true
		}
		return "0", 1, true
	case '2':
		if has("2006") {
			return "0000", 4, true
		}
		return "0", 1, true
	case '_':
		if has("__2") {
			return "  0", 3, true
		}
		if has("_2") && !has("_2006") {
			return " 0", 2, true
		}
	case '3', '4', '5':
		return "0", 1, true
	case '.', ',':
		if len(s) >= 2 && (s[1] == '0' || s[1] == '9') {
			j := 1
			for j < len(s) && s[j] == s[1] {
				j++
			}
			if j == len(s) || s[j] < '0' || s[j] > '9' {
				if s[1] == '9' {
					// Trailing zeros of fractional seconds are elided.
					return "", j, true
				}
				return s[:1] + strings.Repeat("0", j-1), j, true
			}
		}
	}
	return "", 0, true
}
