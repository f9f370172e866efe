// Package fields holds the parsing helpers shared by the vendor extractors.
package fields

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/mikey/vendor-order-intake/internal/extract/markup"
)

// ErrNoContent is returned when an email carries neither markup nor plain text
var ErrNoContent = errors.New("email has no markup or plain text content")

var (
	sizePattern     = regexp.MustCompile(`(\d{2})\s*[-x/□]\s*(\d{2})(?:\s*[-x/]\s*(\d{3}))?`)
	parenColor      = regexp.MustCompile(`^(.*?)\s*\(\s*([A-Za-z0-9./-]+)\s*\)$`)
	leadingCode     = regexp.MustCompile(`^([A-Za-z]?\d[\w/.]*)\s*-?\s+(.+)$`)
	columnSeparator = regexp.MustCompile(`\s{2,}|\s*\|\s*`)
	nonDigits       = regexp.MustCompile(`\D`)
)

// Label matches "Name: value" lines for any of a set of label spellings.
// Dot leaders ("ORDER NO.....:") and "#" separators are accepted.
type Label struct {
	pattern *regexp.Regexp
}

// NewLabel compiles a label matcher for names
func NewLabel(names ...string) Label {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(n), " ", `\s+`))
	}
	return Label{
		pattern: regexp.MustCompile(`(?i)^\s*(?:` + strings.Join(quoted, "|") + `)[\s.]*[:#][\s:#]*(.*)$`),
	}
}

// Match returns the value of text if it starts with the label
func (l Label) Match(text string) (string, bool) {
	m := l.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return markup.Clean(m[1]), true
}

// Cells returns the value of a table row whose first cell is the label
func (l Label) Cells(cells []string) (string, bool) {
	if len(cells) < 2 {
		return "", false
	}
	if _, ok := l.Match(cells[0] + ":"); !ok {
		return "", false
	}
	for _, c := range cells[1:] {
		if c != "" {
			return c, true
		}
	}
	return "", true
}

// Find returns the first value for the label across lines
func (l Label) Find(lines []markup.Line) (string, bool) {
	for _, line := range lines {
		if v, ok := l.Line(line); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Line matches a single line, either "Label: value" text or a label/value row
func (l Label) Line(line markup.Line) (string, bool) {
	if line.IsRow() {
		if v, ok := l.Cells(line.Cells); ok {
			return v, true
		}
	}
	return l.Match(line.Text)
}

// ParseInt parses an integer tolerating thousands separators and whitespace
func ParseInt(s string) (int, bool) {
	s = strings.NewReplacer(",", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParsePrice parses "$1,234.50" style amounts; nil when s is not a number
func ParsePrice(s string) *float64 {
	s = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Size is a frame measurement
type Size struct {
	Eye    string
	Bridge string
	Temple string
}

// String renders the measurement in the usual eye-bridge-temple form
func (s Size) String() string {
	parts := []string{s.Eye, s.Bridge}
	if s.Temple != "" {
		parts = append(parts, s.Temple)
	}
	return strings.Join(parts, "-")
}

// ParseSize finds an eye-bridge[-temple] measurement in s
func ParseSize(s string) (Size, bool) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return Size{}, false
	}
	return Size{Eye: m[1], Bridge: m[2], Temple: m[3]}, true
}

// SplitColor separates a colour description from its vendor colour code.
// "Black (001)", "001 Black" and "C1 - Black" are recognised.
func SplitColor(raw string) (name, code string) {
	raw = markup.Clean(raw)
	if m := parenColor.FindStringSubmatch(raw); m != nil {
		return m[1], m[2]
	}
	if m := leadingCode.FindStringSubmatch(raw); m != nil {
		return m[2], m[1]
	}
	return raw, ""
}

// SplitColumns splits a plain-text table row on runs of spaces or pipes
func SplitColumns(text string) []string {
	parts := columnSeparator.Split(strings.TrimSpace(text), -1)
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

// Digits strips everything but digits, for UPC cells
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// IsUPC reports whether s looks like a UPC-A or EAN-13 code
func IsUPC(s string) bool {
	d := Digits(s)
	return len(d) >= 12 && len(d) <= 14 && len(d) == len(strings.TrimSpace(s))
}
