package scan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidArgument is returned when a caller hands the scanner a value it cannot represent,
	// e.g. a byte value outside 0..255. These are caller bugs and are never retried.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ForbiddenSet is a membership table over the full byte range.
// It is never mutated after construction, so one set can back any number of Scanners.
type ForbiddenSet struct {
	present [256]bool
}

// BuildForbiddenSet marks every listed byte as forbidden. Duplicates are fine.
// An empty list yields a set that matches nothing (marker-run detection only).
func BuildForbiddenSet(values []byte) *ForbiddenSet {
	set := &ForbiddenSet{}
	for _, b := range values {
		set.present[b] = true
	}
	return set
}

// BuildForbiddenSetInts is the variant for callers holding untyped integers.
// Values outside 0..255 fail instead of wrapping.
func BuildForbiddenSetInts(values []int) (*ForbiddenSet, error) {
	set := &ForbiddenSet{}
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("forbidden byte at index %d: value %d out of range 0..255: %w", i, v, ErrInvalidArgument)
		}
		set.present[v] = true
	}
	return set, nil
}

// Contains reports whether b is forbidden.
func (s *ForbiddenSet) Contains(b byte) bool {
	if s == nil {
		return false
	}
	return s.present[b]
}

// Bytes returns the members in ascending order.
func (s *ForbiddenSet) Bytes() []byte {
	if s == nil {
		return nil
	}
	var out []byte
	for i, ok := range s.present {
		if ok {
			out = append(out, byte(i))
		}
	}
	return out
}

// Len returns the number of forbidden values.
func (s *ForbiddenSet) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, ok := range s.present {
		if ok {
			n++
		}
	}
	return n
}

// ParseByteList parses a configuration list such as "0x00, 0x0a, 13 '-'".
// Tokens are separated by commas and/or whitespace and may be decimal (leading zeros
// stay decimal), hex (0x..) or a single quoted character.
func ParseByteList(s string) ([]byte, error) {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	out := make([]byte, 0, len(tokens))
	for _, tok := range tokens {
		b, err := ParseByte(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// ParseByte parses a single byte token (see ParseByteList). A bare single character
// other than a digit is also accepted, so "-" means 0x2d.
func ParseByte(tok string) (byte, error) {
	tok = strings.TrimSpace(tok)
	switch {
	case tok == "":
		return 0, fmt.Errorf("empty byte token: %w", ErrInvalidArgument)
	case len(tok) == 3 && tok[0] == '\'' && tok[2] == '\'':
		return tok[1], nil
	case len(tok) == 1 && (tok[0] < '0' || tok[0] > '9'):
		return tok[0], nil
	}

	digits, base := tok, 10
	if strings.HasPrefix(tok, "0x") || strings.HasPrefix(tok, "0X") {
		digits, base = tok[2:], 16
	}
	if digits == "" || digits[0] == '+' || digits[0] == '-' {
		return 0, fmt.Errorf("byte token %q: %w", tok, ErrInvalidArgument)
	}
	v, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("byte token %q: %w", tok, ErrInvalidArgument)
	}
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("byte token %q: value %d out of range 0..255: %w", tok, v, ErrInvalidArgument)
	}
	return byte(v), nil
}
