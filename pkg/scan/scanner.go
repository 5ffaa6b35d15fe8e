package scan

import (
	"errors"
	"fmt"
)

// DefaultMarker is the byte whose consecutive repetition ("--") marks an entry as suspicious.
const DefaultMarker byte = '-'

var (
	// ErrSuspicious is returned by Write once the stream has been judged suspicious.
	ErrSuspicious = errors.New("suspicious input")
)

// Scanner flags a byte stream that contains a forbidden byte or two marker bytes in a row.
// The stream may arrive in any number of chunks; the last byte of each chunk is carried
// over so a marker run split across two Scan calls is still caught.
//
// A Scanner is not safe for concurrent use. Once Scan has returned true the verdict is
// sticky: further calls return true without inspecting input until Reset is called.
type Scanner struct {
	set    *ForbiddenSet
	marker byte

	// Cursor state. seen is false until a byte has been observed, since every value of
	// last is legitimate data.
	last    byte
	seen    bool
	tripped bool
}

// NewScanner creates a Scanner around set using DefaultMarker.
func NewScanner(set *ForbiddenSet) (*Scanner, error) {
	return NewScannerWithMarker(set, DefaultMarker)
}

// NewScannerWithMarker creates a Scanner around set with a custom marker byte.
func NewScannerWithMarker(set *ForbiddenSet, marker byte) (*Scanner, error) {
	if set == nil {
		return nil, fmt.Errorf("nil forbidden set: %w", ErrInvalidArgument)
	}
	return &Scanner{
		set:    set,
		marker: marker,
	}, nil
}

// Scan consumes p and reports whether the stream so far is suspicious.
// It stops at the first offending byte; nothing after it is inspected.
// An empty p returns false and leaves the cursor untouched.
func (s *Scanner) Scan(p []byte) bool {
	if s.tripped {
		return true
	}
	for _, b := range p {
		if s.step(b) {
			s.tripped = true
			return true
		}
	}
	return false
}

// ScanString is Scan for string input.
func (s *Scanner) ScanString(str string) bool {
	if s.tripped {
		return true
	}
	for i := 0; i < len(str); i++ {
		if s.step(str[i]) {
			s.tripped = true
			return true
		}
	}
	return false
}

// step advances the cursor by one byte and reports whether b ends the stream as suspicious.
func (s *Scanner) step(b byte) bool {
	if s.set.present[b] {
		return true
	}
	if b == s.marker && s.seen && s.last == s.marker {
		return true
	}
	s.last = b
	s.seen = true
	return false
}

// IsForbidden reports whether b is in the scanner's forbidden set.
// It does not touch the cursor.
func (s *Scanner) IsForbidden(b byte) bool {
	return s.set.Contains(b)
}

// Marker returns the configured marker byte.
func (s *Scanner) Marker() byte {
	return s.marker
}

// Set returns the forbidden set the scanner was built with.
func (s *Scanner) Set() *ForbiddenSet {
	return s.set
}

// Tripped reports whether Scan has returned true since construction or the last Reset.
func (s *Scanner) Tripped() bool {
	return s.tripped
}

// Reset forgets the cursor so the next Scan starts a logically unrelated stream.
// The forbidden set is unchanged.
func (s *Scanner) Reset() {
	s.last = 0
	s.seen = false
	s.tripped = false
}

// Write lets a Scanner sit behind io.Copy or io.TeeReader. It accepts the chunk and
// returns ErrSuspicious as soon as the stream is judged suspicious.
func (s *Scanner) Write(p []byte) (int, error) {
	if s.Scan(p) {
		return 0, ErrSuspicious
	}
	return len(p), nil
}

// Check runs a one-shot scan of p with a fresh cursor.
func Check(set *ForbiddenSet, marker byte, p []byte) bool {
	if set == nil {
		set = &ForbiddenSet{}
	}
	s := Scanner{set: set, marker: marker}
	return s.Scan(p)
}
