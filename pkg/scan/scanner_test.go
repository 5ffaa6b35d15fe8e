package scan

import (
	"bytes"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(t *testing.T) *Scanner {
	t.Helper()
	s, err := NewScanner(BuildForbiddenSet([]byte{0x00, 0x0A}))
	require.NoError(t, err)
	return s
}

func TestScanner_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []bool
	}{
		{name: "clean", chunks: []string{"abc"}, want: []bool{false}},
		{name: "marker run", chunks: []string{"a--b"}, want: []bool{true}},
		{name: "single marker", chunks: []string{"a-b-c"}, want: []bool{false}},
		{name: "run across boundary", chunks: []string{"a-", "-b"}, want: []bool{false, true}},
		{name: "forbidden NUL", chunks: []string{"a\x00b"}, want: []bool{true}},
		{name: "forbidden LF", chunks: []string{"line\n"}, want: []bool{true}},
		{name: "empty", chunks: []string{""}, want: []bool{false}},
		{name: "empty between markers", chunks: []string{"x-", "", "-"}, want: []bool{false, false, true}},
		{name: "marker at start", chunks: []string{"-", "a", "-"}, want: []bool{false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScanner(t)
			for i, chunk := range tt.chunks {
				assert.Equal(t, tt.want[i], s.Scan([]byte(chunk)), "chunk %d (%q)", i, chunk)
			}
		})
	}
}

func TestScanner_EmptyLeavesCursor(t *testing.T) {
	s := newTestScanner(t)

	require.False(t, s.Scan([]byte("-")))
	require.False(t, s.Scan(nil))
	require.False(t, s.Scan([]byte{}))
	assert.True(t, s.seen)
	assert.Equal(t, byte('-'), s.last)
	assert.True(t, s.Scan([]byte("-")))
}

func TestScanner_IsForbidden(t *testing.T) {
	s := newTestScanner(t)

	assert.True(t, s.IsForbidden(0x0A))
	assert.True(t, s.IsForbidden(0x00))
	assert.False(t, s.IsForbidden(0x41))
	assert.False(t, s.IsForbidden('-'))

	// Scanning never changes membership.
	s.Scan([]byte("a--\x00"))
	assert.True(t, s.IsForbidden(0x0A))
	assert.False(t, s.IsForbidden(0x41))
}

func TestScanner_ResetClearsBoundary(t *testing.T) {
	s := newTestScanner(t)

	require.False(t, s.Scan([]byte("a-")))
	s.Reset()
	assert.False(t, s.Scan([]byte("-b")), "marker before reset must not pair with marker after it")
	assert.False(t, s.Tripped())
}

func TestScanner_StickyUntilReset(t *testing.T) {
	s := newTestScanner(t)

	require.True(t, s.Scan([]byte("--")))
	assert.True(t, s.Tripped())
	assert.True(t, s.Scan([]byte("clean")))
	assert.True(t, s.Scan(nil))

	s.Reset()
	assert.False(t, s.Tripped())
	assert.False(t, s.Scan([]byte("clean")))
}

func TestScanner_EmptySetRunDetection(t *testing.T) {
	s, err := NewScanner(BuildForbiddenSet(nil))
	require.NoError(t, err)

	for b := 0; b < 256; b++ {
		assert.False(t, s.IsForbidden(byte(b)))
	}
	assert.False(t, s.Scan([]byte("a\x00b\n")))
	assert.True(t, s.Scan([]byte("--")))
}

func TestScanner_CustomMarker(t *testing.T) {
	s, err := NewScannerWithMarker(BuildForbiddenSet(nil), '/')
	require.NoError(t, err)

	assert.Equal(t, byte('/'), s.Marker())
	assert.False(t, s.Scan([]byte("--a/b")))
	assert.True(t, s.Scan([]byte("/")))
}

func TestScanner_AllByteValuesAreData(t *testing.T) {
	// 0x00 must not be confused with the "unobserved" state.
	s, err := NewScannerWithMarker(BuildForbiddenSet(nil), 0x00)
	require.NoError(t, err)

	assert.False(t, s.Scan([]byte{0x00}))
	assert.True(t, s.Scan([]byte{0x00}))
}

func TestScanner_ScanString(t *testing.T) {
	s := newTestScanner(t)

	assert.False(t, s.ScanString("a-"))
	assert.True(t, s.ScanString("-b"))
}

func TestNewScanner_NilSet(t *testing.T) {
	_, err := NewScanner(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestScanner_Writer(t *testing.T) {
	s := newTestScanner(t)

	n, err := io.Copy(s, strings.NewReader("--verbose"))
	require.ErrorIs(t, err, ErrSuspicious)
	assert.Zero(t, n)

	s.Reset()
	n, err = io.Copy(s, strings.NewReader("plain-value"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("plain-value")), n)
}

func TestCheck(t *testing.T) {
	set := BuildForbiddenSet([]byte{'\n'})

	assert.False(t, Check(set, '-', []byte("a-b")))
	assert.True(t, Check(set, '-', []byte("a--b")))
	assert.True(t, Check(set, '-', []byte("a\nb")))
	assert.True(t, Check(nil, '-', []byte("--")))
}

// suspicious is the reference definition: any forbidden byte, or two markers with no
// non-marker byte between them.
func suspicious(set *ForbiddenSet, marker byte, p []byte) bool {
	for i, b := range p {
		if set.Contains(b) {
			return true
		}
		if i > 0 && b == marker && p[i-1] == marker {
			return true
		}
	}
	return false
}

func TestScanner_ChunkInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []byte{'a', 'b', '-', '-', ' ', 0x00, 0x0A, 0xFF}
	set := BuildForbiddenSet([]byte{0x00, 0x0A})

	for iter := 0; iter < 2000; iter++ {
		data := make([]byte, rng.Intn(24))
		for i := range data {
			data[i] = alphabet[rng.Intn(len(alphabet))]
		}
		want := suspicious(set, DefaultMarker, data)

		whole, err := NewScanner(set)
		require.NoError(t, err)
		require.Equal(t, want, whole.Scan(data), "whole %q", data)

		chunked, err := NewScanner(set)
		require.NoError(t, err)
		got := false
		rest := data
		for len(rest) > 0 {
			n := rng.Intn(len(rest) + 1)
			if chunked.Scan(rest[:n]) {
				got = true
				break
			}
			rest = rest[n:]
		}
		require.Equal(t, want, got, "chunked %q", data)
	}
}

func BenchmarkScanner_Clean(b *testing.B) {
	s, _ := NewScanner(BuildForbiddenSet([]byte{0x00, 0x0A, 0x0D}))
	data := bytes.Repeat([]byte("file-name_with-single-dashes.txt "), 128)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Reset()
		_ = s.Scan(data)
	}
}
