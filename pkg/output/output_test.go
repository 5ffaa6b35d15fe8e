package output

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriterOutput(&buf)

	err := out.WriteBatch([][]byte{[]byte("a.txt\n"), []byte("b.txt"), {}})
	require.NoError(t, err)
	assert.Equal(t, "a.txt\nb.txt\n\n", buf.String())
}

func TestHTTPOutput(t *testing.T) {
	var body []byte
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		token = r.Header.Get("X-Token")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	out := NewHTTPOutput(srv.URL, map[string]string{"X-Token": "secret"})
	require.NoError(t, out.WriteBatch([][]byte{[]byte("one"), []byte("two")}))
	assert.Equal(t, "one\ntwo", string(body))
	assert.Equal(t, "secret", token)
}

func TestHTTPOutput_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPOutput(srv.URL, nil).WriteBatch([][]byte{[]byte("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

type countingOutput struct {
	calls atomic.Int32
	err   error
}

func (c *countingOutput) WriteBatch(entries [][]byte) error {
	c.calls.Add(1)
	return c.err
}

func TestFanOutOutput(t *testing.T) {
	ok := &countingOutput{}
	failing := &countingOutput{err: errors.New("sink down")}

	fan := NewFanOutOutput(ok, failing)
	err := fan.WriteBatch([][]byte{[]byte("x")})
	require.EqualError(t, err, "sink down")
	assert.Equal(t, int32(1), ok.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load())

	require.NoError(t, NewFanOutOutput().WriteBatch(nil))
}
