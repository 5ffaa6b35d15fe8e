package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_WholeEntry(t *testing.T) {
	sel, err := NewSelector("", "")
	require.NoError(t, err)
	assert.True(t, sel.IsWholeEntry())

	got, ok := sel.Select([]byte("not json"))
	assert.True(t, ok)
	assert.Equal(t, "not json", string(got))
}

func TestSelector_Attribute(t *testing.T) {
	sel, err := NewSelector("", "file.name")
	require.NoError(t, err)

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "top-level dotted key", input: `{"file.name": "a.txt"}`, want: "a.txt", wantOK: true},
		{name: "nested object", input: `{"file": {"name": "b.txt"}}`, want: "b.txt", wantOK: true},
		{name: "otel attributes", input: `{"attributes": {"file.name": "c.txt"}}`, want: "c.txt", wantOK: true},
		{name: "missing", input: `{"message": "hello"}`, wantOK: false},
		{name: "invalid json", input: `{broken`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sel.Select([]byte(tt.input))
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, string(got))
			}
		})
	}
}

func TestSelector_GenericAttribute(t *testing.T) {
	sel, err := NewSelector("", "custom.arg")
	require.NoError(t, err)

	got, ok := sel.Select([]byte(`{"resourceAttributes": {"custom.arg": "-x"}}`))
	require.True(t, ok)
	assert.Equal(t, "-x", string(got))

	got, ok = sel.Select([]byte(`{"body": {"custom.arg": 42}}`))
	require.True(t, ok)
	assert.Equal(t, "42", string(got))
}

func TestSelector_Path(t *testing.T) {
	sel, err := NewSelector("request/headers/x-file.name", "")
	require.NoError(t, err)

	got, ok := sel.Select([]byte(`{"request": {"headers": {"x-file.name": "report.pdf"}}}`))
	require.True(t, ok)
	assert.Equal(t, "report.pdf", string(got))
}

func TestSelector_BothSet(t *testing.T) {
	_, err := NewSelector("a", "b")
	require.Error(t, err)
}

func TestConvertToGjsonPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "simple", want: "simple"},
		{input: "a/b/c", want: "a.b.c"},
		{input: "resource/attributes/file.name", want: `resource.attributes.file\.name`},
		{input: "args/0", want: "args.0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, convertToGjsonPath(tt.input))
		})
	}
}
