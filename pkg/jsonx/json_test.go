package jsonx

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "object", input: `{"doc_id":"Saola","page":12}`, ok: true},
		{name: "empty object", input: `{}`, ok: true},
		{name: "array", input: `[1,2,3]`, ok: false},
		{name: "string", input: `"Saola"`, ok: false},
		{name: "null", input: `null`, ok: false},
		{name: "truncated", input: `{"doc_id":"Sao`, ok: false},
		{name: "garbage", input: `not json`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, ok := DecodeObject([]byte(tt.input))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.NotNil(t, obj)
			}
		})
	}
}

func TestDecodeObject_NumbersAreFloat(t *testing.T) {
	obj, ok := DecodeObject([]byte(`{"page":12}`))
	require.True(t, ok)
	assert.Equal(t, float64(12), obj["page"])
}

func TestEncoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(map[string]int{"total": 3}))
	assert.JSONEq(t, `{"total":3}`, buf.String())
}

func TestIsUsingSonic(t *testing.T) {
	want := runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64"
	assert.Equal(t, want, IsUsingSonic())
}
