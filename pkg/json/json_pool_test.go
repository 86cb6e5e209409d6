package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Type string   `json:"type"`
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

func TestMarshalDoesNotEscapeHTML(t *testing.T) {
	data, err := Marshal(record{Type: "entity", Name: "a<b>&c", Tags: []string{}})
	require.NoError(t, err)
	assert.Equal(t, `{"type":"entity","name":"a<b>&c","tags":[]}`, string(data))
}

func TestMarshalUnmarshal(t *testing.T) {
	in := record{Type: "relation", Name: "WIDGET → BASE", Tags: []string{"x"}}
	data, err := Marshal(in)
	require.NoError(t, err)

	var out record
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestLineEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewLineEncoder(&buf)

	require.NoError(t, enc.Encode(record{Type: "entity", Name: "A"}))
	require.NoError(t, enc.Encode(record{Type: "entity", Name: "B"}))

	assert.Equal(t, 2, enc.Lines())
	assert.Equal(t,
		`{"type":"entity","name":"A","tags":null}`+"\n"+`{"type":"entity","name":"B","tags":null}`+"\n",
		buf.String())
}

func TestBufferPool(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("leftover")
	PutBuffer(buf)

	again := GetBuffer()
	assert.Equal(t, 0, again.Len())
	PutBuffer(again)
}
