// Package json provides JSON serialization backed by goccy/go-json with
// pooled buffers
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

const maxPooledBuffer = 1024 * 1024

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	bufferPool.Put(buf)
}

// NewEncoder creates an encoder that leaves <, > and & unescaped.
func NewEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// Marshal encodes v without HTML escaping and without a trailing newline.
func Marshal(v interface{}) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	b := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})

	result := make([]byte, len(b))
	copy(result, b)
	return result, nil
}

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// LineEncoder writes one JSON value per line.
type LineEncoder struct {
	encoder *gojson.Encoder
	lines   int
}

// NewLineEncoder creates a line-delimited encoder over w.
func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{encoder: NewEncoder(w)}
}

// Encode writes v followed by a newline.
func (le *LineEncoder) Encode(v interface{}) error {
	if err := le.encoder.Encode(v); err != nil {
		return err
	}
	le.lines++
	return nil
}

// Lines returns the number of values written.
func (le *LineEncoder) Lines() int {
	return le.lines
}
