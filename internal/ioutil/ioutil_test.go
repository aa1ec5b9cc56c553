package ioutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReaderPeekDoesNotConsume(t *testing.T) {
	r := NewReader(bytes.NewBufferString("abc"))
	assert.Equal(t, int('a'), r.Peek(1))
	assert.Equal(t, int('b'), r.Peek(2))
	assert.Equal(t, int('a'), r.Get())
	assert.Equal(t, int('b'), r.Get())
	assert.Equal(t, int('c'), r.Get())
	assert.Equal(t, -1, r.Get())
}

func TestReaderPeekPastEOF(t *testing.T) {
	r := NewReader(bytes.NewBufferString("a"))
	assert.Equal(t, -1, r.Peek(2))
	assert.Equal(t, int('a'), r.Peek(1))
}

func TestWriterFlushesToSink(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.NoError(t, w.PutString("hello"))
	assert.Equal(t, "", buf.String())
	assert.NoError(t, w.Flush())
	assert.Equal(t, "hello", buf.String())
}
