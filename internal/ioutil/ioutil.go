// Package ioutil wraps stdlib bufio with the byte-granular peek/get/put
// shape the lexer and code generator expect: a reader that can look ahead
// a small, fixed number of bytes without consuming them, and a writer
// that batches bytes before handing them to the underlying sink.
package ioutil

import (
	"bufio"
	"io"
)

const bufSize = 1024

// Reader provides 1-indexed lookahead over a byte stream: Peek(1) is the
// next unread byte, Peek(2) the one after that, and so on.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r with the default lookahead buffer size.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, bufSize)}
}

// Peek returns the byte `count` positions ahead (count >= 1) without
// consuming it, or -1 at end of stream.
func (r *Reader) Peek(count int) int {
	buf, err := r.br.Peek(count)
	if err != nil || len(buf) < count {
		return -1
	}
	return int(buf[count-1])
}

// Get consumes and returns the next byte, or -1 at end of stream.
func (r *Reader) Get() int {
	b, err := r.br.ReadByte()
	if err != nil {
		return -1
	}
	return int(b)
}

// Writer batches writes before flushing them to the underlying sink.
type Writer struct {
	bw *bufio.Writer
}

// NewWriter wraps w with the default buffer size.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, bufSize)}
}

// Put writes a single byte.
func (w *Writer) Put(b byte) error {
	return w.bw.WriteByte(b)
}

// PutN writes a byte slice.
func (w *Writer) PutN(p []byte) error {
	_, err := w.bw.Write(p)
	return err
}

// PutString writes a string.
func (w *Writer) PutString(s string) error {
	_, err := w.bw.WriteString(s)
	return err
}

// Flush pushes any buffered bytes to the underlying sink.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}
