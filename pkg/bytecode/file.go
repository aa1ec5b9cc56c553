package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteTo serializes p to w as a bytecode file: the 4-byte magic, a
// 4-byte big-endian version, then the code buffer verbatim. The header
// is big-endian so the magic is textually recognizable; operands inside
// the code stream stay little-endian.
func (p Program) WriteTo(w io.Writer) (int64, error) {
	var header [8]byte
	copy(header[:4], Magic[:])
	binary.BigEndian.PutUint32(header[4:8], Version)
	n, err := w.Write(header[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(p.Code)
	return int64(n + m), err
}

// HasMagic reports whether the first 4 bytes of data are the bytecode
// file magic, letting a caller distinguish a precompiled bytecode file
// from source text before choosing how to load it.
func HasMagic(data []byte) bool {
	return len(data) >= 4 && data[0] == Magic[0] && data[1] == Magic[1] &&
		data[2] == Magic[2] && data[3] == Magic[3]
}

// ReadProgram parses a bytecode file previously written by WriteTo.
func ReadProgram(r io.Reader) (Program, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Program{}, fmt.Errorf("gilia: reading bytecode header: %w", err)
	}
	if header[0] != Magic[0] || header[1] != Magic[1] || header[2] != Magic[2] || header[3] != Magic[3] {
		return Program{}, fmt.Errorf("gilia: not a gilia bytecode file (bad magic)")
	}
	version := binary.BigEndian.Uint32(header[4:8])
	if version != Version {
		return Program{}, fmt.Errorf("gilia: bytecode version %d, expected %d", version, Version)
	}
	code, err := io.ReadAll(r)
	if err != nil {
		return Program{}, fmt.Errorf("gilia: reading bytecode body: %w", err)
	}
	return Program{Code: code}, nil
}
