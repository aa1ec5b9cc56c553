package bytecode

import "encoding/binary"

// PutVarint appends v to buf using a continuation-bit big-endian
// encoding: the high byte comes first, each byte carries 7 bits of the
// value, and the continuation bit (0x80) is set on every byte except
// the last.
func PutVarint(buf []byte, v uint32) []byte {
	var tmp [5]byte
	n := 0
	tmp[n] = byte(v & 0x7f)
	v >>= 7
	n++
	for v != 0 {
		tmp[n] = byte(v&0x7f) | 0x80
		v >>= 7
		n++
	}
	// tmp was built least-significant-group-first; the wire format wants
	// the high-order group first, with only the *last written* byte
	// (the original low-order group) clearing the continuation bit.
	for i := n - 1; i >= 0; i-- {
		b := tmp[i]
		if i != 0 {
			b |= 0x80
		} else {
			b &^= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// Varint reads a varint starting at buf[pos], returning its value and the
// position just past it.
func Varint(buf []byte, pos int) (uint32, int) {
	var v uint32
	for {
		b := buf[pos]
		pos++
		v = (v << 7) | uint32(b&0x7f)
		if b&0x80 == 0 {
			break
		}
	}
	return v, pos
}

// PutDouble appends the IEEE-754 bit pattern bits to buf as 8
// little-endian bytes.
func PutDouble(buf []byte, bits uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], bits)
	return append(buf, tmp[:]...)
}

// Double reads an 8-byte little-endian double bit pattern starting at
// buf[pos].
func Double(buf []byte, pos int) (uint64, int) {
	return binary.LittleEndian.Uint64(buf[pos : pos+8]), pos + 8
}

// FitsU1 reports whether v fits in the _U1 (one-byte operand) form of an
// opcode, letting the generator pick the narrower encoding.
func FitsU1(v uint32) bool {
	return v <= 0xff
}
