// Package disasm prints a compiled Program's instruction stream in
// human-readable form, directly off pkg/bytecode's instruction
// encoding.
package disasm

import (
	"fmt"
	"io"
	"math"

	"github.com/mortie/gilia/pkg/bytecode"
)

// Write disassembles code, one instruction per line, as
// "<offset>: <MNEMONIC> <operand...>". Offsets referenced by a relative
// jump are annotated with the absolute target they resolve to, and
// ALLOC_BUFFER_STATIC additionally prints the literal bytes it points at
// so string constants are readable at a glance.
func Write(w io.Writer, code []byte) error {
	pos := 0
	for pos < len(code) {
		start := pos
		op := bytecode.Opcode(code[pos])
		pos++

		switch op {
		case bytecode.NOP, bytecode.DISCARD, bytecode.SWAP_DISCARD, bytecode.DUP,
			bytecode.ADD, bytecode.FUNC_CALL_INFIX, bytecode.HALT, bytecode.RET,
			bytecode.ALLOC_NONE, bytecode.ALLOC_NAMESPACE, bytecode.STACK_FRAME_GET_ARGS,
			bytecode.DYNAMIC_LOOKUP, bytecode.DYNAMIC_SET:
			if _, err := fmt.Fprintf(w, "%6d: %s\n", start, op); err != nil {
				return err
			}

		case bytecode.RJMP_U4:
			target := int(le32(code[pos:])) + pos + 4
			if _, err := fmt.Fprintf(w, "%6d: %s -> %d\n", start, op, target); err != nil {
				return err
			}
			pos += 4

		case bytecode.RJMP_U1:
			target := int(code[pos]) + pos + 1
			if _, err := fmt.Fprintf(w, "%6d: %s -> %d\n", start, op, target); err != nil {
				return err
			}
			pos++

		case bytecode.ALLOC_REAL_D8:
			bits, next := bytecode.Double(code, pos)
			if _, err := fmt.Fprintf(w, "%6d: %s %g\n", start, op, math.Float64frombits(bits)); err != nil {
				return err
			}
			pos = next

		case bytecode.ALLOC_BUFFER_STATIC_U4, bytecode.ALLOC_BUFFER_STATIC_U1:
			var length, offset int
			if op == bytecode.ALLOC_BUFFER_STATIC_U4 {
				length, offset = int(le32(code[pos:])), int(le32(code[pos+4:]))
				pos += 8
			} else {
				length, offset = int(code[pos]), int(code[pos+1])
				pos += 2
			}
			data := code[offset : offset+length]
			if _, err := fmt.Fprintf(w, "%6d: %s %d %d %q\n", start, op, length, offset, data); err != nil {
				return err
			}

		default:
			if isU4Sibling(op) {
				v := le32(code[pos:])
				if _, err := fmt.Fprintf(w, "%6d: %s %d\n", start, op, v); err != nil {
					return err
				}
				pos += 4
			} else {
				v := code[pos]
				if _, err := fmt.Fprintf(w, "%6d: %s %d\n", start, op, v); err != nil {
					return err
				}
				pos++
			}
		}
	}
	return nil
}

// isU4Sibling reports whether op is one of the wide (_U4) operand
// opcodes whose operand is a 4-byte little-endian value — everything
// that reaches the default case and isn't one of those is assumed to be
// its _U1 sibling, a single byte.
func isU4Sibling(op bytecode.Opcode) bool {
	switch op {
	case bytecode.FUNC_CALL_U4,
		bytecode.ALLOC_ATOM_U4, bytecode.ALLOC_ARRAY_U4, bytecode.ALLOC_FUNCTION_U4,
		bytecode.STACK_FRAME_LOOKUP_U4, bytecode.STACK_FRAME_SET_U4, bytecode.STACK_FRAME_REPLACE_U4,
		bytecode.NAMESPACE_SET_U4, bytecode.NAMESPACE_LOOKUP_U4,
		bytecode.ARRAY_LOOKUP_U4, bytecode.ARRAY_SET_U4:
		return true
	default:
		return false
	}
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
