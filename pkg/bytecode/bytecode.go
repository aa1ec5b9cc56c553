// Package bytecode defines the instruction set gilia's compiler emits
// and its VM executes: an Opcode byte enum with a String() method for
// disassembly, grouped by category in doc comments. Operands are written
// directly into the instruction stream rather than living in an
// Instruction struct, as fixed-width little-endian integers: 4 bytes for
// a "wide" (_U4) opcode, 1 byte for its "narrow" (_U1) sibling, which the
// generator picks when the operand fits in one byte. Operands are not
// varint-encoded; the Emitter does not use PutVarint/Varint.
package bytecode

import "encoding/binary"

// Opcode identifies a single bytecode instruction.
type Opcode byte

const (
	// Stack operations.
	NOP Opcode = iota
	DISCARD
	SWAP_DISCARD
	DUP

	// Fast arithmetic. The VM executes it, but the generator does not
	// emit it: every infix operator, `+` included, compiles to
	// FUNC_CALL_INFIX.
	ADD

	// Calls. FUNC_CALL <argc>; FUNC_CALL_INFIX takes no operand (lhs,
	// func, rhs are already in the expected stack order).
	FUNC_CALL_U4
	FUNC_CALL_U1
	FUNC_CALL_INFIX

	// Control flow.
	RJMP_U4
	RJMP_U1
	HALT
	RET

	// Allocation.
	ALLOC_NONE
	ALLOC_ATOM_U4
	ALLOC_ATOM_U1
	ALLOC_REAL_D8
	ALLOC_BUFFER_STATIC_U4
	ALLOC_BUFFER_STATIC_U1
	ALLOC_ARRAY_U4
	ALLOC_ARRAY_U1
	ALLOC_NAMESPACE
	ALLOC_FUNCTION_U4
	ALLOC_FUNCTION_U1

	// Scope (stack-frame-local namespace).
	STACK_FRAME_GET_ARGS
	STACK_FRAME_LOOKUP_U4
	STACK_FRAME_LOOKUP_U1
	STACK_FRAME_SET_U4
	STACK_FRAME_SET_U1
	STACK_FRAME_REPLACE_U4
	STACK_FRAME_REPLACE_U1

	// Containers.
	NAMESPACE_SET_U4
	NAMESPACE_SET_U1
	NAMESPACE_LOOKUP_U4
	NAMESPACE_LOOKUP_U1
	ARRAY_LOOKUP_U4
	ARRAY_LOOKUP_U1
	ARRAY_SET_U4
	ARRAY_SET_U1
	DYNAMIC_LOOKUP
	DYNAMIC_SET
)

var names = [...]string{
	NOP: "NOP", DISCARD: "DISCARD", SWAP_DISCARD: "SWAP_DISCARD", DUP: "DUP",
	ADD:             "ADD",
	FUNC_CALL_U4:    "FUNC_CALL_U4",
	FUNC_CALL_U1:    "FUNC_CALL_U1",
	FUNC_CALL_INFIX: "FUNC_CALL_INFIX",
	RJMP_U4:         "RJMP_U4", RJMP_U1: "RJMP_U1",
	HALT: "HALT", RET: "RET",
	ALLOC_NONE:    "ALLOC_NONE",
	ALLOC_ATOM_U4: "ALLOC_ATOM_U4", ALLOC_ATOM_U1: "ALLOC_ATOM_U1",
	ALLOC_REAL_D8:             "ALLOC_REAL_D8",
	ALLOC_BUFFER_STATIC_U4:    "ALLOC_BUFFER_STATIC_U4",
	ALLOC_BUFFER_STATIC_U1:    "ALLOC_BUFFER_STATIC_U1",
	ALLOC_ARRAY_U4:            "ALLOC_ARRAY_U4",
	ALLOC_ARRAY_U1:            "ALLOC_ARRAY_U1",
	ALLOC_NAMESPACE:           "ALLOC_NAMESPACE",
	ALLOC_FUNCTION_U4:         "ALLOC_FUNCTION_U4",
	ALLOC_FUNCTION_U1:         "ALLOC_FUNCTION_U1",
	STACK_FRAME_GET_ARGS:      "STACK_FRAME_GET_ARGS",
	STACK_FRAME_LOOKUP_U4:     "STACK_FRAME_LOOKUP_U4",
	STACK_FRAME_LOOKUP_U1:     "STACK_FRAME_LOOKUP_U1",
	STACK_FRAME_SET_U4:        "STACK_FRAME_SET_U4",
	STACK_FRAME_SET_U1:        "STACK_FRAME_SET_U1",
	STACK_FRAME_REPLACE_U4:    "STACK_FRAME_REPLACE_U4",
	STACK_FRAME_REPLACE_U1:    "STACK_FRAME_REPLACE_U1",
	NAMESPACE_SET_U4:          "NAMESPACE_SET_U4",
	NAMESPACE_SET_U1:          "NAMESPACE_SET_U1",
	NAMESPACE_LOOKUP_U4:       "NAMESPACE_LOOKUP_U4",
	NAMESPACE_LOOKUP_U1:       "NAMESPACE_LOOKUP_U1",
	ARRAY_LOOKUP_U4:           "ARRAY_LOOKUP_U4",
	ARRAY_LOOKUP_U1:           "ARRAY_LOOKUP_U1",
	ARRAY_SET_U4:              "ARRAY_SET_U4",
	ARRAY_SET_U1:              "ARRAY_SET_U1",
	DYNAMIC_LOOKUP:            "DYNAMIC_LOOKUP",
	DYNAMIC_SET:               "DYNAMIC_SET",
}

// String returns the opcode's mnemonic, used by pkg/disasm.
func (op Opcode) String() string {
	if int(op) < len(names) && names[op] != "" {
		return names[op]
	}
	return "UNKNOWN"
}

// Version is the bytecode format version written into a serialized
// file's header. It must match between compiler and VM.
const Version uint32 = 2

// Magic is the 4-byte prefix of a serialized bytecode file.
var Magic = [4]byte{0x1B, 'g', 'l', 'c'}

// Program is a compiled unit: the linear instruction/data stream. It
// holds no relocations; Emitter.Finish has already applied them, so Code
// is ready to execute.
type Program struct {
	Code []byte
}

// Relocation records a deferred patch: a forward RJMP_U4 was emitted with
// a placeholder 4-byte zero payload at Pos because its target (the
// instruction past a function body) wasn't known yet. Target is the
// absolute byte offset of the jump destination; ApplyRelocations writes
// its distance from just past the operand there as little-endian 4 bytes.
type Relocation struct {
	Pos    int
	Target int
}

// ApplyRelocations patches every recorded forward jump into code in
// place, once the final size of the program is known. RJMP is a
// relative jump: the value written is the distance from just past the
// 4-byte operand to the target, not an absolute offset.
func ApplyRelocations(code []byte, relocs []Relocation) {
	for _, r := range relocs {
		rel := uint32(r.Target - (r.Pos + 4))
		binary.LittleEndian.PutUint32(code[r.Pos:r.Pos+4], rel)
	}
}

// Emitter builds a Program's byte stream incrementally, handling operand
// width selection (_U4 vs _U1) and relocation bookkeeping so
// pkg/compiler's generator doesn't touch byte offsets directly.
type Emitter struct {
	Code   []byte
	Relocs []Relocation
}

// Op appends a bare opcode with no operand (NOP, DISCARD, SWAP_DISCARD,
// DUP, ADD, FUNC_CALL_INFIX, HALT, RET, ALLOC_NONE, ALLOC_NAMESPACE,
// STACK_FRAME_GET_ARGS, DYNAMIC_LOOKUP, DYNAMIC_SET).
func (e *Emitter) Op(op Opcode) {
	e.Code = append(e.Code, byte(op))
}

// OpU narrows to the _U1 sibling opcode when v fits in a byte, otherwise
// emits the _U4 form with a 4-byte little-endian operand. wide and narrow
// must be the _U4/_U1 pair for the same instruction.
func (e *Emitter) OpU(wide, narrow Opcode, v uint32) {
	if FitsU1(v) {
		e.Code = append(e.Code, byte(narrow), byte(v))
		return
	}
	e.Code = append(e.Code, byte(wide))
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	e.Code = append(e.Code, tmp[:]...)
}

// Double emits ALLOC_REAL_D8 followed by the 8-byte little-endian bit
// pattern of the literal.
func (e *Emitter) Double(bits uint64) {
	e.Code = append(e.Code, byte(ALLOC_REAL_D8))
	e.Code = PutDouble(e.Code, bits)
}

// EmitLiteralBytes places data out-of-line in the code stream, behind a
// relative jump that skips over it at run time. It returns the offset
// the bytes start at, for later reference by AllocBufferStatic. The
// generator is responsible for deduplicating repeated literals — this
// method always emits a fresh copy.
func (e *Emitter) EmitLiteralBytes(data []byte) int {
	idx := e.ReserveJump()
	offset := len(e.Code)
	e.Code = append(e.Code, data...)
	e.PatchJump(idx)
	return offset
}

// AllocBufferStatic emits ALLOC_BUFFER_STATIC referencing a literal
// previously placed by EmitLiteralBytes. Both operands share one width,
// narrow only when both fit in a byte.
func (e *Emitter) AllocBufferStatic(length, offset int) {
	if FitsU1(uint32(length)) && FitsU1(uint32(offset)) {
		e.Code = append(e.Code, byte(ALLOC_BUFFER_STATIC_U1), byte(length), byte(offset))
		return
	}
	e.Code = append(e.Code, byte(ALLOC_BUFFER_STATIC_U4))
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(length))
	e.Code = append(e.Code, tmp[:]...)
	binary.LittleEndian.PutUint32(tmp[:], uint32(offset))
	e.Code = append(e.Code, tmp[:]...)
}

// ReserveJump emits RJMP_U4 with a zero placeholder operand and records a
// Relocation for it, returning the relocation's index so the caller can
// later fill in Relocs[idx].Target once the jump destination is known.
func (e *Emitter) ReserveJump() int {
	e.Code = append(e.Code, byte(RJMP_U4), 0, 0, 0, 0)
	pos := len(e.Code) - 4
	idx := len(e.Relocs)
	e.Relocs = append(e.Relocs, Relocation{Pos: pos})
	return idx
}

// PatchJump sets the target of a relocation previously returned by
// ReserveJump to the current end of the instruction stream.
func (e *Emitter) PatchJump(idx int) {
	e.Relocs[idx].Target = len(e.Code)
}

// PatchJumpTo sets the target of a relocation to an explicit offset
// rather than "here". The VM reads an RJMP operand as an unsigned
// forward distance, so target must not lie before the end of the
// jump's operand.
func (e *Emitter) PatchJumpTo(idx, target int) {
	e.Relocs[idx].Target = target
}

// Finish applies every recorded relocation and returns the finished
// Program.
func (e *Emitter) Finish() Program {
	ApplyRelocations(e.Code, e.Relocs)
	return Program{Code: e.Code}
}
