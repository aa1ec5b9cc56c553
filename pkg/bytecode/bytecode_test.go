package bytecode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 16384, 1 << 20, math.MaxUint32} {
		buf := PutVarint(nil, v)
		got, pos := Varint(buf, 0)
		assert.Equal(t, v, got, "value %d", v)
		assert.Equal(t, len(buf), pos)
	}
}

func TestVarintContinuationBitOnlyOnNonFinalBytes(t *testing.T) {
	buf := PutVarint(nil, 300) // 0b100101100 -> two groups: 0000010, 0101100
	require.Len(t, buf, 2)
	assert.NotZero(t, buf[0]&0x80, "first byte must carry the continuation bit")
	assert.Zero(t, buf[1]&0x80, "last byte must clear the continuation bit")
}

func TestVarintSingleByteClearsContinuationBit(t *testing.T) {
	buf := PutVarint(nil, 42)
	require.Len(t, buf, 1)
	assert.Zero(t, buf[0]&0x80)
}

func TestDoubleRoundTrip(t *testing.T) {
	want := math.Float64bits(3.5)
	buf := PutDouble(nil, want)
	require.Len(t, buf, 8)
	got, pos := Double(buf, 0)
	assert.Equal(t, want, got)
	assert.Equal(t, 8, pos)
}

func TestFitsU1(t *testing.T) {
	assert.True(t, FitsU1(0))
	assert.True(t, FitsU1(255))
	assert.False(t, FitsU1(256))
}

func TestOpcodeStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "RET", RET.String())
	assert.Equal(t, "UNKNOWN", Opcode(250).String())
}

func TestEmitterOpUNarrowsWhenOperandFits(t *testing.T) {
	var e Emitter
	e.OpU(STACK_FRAME_LOOKUP_U4, STACK_FRAME_LOOKUP_U1, 5)
	assert.Equal(t, []byte{byte(STACK_FRAME_LOOKUP_U1), 5}, e.Code)
}

func TestEmitterOpUWidensWhenOperandDoesNotFit(t *testing.T) {
	var e Emitter
	e.OpU(STACK_FRAME_LOOKUP_U4, STACK_FRAME_LOOKUP_U1, 300)
	require.Len(t, e.Code, 5)
	assert.Equal(t, byte(STACK_FRAME_LOOKUP_U4), e.Code[0])
	assert.Equal(t, []byte{44, 1, 0, 0}, e.Code[1:])
}

func TestEmitterReserveJumpPatchesRelativeOffset(t *testing.T) {
	var e Emitter
	e.Op(NOP)
	idx := e.ReserveJump()
	opEnd := len(e.Code) // position just past the 4-byte placeholder
	e.Op(DUP)
	e.Op(DUP)
	e.PatchJump(idx)
	prog := e.Finish()

	rel, _ := readU32LE(prog.Code, 2)
	assert.Equal(t, uint32(len(prog.Code)-opEnd), rel)
}

func TestEmitterLiteralBytesAreSkippedByTheJump(t *testing.T) {
	var e Emitter
	e.Op(NOP)
	offset := e.EmitLiteralBytes([]byte("hi"))
	e.Op(HALT)
	prog := e.Finish()

	assert.Equal(t, []byte("hi"), prog.Code[offset:offset+2])
	assert.Equal(t, byte(HALT), prog.Code[len(prog.Code)-1])
}

func TestEmitterAllocBufferStaticNarrowsWhenBothOperandsFit(t *testing.T) {
	var e Emitter
	e.AllocBufferStatic(2, 5)
	assert.Equal(t, []byte{byte(ALLOC_BUFFER_STATIC_U1), 2, 5}, e.Code)
}

func TestEmitterAllocBufferStaticWidensWhenEitherOperandDoesNotFit(t *testing.T) {
	var e Emitter
	e.AllocBufferStatic(2, 300)
	require.Len(t, e.Code, 9)
	assert.Equal(t, byte(ALLOC_BUFFER_STATIC_U4), e.Code[0])
}

func readU32LE(buf []byte, pos int) (uint32, int) {
	v := uint32(buf[pos]) | uint32(buf[pos+1])<<8 | uint32(buf[pos+2])<<16 | uint32(buf[pos+3])<<24
	return v, pos + 4
}
