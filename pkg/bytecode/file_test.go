package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteToThenReadProgramRoundTrips(t *testing.T) {
	want := Program{Code: []byte{byte(NOP), byte(DUP), byte(HALT)}}
	var buf bytes.Buffer
	_, err := want.WriteTo(&buf)
	require.NoError(t, err)

	assert.Equal(t, Magic[:], buf.Bytes()[:4])

	got, err := ReadProgram(&buf)
	require.NoError(t, err)
	assert.Equal(t, want.Code, got.Code)
}

func TestReadProgramRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0, 0, 0, 0, 2})
	_, err := ReadProgram(buf)
	assert.Error(t, err)
}

func TestReadProgramRejectsVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.Write([]byte{0, 0, 0, 99})
	_, err := ReadProgram(&buf)
	assert.Error(t, err)
}
