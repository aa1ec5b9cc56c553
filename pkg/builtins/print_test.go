package builtins

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mortie/gilia/internal/intern"
	"github.com/mortie/gilia/pkg/value"
	"github.com/mortie/gilia/pkg/vm"
)

func newTestVMWithStdout(t *testing.T, buf *bytes.Buffer) *vm.VM {
	t.Helper()
	atoms := intern.New()
	v := vm.New(atoms, vm.WithStdout(buf))
	Register(v)
	RegisterFS(v)
	v.FinishInit()
	return v
}

func TestPrintJoinsArgsWithSpacesAndNewline(t *testing.T) {
	var buf bytes.Buffer
	v := newTestVMWithStdout(t, &buf)

	a := v.Alloc(value.NewReal(1))
	b := v.Alloc(value.NewBuffer([]byte("two")))

	print(v, callArgs(v, a, b))
	assert.Equal(t, "1 two\n", buf.String())
}

func TestWriteHasNoSeparatorOrNewline(t *testing.T) {
	var buf bytes.Buffer
	v := newTestVMWithStdout(t, &buf)

	a := v.Alloc(value.NewReal(1))
	b := v.Alloc(value.NewReal(2))

	write(v, callArgs(v, a, b))
	assert.Equal(t, "12", buf.String())
}

func TestPrintArrayUsesBracketsAndSpaces(t *testing.T) {
	var buf bytes.Buffer
	v := newTestVMWithStdout(t, &buf)

	elems := []value.ID{v.Alloc(value.NewReal(1)), v.Alloc(value.NewReal(2))}
	arr := v.Alloc(value.NewArray(elems))

	print(v, callArgs(v, arr))
	assert.Equal(t, "[1 2]\n", buf.String())
}

func TestPrintNoneAndBooleans(t *testing.T) {
	var buf bytes.Buffer
	v := newTestVMWithStdout(t, &buf)

	trueID := v.Alloc(value.NewAtom(v.AtomTrue()))
	falseID := v.Alloc(value.NewAtom(v.AtomFalse()))

	print(v, callArgs(v, value.NoneID, trueID, falseID))
	assert.Equal(t, "(none) (true) (false)\n", buf.String())
}
