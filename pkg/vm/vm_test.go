package vm

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mortie/gilia/internal/intern"
	"github.com/mortie/gilia/pkg/bytecode"
	"github.com/mortie/gilia/pkg/value"
)

func newTestVM() *VM {
	atoms := intern.New()
	v := New(atoms)
	v.FinishInit()
	return v
}

func TestPushPopOperandStack(t *testing.T) {
	v := newTestVM()
	id := v.Alloc(value.NewReal(3.5))
	v.Push(id)
	assert.Equal(t, id, v.Pop())
}

func TestNamespaceSetGetWalksParentChain(t *testing.T) {
	v := newTestVM()
	key := v.Atoms().Put("x")

	parent := v.Alloc(value.NewNamespace(value.NoneID))
	child := v.Alloc(value.NewNamespace(parent))

	val := v.Alloc(value.NewReal(7))
	v.namespaceSet(parent, key, val)

	got, ok := v.namespaceGet(child, key)
	require.True(t, ok)
	assert.Equal(t, val, got)
}

func TestNamespaceSetOnlyTouchesOwnScope(t *testing.T) {
	v := newTestVM()
	key := v.Atoms().Put("x")

	parent := v.Alloc(value.NewNamespace(value.NoneID))
	child := v.Alloc(value.NewNamespace(parent))

	val := v.Alloc(value.NewReal(7))
	v.namespaceSet(child, key, val)

	_, ok := v.namespaceGet(parent, key)
	assert.False(t, ok, "set on a child scope must not leak into its parent")
}

func TestNamespaceReplaceFindsInnermostBindingScope(t *testing.T) {
	v := newTestVM()
	key := v.Atoms().Put("x")

	parent := v.Alloc(value.NewNamespace(value.NoneID))
	child := v.Alloc(value.NewNamespace(parent))

	original := v.Alloc(value.NewReal(1))
	v.namespaceSet(parent, key, original)

	replacement := v.Alloc(value.NewReal(2))
	ok := v.namespaceReplace(child, key, replacement)
	require.True(t, ok)

	got, _ := v.namespaceGet(parent, key)
	assert.Equal(t, replacement, got)
}

func TestNamespaceReplaceUnboundNameFails(t *testing.T) {
	v := newTestVM()
	key := v.Atoms().Put("nope")
	ns := v.Alloc(value.NewNamespace(value.NoneID))
	ok := v.namespaceReplace(ns, key, v.Alloc(value.NewReal(1)))
	assert.False(t, ok)
}

// TestRunFunctionCallAndReturn loads a tiny program that allocates a
// function whose body looks up its single argument and returns it, then
// calls it and checks the operand stack holds the result.
func TestRunFunctionCallAndReturn(t *testing.T) {
	v := newTestVM()

	var e bytecode.Emitter
	skip := e.ReserveJump()
	funcPos := len(e.Code)
	e.Op(bytecode.STACK_FRAME_GET_ARGS)
	e.OpU(bytecode.ARRAY_LOOKUP_U4, bytecode.ARRAY_LOOKUP_U1, 0)
	e.Op(bytecode.RET)
	e.PatchJump(skip)

	e.OpU(bytecode.ALLOC_FUNCTION_U4, bytecode.ALLOC_FUNCTION_U1, uint32(funcPos))
	e.Double(math.Float64bits(42))
	e.OpU(bytecode.FUNC_CALL_U4, bytecode.FUNC_CALL_U1, 1)
	e.Op(bytecode.HALT)

	prog := e.Finish()
	v.Load(prog)
	require.NoError(t, v.Run())

	require.Equal(t, 1, v.sp)
	result := v.Value(v.stack[0])
	require.Equal(t, value.Real, result.Kind)
	assert.Equal(t, 42.0, result.RealVal)
}

// TestContinuationChasingThroughCFunctionChain exercises callFunc's
// inline while-loop: a CFUNCTION returns a continuation whose call
// target is itself a CFUNCTION, so the whole chain resolves
// synchronously without ever pushing a bytecode frame.
func TestContinuationChasingThroughCFunctionChain(t *testing.T) {
	v := newTestVM()

	step2 := value.CFunc(func(vmAny any, args value.ID) value.ID {
		host := vmAny.(*VM)
		return host.Alloc(value.NewReal(99))
	})
	step2ID := v.Alloc(value.NewCFunction(step2, value.NoneID))

	step1 := value.CFunc(func(vmAny any, args value.ID) value.ID {
		host := vmAny.(*VM)
		cb := value.ContinuationCallback(func(_ any, retval value.ID, _ value.ID) value.ID {
			return retval
		})
		return host.Alloc(value.NewContinuation(step2ID, value.NoneID, cb, nil, nil))
	})
	step1ID := v.Alloc(value.NewCFunction(step1, value.NoneID))

	v.callFunc(step1ID, nil)

	require.Equal(t, 1, v.sp)
	result := v.Value(v.stack[0])
	require.Equal(t, value.Real, result.Kind)
	assert.Equal(t, 99.0, result.RealVal)
}

// TestContinuationChasingWrapsNoneArgsIntoEmptyArray checks that a
// chased continuation whose Args is NoneID (the shape if/loop/while/for
// build when no argument list is needed) still reaches a CFUNCTION call
// target with a proper Array, not NoneID itself.
func TestContinuationChasingWrapsNoneArgsIntoEmptyArray(t *testing.T) {
	v := newTestVM()

	callee := value.CFunc(func(vmAny any, args value.ID) value.ID {
		host := vmAny.(*VM)
		argv := host.Value(args)
		require.Equal(t, value.Array, argv.Kind)
		assert.Empty(t, argv.Elems())
		return host.Alloc(value.NewReal(1))
	})
	calleeID := v.Alloc(value.NewCFunction(callee, value.NoneID))

	producer := value.CFunc(func(vmAny any, args value.ID) value.ID {
		host := vmAny.(*VM)
		cb := value.ContinuationCallback(func(_ any, retval value.ID, _ value.ID) value.ID {
			return retval
		})
		return host.Alloc(value.NewContinuation(calleeID, value.NoneID, cb, nil, nil))
	})
	producerID := v.Alloc(value.NewCFunction(producer, value.NoneID))

	v.callFunc(producerID, nil)

	require.Equal(t, 1, v.sp)
	result := v.Value(v.stack[0])
	require.Equal(t, value.Real, result.Kind)
	assert.Equal(t, 1.0, result.RealVal)
}

// TestContinuationDefersToRetForFunctionTarget checks the other branch
// of the chasing algorithm: when a continuation's call target is a
// bytecode FUNCTION, callFunc pushes a real frame and leaves the
// continuation on the stack for the eventual RET to find.
func TestContinuationDefersToRetForFunctionTarget(t *testing.T) {
	v := newTestVM()

	var e bytecode.Emitter
	skip := e.ReserveJump()
	funcPos := len(e.Code)
	e.Double(math.Float64bits(7))
	e.Op(bytecode.RET)
	e.PatchJump(skip)
	e.Op(bytecode.HALT)
	prog := e.Finish()
	v.Load(prog)

	funcID := v.Alloc(value.NewFunction(funcPos, value.NoneID))

	producer := value.CFunc(func(vmAny any, args value.ID) value.ID {
		host := vmAny.(*VM)
		cb := value.ContinuationCallback(func(_ any, retval value.ID, _ value.ID) value.ID {
			return retval
		})
		return host.Alloc(value.NewContinuation(funcID, value.NoneID, cb, nil, nil))
	})
	producerID := v.Alloc(value.NewCFunction(producer, value.NoneID))

	v.callFunc(producerID, nil)
	require.NoError(t, v.Run())

	require.Equal(t, 1, v.sp)
	result := v.Value(v.stack[0])
	require.Equal(t, value.Real, result.Kind)
	assert.Equal(t, 7.0, result.RealVal)
}

func TestGCFreesUnreachableValuesAndKeepsReachableOnes(t *testing.T) {
	v := newTestVM()

	reachable := v.Alloc(value.NewReal(1))
	v.Push(reachable)

	garbage := v.Alloc(value.NewReal(2))

	v.gc()

	assert.True(t, v.heap.isLive(reachable))
	assert.False(t, v.heap.isLive(garbage))
}

func TestGCMarksThroughNamespaceChain(t *testing.T) {
	v := newTestVM()
	key := v.Atoms().Put("held")

	ns := v.Alloc(value.NewNamespace(value.NoneID))
	v.Push(ns)

	held := v.Alloc(value.NewReal(5))
	v.namespaceSet(ns, key, held)

	v.gc()

	assert.True(t, v.heap.isLive(held), "a value reachable through a marked namespace's table must survive")
}

func TestDiscardHaltsOnError(t *testing.T) {
	v := newTestVM()
	var stderr bytes.Buffer
	WithStderr(&stderr)(v)

	errID := v.Alloc(value.NewError("boom"))
	v.Push(errID)

	var e bytecode.Emitter
	e.Op(bytecode.DISCARD)
	v.Load(e.Finish())

	require.NoError(t, v.Step())
	assert.True(t, v.Halted())
	assert.Contains(t, stderr.String(), "boom")
}
