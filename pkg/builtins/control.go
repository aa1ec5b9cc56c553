package builtins

import (
	"github.com/mortie/gilia/pkg/value"
	"github.com/mortie/gilia/pkg/vm"
)

// ifFn implements `if`: evaluating the chosen branch is deferred to a
// Continuation rather than called directly here, so that a nonlocal
// return from inside the branch can still chase back through the
// caller's RET.
func ifFn(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) != 2 && len(args) != 3 {
		return errorf(V, "Expected 2 or 3 arguments")
	}

	if isTrue(V, args[0]) {
		return V.Alloc(value.NewContinuation(args[1], value.NoneID, nil, nil, nil))
	}
	if len(args) == 3 {
		return V.Alloc(value.NewContinuation(args[2], value.NoneID, nil, nil, nil))
	}
	return value.NoneID
}

// loopCtx is the state a `loop` continuation threads through repeated
// invocations of its body: just the body function itself, so GC marking
// keeps it alive across iterations.
type loopCtx struct {
	body value.ID
}

func loopCallback(vmAny any, retval, contID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	v := V.Value(retval)
	switch {
	case v.Kind == value.Error:
		return retval
	case v.Kind == value.Atom && v.AtomID == V.AtomStop():
		return value.NoneID
	default:
		return contID
	}
}

func loopMarker(vmAny any, contID value.ID, mark func(value.ID)) {
	V := vmAny.(*vm.VM)
	ctx := V.Value(contID).Context.(*loopCtx)
	mark(ctx.body)
}

// loopFn implements `loop`: repeatedly invokes body until it returns the
// `stop` atom or an error.
func loopFn(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) != 1 {
		return errorf(V, "Expected 1 argument")
	}

	ctx := &loopCtx{body: args[0]}
	return V.Alloc(value.NewContinuation(args[0], value.NoneID, loopCallback, loopMarker, ctx))
}

// whileCtx threads a `while`'s condition and body functions across the
// alternating cond/body invocations its continuation drives.
type whileCtx struct {
	cond, body value.ID
}

func whileCallback(vmAny any, retval, contID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	cont := V.Value(contID)
	ctx := cont.Context.(*whileCtx)
	ret := V.Value(retval)

	if ret.Kind == value.Error {
		return retval
	}

	if cont.Call == ctx.cond {
		if isTrue(V, retval) {
			cont.Call = ctx.body
			return contID
		}
		return value.NoneID
	}

	cont.Call = ctx.cond
	return contID
}

func whileMarker(vmAny any, contID value.ID, mark func(value.ID)) {
	V := vmAny.(*vm.VM)
	ctx := V.Value(contID).Context.(*whileCtx)
	mark(ctx.cond)
	mark(ctx.body)
}

// whileFn implements `while`: evaluates cond, and while it's true,
// invokes body then re-evaluates cond, stopping the first time cond is
// false or either call errors.
func whileFn(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) != 2 {
		return errorf(V, "Expected 2 arguments")
	}

	ctx := &whileCtx{cond: args[0], body: args[1]}
	return V.Alloc(value.NewContinuation(ctx.cond, value.NoneID, whileCallback, whileMarker, ctx))
}

// forCtx threads a `for`'s iterator and body functions. The
// continuation's Args field is reallocated each time the body is
// invoked, carrying the iterator's latest yielded value as the body's
// sole argument.
type forCtx struct {
	iter, body value.ID
}

func forCallback(vmAny any, retval, contID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	ctx := V.Value(contID).Context.(*forCtx)
	ret := V.Value(retval)

	if ret.Kind == value.Error {
		return retval
	}

	if V.Value(contID).Call == ctx.iter {
		if ret.Kind == value.Atom && ret.AtomID == V.AtomStop() {
			return value.NoneID
		}
		// Alloc may grow the heap and invalidate any *Value obtained
		// before it runs, so the new args array is built before cont is
		// fetched for mutation.
		newArgs := V.Alloc(value.NewArray([]value.ID{retval}))
		cont := V.Value(contID)
		cont.Call = ctx.body
		cont.Args = newArgs
		return contID
	}

	cont := V.Value(contID)
	cont.Call = ctx.iter
	cont.Args = value.NoneID
	return contID
}

func forMarker(vmAny any, contID value.ID, mark func(value.ID)) {
	V := vmAny.(*vm.VM)
	ctx := V.Value(contID).Context.(*forCtx)
	mark(ctx.iter)
	mark(ctx.body)
}

// forFn implements `for`: repeatedly invokes iter with no arguments,
// forwarding each non-`stop` result to body as its single argument,
// until iter yields `stop` or either call errors.
func forFn(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) != 2 {
		return errorf(V, "Expected 2 arguments")
	}

	ctx := &forCtx{iter: args[0], body: args[1]}
	return V.Alloc(value.NewContinuation(ctx.iter, value.NoneID, forCallback, forMarker, ctx))
}

// guardCallback rewrites the continuation it is handed into a RETURN
// value carrying the guarded body's result in place.
func guardCallback(vmAny any, retval, contID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	cont := V.Value(contID)
	cont.Kind = value.Return
	cont.Inner = retval
	return contID
}

// guardFn implements `guard`: with one argument, a truthy condition
// unwinds the enclosing function immediately with none; with two, a
// truthy condition instead runs the body and unwinds with its result.
func guardFn(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) != 1 && len(args) != 2 {
		return errorf(V, "Expected 1 or 2 arguments")
	}

	cond := V.Value(args[0])
	if cond.Kind == value.Error {
		return args[0]
	}

	if len(args) == 1 {
		if !isTrue(V, args[0]) {
			return value.NoneID
		}
		return V.Alloc(value.NewReturn(value.NoneID))
	}

	body := V.Value(args[1])
	if body.Kind == value.Error {
		return args[1]
	}
	if !isTrue(V, args[0]) {
		return value.NoneID
	}

	return V.Alloc(value.NewContinuation(args[1], value.NoneID, guardCallback, nil, nil))
}
