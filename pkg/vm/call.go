package vm

import "github.com/mortie/gilia/pkg/value"

// callFuncWithArgs pushes a real call frame for a FUNCTION value: a new
// namespace parented on the function's captured namespace, the args
// array as that frame's Args, and jumps the instruction pointer to the
// function's entry point.
func (vm *VM) callFuncWithArgs(funcID, argsID value.ID) {
	stackBase := vm.sp
	vm.Push(argsID)

	fn := vm.heap.get(funcID)
	ns := vm.Alloc(value.NewNamespace(fn.Captured))
	fn = vm.heap.get(funcID) // Alloc may have grown the table; re-fetch

	vm.frames[vm.fp] = Frame{
		Namespace: ns,
		ReturnIP:  vm.ip,
		StackBase: stackBase,
		Args:      argsID,
	}
	vm.fp++

	vm.ip = fn.FuncPos
}

// callFunc invokes callee with the argc values at the top of the
// operand stack already popped into argv (the caller has arranged for
// the result to land back on the stack in argv's place). It is the
// single entry point for both CFUNCTION calls (dispatched synchronously
// here) and FUNCTION calls (routed through callFuncWithArgs), and it is
// also where continuation chasing for a CFUNCTION-returned continuation
// happens inline rather than being deferred to RET.
func (vm *VM) callFunc(calleeID value.ID, argv []value.ID) {
	callee := vm.heap.get(calleeID)

	if callee.Kind != value.CFunction {
		if callee.Kind != value.Function {
			vm.Push(vm.runtimeError("Attempt to call non-function"))
			return
		}
		argsID := vm.Alloc(value.NewArray(argv))
		vm.callFuncWithArgs(calleeID, argsID)
		return
	}

	cfunc := callee.CFunc
	argsID := vm.Alloc(value.NewArray(argv))
	vm.Push(cfunc(vm, argsID))

	for {
		contID := vm.stack[vm.sp-1]
		cont := vm.heap.get(contID)
		if cont.Kind != value.Continuation {
			return
		}

		callID := cont.Call
		if cont.Callback == nil {
			vm.sp--
			vm.callFunc(callID, nil)
			return
		}
		// Copy out everything the loop body needs before making any
		// call that might allocate and move cont's backing storage.
		callback := cont.Callback
		contArgs := cont.Args

		call := vm.heap.get(callID)
		switch call.Kind {
		case value.CFunction:
			cfunc := call.CFunc
			if contArgs == value.NoneID {
				contArgs = vm.Alloc(value.NewArray(nil))
			} else if vm.heap.get(contArgs).Kind != value.Array {
				vm.stack[vm.sp-1] = vm.typeError(vm.heap.get(contArgs))
				break
			}
			retval := cfunc(vm, contArgs)
			vm.stack[vm.sp-1] = callback(vm, retval, contID)

		case value.Function:
			cont.Flags |= value.ContCallback
			if contArgs != value.NoneID {
				vm.callFuncWithArgs(callID, contArgs)
			} else {
				vm.callFunc(callID, nil)
			}
			return

		default:
			err := vm.typeError(call)
			vm.stack[vm.sp-1] = callback(vm, err, contID)
		}
	}
}

// typeError builds the standard "wrong kind of value" error.
func (vm *VM) typeError(v *value.Value) value.ID {
	return vm.runtimeError("Unexpected type: %s", v.Kind)
}
