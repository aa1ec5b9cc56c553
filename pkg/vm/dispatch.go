package vm

import (
	"fmt"

	"github.com/mortie/gilia/pkg/bytecode"
	"github.com/mortie/gilia/pkg/value"
)

// Step decodes and executes exactly one instruction, then runs a
// collection if Alloc scheduled one during it.
func (vm *VM) Step() error {
	op := bytecode.Opcode(vm.readU8())

	switch op {
	case bytecode.NOP:

	case bytecode.DISCARD:
		vm.sp--
		vm.haltOnError(vm.stack[vm.sp])

	case bytecode.SWAP_DISCARD:
		vm.stack[vm.sp-2] = vm.stack[vm.sp-1]
		vm.sp--
		vm.haltOnError(vm.stack[vm.sp])

	case bytecode.DUP:
		vm.stack[vm.sp] = vm.stack[vm.sp-1]
		vm.sp++

	case bytecode.ADD:
		lhs := vm.heap.get(vm.stack[vm.sp-2])
		rhs := vm.heap.get(vm.stack[vm.sp-1])
		vm.sp--
		if lhs.Kind != value.Real || rhs.Kind != value.Real {
			vm.stack[vm.sp-1] = vm.typeError(lhs)
			break
		}
		sum := lhs.RealVal + rhs.RealVal
		vm.stack[vm.sp-1] = vm.Alloc(value.NewReal(sum))

	case bytecode.FUNC_CALL_U4, bytecode.FUNC_CALL_U1:
		var argc uint32
		if op == bytecode.FUNC_CALL_U4 {
			argc = vm.readU32()
		} else {
			argc = vm.readU8()
		}
		vm.sp -= int(argc)
		argv := vm.stack[vm.sp : vm.sp+int(argc)]
		vm.sp--
		funcID := vm.stack[vm.sp]
		vm.callFunc(funcID, argv)

	case bytecode.FUNC_CALL_INFIX:
		rhs := vm.Pop()
		funcID := vm.Pop()
		lhs := vm.Pop()
		vm.callFunc(funcID, []value.ID{lhs, rhs})

	case bytecode.RJMP_U4:
		vm.ip = vm.readRelJump()
	case bytecode.RJMP_U1:
		vm.ip = vm.readRelJumpU1()

	case bytecode.HALT:
		vm.halted = true

	case bytecode.RET:
		vm.stepRet()

	case bytecode.ALLOC_NONE:
		vm.Push(value.NoneID)

	case bytecode.ALLOC_ATOM_U4, bytecode.ALLOC_ATOM_U1:
		var id uint32
		if op == bytecode.ALLOC_ATOM_U4 {
			id = vm.readU32()
		} else {
			id = vm.readU8()
		}
		vm.Push(vm.Alloc(value.NewAtom(id)))

	case bytecode.ALLOC_REAL_D8:
		vm.Push(vm.Alloc(value.NewReal(vm.readDouble())))

	case bytecode.ALLOC_BUFFER_STATIC_U4, bytecode.ALLOC_BUFFER_STATIC_U1:
		var length, offset uint32
		if op == bytecode.ALLOC_BUFFER_STATIC_U4 {
			length, offset = vm.readU32(), vm.readU32()
		} else {
			length, offset = vm.readU8(), vm.readU8()
		}
		data := vm.code[offset : offset+length]
		vm.Push(vm.Alloc(value.NewBuffer(data)))

	case bytecode.ALLOC_ARRAY_U4, bytecode.ALLOC_ARRAY_U1:
		var count uint32
		if op == bytecode.ALLOC_ARRAY_U4 {
			count = vm.readU32()
		} else {
			count = vm.readU8()
		}
		elems := make([]value.ID, count)
		for i := uint32(0); i < count; i++ {
			elems[count-1-i] = vm.Pop()
		}
		vm.Push(vm.Alloc(value.NewArray(elems)))

	case bytecode.ALLOC_NAMESPACE:
		vm.Push(vm.Alloc(value.NewNamespace(value.NoneID)))

	case bytecode.ALLOC_FUNCTION_U4, bytecode.ALLOC_FUNCTION_U1:
		var pos uint32
		if op == bytecode.ALLOC_FUNCTION_U4 {
			pos = vm.readU32()
		} else {
			pos = vm.readU8()
		}
		captured := vm.currentNamespace()
		vm.Push(vm.Alloc(value.NewFunction(int(pos), captured)))

	case bytecode.STACK_FRAME_GET_ARGS:
		vm.Push(vm.frames[vm.fp-1].Args)

	case bytecode.STACK_FRAME_LOOKUP_U4, bytecode.STACK_FRAME_LOOKUP_U1:
		key := vm.readKey(op, bytecode.STACK_FRAME_LOOKUP_U4)
		id, _ := vm.namespaceGet(vm.currentNamespace(), key)
		vm.Push(id)

	case bytecode.STACK_FRAME_SET_U4, bytecode.STACK_FRAME_SET_U1:
		key := vm.readKey(op, bytecode.STACK_FRAME_SET_U4)
		val := vm.stack[vm.sp-1]
		vm.namespaceSet(vm.currentNamespace(), key, val)

	case bytecode.STACK_FRAME_REPLACE_U4, bytecode.STACK_FRAME_REPLACE_U1:
		key := vm.readKey(op, bytecode.STACK_FRAME_REPLACE_U4)
		val := vm.stack[vm.sp-1]
		if !vm.namespaceReplace(vm.currentNamespace(), key, val) {
			vm.stack[vm.sp-1] = vm.runtimeError("Variable not found")
		}

	case bytecode.NAMESPACE_SET_U4, bytecode.NAMESPACE_SET_U1:
		key := vm.readKey(op, bytecode.NAMESPACE_SET_U4)
		val := vm.stack[vm.sp-1]
		ns := vm.stack[vm.sp-2]
		vm.namespaceSet(ns, key, val)

	case bytecode.NAMESPACE_LOOKUP_U4, bytecode.NAMESPACE_LOOKUP_U1:
		key := vm.readKey(op, bytecode.NAMESPACE_LOOKUP_U4)
		vm.sp--
		ns := vm.stack[vm.sp]
		id, _ := vm.namespaceGet(ns, key)
		vm.Push(id)

	case bytecode.ARRAY_LOOKUP_U4, bytecode.ARRAY_LOOKUP_U1:
		key := vm.readKey(op, bytecode.ARRAY_LOOKUP_U4)
		vm.sp--
		arr := vm.heap.get(vm.stack[vm.sp])
		if arr.Kind != value.Array {
			vm.Push(vm.typeError(arr))
			break
		}
		id, err := arr.ArrayGet(int(key))
		if err != nil {
			vm.Push(vm.runtimeError("Array index out of bounds"))
			break
		}
		vm.Push(id)

	case bytecode.ARRAY_SET_U4, bytecode.ARRAY_SET_U1:
		key := vm.readKey(op, bytecode.ARRAY_SET_U4)
		val := vm.stack[vm.sp-1]
		arr := vm.heap.get(vm.stack[vm.sp-2])
		if arr.Kind != value.Array {
			vm.stack[vm.sp-1] = vm.typeError(arr)
			break
		}
		if err := arr.ArraySet(int(key), val); err != nil {
			vm.stack[vm.sp-1] = vm.runtimeError("Array index out of bounds")
		}

	case bytecode.DYNAMIC_LOOKUP:
		vm.sp--
		keyID := vm.stack[vm.sp]
		vm.sp--
		containerID := vm.stack[vm.sp]
		vm.Push(vm.dynamicLookup(containerID, keyID))

	case bytecode.DYNAMIC_SET:
		val := vm.Pop()
		keyID := vm.Pop()
		containerID := vm.Pop()
		vm.Push(vm.dynamicSet(containerID, keyID, val))

	default:
		return fmt.Errorf("gilia: unknown opcode %d at ip %d", op, vm.ip-1)
	}

	if vm.gcScheduled {
		vm.gc()
		vm.gcScheduled = false
	}

	return nil
}

// readKey reads a U4 or U1 operand depending on which form of op was
// decoded, for the many opcodes whose only operand is a namespace/array
// key.
func (vm *VM) readKey(op, wide bytecode.Opcode) uint32 {
	if op == wide {
		return vm.readU32()
	}
	return vm.readU8()
}

// haltOnError implements DISCARD/SWAP_DISCARD's "an error value reaching
// the end of a statement halts the program" rule.
func (vm *VM) haltOnError(id value.ID) {
	v := vm.heap.get(id)
	if v.Kind == value.Error {
		fmt.Fprintf(vm.stderr, "Error: %s\n", v.Msg)
		vm.halted = true
	}
}

// dynamicLookup implements DYNAMIC_LOOKUP: container[key] where
// container's kind decides how key is interpreted.
func (vm *VM) dynamicLookup(containerID, keyID value.ID) value.ID {
	container := vm.heap.get(containerID)
	key := vm.heap.get(keyID)

	switch container.Kind {
	case value.Array:
		if key.Kind != value.Real {
			return vm.typeError(key)
		}
		k := int(key.RealVal)
		id, err := container.ArrayGet(k)
		if err != nil {
			return vm.runtimeError("Index out of range")
		}
		return id
	case value.Namespace:
		if key.Kind != value.Atom {
			return vm.typeError(key)
		}
		id, _ := vm.namespaceGet(containerID, key.AtomID)
		return id
	default:
		return vm.typeError(container)
	}
}

// dynamicSet implements DYNAMIC_SET: container[key] = val, returning val
// (or an error) so the expression form of assignment works.
func (vm *VM) dynamicSet(containerID, keyID, val value.ID) value.ID {
	container := vm.heap.get(containerID)
	key := vm.heap.get(keyID)

	switch container.Kind {
	case value.Array:
		if key.Kind != value.Real {
			return vm.typeError(key)
		}
		k := int(key.RealVal)
		if err := container.ArraySet(k, val); err != nil {
			return vm.runtimeError("Index out of range")
		}
		return val
	case value.Namespace:
		if key.Kind != value.Atom {
			return vm.typeError(key)
		}
		vm.namespaceSet(containerID, key.AtomID, val)
		return val
	default:
		return vm.typeError(container)
	}
}

// stepRet implements RET, including the continuation-chasing handoff:
// a continuation left on the stack below the return value gets first
// refusal at the result via its callback, then is re-invoked with its
// stored call/args until none remains.
func (vm *VM) stepRet() {
	vm.sp--
	retval := vm.stack[vm.sp]

	frame := vm.frames[vm.fp-1]
	vm.fp--
	vm.sp = frame.StackBase
	vm.ip = frame.ReturnIP

	var cont *value.Value
	var contID value.ID
	if vm.sp > 0 {
		contID = vm.stack[vm.sp-1]
		cont = vm.heap.get(contID)
	}

	isCont := cont != nil && cont.Kind == value.Continuation
	noCallback := !isCont || (cont.Flags&value.ContCallback != 0 && cont.Callback == nil)
	if noCallback {
		if isCont {
			vm.stack[vm.sp-1] = retval
		} else {
			vm.stack[vm.sp] = retval
			vm.sp++
		}
		return
	}

	if cont.Flags&value.ContCallback != 0 {
		retval = cont.Callback(vm, retval, contID)
		contID = retval
		cont = vm.heap.get(contID)
		if cont.Kind != value.Continuation {
			vm.stack[vm.sp-1] = retval
			return
		}
	}

	cont.Flags |= value.ContCallback
	if cont.Args != value.NoneID {
		vm.callFuncWithArgs(cont.Call, cont.Args)
	} else {
		vm.callFunc(cont.Call, nil)
	}
}
