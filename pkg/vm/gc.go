package vm

import "github.com/mortie/gilia/pkg/value"

// gc runs a full mark-and-sweep cycle. Roots are the entire live
// operand stack and every frame's namespace except the outermost
// built-ins frame, which is const and never collected.
func (vm *VM) gc() {
	for i := 0; i < vm.sp; i++ {
		vm.mark(vm.stack[i])
	}
	for i := 1; i < vm.fp; i++ {
		vm.mark(vm.frames[i].Namespace)
		vm.mark(vm.frames[i].Args)
	}
	vm.sweep()
}

// mark walks id and everything it transitively references, setting
// value.Marked along the way. It stops at already-marked values so
// cycles (a namespace whose table holds a function capturing that same
// namespace, for instance) terminate.
func (vm *VM) mark(id value.ID) {
	if id == value.NoneID {
		return
	}
	v := vm.heap.get(id)
	if v.Flags&value.Marked != 0 {
		return
	}
	v.Flags |= value.Marked

	switch v.Kind {
	case value.Array:
		for _, elem := range v.Elems() {
			vm.mark(elem)
		}
	case value.Namespace:
		vm.mark(v.Parent)
		if v.Table != nil {
			for _, key := range v.Table.Keys() {
				child, _ := v.Table.Get(key)
				vm.mark(child)
			}
		}
	case value.Function:
		vm.mark(v.Captured)
	case value.CFunction:
		vm.mark(v.Module)
	case value.Continuation:
		vm.mark(v.Call)
		vm.mark(v.Args)
		if v.Marker != nil {
			v.Marker(vm, id, vm.mark)
		}
	case value.Return:
		vm.mark(v.Inner)
	}
}

// sweep frees every unmarked id from the const prefix onward, then
// clears Marked on the survivors — including those below the const
// prefix, which never went through mark's walk of the const prefix
// itself but may have been marked as a reachable target from above it.
func (vm *VM) sweep() {
	for id := vm.heap.constPrefix; int(id) < len(vm.heap.values); id++ {
		if !vm.heap.isLive(id) {
			continue
		}
		v := vm.heap.get(id)
		if v.Flags&value.Marked != 0 {
			v.Flags &^= value.Marked
			continue
		}
		vm.heap.free(id)
	}
	for id := value.ID(0); id < vm.heap.constPrefix; id++ {
		vm.heap.values[id].Flags &^= value.Marked
	}
}
