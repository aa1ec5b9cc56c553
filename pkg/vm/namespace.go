package vm

import "github.com/mortie/gilia/pkg/value"

// namespaceGet walks ns's parent chain looking up key. It returns
// NoneID, false if no scope in the chain binds key.
func (vm *VM) namespaceGet(ns value.ID, key uint32) (value.ID, bool) {
	for ns != value.NoneID {
		v := vm.heap.get(ns)
		if v.Table != nil {
			if id, ok := v.Table.Get(key); ok {
				return id, true
			}
		}
		ns = v.Parent
	}
	return value.NoneID, false
}

// namespaceSet binds key to val in ns's own table, without walking the
// parent chain.
func (vm *VM) namespaceSet(ns value.ID, key uint32, val value.ID) {
	v := vm.heap.get(ns)
	if v.Table == nil {
		v.Table = value.NewTable()
	}
	v.Table.Set(key, val)
}

// namespaceReplace walks ns's parent chain to find the innermost scope
// that already binds key and overwrites it there. It reports false if
// no scope in the chain binds key (the caller then raises a runtime
// error: reassignment of an unbound name is an error).
func (vm *VM) namespaceReplace(ns value.ID, key uint32, val value.ID) bool {
	for ns != value.NoneID {
		v := vm.heap.get(ns)
		if v.Table != nil {
			if _, ok := v.Table.Get(key); ok {
				v.Table.Set(key, val)
				return true
			}
		}
		ns = v.Parent
	}
	return false
}
