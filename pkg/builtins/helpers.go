// Package builtins implements gilia's native CFUNCTION modules: the
// arithmetic/comparison/logical prelude, the if/loop/while/for/guard
// control-flow primitives, and a file-reading module.
package builtins

import (
	"fmt"

	"github.com/mortie/gilia/pkg/value"
	"github.com/mortie/gilia/pkg/vm"
)

// argv extracts a CFunc's argument array as a slice. callFunc and the
// continuation-chasing loop both guarantee an Array value here, even for
// zero arguments, so no nil check is needed.
func argv(V *vm.VM, argsID value.ID) []value.ID {
	return V.Value(argsID).Elems()
}

// isTrue: only the interned true atom is truthy, never a generic
// non-none/non-error value.
func isTrue(V *vm.VM, id value.ID) bool {
	v := V.Value(id)
	return v.Kind == value.Atom && v.AtomID == V.AtomTrue()
}

func typeError(V *vm.VM, v *value.Value) value.ID {
	return V.Alloc(value.NewError("Unexpected type: " + v.Kind.String()))
}

func errorf(V *vm.VM, format string, args ...any) value.ID {
	return V.Alloc(value.NewError(fmt.Sprintf(format, args...)))
}
