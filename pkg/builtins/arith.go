package builtins

import (
	"github.com/mortie/gilia/pkg/value"
	"github.com/mortie/gilia/pkg/vm"
)

// arithOp implements +, -, *, /: with no arguments it returns the
// operator's identity element; with one argument it applies the operator
// to the identity and that argument (so `- 5` negates); otherwise it
// left-folds over every argument.
func arithOp(identity float64, op func(a, b float64) float64) value.CFunc {
	return func(vmAny any, argsID value.ID) value.ID {
		V := vmAny.(*vm.VM)
		args := argv(V, argsID)

		if len(args) == 0 {
			return V.Alloc(value.NewReal(identity))
		}

		first := V.Value(args[0])
		if first.Kind != value.Real {
			return typeError(V, first)
		}

		if len(args) == 1 {
			return V.Alloc(value.NewReal(op(identity, first.RealVal)))
		}

		sum := first.RealVal
		for _, id := range args[1:] {
			v := V.Value(id)
			if v.Kind != value.Real {
				return typeError(V, v)
			}
			sum = op(sum, v.RealVal)
		}
		return V.Alloc(value.NewReal(sum))
	}
}

func add(vm any, argsID value.ID) value.ID {
	return arithOp(0, func(a, b float64) float64 { return a + b })(vm, argsID)
}
func sub(vm any, argsID value.ID) value.ID {
	return arithOp(0, func(a, b float64) float64 { return a - b })(vm, argsID)
}
func mul(vm any, argsID value.ID) value.ID {
	return arithOp(1, func(a, b float64) float64 { return a * b })(vm, argsID)
}

// div follows the same identity-element shape as the other arithOp
// operators (1 / x for the single-argument case), but raises a runtime
// error on division by zero rather than producing an infinity.
func div(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)

	if len(args) == 0 {
		return V.Alloc(value.NewReal(1))
	}
	first := V.Value(args[0])
	if first.Kind != value.Real {
		return typeError(V, first)
	}
	if len(args) == 1 {
		if first.RealVal == 0 {
			return errorf(V, "Division by zero")
		}
		return V.Alloc(value.NewReal(1 / first.RealVal))
	}
	sum := first.RealVal
	for _, id := range args[1:] {
		v := V.Value(id)
		if v.Kind != value.Real {
			return typeError(V, v)
		}
		if v.RealVal == 0 {
			return errorf(V, "Division by zero")
		}
		sum /= v.RealVal
	}
	return V.Alloc(value.NewReal(sum))
}

// valuesEqual compares a and b structurally for ==/!=: atoms by id,
// reals by value, buffers by byte content, everything else (arrays,
// namespaces, functions...) only by identity.
func valuesEqual(a, b *value.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case value.Atom:
		return a.AtomID == b.AtomID
	case value.Real:
		return a.RealVal == b.RealVal
	case value.Buffer:
		return string(a.Bytes()) == string(b.Bytes())
	default:
		return false
	}
}

func eq(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) < 2 {
		return boolID(V, true)
	}
	for i := 1; i < len(args); i++ {
		if args[i-1] == args[i] {
			continue
		}
		a, b := V.Value(args[i-1]), V.Value(args[i])
		if !valuesEqual(a, b) {
			return boolID(V, false)
		}
	}
	return boolID(V, true)
}

func neq(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	ret := eq(vmAny, argsID)
	retV := V.Value(ret)
	if retV.Kind == value.Atom {
		return boolID(V, retV.AtomID != V.AtomTrue())
	}
	return ret
}

// boolID returns the interned true/false atom value's id.
func boolID(V *vm.VM, b bool) value.ID {
	if b {
		return V.Alloc(value.NewAtom(V.AtomTrue()))
	}
	return V.Alloc(value.NewAtom(V.AtomFalse()))
}

// cmpOp implements <, <=, >, >= by chaining op across adjacent pairs.
func cmpOp(op func(a, b float64) bool) value.CFunc {
	return func(vmAny any, argsID value.ID) value.ID {
		V := vmAny.(*vm.VM)
		args := argv(V, argsID)
		if len(args) < 2 {
			return boolID(V, true)
		}

		lhs := V.Value(args[0])
		if lhs.Kind != value.Real {
			return typeError(V, lhs)
		}
		for _, id := range args[1:] {
			rhs := V.Value(id)
			if rhs.Kind != value.Real {
				return typeError(V, rhs)
			}
			if !op(lhs.RealVal, rhs.RealVal) {
				return boolID(V, false)
			}
			lhs = rhs
		}
		return boolID(V, true)
	}
}

func lt(vm any, argsID value.ID) value.ID {
	return cmpOp(func(a, b float64) bool { return a < b })(vm, argsID)
}
func lteq(vm any, argsID value.ID) value.ID {
	return cmpOp(func(a, b float64) bool { return a <= b })(vm, argsID)
}
func gt(vm any, argsID value.ID) value.ID {
	return cmpOp(func(a, b float64) bool { return a > b })(vm, argsID)
}
func gteq(vm any, argsID value.ID) value.ID {
	return cmpOp(func(a, b float64) bool { return a >= b })(vm, argsID)
}

// land/lor short-circuit only in the sense that the first error or
// decisive value wins outright; unlike most languages' logical operators
// they are ordinary eager n-ary functions, since every argument is
// already evaluated before the call.
func land(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	for _, id := range args {
		v := V.Value(id)
		if v.Kind == value.Error {
			return id
		}
		if !isTrue(V, id) {
			return boolID(V, false)
		}
	}
	return boolID(V, true)
}

func lor(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	for _, id := range args {
		v := V.Value(id)
		if v.Kind == value.Error {
			return id
		}
		if isTrue(V, id) {
			return boolID(V, true)
		}
	}
	return boolID(V, false)
}

// first implements ??: the first non-none argument, or none if every
// argument is none.
func first(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	for _, id := range args {
		if V.Value(id).Kind != value.None {
			return id
		}
	}
	return value.NoneID
}

// length implements len: byte length for buffers, element count for
// arrays, live-key count for namespaces, 0 otherwise.
func length(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) != 1 {
		return errorf(V, "Expected 1 argument")
	}
	v := V.Value(args[0])
	n := 0
	switch v.Kind {
	case value.Buffer:
		n = v.Len()
	case value.Array:
		n = v.ArrayLen()
	case value.Namespace:
		if v.Table != nil {
			n = v.Table.Len()
		}
	}
	return V.Alloc(value.NewReal(float64(n)))
}
