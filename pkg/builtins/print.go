package builtins

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mortie/gilia/pkg/value"
	"github.com/mortie/gilia/pkg/vm"
)

// maxPrintDepth bounds recursive array printing against self-referential
// or pathologically deep structures.
const maxPrintDepth = 256

// printVal renders val to w: real numbers with Go's shortest
// representation, buffers as raw bytes, arrays as space-separated
// elements inside brackets, and every other kind as a `(kind ...)`
// placeholder.
func printVal(V *vm.VM, w io.Writer, id value.ID, depth int) {
	if depth > maxPrintDepth {
		io.WriteString(w, "Print recursion limit reached")
		return
	}

	v := V.Value(id)
	switch v.Kind {
	case value.None:
		io.WriteString(w, "(none)")

	case value.Atom:
		switch v.AtomID {
		case V.AtomTrue():
			io.WriteString(w, "(true)")
		case V.AtomFalse():
			io.WriteString(w, "(false)")
		default:
			fmt.Fprintf(w, "(atom %d)", v.AtomID)
		}

	case value.Real:
		io.WriteString(w, strconv.FormatFloat(v.RealVal, 'g', -1, 64))

	case value.Buffer:
		w.Write(v.Bytes())

	case value.Array:
		io.WriteString(w, "[")
		for i, elem := range v.Elems() {
			if i != 0 {
				io.WriteString(w, " ")
			}
			printVal(V, w, elem, depth+1)
		}
		io.WriteString(w, "]")

	case value.Namespace:
		io.WriteString(w, "(namespace)")

	case value.Function, value.CFunction:
		io.WriteString(w, "(function)")

	case value.Continuation:
		io.WriteString(w, "(continuation)")

	case value.Return:
		io.WriteString(w, "(return)")

	case value.Error:
		fmt.Fprintf(w, "(error: %s)", v.Msg)
	}
}

// print implements the `print` builtin: space-separated arguments
// followed by a trailing newline.
func print(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	w := V.Stdout()
	for i, id := range args {
		if i != 0 {
			io.WriteString(w, " ")
		}
		printVal(V, w, id, 0)
	}
	io.WriteString(w, "\n")
	return value.NoneID
}

// write implements `write`: like print but with no separators and no
// trailing newline.
func write(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	w := V.Stdout()
	for _, id := range args {
		printVal(V, w, id, 0)
	}
	return value.NoneID
}
