package builtins

import (
	"os"

	"github.com/mortie/gilia/pkg/value"
	"github.com/mortie/gilia/pkg/vm"
)

// read implements fs.read(path): the whole file's contents as a buffer,
// or an error.
func read(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) != 1 {
		return errorf(V, "Expected 1 argument")
	}

	path := V.Value(args[0])
	if path.Kind != value.Buffer {
		return typeError(V, path)
	}

	data, err := os.ReadFile(string(path.Bytes()))
	if err != nil {
		return errorf(V, "%s: %v", path.Bytes(), err)
	}
	return V.Alloc(value.NewBuffer(data))
}

// exists implements fs.exists(path): true or false, with false also
// when the path cannot be stat'd for a reason other than not existing.
// A wrong argument count or a non-buffer path is an error.
func exists(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) != 1 {
		return errorf(V, "Expected 1 argument")
	}

	path := V.Value(args[0])
	if path.Kind != value.Buffer {
		return typeError(V, path)
	}

	if _, err := os.Stat(string(path.Bytes())); err != nil {
		return V.Alloc(value.NewAtom(V.AtomFalse()))
	}
	return V.Alloc(value.NewAtom(V.AtomTrue()))
}

// write implements fs.write(path, data): overwrites path with data's
// buffer contents, returning none or an error.
func fsWrite(vmAny any, argsID value.ID) value.ID {
	V := vmAny.(*vm.VM)
	args := argv(V, argsID)
	if len(args) != 2 {
		return errorf(V, "Expected 2 arguments")
	}

	path := V.Value(args[0])
	if path.Kind != value.Buffer {
		return typeError(V, path)
	}
	data := V.Value(args[1])
	if data.Kind != value.Buffer {
		return typeError(V, data)
	}

	if err := os.WriteFile(string(path.Bytes()), data.Bytes(), 0o644); err != nil {
		return errorf(V, "%s: %v", path.Bytes(), err)
	}
	return value.NoneID
}

// RegisterFS installs the fs module: read, write, and exists.
func RegisterFS(V *vm.VM) {
	ns := V.Alloc(value.NewNamespace(value.NoneID))
	nsv := V.Value(ns)
	nsv.Table = value.NewTable()

	nsv.Table.Set(V.Atoms().Put("read"), V.Alloc(value.NewCFunction(read, ns)))
	nsv.Table.Set(V.Atoms().Put("write"), V.Alloc(value.NewCFunction(fsWrite, ns)))
	nsv.Table.Set(V.Atoms().Put("exists"), V.Alloc(value.NewCFunction(exists, ns)))

	V.RegisterModule("fs", ns)
}
