package builtins

import (
	"github.com/mortie/gilia/pkg/value"
	"github.com/mortie/gilia/pkg/vm"
)

// entries lists every name this module binds to a native function.
var entries = map[string]value.CFunc{
	"+": add, "-": sub, "*": mul, "/": div,
	"==": eq, "!=": neq,
	"<": lt, "<=": lteq, ">": gt, ">=": gteq,
	"&&": land, "||": lor, "??": first,
	"print": print, "write": write, "len": length,
	"if": ifFn, "loop": loopFn, "while": whileFn, "for": forFn, "guard": guardFn,
}

// Register builds the builtins namespace and installs it under
// RegisterModule("builtins", ...). Each entry is also bound in the VM's
// built-ins namespace, so source code reaches `print`, `+` and the rest
// through the ordinary scope chain without an import. The file-reading
// module lives separately in fs.go's RegisterFS and keeps the "fs" name
// for itself.
func Register(V *vm.VM) {
	ns := V.Alloc(value.NewNamespace(value.NoneID))
	nsv := V.Value(ns)
	if nsv.Table == nil {
		nsv.Table = value.NewTable()
	}
	table := nsv.Table

	bns := V.Value(V.BuiltinsNamespace())
	if bns.Table == nil {
		bns.Table = value.NewTable()
	}
	prelude := bns.Table

	for name, fn := range entries {
		id := V.Atoms().Put(name)
		cfID := V.Alloc(value.NewCFunction(fn, ns))
		table.Set(id, cfID)
		prelude.Set(id, cfID)
	}

	V.RegisterModule("builtins", ns)
}
