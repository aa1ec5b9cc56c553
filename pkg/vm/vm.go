// Package vm implements gilia's stack machine: instruction dispatch,
// the continuation-driven call protocol, and a mark-and-sweep
// collector.
package vm

import (
	"fmt"
	"io"

	"github.com/mortie/gilia/internal/intern"
	"github.com/mortie/gilia/pkg/bytecode"
	"github.com/mortie/gilia/pkg/value"
)

// Frame is a call-frame-stack record: the callee's namespace, the
// instruction pointer to resume at, the operand-stack pointer to
// restore, and the arguments array the callee's body reads via
// STACK_FRAME_GET_ARGS.
type Frame struct {
	Namespace value.ID
	ReturnIP  int
	StackBase int
	Args      value.ID
}

// Option configures a VM at construction.
type Option func(*VM)

// WithStackSize sets the operand stack's capacity. Default 1024.
func WithStackSize(n int) Option { return func(vm *VM) { vm.stack = make([]value.ID, n) } }

// WithFrameStackSize sets the frame stack's capacity. Default 1024.
func WithFrameStackSize(n int) Option {
	return func(vm *VM) { vm.frames = make([]Frame, n) }
}

// WithStdout sets the writer `print` and friends write to. Default
// io.Discard.
func WithStdout(w io.Writer) Option { return func(vm *VM) { vm.stdout = w } }

// WithStderr sets the writer runtime errors are printed to before the
// VM halts. Default io.Discard.
func WithStderr(w io.Writer) Option { return func(vm *VM) { vm.stderr = w } }

// VM is gilia's virtual machine. Zero value is not usable; construct
// with New.
type VM struct {
	heap *heap

	stack []value.ID
	sp    int

	frames []Frame
	fp     int

	code   []byte
	ip     int
	halted bool

	// gcScheduled is set by Alloc when the table is near capacity and
	// cleared by Step once the collection it requested has run.
	gcScheduled bool

	atoms *intern.Table

	stdout io.Writer
	stderr io.Writer

	// builtinsNS is the outermost frame's namespace: const, never
	// swept, parent of every user namespace.
	builtinsNS value.ID
	// rootNS is the user-level frame pushed on top of builtinsNS at
	// init.
	rootNS value.ID

	// modules maps a registered native module's name to its namespace
	// value id, for the module interface and import resolution of
	// pre-registered native module names.
	modules map[string]value.ID

	// atomTrue/atomFalse/atomStop are the interned ids for the
	// sentinel atoms used throughout control flow. A sentinel atom
	// (the id of stop) returned from a loop body signals termination.
	atomTrue, atomFalse, atomStop uint32
}

// New constructs a VM ready to load a Program. atoms must be the same
// interner the compiler used to produce the bytecode the VM will run,
// so that atom ids agree between compile time and run time.
func New(atoms *intern.Table, opts ...Option) *VM {
	vm := &VM{
		heap:    newHeap(),
		stack:   make([]value.ID, 1024),
		frames:  make([]Frame, 1024),
		atoms:   atoms,
		stdout:  io.Discard,
		stderr:  io.Discard,
		modules: make(map[string]value.ID),
	}
	for _, opt := range opts {
		opt(vm)
	}

	// Built-ins frame: a const namespace with no parent.
	vm.builtinsNS = vm.heap.alloc(value.NewNamespace(value.NoneID))
	vm.frames[0] = Frame{Namespace: vm.builtinsNS, ReturnIP: 0, StackBase: 0}
	vm.fp = 1

	// User (root) frame: parent is the built-ins namespace.
	vm.rootNS = vm.heap.alloc(value.NewNamespace(vm.builtinsNS))
	vm.frames[1] = Frame{Namespace: vm.rootNS, ReturnIP: 0, StackBase: 0}
	vm.fp = 2

	vm.atomTrue = atoms.Put("true")
	vm.atomFalse = atoms.Put("false")
	vm.atomStop = atoms.Put("stop")

	return vm
}

// FinishInit freezes the const prefix after the embedder has registered
// every built-in module. Call it once, after all RegisterModule calls.
func (vm *VM) FinishInit() {
	vm.heap.markConstPrefix()
}

// Atoms returns the shared atom interner.
func (vm *VM) Atoms() *intern.Table { return vm.atoms }

// Stdout returns the configured standard-output writer.
func (vm *VM) Stdout() io.Writer { return vm.stdout }

// BuiltinsNamespace returns the outermost (const) namespace id, where
// native modules install their exports.
func (vm *VM) BuiltinsNamespace() value.ID { return vm.builtinsNS }

// AtomStop, AtomTrue, AtomFalse return the interned ids of the
// corresponding sentinel atoms.
func (vm *VM) AtomStop() uint32  { return vm.atomStop }
func (vm *VM) AtomTrue() uint32  { return vm.atomTrue }
func (vm *VM) AtomFalse() uint32 { return vm.atomFalse }

// Alloc installs v in the value heap and returns its id. Built-ins that
// allocate must treat any *value.Value pointer obtained before the call
// as invalidated afterward and re-fetch with Value. A collection near
// capacity is scheduled, not run here — it runs once the current
// instruction finishes, in Step.
func (vm *VM) Alloc(v value.Value) value.ID {
	if vm.heap.needsGC() {
		vm.gcScheduled = true
	}
	return vm.heap.alloc(v)
}

// Value returns a pointer to the value at id.
func (vm *VM) Value(id value.ID) *value.Value { return vm.heap.get(id) }

// Push pushes id onto the operand stack.
func (vm *VM) Push(id value.ID) {
	vm.stack[vm.sp] = id
	vm.sp++
}

// Pop pops and returns the top of the operand stack.
func (vm *VM) Pop() value.ID {
	vm.sp--
	return vm.stack[vm.sp]
}

// RegisterModule installs a native module's namespace under name so
// import can resolve it without recursing into the parser. It allocates
// nothing: the caller allocates and populates the namespace ns, before
// FinishInit runs.
//
// The compiler's STACK_FRAME_LOOKUP for a pre-registered module resolves
// against a synthetic atom ("__module:<name>"), not against name itself —
// this binds that same atom in the built-ins namespace so the lookup
// succeeds without the VM special-casing import at all.
func (vm *VM) RegisterModule(name string, ns value.ID) {
	vm.modules[name] = ns
	vm.namespaceSet(vm.builtinsNS, vm.atoms.Put("__module:"+name), ns)
}

// Module looks up a previously registered native module's namespace id.
func (vm *VM) Module(name string) (value.ID, bool) {
	ns, ok := vm.modules[name]
	return ns, ok
}

// Load installs a compiled program and resets the instruction pointer.
func (vm *VM) Load(prog bytecode.Program) {
	vm.code = prog.Code
	vm.ip = 0
	vm.halted = false
}

// Halted reports whether the VM has stopped running.
func (vm *VM) Halted() bool { return vm.halted }

// Halt lets an embedder cancel execution between Step calls.
func (vm *VM) Halt() { vm.halted = true }

// Run executes Step until the VM halts.
func (vm *VM) Run() error {
	for !vm.halted {
		if err := vm.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) readU8() uint32 {
	b := vm.code[vm.ip]
	vm.ip++
	return uint32(b)
}

func (vm *VM) readU32() uint32 {
	b := vm.code[vm.ip : vm.ip+4]
	vm.ip += 4
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (vm *VM) readDouble() float64 {
	bits, pos := bytecode.Double(vm.code, vm.ip)
	vm.ip = pos
	return doubleFromBits(bits)
}

// readRelJump reads a wide (4-byte) relative offset and resolves it
// against the instruction pointer's position just past the operand.
func (vm *VM) readRelJump() int {
	off := vm.readU32()
	return vm.ip + int(off)
}

// readRelJumpU1 is readRelJump's narrow (1-byte offset) sibling.
func (vm *VM) readRelJumpU1() int {
	off := vm.readU8()
	return vm.ip + int(off)
}

func (vm *VM) currentNamespace() value.ID {
	return vm.frames[vm.fp-1].Namespace
}

// runtimeError allocates an ERROR value: errors are ordinary values,
// not exceptions.
func (vm *VM) runtimeError(format string, args ...any) value.ID {
	return vm.Alloc(value.NewError(fmt.Sprintf(format, args...)))
}
