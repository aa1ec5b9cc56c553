package compiler

import (
	"github.com/mortie/gilia/internal/intern"
	"github.com/mortie/gilia/pkg/bytecode"
)

// stringLoc records where a previously-emitted string literal's bytes
// live in the code stream, so a repeated literal reuses the same
// (length, offset) pair instead of emitting a fresh copy.
type stringLoc struct {
	length int
	offset int
}

// generator is a thin layer over bytecode.Emitter plus the atom
// interner, a string-literal dedup table and the set of compile-time
// known native module names. The parser calls one emit method per
// language construct; it never touches the Emitter directly.
type generator struct {
	emit    bytecode.Emitter
	atoms   *intern.Table
	strings map[string]stringLoc
	modules map[string]bool
}

func newGenerator(atoms *intern.Table, modules map[string]bool) *generator {
	return &generator{
		atoms:   atoms,
		strings: make(map[string]stringLoc),
		modules: modules,
	}
}

func (g *generator) pos() int { return len(g.emit.Code) }

func (g *generator) emitHalt()        { g.emit.Op(bytecode.HALT) }
func (g *generator) emitDiscard()     { g.emit.Op(bytecode.DISCARD) }
func (g *generator) emitSwapDiscard() { g.emit.Op(bytecode.SWAP_DISCARD) }
func (g *generator) emitRet()         { g.emit.Op(bytecode.RET) }
func (g *generator) emitNone()        { g.emit.Op(bytecode.ALLOC_NONE) }

func (g *generator) emitNumber(n float64) {
	g.emit.Double(doubleBits(n))
}

func (g *generator) atomID(name string) uint32 {
	return g.atoms.Put(name)
}

func (g *generator) emitAtom(name string) {
	id := g.atomID(name)
	g.emit.OpU(bytecode.ALLOC_ATOM_U4, bytecode.ALLOC_ATOM_U1, id)
}

// emitString emits ALLOC_BUFFER_STATIC, reusing a prior occurrence of
// the same bytes.
func (g *generator) emitString(s string) {
	loc, ok := g.strings[s]
	if !ok {
		offset := g.emit.EmitLiteralBytes([]byte(s))
		loc = stringLoc{length: len(s), offset: offset}
		g.strings[s] = loc
	}
	g.emit.AllocBufferStatic(loc.length, loc.offset)
}

func (g *generator) emitFunction(startPos int) {
	g.emit.OpU(bytecode.ALLOC_FUNCTION_U4, bytecode.ALLOC_FUNCTION_U1, uint32(startPos))
}

func (g *generator) emitArray(count int) {
	g.emit.OpU(bytecode.ALLOC_ARRAY_U4, bytecode.ALLOC_ARRAY_U1, uint32(count))
}

func (g *generator) emitNamespace() { g.emit.Op(bytecode.ALLOC_NAMESPACE) }

func (g *generator) emitNamespaceSet(ident string) {
	g.emit.OpU(bytecode.NAMESPACE_SET_U4, bytecode.NAMESPACE_SET_U1, g.atomID(ident))
}

func (g *generator) emitNamespaceLookup(ident string) {
	g.emit.OpU(bytecode.NAMESPACE_LOOKUP_U4, bytecode.NAMESPACE_LOOKUP_U1, g.atomID(ident))
}

func (g *generator) emitArrayLookup(n int) {
	g.emit.OpU(bytecode.ARRAY_LOOKUP_U4, bytecode.ARRAY_LOOKUP_U1, uint32(n))
}

func (g *generator) emitArraySet(n int) {
	g.emit.OpU(bytecode.ARRAY_SET_U4, bytecode.ARRAY_SET_U1, uint32(n))
}

func (g *generator) emitDynamicLookup() { g.emit.Op(bytecode.DYNAMIC_LOOKUP) }
func (g *generator) emitDynamicSet()    { g.emit.Op(bytecode.DYNAMIC_SET) }

func (g *generator) emitStackFrameGetArgs() { g.emit.Op(bytecode.STACK_FRAME_GET_ARGS) }

func (g *generator) emitStackFrameLookup(ident string) {
	g.emit.OpU(bytecode.STACK_FRAME_LOOKUP_U4, bytecode.STACK_FRAME_LOOKUP_U1, g.atomID(ident))
}

func (g *generator) emitStackFrameSet(ident string) {
	g.emit.OpU(bytecode.STACK_FRAME_SET_U4, bytecode.STACK_FRAME_SET_U1, g.atomID(ident))
}

func (g *generator) emitStackFrameReplace(ident string) {
	g.emit.OpU(bytecode.STACK_FRAME_REPLACE_U4, bytecode.STACK_FRAME_REPLACE_U1, g.atomID(ident))
}

func (g *generator) emitFuncCall(argc int) {
	g.emit.OpU(bytecode.FUNC_CALL_U4, bytecode.FUNC_CALL_U1, uint32(argc))
}

func (g *generator) emitFuncCallInfix() { g.emit.Op(bytecode.FUNC_CALL_INFIX) }

func (g *generator) reserveJump() int          { return g.emit.ReserveJump() }
func (g *generator) patchJumpHere(idx int)     { g.emit.PatchJump(idx) }
func (g *generator) patchJumpTo(idx, pos int)  { g.emit.PatchJumpTo(idx, pos) }

// moduleAtomName builds the synthetic atom a compile-time-known native
// module's namespace is bound under: "__module:<name>".
// pkg/vm.RegisterModule binds this same atom in the built-ins namespace
// so STACK_FRAME_LOOKUP resolves it without the VM special-casing
// import at all.
func moduleAtomName(name string) string { return "__module:" + name }

// isKnownModule and emitModuleImport compile an import of a
// pre-registered native module name, which never recurses into the
// parser — it compiles to a lookup against the synthetic per-module
// atom. Anything else is a file-based import, handled by the parser via
// the resolver (gen.go only knows about compile-time module names; the
// parser owns recursion).
func (g *generator) isKnownModule(name string) bool {
	return g.modules[name]
}

func (g *generator) emitModuleImport(name string) {
	// A placeholder receiver keeps the stack shape identical to a
	// namespace/array lookup chain, even though nothing reads it:
	// STACK_FRAME_LOOKUP ignores whatever was on top beforehand.
	g.emitNone()
	g.emit.Op(bytecode.DISCARD)
	g.emitStackFrameLookup(moduleAtomName(name))
}
