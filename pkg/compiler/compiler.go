package compiler

import (
	"io"
	"path/filepath"

	"github.com/mortie/gilia/internal/intern"
	"github.com/mortie/gilia/internal/ioutil"
	"github.com/mortie/gilia/pkg/bytecode"
	"github.com/mortie/gilia/pkg/lexer"
	"github.com/mortie/gilia/pkg/token"
)

// Resolver lets an embedder supply file-based import support. Normalize
// turns a literal import path, relative to the importing file's
// directory dir, into a canonical name suitable for caching and cycle
// detection; Open opens the content at that canonical name.
type Resolver interface {
	Normalize(dir, path string) (string, error)
	Open(canonical string) (io.ReadCloser, error)
}

// Option configures a compilation.
type Option func(*options)

type options struct {
	modules  map[string]bool
	resolver Resolver
}

// WithModules declares the set of native module names Compile may
// resolve without a Resolver: `import "name"` for one of these compiles
// to a lookup against the module's pre-registered namespace instead of
// a file read.
func WithModules(names []string) Option {
	return func(o *options) {
		for _, n := range names {
			o.modules[n] = true
		}
	}
}

// WithResolver supplies file-based import support. Without one, any
// import naming something other than a declared module is a parse
// error.
func WithResolver(r Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// Compile compiles a single gilia source unit into a Program. filename
// is used in parse error messages and, when a Resolver is configured, as
// the base path nested imports resolve relative to; pass "" for
// stdin/REPL input (rendered as "<input>" in errors).
func Compile(src io.Reader, filename string, atoms *intern.Table, opts ...Option) (bytecode.Program, error) {
	o := &options{modules: make(map[string]bool)}
	for _, opt := range opts {
		opt(o)
	}

	gen := newGenerator(atoms, o.modules)
	p := &parser{
		lex:      lexer.New(ioutil.NewReader(src)),
		gen:      gen,
		file:     filename,
		resolver: o.resolver,
	}
	if filename != "" {
		p.dirStack = []string{filepath.Dir(filename)}
	} else {
		p.dirStack = []string{"."}
	}

	if err := p.parseStatements(); err != nil {
		return bytecode.Program{}, err
	}
	gen.emitHalt()

	return gen.emit.Finish(), nil
}

// currentDir returns the directory nested imports should resolve
// relative to: the directory of the file currently being parsed.
func (p *parser) currentDir() string {
	if len(p.dirStack) == 0 {
		return "."
	}
	return p.dirStack[len(p.dirStack)-1]
}

// importFile handles a file-based import: it normalizes and opens path
// through the configured Resolver, then recursively parses the opened
// content's statements directly into the enclosing program's generator.
//
// A nested parse runs parseStatements without emitting a HALT, since
// only the single top-level Compile call should ever do that. The
// import expression itself evaluates to none: a file is imported for
// its effect on the shared namespace chain, not for a value.
func (p *parser) importFile(tok token.Token, path string) error {
	if p.resolver == nil {
		return p.errorAt(tok, "cannot import %q: no resolver configured", path)
	}

	canonical, err := p.resolver.Normalize(p.currentDir(), path)
	if err != nil {
		return p.errorAt(tok, "cannot resolve import %q: %v", path, err)
	}

	rc, err := p.resolver.Open(canonical)
	if err != nil {
		return p.errorAt(tok, "cannot open import %q: %v", path, err)
	}
	defer rc.Close()

	child := &parser{
		lex:      lexer.New(ioutil.NewReader(rc)),
		gen:      p.gen,
		file:     canonical,
		resolver: p.resolver,
		dirStack: append(append([]string(nil), p.dirStack...), filepath.Dir(canonical)),
	}

	if err := child.parseStatements(); err != nil {
		return err
	}

	p.gen.emitNone()
	return nil
}
