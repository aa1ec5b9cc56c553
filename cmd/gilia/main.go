// Command gilia compiles and runs gilia source (or precompiled bytecode)
// files. It is a thin driver over pkg/compiler, pkg/vm, pkg/builtins and
// pkg/disasm.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mortie/gilia/internal/intern"
	"github.com/mortie/gilia/pkg/builtins"
	"github.com/mortie/gilia/pkg/bytecode"
	"github.com/mortie/gilia/pkg/compiler"
	"github.com/mortie/gilia/pkg/disasm"
	"github.com/mortie/gilia/pkg/resolver"
	"github.com/mortie/gilia/pkg/vm"
)

func usage(w io.Writer, argv0 string) {
	fmt.Fprintf(w, "Usage: %s [options] [input|-]\n\n", argv0)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --help             Print this help text")
	fmt.Fprintln(w, "  --bytecode         Print the generated bytecode, don't execute")
	fmt.Fprintln(w, "  --step             Step through the program interactively")
	fmt.Fprintln(w, "  --repl             Start a REPL")
	fmt.Fprintln(w, "  --output,-o <out>  Serialize bytecode to <out> (- for stdout)")
	fmt.Fprintln(w, "  --timeout <secs>   Run instructions for <secs> wall-clock seconds")
}

type options struct {
	bytecode  bool
	step      bool
	repl      bool
	output    string
	haveOut   bool
	timeout   float64
	haveTimeo bool
	input     string
}

func parseArgs(args []string) (options, error) {
	o := options{input: "-"}
	haveInput := false
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--help" || a == "-h":
			return o, errHelp
		case a == "--bytecode":
			o.bytecode = true
		case a == "--step":
			o.step = true
		case a == "--repl":
			o.repl = true
		case a == "--output" || a == "-o":
			if i == len(args)-1 {
				return o, fmt.Errorf("%s expects an argument", a)
			}
			i++
			o.output = args[i]
			o.haveOut = true
		case a == "--timeout":
			if i == len(args)-1 {
				return o, fmt.Errorf("%s expects an argument", a)
			}
			i++
			var secs float64
			if _, err := fmt.Sscanf(args[i], "%g", &secs); err != nil {
				return o, fmt.Errorf("--timeout expects a number: %w", err)
			}
			o.timeout = secs
			o.haveTimeo = true
		case a == "-":
			o.input = "-"
			haveInput = true
		case !haveInput:
			o.input = a
			haveInput = true
		default:
			return o, fmt.Errorf("unexpected argument: %s", a)
		}
	}
	return o, nil
}

var errHelp = fmt.Errorf("help requested")

func main() {
	os.Exit(run(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(argv0 string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseArgs(args)
	if err == errHelp {
		usage(stdout, argv0)
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		usage(stderr, argv0)
		return 1
	}

	atoms := intern.New()
	V := newVM(atoms, stdout)

	if o.repl {
		runREPL(V, atoms, stdin, stdout, stderr)
		return 0
	}

	var src io.Reader
	filename := o.input
	if o.input == "-" {
		src = stdin
		filename = ""
	} else {
		f, err := os.Open(o.input)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer f.Close()
		src = f
	}

	br := bufio.NewReader(src)
	prog, err := loadProgram(br, filename, atoms)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if o.bytecode {
		if err := disasm.Write(stdout, prog.Code); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if o.haveOut {
		w, closeW, err := openOutput(o.output, stdout)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer closeW()
		if _, err := prog.WriteTo(w); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if o.bytecode || o.haveOut {
		return 0
	}

	V.Load(prog)

	switch {
	case o.step:
		stepThrough(V, stdin, stdout)
	case o.haveTimeo:
		runWithTimeout(V, o.timeout, stderr)
	default:
		if err := V.Run(); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	return 0
}

// newVM builds a VM with the builtins and fs native modules installed
// and calls FinishInit, so no further modules can be registered.
func newVM(atoms *intern.Table, stdout io.Writer) *vm.VM {
	V := vm.New(atoms, vm.WithStdout(stdout))
	builtins.Register(V)
	builtins.RegisterFS(V)
	V.FinishInit()
	return V
}

// loadProgram reads either a serialized bytecode file or gilia source
// text from r and returns the resulting Program, detecting which by
// peeking at the file's magic header.
func loadProgram(br *bufio.Reader, filename string, atoms *intern.Table) (bytecode.Program, error) {
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return bytecode.Program{}, err
	}
	if bytecode.HasMagic(head) {
		return bytecode.ReadProgram(br)
	}

	res := resolver.NewFS()
	return compiler.Compile(br, filename, atoms,
		compiler.WithModules([]string{"builtins", "fs"}),
		compiler.WithResolver(res))
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

// stepThrough runs the program one instruction at a time, printing a
// separator before each step and waiting for a line of input before
// advancing.
func stepThrough(V *vm.VM, stdin io.Reader, stdout io.Writer) {
	in := bufio.NewReader(stdin)
	for !V.Halted() {
		fmt.Fprintln(stdout, "---")
		if _, err := in.ReadString('\n'); err != nil {
			return
		}
		if err := V.Step(); err != nil {
			fmt.Fprintln(stdout, err)
			return
		}
	}
}

// runWithTimeout runs the VM's step loop until it halts or secs have
// elapsed.
func runWithTimeout(V *vm.VM, secs float64, stderr io.Writer) {
	deadline := time.Now().Add(time.Duration(secs * float64(time.Second)))
	for !V.Halted() {
		if err := V.Step(); err != nil {
			fmt.Fprintln(stderr, err)
			return
		}
		if time.Now().After(deadline) {
			fmt.Fprintln(stderr, "Timeout reached.")
			return
		}
	}
}

// runREPL implements a line-at-a-time REPL: each input line becomes a
// fresh `$$ := <line>\nprint $$\n` snippet, compiled on its own with the
// shared atom table, loaded into the same VM and run from its start.
func runREPL(V *vm.VM, atoms *intern.Table, stdin io.Reader, stdout, stderr io.Writer) {
	in := bufio.NewReader(stdin)
	res := resolver.NewFS()
	for {
		fmt.Fprint(stdout, "> ")
		line, err := in.ReadString('\n')
		if err != nil {
			fmt.Fprintln(stdout)
			return
		}
		if line == "\n" {
			continue
		}

		src := "$$ := " + line + "\nprint $$\n"
		prog, err := compiler.Compile(
			strings.NewReader(src), "<repl>", atoms,
			compiler.WithModules([]string{"builtins", "fs"}),
			compiler.WithResolver(res))
		if err != nil {
			fmt.Fprintln(stderr, "Parse error:", err)
			continue
		}

		V.Load(prog)
		if err := V.Run(); err != nil {
			fmt.Fprintln(stderr, err)
		}
	}
}
