// Package vm - error handling.
package vm

import "fmt"

// RuntimeError formats a runtime error message the way it is printed to
// standard error ("Error: <message>"). The VM does not return one: an
// ERROR value that reaches DISCARD/SWAP_DISCARD unconsumed is printed
// to the error writer and halts the VM.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("Error: %s", e.Message)
}

// LoadError describes a malformed or version-mismatched bytecode file.
// bytecode.ReadProgram reports those cases with plain fmt errors and
// does not return a LoadError.
type LoadError struct {
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("gilia: %s", e.Reason)
}
