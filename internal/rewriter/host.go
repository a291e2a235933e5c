// Package rewriter lifts a buffer of A32 machine code into IR, one
// instruction at a time.
package rewriter

import (
	"errors"

	"armlift/internal/arm"
	"armlift/internal/ir"
)

// Host answers the configuration and symbol queries of a Rewriter and
// receives its diagnostics. Queries must not have side effects visible to
// the rewriter.
type Host interface {
	// Features returns the extension set of the architecture variant in effect.
	Features() arm.Features
	// HasRegister reports whether r exists in the register file.
	HasRegister(r *ir.Register) bool
	// Symbol returns the name of the symbol at addr, if any.
	Symbol(addr uint64) (string, bool)
	// Error reports a non-fatal problem at addr.
	Error(addr uint64, msg string)
}

var (
	ErrInsufficientBytes    = arm.ErrInsufficientBytes
	ErrInvalidEncoding      = arm.ErrInvalidEncoding
	ErrUnresolvableOperand  = arm.ErrUnresolvableOperand
	ErrUnsupportedSemantics = arm.ErrUnsupportedSemantics

	// ErrInvalidArgument is returned by New for an unusable buffer, sink or host.
	ErrInvalidArgument = errors.New("rewriter: invalid argument")
	// ErrAborted is the fault recorded when the host aborts without a reason.
	ErrAborted = errors.New("rewriter: aborted by host")
)
