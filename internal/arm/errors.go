package arm

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBytes means the buffer ends before the next encoding does.
	ErrInsufficientBytes = errors.New("insufficient bytes")
	// ErrInvalidEncoding means the bit pattern has no defined instruction.
	ErrInvalidEncoding = errors.New("invalid encoding")
	// ErrUnresolvableOperand means an operand field violates an architecture
	// constraint under the active configuration.
	ErrUnresolvableOperand = errors.New("unresolvable operand")
	// ErrUnsupportedSemantics marks a recognised instruction that has no
	// modelled translation. It is never fatal.
	ErrUnsupportedSemantics = errors.New("unsupported semantics")
)

// DecodeError records where and why an instruction could not be lifted.
type DecodeError struct {
	Addr    uint64
	Word    uint32
	HasWord bool
	Err     error
}

func (e *DecodeError) Error() string {
	if e.HasWord {
		return fmt.Sprintf("%#08x: %v (word %#08x)", e.Addr, e.Err, e.Word)
	}
	return fmt.Sprintf("%#08x: %v", e.Addr, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func invalid(addr, word uint32) error {
	return &DecodeError{Addr: uint64(addr), Word: word, HasWord: true, Err: ErrInvalidEncoding}
}
