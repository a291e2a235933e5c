package analysis

import "fmt"

// Kind classifies a finding.
type Kind int

const (
	KindCall Kind = iota
	KindIndirect
	KindLiteral
	KindPlaceholder
	KindFault
)

var kindNames = [...]string{"call", "indirect", "literal", "placeholder", "fault"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Finding is one noteworthy event in lifted code.
type Finding struct {
	Kind Kind
	// Addr is the address of the instruction.
	Addr uint64
	// Target is the call target or the literal pool address.
	Target    uint64
	HasTarget bool
	// Symbol is the demangled name of Target, when known.
	Symbol string
	// Detail is free text: the placeholder mnemonic, the fault, or a
	// recovered string.
	Detail string
	// Value is the word read from a literal pool.
	Value uint32
}

func (f Finding) String() string {
	s := fmt.Sprintf("%#08x %s", f.Addr, f.Kind)
	if f.HasTarget {
		s += fmt.Sprintf(" %#x", f.Target)
	}
	if f.Symbol != "" {
		s += " <" + f.Symbol + ">"
	}
	if f.Detail != "" {
		s += " " + f.Detail
	}
	return s
}

// Fault is an instruction the lifter stopped at.
type Fault struct {
	Addr uint64
	Err  error
}

// Reader reads bytes at a virtual address.
type Reader interface {
	ReadBytesVA(va uint64, size int) ([]byte, bool)
}
