package rewriter

import "fmt"

// Class describes how control leaves an instruction.
type Class uint8

const (
	ClassLinear Class = iota
	ClassTransfer
	ClassCall
	ClassReturn
	ClassUnsupported
)

var classNames = [...]string{"linear", "transfer", "call", "return", "unsupported"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// Cluster is the metadata of one lifted instruction.
type Cluster struct {
	Address     uint64
	Length      int
	Class       Class
	Conditional bool
	Statements  int
	Raw         uint32
	Text        string
}

func (c Cluster) String() string {
	return fmt.Sprintf("%#08x %08x %-32s %s", c.Address, c.Raw, c.Text, c.Class)
}
