package arm

import "fmt"

// Reg is a core register number.
type Reg uint8

const (
	R0 Reg = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	SP
	LR
	PC
)

// NumRegs is the size of the core register file visible in ARM state.
const NumRegs = 16

func (r Reg) String() string {
	switch {
	case r == SP:
		return "sp"
	case r == LR:
		return "lr"
	case r == PC:
		return "pc"
	case r < NumRegs:
		return fmt.Sprintf("r%d", uint8(r))
	}
	return fmt.Sprintf("r?%d", uint8(r))
}

// RegList is a register set as encoded by LDM/STM: bit n selects register n.
type RegList uint16

// Has reports whether r is in the list.
func (l RegList) Has(r Reg) bool { return l&(1<<r) != 0 }

// Len returns the number of registers in the list.
func (l RegList) Len() int {
	n := 0
	for v := l; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Regs returns the registers in ascending order.
func (l RegList) Regs() []Reg {
	regs := make([]Reg, 0, l.Len())
	for r := Reg(0); r < NumRegs; r++ {
		if l.Has(r) {
			regs = append(regs, r)
		}
	}
	return regs
}

func (l RegList) String() string {
	s := "{"
	for i, r := range l.Regs() {
		if i > 0 {
			s += ", "
		}
		s += r.String()
	}
	return s + "}"
}
