package rewriter

import (
	"fmt"

	"armlift/internal/arm"
	"armlift/internal/ir"
)

// OperandKind tags a resolved operand.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandRegister
	OperandMemory
	OperandImmediate
	OperandSpecial
	OperandList
	OperandTarget
)

// Operand is an instruction operand expressed in IR terms.
type Operand struct {
	Kind OperandKind

	// Reg is the register named by a register operand, the base of a
	// memory operand, or the status register of a special operand.
	Reg *ir.Register
	// Value is the operand as read: the register value (PC reads as a
	// constant), the shifted register, the immediate, or the target address.
	Value ir.Expr
	// Carry is the shifter carry-out, nil when the shifter leaves C alone.
	Carry ir.Expr

	// Memory operands.
	Base      ir.Expr
	Index     ir.Expr // scaled index or displacement, nil when zero
	Sub       bool
	Address   ir.Expr // address accessed
	Writeback ir.Expr // new base value, nil without writeback

	List []*ir.Register
	Imm  uint32
	Mask uint32 // PSR field mask
}

type resolver struct {
	host Host
	in   *arm.Instruction
}

func unresolvable(in *arm.Instruction, format string, args ...any) error {
	return &arm.DecodeError{
		Addr:    uint64(in.Address),
		Word:    in.Raw,
		HasWord: true,
		Err:     fmt.Errorf("%w: %s", arm.ErrUnresolvableOperand, fmt.Sprintf(format, args...)),
	}
}

// resolve converts every operand of the instruction. Any failure fails
// the instruction as a whole.
func (r *resolver) resolve() ([]Operand, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	ops := make([]Operand, len(r.in.Args))
	for i, a := range r.in.Args {
		op, err := r.operand(a)
		if err != nil {
			return nil, err
		}
		ops[i] = op
	}
	return ops, nil
}

func (r *resolver) reg(n arm.Reg) (*ir.Register, error) {
	if n >= arm.NumRegs {
		return nil, unresolvable(r.in, "register %s out of range", n)
	}
	reg := coreRegs[n]
	if !r.host.HasRegister(reg) {
		return nil, unresolvable(r.in, "register %s not present", reg.Name)
	}
	return reg, nil
}

// read returns the value of n as seen by the instruction.
func (r *resolver) read(n arm.Reg) (ir.Expr, error) {
	reg, err := r.reg(n)
	if err != nil {
		return nil, err
	}
	if n == arm.PC {
		return ir.C32(r.in.Address + arm.PCReadOffset), nil
	}
	return reg, nil
}

var shiftOps = [...]ir.BinOp{arm.LSL: ir.Shl, arm.LSR: ir.Shr, arm.ASR: ir.Sar, arm.ROR: ir.Ror}

// shift applies the barrel shifter to x and returns the value and carry.
func shift(x ir.Expr, s arm.Shift, amount ir.Expr) (ir.Expr, ir.Expr) {
	if s == arm.RRX {
		return &ir.RotateExtend{X: x, In: flagC}, &ir.ShiftCarry{Op: ir.Shr, X: x, Amount: ir.C32(1), In: flagC}
	}
	op := shiftOps[s]
	return ir.Bin(op, x, amount), &ir.ShiftCarry{Op: op, X: x, Amount: amount, In: flagC}
}

func (r *resolver) operand(a arm.Operand) (Operand, error) {
	switch a.Kind {
	case arm.KindReg:
		reg, err := r.reg(a.Reg)
		if err != nil {
			return Operand{}, err
		}
		v, _ := r.read(a.Reg)
		return Operand{Kind: OperandRegister, Reg: reg, Value: v}, nil

	case arm.KindImm:
		op := Operand{Kind: OperandImmediate, Value: ir.C32(a.Imm), Imm: a.Imm}
		if a.Rotated {
			op.Carry = ir.C(uint64(a.Imm>>31), ir.Bool)
		}
		return op, nil

	case arm.KindShiftImm:
		x, err := r.read(a.Reg)
		if err != nil {
			return Operand{}, err
		}
		v, c := shift(x, a.Shift, ir.C32(uint32(a.Amount)))
		return Operand{Kind: OperandRegister, Reg: coreRegs[a.Reg], Value: v, Carry: c}, nil

	case arm.KindShiftReg:
		if a.Reg == arm.PC || a.ShiftReg == arm.PC {
			return Operand{}, unresolvable(r.in, "pc in register-shifted operand")
		}
		x, err := r.read(a.Reg)
		if err != nil {
			return Operand{}, err
		}
		rs, err := r.read(a.ShiftReg)
		if err != nil {
			return Operand{}, err
		}
		v, c := shift(x, a.Shift, ir.Bin(ir.And, rs, ir.C32(0xFF)))
		return Operand{Kind: OperandRegister, Reg: coreRegs[a.Reg], Value: v, Carry: c}, nil

	case arm.KindMem:
		return r.memory(a)

	case arm.KindList:
		op := Operand{Kind: OperandList}
		for _, n := range a.List.Regs() {
			reg, err := r.reg(n)
			if err != nil {
				return Operand{}, err
			}
			op.List = append(op.List, reg)
		}
		return op, nil

	case arm.KindLabel:
		target := r.in.Address + arm.PCReadOffset + uint32(a.Offset)
		return Operand{Kind: OperandTarget, Value: ir.C32(target), Imm: target}, nil

	case arm.KindPSR:
		reg := cpsr
		if a.SPSR {
			reg = spsr
		}
		if !r.host.HasRegister(reg) {
			return Operand{}, unresolvable(r.in, "register %s not present", reg.Name)
		}
		return Operand{Kind: OperandSpecial, Reg: reg, Value: reg, Mask: psrMask(a.Mask)}, nil

	case arm.KindCoproc, arm.KindCReg, arm.KindOption:
		return Operand{Kind: OperandImmediate, Value: ir.C32(a.Imm), Imm: a.Imm}, nil
	}
	return Operand{}, unresolvable(r.in, "operand kind %d", a.Kind)
}

func psrMask(fields uint8) uint32 {
	var m uint32
	for i := 0; i < 4; i++ {
		if fields&(1<<i) != 0 {
			m |= 0xFF << (8 * i)
		}
	}
	return m
}

func (r *resolver) memory(a arm.Operand) (Operand, error) {
	base, err := r.read(a.Base)
	if err != nil {
		return Operand{}, err
	}
	op := Operand{Kind: OperandMemory, Reg: coreRegs[a.Base], Base: base, Sub: a.Sub}

	if r.in.Mode == arm.ModePCRelative {
		addr := r.in.Address + arm.PCReadOffset
		if a.Sub {
			addr -= a.Disp
		} else {
			addr += a.Disp
		}
		op.Address = ir.C32(addr)
		op.Imm = addr
		return op, nil
	}

	switch {
	case a.HasIndex:
		if a.Index == arm.PC {
			return Operand{}, unresolvable(r.in, "pc as index register")
		}
		idx, err := r.read(a.Index)
		if err != nil {
			return Operand{}, err
		}
		if a.Amount != 0 {
			idx, _ = shift(idx, a.Shift, ir.C32(uint32(a.Amount)))
		}
		op.Index = idx
	case a.Disp != 0:
		op.Index = ir.C32(a.Disp)
	}

	ea := base
	if op.Index != nil {
		bop := ir.Add
		if a.Sub {
			bop = ir.Sub
		}
		ea = ir.Bin(bop, base, op.Index)
	}
	switch r.in.Mode {
	case arm.ModePreIndexed:
		op.Address, op.Writeback = ea, ea
	case arm.ModePostIndexed:
		op.Address, op.Writeback = base, ea
	default:
		op.Address = ea
	}
	return op, nil
}
