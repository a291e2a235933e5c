package rewriter

import (
	"armlift/internal/arm"
	"armlift/internal/ir"
)

var coreRegs = func() [arm.NumRegs]*ir.Register {
	var regs [arm.NumRegs]*ir.Register
	for i := range regs {
		regs[i] = &ir.Register{Name: arm.Reg(i).String(), Num: i, Width: ir.W32}
	}
	return regs
}()

var (
	cpsr = &ir.Register{Name: "cpsr", Num: 16, Width: ir.W32}
	spsr = &ir.Register{Name: "spsr", Num: 17, Width: ir.W32}

	flagN = &ir.Flag{Name: "N", Reg: cpsr, Bit: 31}
	flagZ = &ir.Flag{Name: "Z", Reg: cpsr, Bit: 30}
	flagC = &ir.Flag{Name: "C", Reg: cpsr, Bit: 29}
	flagV = &ir.Flag{Name: "V", Reg: cpsr, Bit: 28}
	flagQ = &ir.Flag{Name: "Q", Reg: cpsr, Bit: 27}

	nzcv = &ir.FlagGroup{N: flagN, Z: flagZ, C: flagC, V: flagV}
)

var (
	regSP = coreRegs[arm.SP]
	regLR = coreRegs[arm.LR]
	regPC = coreRegs[arm.PC]
)

// Registers returns every register the lifter can reference: r0-r12, sp,
// lr, pc, cpsr and spsr.
func Registers() []*ir.Register {
	out := make([]*ir.Register, 0, len(coreRegs)+2)
	out = append(out, coreRegs[:]...)
	return append(out, cpsr, spsr)
}

// Flags returns the condition flag group over cpsr.
func Flags() *ir.FlagGroup { return nzcv }

var condTests = [...]ir.Cond{
	arm.EQ: ir.EQ,
	arm.NE: ir.NE,
	arm.CS: ir.UGE,
	arm.CC: ir.ULT,
	arm.MI: ir.NEG,
	arm.PL: ir.POS,
	arm.VS: ir.OV,
	arm.VC: ir.NOV,
	arm.HI: ir.UGT,
	arm.LS: ir.ULE,
	arm.GE: ir.GE,
	arm.LT: ir.LT,
	arm.GT: ir.GT,
	arm.LE: ir.LE,
}

// TestFor returns the IR test of an A32 condition, or nil for AL and NV.
func TestFor(c arm.Cond) *ir.Test {
	if !c.Conditional() {
		return nil
	}
	return &ir.Test{Cond: condTests[c], Flags: nzcv}
}
