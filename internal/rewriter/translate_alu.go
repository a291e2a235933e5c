package rewriter

import (
	"armlift/internal/arm"
	"armlift/internal/ir"
)

func dataProc(t *translator) error {
	in := t.in
	var (
		rd      = arm.Reg(0xFF)
		rn, op2 ir.Expr
		carry   ir.Expr
	)
	switch in.Op {
	case arm.OpTST, arm.OpTEQ, arm.OpCMP, arm.OpCMN:
		rn, op2, carry = t.val(0), t.val(1), t.ops[1].Carry
	case arm.OpMOV, arm.OpMVN:
		rd, op2, carry = t.reg(0), t.val(1), t.ops[1].Carry
	default:
		rd, rn, op2, carry = t.reg(0), t.val(1), t.val(2), t.ops[2].Carry
	}

	var res, c, v ir.Expr
	one, zero := ir.C32(1), ir.C32(0)
	switch in.Op {
	case arm.OpAND, arm.OpTST:
		res, c = ir.Bin(ir.And, rn, op2), carry
	case arm.OpEOR, arm.OpTEQ:
		res, c = ir.Bin(ir.Xor, rn, op2), carry
	case arm.OpORR:
		res, c = ir.Bin(ir.Or, rn, op2), carry
	case arm.OpBIC:
		res, c = ir.Bin(ir.And, rn, ir.Un(ir.Not, op2)), carry
	case arm.OpMOV:
		res, c = op2, carry
	case arm.OpMVN:
		res, c = ir.Un(ir.Not, op2), carry
	case arm.OpSUB, arm.OpCMP:
		res = ir.Bin(ir.Sub, rn, op2)
		c, v = addFlags(rn, ir.Un(ir.Not, op2), one)
	case arm.OpRSB:
		res = ir.Bin(ir.Sub, op2, rn)
		c, v = addFlags(op2, ir.Un(ir.Not, rn), one)
	case arm.OpADD, arm.OpCMN:
		res = ir.Bin(ir.Add, rn, op2)
		c, v = addFlags(rn, op2, zero)
	case arm.OpADC:
		res = ir.Bin(ir.Add, ir.Bin(ir.Add, rn, op2), carryIn())
		c, v = addFlags(rn, op2, carryIn())
	case arm.OpSBC:
		res = ir.Bin(ir.Add, ir.Bin(ir.Add, rn, ir.Un(ir.Not, op2)), carryIn())
		c, v = addFlags(rn, ir.Un(ir.Not, op2), carryIn())
	case arm.OpRSC:
		res = ir.Bin(ir.Add, ir.Bin(ir.Add, op2, ir.Un(ir.Not, rn)), carryIn())
		c, v = addFlags(op2, ir.Un(ir.Not, rn), carryIn())
	}

	if !in.SetFlags {
		t.write(rd, res)
		return nil
	}
	if rd == arm.PC {
		// Exception return: the flags come from the saved status register.
		tmp := t.m.Let(res)
		t.m.Assign(cpsr, spsr)
		t.jump(tmp, true)
		return nil
	}

	tmp := t.m.Let(res)
	// V before C: both may read the incoming carry.
	if v != nil {
		t.m.Assign(flagV, v)
	}
	if c != nil {
		t.m.Assign(flagC, c)
	}
	if rd != 0xFF {
		t.m.Assign(coreRegs[rd], tmp)
	}
	t.setNZ(tmp)
	return nil
}

func addFlags(x, y, in ir.Expr) (carry, overflow ir.Expr) {
	return &ir.CarryOut{X: x, Y: y, In: in}, &ir.OverflowOut{X: x, Y: y, In: in}
}

func movw(t *translator) error {
	t.write(t.reg(0), t.val(1))
	return nil
}

func movt(t *translator) error {
	rd := coreRegs[t.reg(0)]
	t.m.Assign(rd, ir.Bin(ir.Or, ir.Bin(ir.And, rd, ir.C32(0xFFFF)), ir.C32(t.ops[1].Imm<<16)))
	return nil
}

func mul(t *translator) error {
	prod := ir.Bin(ir.Mul, t.val(1), t.val(2))
	var res ir.Expr
	switch t.in.Op {
	case arm.OpMLA:
		res = ir.Bin(ir.Add, prod, t.val(3))
	case arm.OpMLS:
		res = ir.Bin(ir.Sub, t.val(3), prod)
	default:
		res = prod
	}
	rd := coreRegs[t.reg(0)]
	if !t.in.SetFlags {
		t.m.Assign(rd, res)
		return nil
	}
	tmp := t.m.Let(res)
	t.m.Assign(rd, tmp)
	t.setNZ(tmp)
	return nil
}

// pair64 joins hi:lo into a 64-bit value.
func pair64(lo, hi ir.Expr) ir.Expr {
	return ir.Bin(ir.Or, ir.Bin(ir.Shl, ir.ZeroExt(hi, ir.W64), ir.C(32, ir.W64)), ir.ZeroExt(lo, ir.W64))
}

// writePair splits a 64-bit temporary into two registers.
func (t *translator) writePair(lo, hi arm.Reg, v ir.Expr) {
	t.m.Assign(coreRegs[lo], ir.Truncate(v, ir.W32))
	t.m.Assign(coreRegs[hi], ir.Truncate(ir.Bin(ir.Shr, v, ir.C(32, ir.W64)), ir.W32))
}

func mulLong(t *translator) error {
	lo, hi := t.reg(0), t.reg(1)
	ext := ir.ZeroExt
	if t.in.Op == arm.OpSMULL || t.in.Op == arm.OpSMLAL {
		ext = ir.SignExt
	}
	res := ir.Bin(ir.Mul, ext(t.val(2), ir.W64), ext(t.val(3), ir.W64))
	switch t.in.Op {
	case arm.OpUMLAL, arm.OpSMLAL:
		res = ir.Bin(ir.Add, res, pair64(t.val(0), t.val(1)))
	case arm.OpUMAAL:
		res = ir.Bin(ir.Add, ir.Bin(ir.Add, res, ir.ZeroExt(t.val(1), ir.W64)), ir.ZeroExt(t.val(0), ir.W64))
	}
	tmp := t.m.Let(res)
	t.writePair(lo, hi, tmp)
	if t.in.SetFlags {
		t.setNZ(tmp)
	}
	return nil
}

// half selects the signed top or bottom halfword of x as a 32-bit value.
func half(x ir.Expr, top bool) ir.Expr {
	if top {
		return ir.Bin(ir.Sar, x, ir.C32(16))
	}
	return ir.SignExt(ir.Truncate(x, ir.W16), ir.W32)
}

// accumulateQ adds acc to the product p, setting Q on signed overflow.
func (t *translator) accumulateQ(rd arm.Reg, p, acc ir.Expr) {
	t.m.Assign(flagQ, ir.Bin(ir.Or, flagQ, &ir.OverflowOut{X: p, Y: acc, In: ir.C32(0)}))
	t.m.Assign(coreRegs[rd], ir.Bin(ir.Add, p, acc))
}

func mulHalf(t *translator) error {
	prod := ir.Bin(ir.Mul, half(t.val(1), t.in.Top[0]), half(t.val(2), t.in.Top[1]))
	if t.in.Op == arm.OpSMULxy {
		t.m.Assign(coreRegs[t.reg(0)], prod)
		return nil
	}
	t.accumulateQ(t.reg(0), t.m.Let(prod), t.val(3))
	return nil
}

func mulWord(t *translator) error {
	wide := ir.Bin(ir.Mul, ir.SignExt(t.val(1), ir.W64), ir.SignExt(half(t.val(2), t.in.Top[1]), ir.W64))
	prod := ir.Truncate(ir.Bin(ir.Sar, wide, ir.C(16, ir.W64)), ir.W32)
	if t.in.Op == arm.OpSMULWy {
		t.m.Assign(coreRegs[t.reg(0)], prod)
		return nil
	}
	t.accumulateQ(t.reg(0), t.m.Let(prod), t.val(3))
	return nil
}

func mulHalfLong(t *translator) error {
	prod := ir.Bin(ir.Mul, half(t.val(2), t.in.Top[0]), half(t.val(3), t.in.Top[1]))
	tmp := t.m.Let(ir.Bin(ir.Add, ir.SignExt(prod, ir.W64), pair64(t.val(0), t.val(1))))
	t.writePair(t.reg(0), t.reg(1), tmp)
	return nil
}

func mulMost(t *translator) error {
	prod := ir.Bin(ir.Mul, ir.SignExt(t.val(1), ir.W64), ir.SignExt(t.val(2), ir.W64))
	var res ir.Expr = prod
	switch t.in.Op {
	case arm.OpSMMLA:
		res = ir.Bin(ir.Add, ir.Bin(ir.Shl, ir.ZeroExt(t.val(3), ir.W64), ir.C(32, ir.W64)), prod)
	case arm.OpSMMLS:
		res = ir.Bin(ir.Sub, ir.Bin(ir.Shl, ir.ZeroExt(t.val(3), ir.W64), ir.C(32, ir.W64)), prod)
	}
	if t.in.Round {
		res = ir.Bin(ir.Add, res, ir.C(0x80000000, ir.W64))
	}
	t.m.Assign(coreRegs[t.reg(0)], ir.Truncate(ir.Bin(ir.Shr, res, ir.C(32, ir.W64)), ir.W32))
	return nil
}

func div(t *translator) error {
	op := ir.SDiv
	if t.in.Op == arm.OpUDIV {
		op = ir.UDiv
	}
	t.m.Assign(coreRegs[t.reg(0)], ir.Bin(op, t.val(1), t.val(2)))
	return nil
}

// signedSat clamps the 64-bit value x to an n-bit signed range and
// returns the 32-bit result and whether clamping happened.
func signedSat(x ir.Expr, n uint) (ir.Expr, ir.Expr) {
	hi := uint64(1)<<(n-1) - 1
	lo := -(uint64(1) << (n - 1))
	over := ir.Bin(ir.Slt, ir.C(hi, ir.W64), x)
	under := ir.Bin(ir.Slt, x, ir.C(lo, ir.W64))
	res := &ir.Select{
		Cond: over,
		X:    ir.C32(uint32(hi)),
		Y:    &ir.Select{Cond: under, X: ir.C32(uint32(lo)), Y: ir.Truncate(x, ir.W32)},
	}
	return res, ir.Bin(ir.Or, over, under)
}

// unsignedSat clamps the 64-bit signed value x to [0, 2^n-1].
func unsignedSat(x ir.Expr, n uint) (ir.Expr, ir.Expr) {
	hi := uint64(1)<<n - 1
	over := ir.Bin(ir.Slt, ir.C(hi, ir.W64), x)
	under := ir.Bin(ir.Slt, x, ir.C(0, ir.W64))
	res := &ir.Select{
		Cond: under,
		X:    ir.C32(0),
		Y:    &ir.Select{Cond: over, X: ir.C32(uint32(hi)), Y: ir.Truncate(x, ir.W32)},
	}
	return res, ir.Bin(ir.Or, over, under)
}

func (t *translator) setQ(sat ir.Expr) {
	t.m.Assign(flagQ, ir.Bin(ir.Or, flagQ, sat))
}

func qarith(t *translator) error {
	rm, rn := ir.SignExt(t.val(1), ir.W64), ir.SignExt(t.val(2), ir.W64)
	switch t.in.Op {
	case arm.OpQDADD, arm.OpQDSUB:
		d := t.m.Let(ir.Bin(ir.Add, rn, rn))
		res, sat := signedSat(d, 32)
		t.setQ(sat)
		rn = ir.SignExt(t.m.Let(res), ir.W64)
	}
	op := ir.Add
	if t.in.Op == arm.OpQSUB || t.in.Op == arm.OpQDSUB {
		op = ir.Sub
	}
	sum := t.m.Let(ir.Bin(op, rm, rn))
	res, sat := signedSat(sum, 32)
	t.setQ(sat)
	t.m.Assign(coreRegs[t.reg(0)], res)
	return nil
}

func ssat(t *translator) error {
	x := t.m.Let(ir.SignExt(t.val(2), ir.W64))
	res, sat := signedSat(x, uint(t.ops[1].Imm))
	t.setQ(sat)
	t.m.Assign(coreRegs[t.reg(0)], res)
	return nil
}

func usat(t *translator) error {
	x := t.m.Let(ir.SignExt(t.val(2), ir.W64))
	res, sat := unsignedSat(x, uint(t.ops[1].Imm))
	t.setQ(sat)
	t.m.Assign(coreRegs[t.reg(0)], res)
	return nil
}

// bitop lifts a one-source instruction to a pure intrinsic.
func bitop(name string) handler {
	return func(t *translator) error {
		t.m.Assign(coreRegs[t.reg(0)], ir.CallIntrinsic(name, ir.W32, t.val(1)))
		return nil
	}
}

func mrs(t *translator) error {
	t.m.Assign(coreRegs[t.reg(0)], t.ops[1].Reg)
	return nil
}

func msr(t *translator) error {
	psr, mask := t.ops[0].Reg, t.ops[0].Mask
	if mask == 0xFFFFFFFF {
		t.m.Assign(psr, t.val(1))
		return nil
	}
	kept := ir.Bin(ir.And, psr, ir.C32(^mask))
	t.m.Assign(psr, ir.Bin(ir.Or, kept, ir.Bin(ir.And, t.val(1), ir.C32(mask))))
	return nil
}

func extend(t *translator) error {
	var w ir.Width
	signed := false
	switch t.in.Op {
	case arm.OpSXTB, arm.OpSXTAB:
		w, signed = ir.W8, true
	case arm.OpSXTH, arm.OpSXTAH:
		w, signed = ir.W16, true
	case arm.OpUXTB, arm.OpUXTAB:
		w = ir.W8
	default:
		w = ir.W16
	}
	src := t.val(len(t.ops) - 1)
	var v ir.Expr
	if signed {
		v = ir.SignExt(ir.Truncate(src, w), ir.W32)
	} else {
		v = ir.ZeroExt(ir.Truncate(src, w), ir.W32)
	}
	if len(t.ops) == 3 {
		v = ir.Bin(ir.Add, t.val(1), v)
	}
	t.m.Assign(coreRegs[t.reg(0)], v)
	return nil
}

func bitfieldExtract(t *translator) error {
	lsb, width := t.ops[2].Imm, t.ops[3].Imm
	rn := t.val(1)
	var v ir.Expr
	if t.in.Op == arm.OpSBFX {
		v = ir.Bin(ir.Sar, ir.Bin(ir.Shl, rn, ir.C32(32-lsb-width)), ir.C32(32-width))
	} else {
		v = ir.Bin(ir.And, ir.Bin(ir.Shr, rn, ir.C32(lsb)), ir.C32(uint32(uint64(1)<<width-1)))
	}
	t.m.Assign(coreRegs[t.reg(0)], v)
	return nil
}

func bitfieldInsert(t *translator) error {
	n := len(t.ops)
	lsb, width := t.ops[n-2].Imm, t.ops[n-1].Imm
	mask := uint32((uint64(1)<<width - 1) << lsb)
	rd := coreRegs[t.reg(0)]
	kept := ir.Bin(ir.And, rd, ir.C32(^mask))
	if t.in.Op == arm.OpBFC {
		t.m.Assign(rd, kept)
		return nil
	}
	ins := ir.Bin(ir.And, ir.Bin(ir.Shl, t.val(1), ir.C32(lsb)), ir.C32(mask))
	t.m.Assign(rd, ir.Bin(ir.Or, kept, ins))
	return nil
}
