package rewriter

import (
	"armlift/internal/arm"
	"armlift/internal/ir"
)

var accessWidths = [...]ir.Width{arm.SizeWord: ir.W32, arm.SizeByte: ir.W8, arm.SizeHalf: ir.W16, arm.SizeDual: ir.W32}

func (t *translator) width() ir.Width { return accessWidths[t.in.Size] }

// displace returns addr+off, folding constant addresses.
func displace(addr ir.Expr, off int32) ir.Expr {
	if c, ok := addr.(*ir.Const); ok {
		return ir.C32(uint32(c.Value) + uint32(off))
	}
	if off < 0 {
		return ir.Bin(ir.Sub, addr, ir.C32(uint32(-off)))
	}
	return ir.Bin(ir.Add, addr, ir.C32(uint32(off)))
}

// loadValue reads memory at addr and widens it to a register value.
func (t *translator) loadValue(addr ir.Expr) ir.Expr {
	m := &ir.Mem{Addr: addr, Width: t.width()}
	if t.in.Signed {
		return ir.SignExt(m, ir.W32)
	}
	return ir.ZeroExt(m, ir.W32)
}

// writeback updates the base register unless the update is a no-op.
func (t *translator) writeback(mem Operand) {
	if mem.Writeback != nil && mem.Writeback != ir.Expr(mem.Reg) {
		t.m.Assign(mem.Reg, mem.Writeback)
	}
}

// loadPC transfers control to a value loaded into pc. Loading pc from
// the stack is a return.
func (t *translator) loadPC(v ir.Expr, popped bool) {
	if popped {
		t.m.Return()
		t.class = ClassReturn
		return
	}
	t.jump(v, t.has(arm.FeatureV5T))
}

func load(t *translator) error {
	rt, mem := t.reg(0), t.ops[1]
	switch t.in.Mode {
	case arm.ModePreIndexed:
		t.writeback(mem)
		v := t.loadValue(mem.Reg)
		if rt == arm.PC {
			t.loadPC(v, false)
			return nil
		}
		t.m.Assign(coreRegs[rt], v)
	case arm.ModePostIndexed:
		if rt == arm.PC {
			popped := mem.Reg == regSP
			var v ir.Expr
			if !popped {
				v = t.m.Let(t.loadValue(mem.Address))
			}
			t.writeback(mem)
			t.loadPC(v, popped)
			return nil
		}
		v := t.m.Let(t.loadValue(mem.Address))
		t.writeback(mem)
		t.m.Assign(coreRegs[rt], v)
	default:
		v := t.loadValue(mem.Address)
		if rt == arm.PC {
			t.loadPC(v, false)
			return nil
		}
		t.m.Assign(coreRegs[rt], v)
	}
	return nil
}

func store(t *translator) error {
	mem := t.ops[1]
	v := ir.Truncate(t.val(0), t.width())
	switch t.in.Mode {
	case arm.ModePreIndexed:
		t.writeback(mem)
		t.m.Store(mem.Reg, t.width(), v)
	case arm.ModePostIndexed:
		t.m.Store(mem.Address, t.width(), v)
		t.writeback(mem)
	default:
		t.m.Store(mem.Address, t.width(), v)
	}
	return nil
}

func loadDual(t *translator) error {
	rt, rt2, mem := coreRegs[t.reg(0)], coreRegs[t.reg(1)], t.ops[2]
	addr := mem.Address
	switch t.in.Mode {
	case arm.ModePreIndexed:
		t.writeback(mem)
		addr = mem.Reg
	case arm.ModePostIndexed:
		t.m.Assign(rt, &ir.Mem{Addr: addr, Width: ir.W32})
		t.m.Assign(rt2, &ir.Mem{Addr: displace(addr, 4), Width: ir.W32})
		t.writeback(mem)
		return nil
	default:
		if mem.Reg == rt || mem.Reg == rt2 {
			addr = t.m.Let(addr)
		}
	}
	t.m.Assign(rt, &ir.Mem{Addr: addr, Width: ir.W32})
	t.m.Assign(rt2, &ir.Mem{Addr: displace(addr, 4), Width: ir.W32})
	return nil
}

func storeDual(t *translator) error {
	mem := t.ops[2]
	addr := mem.Address
	if t.in.Mode == arm.ModePreIndexed {
		t.writeback(mem)
		addr = mem.Reg
	}
	t.m.Store(addr, ir.W32, t.val(0))
	t.m.Store(displace(addr, 4), ir.W32, t.val(1))
	if t.in.Mode == arm.ModePostIndexed {
		t.writeback(mem)
	}
	return nil
}

func loadExclusive(t *translator) error {
	mem := t.ops[len(t.ops)-1]
	addr := mem.Address
	t.m.SideEffect("__set_exclusive_monitor", addr)
	if t.in.Op != arm.OpLDREXD {
		t.m.Assign(coreRegs[t.reg(0)], t.loadValue(addr))
		return nil
	}
	rt, rt2 := coreRegs[t.reg(0)], coreRegs[t.reg(1)]
	if mem.Reg == rt {
		addr = t.m.Let(addr)
	}
	t.m.Assign(rt, &ir.Mem{Addr: addr, Width: ir.W32})
	t.m.Assign(rt2, &ir.Mem{Addr: displace(addr, 4), Width: ir.W32})
	return nil
}

var exclusiveStores = map[arm.Opcode]string{
	arm.OpSTREX:  "__strex",
	arm.OpSTREXB: "__strexb",
	arm.OpSTREXH: "__strexh",
	arm.OpSTREXD: "__strexd",
}

func storeExclusive(t *translator) error {
	args := []ir.Expr{t.ops[len(t.ops)-1].Address}
	for i := 1; i < len(t.ops)-1; i++ {
		args = append(args, ir.Truncate(t.val(i), t.width()))
	}
	t.m.Assign(coreRegs[t.reg(0)], ir.CallIntrinsic(exclusiveStores[t.in.Op], ir.W32, args...))
	return nil
}

func swap(t *translator) error {
	mem := t.ops[2]
	old := t.m.Let(&ir.Mem{Addr: mem.Address, Width: t.width()})
	t.m.Store(mem.Address, t.width(), ir.Truncate(t.val(1), t.width()))
	t.m.Assign(coreRegs[t.reg(0)], ir.ZeroExt(old, ir.W32))
	return nil
}

// blockLayout returns the offset of the lowest transferred word and the
// base adjustment of an n-register block transfer.
func blockLayout(mode arm.AddrMode, n int32) (first, delta int32) {
	switch mode {
	case arm.ModeIB:
		return 4, 4 * n
	case arm.ModeDA:
		return -4*n + 4, -4 * n
	case arm.ModeDB:
		return -4 * n, -4 * n
	}
	return 0, 4 * n
}

func loadMultiple(t *translator) error {
	if t.in.UserMode {
		return arm.ErrUnsupportedSemantics
	}
	rn, list := t.reg(0), t.in.Args[1].List
	base := coreRegs[rn]
	first, delta := blockLayout(t.in.Mode, int32(list.Len()))

	var addr ir.Expr = base
	if list.Has(rn) {
		addr = t.m.Let(base)
	}
	var pc ir.Expr
	for i, r := range list.Regs() {
		m := &ir.Mem{Addr: displace(addr, first+4*int32(i)), Width: ir.W32}
		if r == arm.PC {
			pc = t.m.Let(m)
			continue
		}
		t.m.Assign(coreRegs[r], m)
	}
	if t.in.Writeback && !list.Has(rn) {
		t.m.Assign(base, displace(base, delta))
	}
	if pc != nil {
		t.loadPC(pc, rn == arm.SP)
	}
	return nil
}

func storeMultiple(t *translator) error {
	if t.in.UserMode {
		return arm.ErrUnsupportedSemantics
	}
	rn, list := t.reg(0), t.in.Args[1].List
	base := coreRegs[rn]
	first, delta := blockLayout(t.in.Mode, int32(list.Len()))
	for i, r := range list.Regs() {
		var v ir.Expr = coreRegs[r]
		if r == arm.PC {
			v = ir.C32(t.in.Address + arm.PCReadOffset)
		}
		t.m.Store(displace(base, first+4*int32(i)), ir.W32, v)
	}
	if t.in.Writeback {
		t.m.Assign(base, displace(base, delta))
	}
	return nil
}
