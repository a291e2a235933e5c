package rewriter

import (
	"armlift/internal/arm"
	"armlift/internal/ir"
)

func branch(t *translator) error {
	target := t.val(0)
	t.class = ClassTransfer
	if g := t.m.Guard(); g != nil {
		t.m.Branch(g, target)
		return nil
	}
	t.m.Goto(target, false)
	return nil
}

func branchLink(t *translator) error {
	ret := ir.C32(t.in.Address + arm.InstructionSize)
	t.class = ClassCall
	op := t.ops[0]
	if op.Kind == OperandTarget {
		t.m.Assign(regLR, ret)
		t.m.Call(op.Value, t.symbol(op.Imm), t.in.Op == arm.OpBLX)
		return nil
	}
	target := op.Value
	if op.Reg == regLR {
		target = t.m.Let(target)
	}
	t.m.Assign(regLR, ret)
	t.m.Call(target, "", true)
	return nil
}

func branchExchange(t *translator) error {
	t.jump(t.val(0), true)
	return nil
}

func nop(t *translator) error {
	t.m.Nop()
	return nil
}

// hint lifts an operand-less system hint to a side effect.
func hint(name string) handler {
	return func(t *translator) error {
		t.m.SideEffect(name)
		return nil
	}
}

// trap lifts an exception-generating instruction carrying an immediate.
func trap(name string) handler {
	return func(t *translator) error {
		t.m.SideEffect(name, t.val(0))
		return nil
	}
}

func udf(t *translator) error {
	t.m.SideEffect("__undefined", t.val(0))
	t.class = ClassTransfer
	return nil
}

func mcr(t *translator) error {
	t.m.SideEffect("__mcr", t.val(0), t.val(1), t.val(2), t.val(3), t.val(4), t.val(5))
	return nil
}

func mrc(t *translator) error {
	v := ir.CallIntrinsic("__mrc", ir.W32, t.val(0), t.val(1), t.val(3), t.val(4), t.val(5))
	if t.reg(2) != arm.PC {
		t.m.Assign(coreRegs[t.reg(2)], v)
		return nil
	}
	// Transfer to pc copies the top four bits into the flags.
	tmp := t.m.Let(v)
	flags := ir.Bin(ir.And, tmp, ir.C32(0xF0000000))
	t.m.Assign(cpsr, ir.Bin(ir.Or, ir.Bin(ir.And, cpsr, ir.C32(0x0FFFFFFF)), flags))
	return nil
}

func preload(name string) handler {
	return func(t *translator) error {
		t.m.SideEffect(name, t.ops[0].Address)
		return nil
	}
}

func barrier(name string) handler {
	return func(t *translator) error {
		t.m.SideEffect(name, t.val(0))
		return nil
	}
}
