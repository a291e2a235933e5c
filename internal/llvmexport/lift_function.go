package llvmexport

import (
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"armlift/internal/ir"
	"armlift/internal/rewriter"
)

// funcLifter lowers the instructions of one LLVM IR function.
type funcLifter struct {
	mod *Module
	f   *llvm.Func

	// Stack slots of temporaries, allocated in the entry block.
	entry *llvm.Block
	temps map[string]*llvm.InstAlloca
	// First block of every lowered instruction.
	blocks map[uint64]*llvm.Block

	// Current instruction and basic block being lowered.
	addr uint64
	cur  *llvm.Block
	// Guards of the current instruction, evaluated on entry to it.
	guards map[string]value.Value
	n      int
}

func newFuncLifter(mod *Module, f *llvm.Func) *funcLifter {
	return &funcLifter{
		mod:    mod,
		f:      f,
		temps:  map[string]*llvm.InstAlloca{},
		blocks: map[uint64]*llvm.Block{},
	}
}

func blockName(addr uint64) string { return fmt.Sprintf("block_%08X", addr) }

// newBlock adds an auxiliary block belonging to the current instruction.
func (fl *funcLifter) newBlock() *llvm.Block {
	fl.n++
	return fl.f.NewBlock(fmt.Sprintf("%s.%d", blockName(fl.addr), fl.n))
}

func (fl *funcLifter) liftFunc(ls []rewriter.Lifted) error {
	fl.entry = fl.f.NewBlock("entry")
	for _, l := range ls {
		if _, dup := fl.blocks[l.Address]; dup {
			return errors.Errorf("instruction at %#x lifted twice", l.Address)
		}
		fl.blocks[l.Address] = fl.f.NewBlock(blockName(l.Address))
	}
	fl.entry.NewBr(fl.blocks[ls[0].Address])

	for i, l := range ls {
		var next *rewriter.Lifted
		if i+1 < len(ls) {
			next = &ls[i+1]
		}
		if err := fl.liftInst(l, next); err != nil {
			return errors.Wrapf(err, "lowering %#x %q", l.Address, l.Text)
		}
	}
	return nil
}

// liftInst lowers one instruction and falls through to next.
func (fl *funcLifter) liftInst(l rewriter.Lifted, next *rewriter.Lifted) error {
	fl.addr, fl.n = l.Address, 0
	fl.cur = fl.blocks[l.Address]
	fl.guards = map[string]value.Value{}

	// Predicates see the state on entry to the instruction.
	for _, s := range l.Stmts {
		if g := s.Guard(); g != nil {
			if _, ok := fl.guards[g.String()]; !ok {
				fl.guards[g.String()] = fl.test(g)
			}
		}
	}

	for _, s := range l.Stmts {
		if fl.cur.Term != nil {
			// Statements after an unconditional transfer are unreachable.
			fl.cur = fl.newBlock()
		}
		g := s.Guard()
		if g == nil {
			if err := fl.liftStmt(s); err != nil {
				return err
			}
			continue
		}
		then, cont := fl.newBlock(), fl.newBlock()
		fl.cur.NewCondBr(fl.guards[g.String()], then, cont)
		fl.cur = then
		if err := fl.liftStmt(s); err != nil {
			return err
		}
		if fl.cur.Term == nil {
			fl.cur.NewBr(cont)
		}
		fl.cur = cont
	}

	if fl.cur.Term != nil {
		return nil
	}
	fallthru := l.Address + uint64(l.Length)
	if next != nil && next.Address == fallthru {
		fl.cur.NewBr(fl.blocks[fallthru])
		return nil
	}
	fl.exit(HelperGoto, fl.const32(fallthru))
	return nil
}

func (fl *funcLifter) liftStmt(s ir.Statement) error {
	switch s := s.(type) {
	case *ir.Assign:
		v, err := fl.expr(s.Src)
		if err != nil {
			return err
		}
		return fl.assign(s.Dst, v)
	case *ir.Store:
		v, err := fl.expr(s.Src)
		if err != nil {
			return err
		}
		ptr, err := fl.pointer(s.Dst)
		if err != nil {
			return err
		}
		fl.cur.NewStore(fl.fit(v, s.Dst.Width), ptr)
	case *ir.Branch:
		target, err := fl.expr(s.Target)
		if err != nil {
			return err
		}
		cond := fl.test(s.Cond)
		taken := fl.jumpBlock(s.Target, target)
		fall := fl.newBlock()
		fl.cur.NewCondBr(cond, taken, fall)
		fl.cur = fall
	case *ir.Goto:
		target, err := fl.expr(s.Target)
		if err != nil {
			return err
		}
		if c, ok := s.Target.(*ir.Const); ok && !s.Interwork {
			if b, ok := fl.blocks[c.Value]; ok {
				fl.cur.NewBr(b)
				return nil
			}
		}
		helper := HelperGoto
		if s.Interwork {
			helper = HelperGotoX
		}
		fl.exit(helper, target)
	case *ir.Call:
		target, err := fl.expr(s.Target)
		if err != nil {
			return err
		}
		if s.Symbol != "" && !s.Interwork {
			fl.cur.NewCall(fl.mod.declare(s.Symbol, types.Void))
			return nil
		}
		helper := HelperCall
		if s.Interwork {
			helper = HelperCallX
		}
		fl.cur.NewCall(fl.mod.declare(helper, types.Void, types.I32), fl.fit(target, ir.W32))
	case *ir.Return:
		fl.cur.NewRet(nil)
	case *ir.SideEffect:
		_, err := fl.intrinsic(s.Call)
		return err
	case *ir.Placeholder:
		fl.cur.NewCall(fl.mod.declare(HelperUnsupported, types.Void, types.I32), fl.const32(fl.addr))
	case *ir.Invalid:
		fl.cur.NewCall(fl.mod.declare(HelperInvalid, types.Void, types.I32), fl.const32(fl.addr))
	case *ir.Nop:
	default:
		return errors.Errorf("statement %T not supported", s)
	}
	return nil
}

// exit leaves the function through helper.
func (fl *funcLifter) exit(helper string, target value.Value) {
	fl.cur.NewCall(fl.mod.declare(helper, types.Void, types.I32), fl.fit(target, ir.W32))
	fl.cur.NewRet(nil)
}

// jumpBlock returns the block a taken branch to target lands in: the
// instruction's own block when it was lowered, otherwise a block that exits.
func (fl *funcLifter) jumpBlock(e ir.Expr, target value.Value) *llvm.Block {
	if c, ok := e.(*ir.Const); ok {
		if b, ok := fl.blocks[c.Value]; ok {
			return b
		}
	}
	out := fl.newBlock()
	saved := fl.cur
	fl.cur = out
	fl.exit(HelperGoto, target)
	fl.cur = saved
	return out
}

func (fl *funcLifter) assign(dst ir.LValue, v value.Value) error {
	switch dst := dst.(type) {
	case *ir.Register:
		fl.cur.NewStore(fl.fit(v, dst.Width), fl.mod.global(dst.Name, dst.Width))
	case *ir.Flag:
		g := fl.mod.global(dst.Reg.Name, dst.Reg.Width)
		w := dst.Reg.Width
		t := intType(w)
		old := fl.cur.NewLoad(t, g)
		clear := fl.cur.NewAnd(old, intConst(^(uint64(1) << dst.Bit), w))
		bit := fl.cur.NewShl(fl.fit(v, w), intConst(uint64(dst.Bit), w))
		fl.cur.NewStore(fl.cur.NewOr(clear, bit), g)
	case *ir.Temp:
		fl.cur.NewStore(fl.fit(v, dst.Width), fl.slot(dst))
	default:
		return errors.Errorf("assignment to %T not supported", dst)
	}
	return nil
}

// slot returns the stack slot of a temporary.
func (fl *funcLifter) slot(t *ir.Temp) *llvm.InstAlloca {
	key := fmt.Sprintf("%s.%d", t.Name, t.Width)
	if a, ok := fl.temps[key]; ok {
		return a
	}
	a := fl.entry.NewAlloca(intType(t.Width))
	a.SetName(fmt.Sprintf("%s_i%d", t.Name, t.Width))
	fl.temps[key] = a
	return a
}

func (fl *funcLifter) const32(v uint64) value.Value { return intConst(v, ir.W32) }

// intConst returns v truncated to w bits. Values with the top bit set are
// written as negative numbers.
func intConst(v uint64, w ir.Width) *constant.Int {
	v &= w.Mask()
	if w > 1 && w < 64 && v>>(w-1) != 0 {
		return constant.NewInt(intType(w), int64(v)-int64(1)<<w)
	}
	return constant.NewInt(intType(w), int64(v))
}
