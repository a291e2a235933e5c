package llvmexport

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"

	"armlift/internal/ir"
)

func widthOf(v value.Value) ir.Width {
	if t, ok := v.Type().(*types.IntType); ok {
		return ir.Width(t.BitSize)
	}
	return 0
}

// fit zero-extends or truncates v to w bits.
func (fl *funcLifter) fit(v value.Value, w ir.Width) value.Value {
	switch have := widthOf(v); {
	case have == w:
		return v
	case have < w:
		return fl.cur.NewZExt(v, intType(w))
	default:
		return fl.cur.NewTrunc(v, intType(w))
	}
}

func (fl *funcLifter) not(v value.Value) value.Value {
	return fl.cur.NewXor(v, constant.True)
}

// expr lowers e at the width it has in the lifted IR.
func (fl *funcLifter) expr(e ir.Expr) (value.Value, error) {
	switch e := e.(type) {
	case *ir.Const:
		return intConst(e.Value, e.Width), nil
	case *ir.Register:
		return fl.cur.NewLoad(intType(e.Width), fl.mod.global(e.Name, e.Width)), nil
	case *ir.Flag:
		w := e.Reg.Width
		reg := fl.cur.NewLoad(intType(w), fl.mod.global(e.Reg.Name, w))
		return fl.cur.NewTrunc(fl.cur.NewLShr(reg, intConst(uint64(e.Bit), w)), types.I1), nil
	case *ir.Temp:
		return fl.cur.NewLoad(intType(e.Width), fl.slot(e)), nil
	case *ir.Mem:
		ptr, err := fl.pointer(e)
		if err != nil {
			return nil, err
		}
		return fl.cur.NewLoad(intType(e.Width), ptr), nil
	case *ir.Binary:
		return fl.binary(e)
	case *ir.Unary:
		x, err := fl.expr(e.X)
		if err != nil {
			return nil, err
		}
		w := e.Size()
		if e.Op == ir.Neg {
			return fl.cur.NewSub(intConst(0, w), x), nil
		}
		return fl.cur.NewXor(x, intConst(w.Mask(), w)), nil
	case *ir.Cast:
		x, err := fl.expr(e.X)
		if err != nil {
			return nil, err
		}
		have := widthOf(x)
		switch {
		case have == e.Width:
			return x, nil
		case have > e.Width:
			return fl.cur.NewTrunc(x, intType(e.Width)), nil
		case e.Op == ir.SExt:
			return fl.cur.NewSExt(x, intType(e.Width)), nil
		}
		return fl.cur.NewZExt(x, intType(e.Width)), nil
	case *ir.Test:
		return fl.test(e), nil
	case *ir.CarryOut:
		return fl.carryOut(e)
	case *ir.OverflowOut:
		return fl.overflowOut(e)
	case *ir.ShiftCarry:
		return fl.shiftCarry(e)
	case *ir.RotateExtend:
		x, err := fl.expr(e.X)
		if err != nil {
			return nil, err
		}
		in, err := fl.expr(e.In)
		if err != nil {
			return nil, err
		}
		w := widthOf(x)
		top := fl.cur.NewShl(fl.fit(in, w), intConst(uint64(w-1), w))
		return fl.cur.NewOr(fl.cur.NewLShr(x, intConst(1, w)), top), nil
	case *ir.Select:
		c, err := fl.expr(e.Cond)
		if err != nil {
			return nil, err
		}
		x, err := fl.expr(e.X)
		if err != nil {
			return nil, err
		}
		y, err := fl.expr(e.Y)
		if err != nil {
			return nil, err
		}
		return fl.cur.NewSelect(fl.fit(c, ir.Bool), x, fl.fit(y, widthOf(x))), nil
	case *ir.Intrinsic:
		return fl.intrinsic(e)
	}
	return nil, errors.Errorf("expression %T not supported", e)
}

func (fl *funcLifter) pointer(m *ir.Mem) (value.Value, error) {
	addr, err := fl.expr(m.Addr)
	if err != nil {
		return nil, err
	}
	return fl.cur.NewIntToPtr(addr, types.NewPointer(intType(m.Width))), nil
}

var predicates = map[ir.BinOp]enum.IPred{
	ir.Eq:  enum.IPredEQ,
	ir.Ne:  enum.IPredNE,
	ir.Ult: enum.IPredULT,
	ir.Ule: enum.IPredULE,
	ir.Slt: enum.IPredSLT,
	ir.Sle: enum.IPredSLE,
}

func (fl *funcLifter) binary(e *ir.Binary) (value.Value, error) {
	x, err := fl.expr(e.X)
	if err != nil {
		return nil, err
	}
	y, err := fl.expr(e.Y)
	if err != nil {
		return nil, err
	}
	w := widthOf(x)
	y = fl.fit(y, w)
	zero := intConst(0, w)

	if pred, ok := predicates[e.Op]; ok {
		return fl.cur.NewICmp(pred, x, y), nil
	}
	switch e.Op {
	case ir.Add:
		return fl.cur.NewAdd(x, y), nil
	case ir.Sub:
		return fl.cur.NewSub(x, y), nil
	case ir.Mul:
		return fl.cur.NewMul(x, y), nil
	case ir.UDiv, ir.SDiv:
		// Division by zero yields zero; INT_MIN / -1 wraps.
		isZero := fl.cur.NewICmp(enum.IPredEQ, y, zero)
		if e.Op == ir.UDiv {
			q := fl.cur.NewUDiv(x, fl.cur.NewSelect(isZero, intConst(1, w), y))
			return fl.cur.NewSelect(isZero, zero, q), nil
		}
		minusOne := fl.cur.NewICmp(enum.IPredEQ, y, intConst(w.Mask(), w))
		unsafe := fl.cur.NewOr(isZero, minusOne)
		q := fl.cur.NewSDiv(x, fl.cur.NewSelect(unsafe, intConst(1, w), y))
		q2 := fl.cur.NewSelect(minusOne, fl.cur.NewSub(zero, x), q)
		return fl.cur.NewSelect(isZero, zero, q2), nil
	case ir.And:
		return fl.cur.NewAnd(x, y), nil
	case ir.Or:
		return fl.cur.NewOr(x, y), nil
	case ir.Xor:
		return fl.cur.NewXor(x, y), nil
	case ir.Shl, ir.Shr:
		// Shifting by the width or more clears the value.
		big := fl.cur.NewICmp(enum.IPredUGE, y, intConst(uint64(w), w))
		var v value.Value
		if e.Op == ir.Shl {
			v = fl.cur.NewShl(x, y)
		} else {
			v = fl.cur.NewLShr(x, y)
		}
		return fl.cur.NewSelect(big, zero, v), nil
	case ir.Sar:
		limit := intConst(uint64(w-1), w)
		big := fl.cur.NewICmp(enum.IPredUGT, y, limit)
		return fl.cur.NewAShr(x, fl.cur.NewSelect(big, limit, y)), nil
	case ir.Ror:
		fshr := fl.mod.declare(fmt.Sprintf("llvm.fshr.i%d", w), intType(w), intType(w), intType(w), intType(w))
		return fl.cur.NewCall(fshr, x, x, y), nil
	}
	return nil, errors.Errorf("operator %s not supported", e.Op)
}

// test evaluates a condition over the flag group.
func (fl *funcLifter) test(t *ir.Test) value.Value {
	flag := func(f *ir.Flag) value.Value {
		v, _ := fl.expr(f)
		return v
	}
	n, z, c, v := flag(t.Flags.N), flag(t.Flags.Z), flag(t.Flags.C), flag(t.Flags.V)
	switch t.Cond {
	case ir.EQ:
		return z
	case ir.NE:
		return fl.not(z)
	case ir.UGE:
		return c
	case ir.ULT:
		return fl.not(c)
	case ir.NEG:
		return n
	case ir.POS:
		return fl.not(n)
	case ir.OV:
		return v
	case ir.NOV:
		return fl.not(v)
	case ir.UGT:
		return fl.cur.NewAnd(c, fl.not(z))
	case ir.ULE:
		return fl.cur.NewOr(fl.not(c), z)
	case ir.GE:
		return fl.cur.NewICmp(enum.IPredEQ, n, v)
	case ir.LT:
		return fl.cur.NewICmp(enum.IPredNE, n, v)
	case ir.GT:
		return fl.cur.NewAnd(fl.not(z), fl.cur.NewICmp(enum.IPredEQ, n, v))
	case ir.LE:
		return fl.cur.NewOr(z, fl.cur.NewICmp(enum.IPredNE, n, v))
	}
	return constant.False
}

// wide lowers x, y and in and extends them to twice the width of x.
func (fl *funcLifter) wide(x, y, in ir.Expr, signed bool) (a, b, c value.Value, w ir.Width, err error) {
	if a, err = fl.expr(x); err != nil {
		return
	}
	if b, err = fl.expr(y); err != nil {
		return
	}
	if c, err = fl.expr(in); err != nil {
		return
	}
	w = widthOf(a)
	b = fl.fit(b, w)
	wt := intType(2 * w)
	if signed {
		a, b = fl.cur.NewSExt(a, wt), fl.cur.NewSExt(b, wt)
	} else {
		a, b = fl.cur.NewZExt(a, wt), fl.cur.NewZExt(b, wt)
	}
	c = fl.fit(c, 2*w)
	return
}

func (fl *funcLifter) carryOut(e *ir.CarryOut) (value.Value, error) {
	x, y, in, w, err := fl.wide(e.X, e.Y, e.In, false)
	if err != nil {
		return nil, err
	}
	sum := fl.cur.NewAdd(fl.cur.NewAdd(x, y), in)
	return fl.cur.NewTrunc(fl.cur.NewLShr(sum, intConst(uint64(w), 2*w)), types.I1), nil
}

func (fl *funcLifter) overflowOut(e *ir.OverflowOut) (value.Value, error) {
	x, y, in, w, err := fl.wide(e.X, e.Y, e.In, true)
	if err != nil {
		return nil, err
	}
	sum := fl.cur.NewAdd(fl.cur.NewAdd(x, y), in)
	wrapped := fl.cur.NewSExt(fl.cur.NewTrunc(sum, intType(w)), intType(2*w))
	return fl.cur.NewICmp(enum.IPredNE, wrapped, sum), nil
}

// shiftCarry computes the last bit shifted out in twice the width of X so
// that no shift amount reaches the type width.
func (fl *funcLifter) shiftCarry(e *ir.ShiftCarry) (value.Value, error) {
	x, err := fl.expr(e.X)
	if err != nil {
		return nil, err
	}
	amt, err := fl.expr(e.Amount)
	if err != nil {
		return nil, err
	}
	in, err := fl.expr(e.In)
	if err != nil {
		return nil, err
	}
	w := widthOf(x)
	w2 := 2 * w
	amt = fl.fit(amt, w2)
	one := intConst(1, w2)
	clamp := func(limit uint64) value.Value {
		l := intConst(limit, w2)
		return fl.cur.NewSelect(fl.cur.NewICmp(enum.IPredUGT, amt, l), l, amt)
	}

	var bit value.Value
	switch e.Op {
	case ir.Shl:
		shifted := fl.cur.NewShl(fl.cur.NewZExt(x, intType(w2)), clamp(uint64(w)+1))
		bit = fl.cur.NewLShr(shifted, intConst(uint64(w), w2))
	case ir.Shr:
		bit = fl.cur.NewLShr(fl.cur.NewZExt(x, intType(w2)), fl.cur.NewSub(clamp(uint64(w)+1), one))
	case ir.Sar:
		bit = fl.cur.NewAShr(fl.cur.NewSExt(x, intType(w2)), fl.cur.NewSub(clamp(uint64(w)), one))
	case ir.Ror:
		r := fl.cur.NewAnd(fl.cur.NewSub(amt, one), intConst(uint64(w-1), w2))
		bit = fl.cur.NewLShr(fl.cur.NewZExt(x, intType(w2)), r)
	default:
		return nil, errors.Errorf("shift carry of %s not supported", e.Op)
	}
	isZero := fl.cur.NewICmp(enum.IPredEQ, amt, intConst(0, w2))
	return fl.cur.NewSelect(isZero, fl.fit(in, ir.Bool), fl.cur.NewTrunc(bit, types.I1)), nil
}

// intrinsic calls the external helper named after the intrinsic. Helpers
// without a result width return void.
func (fl *funcLifter) intrinsic(e *ir.Intrinsic) (value.Value, error) {
	args := make([]value.Value, len(e.Args))
	params := make([]types.Type, len(e.Args))
	for i, a := range e.Args {
		v, err := fl.expr(a)
		if err != nil {
			return nil, err
		}
		args[i], params[i] = v, v.Type()
	}
	var ret types.Type = types.Void
	if e.Width != 0 {
		ret = intType(e.Width)
	}
	callee := fl.mod.declare(e.Name, ret, params...)
	return fl.cur.NewCall(callee, args...), nil
}
