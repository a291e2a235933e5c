// Package ir defines the architecture-neutral statements a lifter emits,
// the sink they are emitted to, and a reference evaluator for them.
package ir

import (
	"fmt"
	"strings"
)

// Width is a value size in bits.
type Width uint8

const (
	Bool Width = 1
	W8   Width = 8
	W16  Width = 16
	W32  Width = 32
	W64  Width = 64
)

// Mask returns the all-ones value of width w.
func (w Width) Mask() uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<w - 1
}

// Expr is a side-effect free expression. Memory reads are the only
// expressions that observe machine state besides registers and flags.
type Expr interface {
	Size() Width
	String() string
	expr()
}

// LValue is an expression that can be assigned.
type LValue interface {
	Expr
	lvalue()
}

type Const struct {
	Value uint64
	Width Width
}

// Register is an architectural register.
type Register struct {
	Name  string
	Num   int
	Width Width
}

// Flag is a single bit of a flag register.
type Flag struct {
	Name string
	Reg  *Register
	Bit  uint8
}

// Temp is a per-instruction temporary.
type Temp struct {
	Name  string
	Width Width
}

// Mem reads Width bits, little-endian, at Addr.
type Mem struct {
	Addr  Expr
	Width Width
}

type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	UDiv
	SDiv
	And
	Or
	Xor
	Shl
	Shr
	Sar
	Ror
	Eq
	Ne
	Ult
	Ule
	Slt
	Sle
)

var binOpNames = [...]string{
	"+", "-", "*", "/u", "/s", "&", "|", "^", "<<", ">>u", ">>s", "ror",
	"==", "!=", "<u", "<=u", "<s", "<=s",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return "?"
}

// IsCompare reports whether op yields a Bool.
func (op BinOp) IsCompare() bool { return op >= Eq }

type Binary struct {
	Op   BinOp
	X, Y Expr
}

type UnOp uint8

const (
	Not UnOp = iota
	Neg
)

type Unary struct {
	Op UnOp
	X  Expr
}

type CastOp uint8

const (
	ZExt CastOp = iota
	SExt
	Trunc
)

var castNames = [...]string{"zext", "sext", "trunc"}

type Cast struct {
	Op    CastOp
	X     Expr
	Width Width
}

// Test evaluates a condition code against a flag group.
type Test struct {
	Cond  Cond
	Flags *FlagGroup
}

// CarryOut is the carry of X + Y + In computed at the width of X.
type CarryOut struct {
	X, Y, In Expr
}

// OverflowOut is the signed overflow of X + Y + In computed at the width of X.
type OverflowOut struct {
	X, Y, In Expr
}

// ShiftCarry is the carry-out of a barrel-shifter operation: the last bit
// shifted out of X, or In when Amount is zero. RRX is Ror with an
// amount of one together with In as the incoming bit; see RotateExtend.
type ShiftCarry struct {
	Op        BinOp
	X, Amount Expr
	In        Expr
}

// RotateExtend is a one-bit rotate right through the carry flag.
type RotateExtend struct {
	X, In Expr
}

// Select yields X when Cond holds and Y otherwise.
type Select struct {
	Cond, X, Y Expr
}

// Intrinsic is a named helper. Pure intrinsics depend only on Args.
type Intrinsic struct {
	Name  string
	Args  []Expr
	Width Width
}

func (*Const) expr()        {}
func (*Register) expr()     {}
func (*Flag) expr()         {}
func (*Temp) expr()         {}
func (*Mem) expr()          {}
func (*Binary) expr()       {}
func (*Unary) expr()        {}
func (*Cast) expr()         {}
func (*Test) expr()         {}
func (*CarryOut) expr()     {}
func (*OverflowOut) expr()  {}
func (*ShiftCarry) expr()   {}
func (*RotateExtend) expr() {}
func (*Select) expr()       {}
func (*Intrinsic) expr()    {}

func (*Register) lvalue() {}
func (*Flag) lvalue()     {}
func (*Temp) lvalue()     {}

func (c *Const) Size() Width    { return c.Width }
func (r *Register) Size() Width { return r.Width }
func (*Flag) Size() Width       { return Bool }
func (t *Temp) Size() Width     { return t.Width }
func (m *Mem) Size() Width      { return m.Width }
func (b *Binary) Size() Width {
	if b.Op.IsCompare() {
		return Bool
	}
	return b.X.Size()
}
func (u *Unary) Size() Width        { return u.X.Size() }
func (c *Cast) Size() Width         { return c.Width }
func (*Test) Size() Width           { return Bool }
func (*CarryOut) Size() Width       { return Bool }
func (*OverflowOut) Size() Width    { return Bool }
func (*ShiftCarry) Size() Width     { return Bool }
func (r *RotateExtend) Size() Width { return r.X.Size() }
func (s *Select) Size() Width       { return s.X.Size() }
func (i *Intrinsic) Size() Width    { return i.Width }

func (c *Const) String() string {
	if c.Width == Bool {
		if c.Value != 0 {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%#x", c.Value)
}

func (r *Register) String() string { return r.Name }
func (f *Flag) String() string     { return f.Name }
func (t *Temp) String() string     { return t.Name }

func (m *Mem) String() string {
	return fmt.Sprintf("Mem%d[%s]", m.Width, m.Addr)
}

func (b *Binary) String() string {
	return fmt.Sprintf("(%s %s %s)", b.X, b.Op, b.Y)
}

func (u *Unary) String() string {
	if u.Op == Neg {
		return fmt.Sprintf("-%s", u.X)
	}
	return fmt.Sprintf("~%s", u.X)
}

func (c *Cast) String() string {
	return fmt.Sprintf("%s%d(%s)", castNames[c.Op], c.Width, c.X)
}

func (t *Test) String() string {
	return fmt.Sprintf("Test(%s,%s)", t.Cond, t.Flags.Name())
}

func (c *CarryOut) String() string {
	return fmt.Sprintf("carry(%s, %s, %s)", c.X, c.Y, c.In)
}

func (o *OverflowOut) String() string {
	return fmt.Sprintf("overflow(%s, %s, %s)", o.X, o.Y, o.In)
}

func (s *ShiftCarry) String() string {
	return fmt.Sprintf("shift_carry(%s %s %s, %s)", s.X, s.Op, s.Amount, s.In)
}

func (r *RotateExtend) String() string {
	return fmt.Sprintf("rrx(%s, %s)", r.X, r.In)
}

func (s *Select) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", s.Cond, s.X, s.Y)
}

func (i *Intrinsic) String() string {
	args := make([]string, len(i.Args))
	for n, a := range i.Args {
		args[n] = a.String()
	}
	return fmt.Sprintf("%s(%s)", i.Name, strings.Join(args, ", "))
}
