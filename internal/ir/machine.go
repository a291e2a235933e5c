package ir

import (
	"errors"
	"fmt"
	"math/bits"
)

// EventKind classifies what a Machine observed while executing.
type EventKind uint8

const (
	EventGoto EventKind = iota
	EventBranch
	EventCall
	EventReturn
	EventSideEffect
	EventPlaceholder
	EventInvalid
)

// Event is a control transfer or effect recorded by a Machine.
type Event struct {
	Kind      EventKind
	Target    uint64
	Taken     bool
	Interwork bool
	Name      string
	Args      []uint64
}

// IntrinsicFunc implements an intrinsic for the Machine.
type IntrinsicFunc func(m *Machine, args []uint64) uint64

// Machine is a reference evaluator for IR. Registers are addressed by
// name, memory is sparse and little-endian. Executing a statement group
// evaluates every guard against the state at entry first.
type Machine struct {
	Regs       map[string]uint64
	Mem        map[uint64]byte
	Intrinsics map[string]IntrinsicFunc
	Events     []Event

	temps map[string]uint64
}

// ErrEval reports an expression the Machine cannot evaluate.
var ErrEval = errors.New("ir: cannot evaluate")

// NewMachine returns a Machine with the pure bit-manipulation intrinsics
// installed.
func NewMachine() *Machine {
	return &Machine{
		Regs: make(map[string]uint64),
		Mem:  make(map[uint64]byte),
		Intrinsics: map[string]IntrinsicFunc{
			"__clz": func(_ *Machine, a []uint64) uint64 {
				return uint64(bits.LeadingZeros32(uint32(a[0])))
			},
			"__rbit": func(_ *Machine, a []uint64) uint64 {
				return uint64(bits.Reverse32(uint32(a[0])))
			},
			"__rev": func(_ *Machine, a []uint64) uint64 {
				return uint64(bits.ReverseBytes32(uint32(a[0])))
			},
			"__rev16": func(_ *Machine, a []uint64) uint64 {
				v := uint32(a[0])
				return uint64(v&0xFF00FF00>>8 | v&0x00FF00FF<<8)
			},
			"__revsh": func(_ *Machine, a []uint64) uint64 {
				v := bits.ReverseBytes16(uint16(a[0]))
				return uint64(uint32(int32(int16(v))))
			},
		},
		temps: make(map[string]uint64),
	}
}

// Load reads w bits at addr.
func (m *Machine) Load(addr uint64, w Width) uint64 {
	var v uint64
	for i := 0; i < int(w)/8; i++ {
		v |= uint64(m.Mem[addr+uint64(i)]) << (8 * i)
	}
	return v
}

// StoreMem writes the low w bits of v at addr.
func (m *Machine) StoreMem(addr uint64, w Width, v uint64) {
	for i := 0; i < int(w)/8; i++ {
		m.Mem[addr+uint64(i)] = byte(v >> (8 * i))
	}
}

// Temp returns the value of a temporary from the last Exec.
func (m *Machine) Temp(name string) uint64 { return m.temps[name] }

// Exec runs the statements of one instruction.
func (m *Machine) Exec(stmts []Statement) error {
	clear(m.temps)
	take := make([]bool, len(stmts))
	for i, s := range stmts {
		take[i] = true
		if g := s.Guard(); g != nil {
			v, err := m.Eval(g)
			if err != nil {
				return err
			}
			take[i] = v != 0
		}
	}
	for i, s := range stmts {
		if !take[i] {
			continue
		}
		if err := m.exec(s); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
	}
	return nil
}

func (m *Machine) exec(s Statement) error {
	switch s := s.(type) {
	case *Assign:
		v, err := m.Eval(s.Src)
		if err != nil {
			return err
		}
		return m.write(s.Dst, v)
	case *Store:
		addr, err := m.Eval(s.Dst.Addr)
		if err != nil {
			return err
		}
		v, err := m.Eval(s.Src)
		if err != nil {
			return err
		}
		m.StoreMem(addr, s.Dst.Width, v)
	case *Branch:
		c, err := m.Eval(s.Cond)
		if err != nil {
			return err
		}
		t, err := m.Eval(s.Target)
		if err != nil {
			return err
		}
		m.Events = append(m.Events, Event{Kind: EventBranch, Target: t, Taken: c != 0})
	case *Goto:
		t, err := m.Eval(s.Target)
		if err != nil {
			return err
		}
		m.Events = append(m.Events, Event{Kind: EventGoto, Target: t, Taken: true, Interwork: s.Interwork})
	case *Call:
		t, err := m.Eval(s.Target)
		if err != nil {
			return err
		}
		m.Events = append(m.Events, Event{Kind: EventCall, Target: t, Taken: true, Name: s.Symbol, Interwork: s.Interwork})
	case *Return:
		m.Events = append(m.Events, Event{Kind: EventReturn, Taken: true})
	case *SideEffect:
		_, err := m.Eval(s.Call)
		return err
	case *Placeholder:
		m.Events = append(m.Events, Event{Kind: EventPlaceholder, Name: s.Text})
	case *Invalid:
		m.Events = append(m.Events, Event{Kind: EventInvalid})
	case *Nop:
	default:
		return fmt.Errorf("%w: statement %T", ErrEval, s)
	}
	return nil
}

func (m *Machine) write(dst LValue, v uint64) error {
	switch d := dst.(type) {
	case *Register:
		m.Regs[d.Name] = v & d.Width.Mask()
	case *Temp:
		m.temps[d.Name] = v & d.Width.Mask()
	case *Flag:
		r := m.Regs[d.Reg.Name] &^ (1 << d.Bit)
		if v&1 != 0 {
			r |= 1 << d.Bit
		}
		m.Regs[d.Reg.Name] = r
	default:
		return fmt.Errorf("%w: lvalue %T", ErrEval, dst)
	}
	return nil
}

func signExtend(v uint64, w Width) int64 {
	if w >= 64 {
		return int64(v)
	}
	shift := 64 - uint(w)
	return int64(v<<shift) >> shift
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Eval computes the value of e, masked to its width.
func (m *Machine) Eval(e Expr) (uint64, error) {
	switch e := e.(type) {
	case *Const:
		return e.Value & e.Width.Mask(), nil
	case *Register:
		return m.Regs[e.Name] & e.Width.Mask(), nil
	case *Flag:
		return m.Regs[e.Reg.Name] >> e.Bit & 1, nil
	case *Temp:
		v, ok := m.temps[e.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %s read before assignment", ErrEval, e.Name)
		}
		return v, nil
	case *Mem:
		a, err := m.Eval(e.Addr)
		if err != nil {
			return 0, err
		}
		return m.Load(a, e.Width), nil
	case *Binary:
		return m.evalBinary(e)
	case *Unary:
		x, err := m.Eval(e.X)
		if err != nil {
			return 0, err
		}
		if e.Op == Neg {
			return -x & e.Size().Mask(), nil
		}
		return ^x & e.Size().Mask(), nil
	case *Cast:
		x, err := m.Eval(e.X)
		if err != nil {
			return 0, err
		}
		if e.Op == SExt {
			return uint64(signExtend(x, e.X.Size())) & e.Width.Mask(), nil
		}
		return x & e.X.Size().Mask() & e.Width.Mask(), nil
	case *Test:
		n, _ := m.Eval(e.Flags.N)
		z, _ := m.Eval(e.Flags.Z)
		c, _ := m.Eval(e.Flags.C)
		v, _ := m.Eval(e.Flags.V)
		return b2u(e.Cond.Holds(n != 0, z != 0, c != 0, v != 0)), nil
	case *CarryOut:
		x, y, in, err := m.eval3(e.X, e.Y, e.In)
		if err != nil {
			return 0, err
		}
		w := e.X.Size()
		if w >= 64 {
			_, carry := bits.Add64(x, y, in)
			return carry, nil
		}
		return (x + y + in) >> w & 1, nil
	case *OverflowOut:
		x, y, in, err := m.eval3(e.X, e.Y, e.In)
		if err != nil {
			return 0, err
		}
		w := e.X.Size()
		r := (x + y + in) & w.Mask()
		return (x ^ r) & (y ^ r) >> (w - 1) & 1, nil
	case *ShiftCarry:
		return m.evalShiftCarry(e)
	case *RotateExtend:
		x, err := m.Eval(e.X)
		if err != nil {
			return 0, err
		}
		in, err := m.Eval(e.In)
		if err != nil {
			return 0, err
		}
		w := e.X.Size()
		return (in&1)<<(w-1) | x>>1, nil
	case *Select:
		c, err := m.Eval(e.Cond)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return m.Eval(e.X)
		}
		return m.Eval(e.Y)
	case *Intrinsic:
		args := make([]uint64, len(e.Args))
		for i, a := range e.Args {
			v, err := m.Eval(a)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		if fn, ok := m.Intrinsics[e.Name]; ok {
			return fn(m, args) & e.Width.Mask(), nil
		}
		m.Events = append(m.Events, Event{Kind: EventSideEffect, Name: e.Name, Args: args})
		return 0, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrEval, e)
}

func (m *Machine) eval3(a, b, c Expr) (x, y, z uint64, err error) {
	if x, err = m.Eval(a); err != nil {
		return
	}
	if y, err = m.Eval(b); err != nil {
		return
	}
	z, err = m.Eval(c)
	return
}

func (m *Machine) evalBinary(e *Binary) (uint64, error) {
	x, err := m.Eval(e.X)
	if err != nil {
		return 0, err
	}
	y, err := m.Eval(e.Y)
	if err != nil {
		return 0, err
	}
	w := e.X.Size()
	mask := w.Mask()
	switch e.Op {
	case Add:
		return (x + y) & mask, nil
	case Sub:
		return (x - y) & mask, nil
	case Mul:
		return (x * y) & mask, nil
	case UDiv:
		if y == 0 {
			return 0, nil
		}
		return x / y, nil
	case SDiv:
		if y == 0 {
			return 0, nil
		}
		return uint64(signExtend(x, w)/signExtend(y, w)) & mask, nil
	case And:
		return x & y, nil
	case Or:
		return x | y, nil
	case Xor:
		return x ^ y, nil
	case Shl:
		if y >= uint64(w) {
			return 0, nil
		}
		return x << y & mask, nil
	case Shr:
		if y >= uint64(w) {
			return 0, nil
		}
		return x >> y, nil
	case Sar:
		if y > 63 {
			y = 63
		}
		return uint64(signExtend(x, w)>>y) & mask, nil
	case Ror:
		r := y % uint64(w)
		if r == 0 {
			return x, nil
		}
		return (x>>r | x<<(uint64(w)-r)) & mask, nil
	case Eq:
		return b2u(x == y), nil
	case Ne:
		return b2u(x != y), nil
	case Ult:
		return b2u(x < y), nil
	case Ule:
		return b2u(x <= y), nil
	case Slt:
		return b2u(signExtend(x, w) < signExtend(y, w)), nil
	case Sle:
		return b2u(signExtend(x, w) <= signExtend(y, w)), nil
	}
	return 0, fmt.Errorf("%w: operator %s", ErrEval, e.Op)
}

func (m *Machine) evalShiftCarry(e *ShiftCarry) (uint64, error) {
	x, amt, in, err := m.eval3(e.X, e.Amount, e.In)
	if err != nil {
		return 0, err
	}
	if amt == 0 {
		return in & 1, nil
	}
	w := uint64(e.X.Size())
	switch e.Op {
	case Shl:
		if amt > w {
			return 0, nil
		}
		return x >> (w - amt) & 1, nil
	case Shr:
		if amt > w {
			return 0, nil
		}
		return x >> (amt - 1) & 1, nil
	case Sar:
		if amt >= w {
			return x >> (w - 1) & 1, nil
		}
		return x >> (amt - 1) & 1, nil
	case Ror:
		r := amt % w
		if r == 0 {
			return x >> (w - 1) & 1, nil
		}
		return x >> (r - 1) & 1, nil
	}
	return 0, fmt.Errorf("%w: shift carry of %s", ErrEval, e.Op)
}
