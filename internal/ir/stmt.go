package ir

import "fmt"

// Statement is one IR operation. A non-nil guard means the statement only
// takes effect when the guard holds at the entry of the instruction that
// produced it.
type Statement interface {
	Guard() *Test
	String() string
	stmt()
}

// Guarded carries the optional predicate of a statement.
type Guarded struct {
	If *Test
}

func (g Guarded) Guard() *Test { return g.If }

func (g Guarded) prefix() string {
	if g.If == nil {
		return ""
	}
	return fmt.Sprintf("if (%s) ", g.If)
}

// Assign writes Src to Dst.
type Assign struct {
	Guarded
	Dst LValue
	Src Expr
}

// Store writes Src to memory.
type Store struct {
	Guarded
	Dst *Mem
	Src Expr
}

// Branch transfers control to Target when Cond holds.
type Branch struct {
	Guarded
	Cond   *Test
	Target Expr
}

// Goto transfers control unconditionally. Interwork marks a transfer
// that may switch instruction set depending on bit 0 of the target.
type Goto struct {
	Guarded
	Target    Expr
	Interwork bool
}

// Call transfers control to a subroutine. Symbol is the resolved name of
// a direct target, if known.
type Call struct {
	Guarded
	Target    Expr
	Symbol    string
	Interwork bool
}

// Return leaves the current subroutine.
type Return struct {
	Guarded
}

// SideEffect invokes an intrinsic for its effect alone.
type SideEffect struct {
	Guarded
	Call *Intrinsic
}

// Placeholder stands in for a recognised instruction whose semantics are
// not modelled.
type Placeholder struct {
	Guarded
	Text string
}

// Invalid marks an instruction that traps or has no defined behaviour.
type Invalid struct {
	Guarded
}

// Nop has no effect.
type Nop struct {
	Guarded
}

func (*Assign) stmt()      {}
func (*Store) stmt()       {}
func (*Branch) stmt()      {}
func (*Goto) stmt()        {}
func (*Call) stmt()        {}
func (*Return) stmt()      {}
func (*SideEffect) stmt()  {}
func (*Placeholder) stmt() {}
func (*Invalid) stmt()     {}
func (*Nop) stmt()         {}

func (s *Assign) String() string {
	return fmt.Sprintf("%s%s = %s", s.prefix(), s.Dst, s.Src)
}

func (s *Store) String() string {
	return fmt.Sprintf("%s%s = %s", s.prefix(), s.Dst, s.Src)
}

func (s *Branch) String() string {
	return fmt.Sprintf("%sbranch %s, %s", s.prefix(), s.Cond, s.Target)
}

func (s *Goto) String() string {
	if s.Interwork {
		return fmt.Sprintf("%sgoto.x %s", s.prefix(), s.Target)
	}
	return fmt.Sprintf("%sgoto %s", s.prefix(), s.Target)
}

func (s *Call) String() string {
	op := "call"
	if s.Interwork {
		op = "call.x"
	}
	if s.Symbol != "" {
		return fmt.Sprintf("%s%s %s <%s>", s.prefix(), op, s.Target, s.Symbol)
	}
	return fmt.Sprintf("%s%s %s", s.prefix(), op, s.Target)
}

func (s *Return) String() string      { return s.prefix() + "return" }
func (s *SideEffect) String() string  { return s.prefix() + s.Call.String() }
func (s *Placeholder) String() string { return fmt.Sprintf("%s<unsupported %s>", s.prefix(), s.Text) }
func (s *Invalid) String() string     { return s.prefix() + "invalid" }
func (s *Nop) String() string         { return s.prefix() + "nop" }

// IsTransfer reports whether s may change the flow of control.
func IsTransfer(s Statement) bool {
	switch s.(type) {
	case *Branch, *Goto, *Call, *Return:
		return true
	}
	return false
}
