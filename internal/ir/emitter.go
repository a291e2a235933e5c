package ir

import "fmt"

// Emitter builds the statements of one instruction at a time. Each
// statement it emits carries the guard set by Begin, and temporaries are
// numbered from zero for every instruction so that output is stable.
type Emitter struct {
	sink  Sink
	guard *Test
	temps int
	count int
}

// NewEmitter returns an Emitter writing to s.
func NewEmitter(s Sink) *Emitter {
	return &Emitter{sink: s}
}

// Begin starts a new instruction whose statements are guarded by g.
func (m *Emitter) Begin(g *Test) {
	m.guard = g
	m.temps = 0
	m.count = 0
}

// Count returns how many statements were emitted since Begin.
func (m *Emitter) Count() int { return m.count }

// Guard returns the guard of the current instruction.
func (m *Emitter) Guard() *Test { return m.guard }

func (m *Emitter) guarded() Guarded { return Guarded{If: m.guard} }

// Emit forwards s unchanged.
func (m *Emitter) Emit(s Statement) {
	m.count++
	m.sink.Emit(s)
}

// Temp allocates a fresh temporary.
func (m *Emitter) Temp(w Width) *Temp {
	t := &Temp{Name: fmt.Sprintf("t%d", m.temps), Width: w}
	m.temps++
	return t
}

// Let assigns e to a fresh temporary and returns it.
func (m *Emitter) Let(e Expr) *Temp {
	t := m.Temp(e.Size())
	m.Assign(t, e)
	return t
}

func (m *Emitter) Assign(dst LValue, src Expr) {
	m.Emit(&Assign{Guarded: m.guarded(), Dst: dst, Src: src})
}

func (m *Emitter) Store(addr Expr, w Width, src Expr) {
	m.Emit(&Store{Guarded: m.guarded(), Dst: &Mem{Addr: addr, Width: w}, Src: src})
}

// Branch emits a conditional branch. Its condition takes the place of the
// instruction guard.
func (m *Emitter) Branch(cond *Test, target Expr) {
	m.Emit(&Branch{Cond: cond, Target: target})
}

func (m *Emitter) Goto(target Expr, interwork bool) {
	m.Emit(&Goto{Guarded: m.guarded(), Target: target, Interwork: interwork})
}

func (m *Emitter) Call(target Expr, symbol string, interwork bool) {
	m.Emit(&Call{Guarded: m.guarded(), Target: target, Symbol: symbol, Interwork: interwork})
}

func (m *Emitter) Return() {
	m.Emit(&Return{Guarded: m.guarded()})
}

func (m *Emitter) SideEffect(name string, args ...Expr) {
	m.Emit(&SideEffect{Guarded: m.guarded(), Call: CallIntrinsic(name, W32, args...)})
}

func (m *Emitter) Placeholder(text string) {
	m.Emit(&Placeholder{Guarded: m.guarded(), Text: text})
}

func (m *Emitter) Invalid() {
	m.Emit(&Invalid{Guarded: m.guarded()})
}

func (m *Emitter) Nop() {
	m.Emit(&Nop{Guarded: m.guarded()})
}
