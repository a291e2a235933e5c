package ir

import (
	"errors"
	"testing"

	"github.com/kr/pretty"
)

var (
	testR0   = &Register{Name: "r0", Num: 0, Width: W32}
	testR1   = &Register{Name: "r1", Num: 1, Width: W32}
	testCPSR = &Register{Name: "cpsr", Num: 16, Width: W32}
	testN    = &Flag{Name: "N", Reg: testCPSR, Bit: 31}
	testZ    = &Flag{Name: "Z", Reg: testCPSR, Bit: 30}
	testC    = &Flag{Name: "C", Reg: testCPSR, Bit: 29}
	testV    = &Flag{Name: "V", Reg: testCPSR, Bit: 28}
	testNZCV = &FlagGroup{N: testN, Z: testZ, C: testC, V: testV}
)

func TestEvalBinary(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want uint64
	}{
		{"add wraps", Bin(Add, C32(0xFFFFFFFF), C32(2)), 1},
		{"sub wraps", Bin(Sub, C32(0), C32(1)), 0xFFFFFFFF},
		{"shl past width", Bin(Shl, C32(1), C32(32)), 0},
		{"shr past width", Bin(Shr, C32(0x80000000), C32(40)), 0},
		{"sar keeps sign", Bin(Sar, C32(0x80000000), C32(40)), 0xFFFFFFFF},
		{"ror", Bin(Ror, C32(0x1), C32(1)), 0x80000000},
		{"udiv by zero", Bin(UDiv, C32(7), C32(0)), 0},
		{"sdiv negative", Bin(SDiv, C32(0xFFFFFFF8), C32(2)), 0xFFFFFFFC},
		{"signed compare", Bin(Slt, C32(0xFFFFFFFF), C32(0)), 1},
		{"unsigned compare", Bin(Ult, C32(0xFFFFFFFF), C32(0)), 0},
		{"sign extend", SignExt(Truncate(C32(0x80), W8), W32), 0xFFFFFF80},
		{"zero extend", ZeroExt(Truncate(C32(0x1FF), W8), W32), 0xFF},
		{"carry out", &CarryOut{X: C32(0xFFFFFFFF), Y: C32(1), In: C32(0)}, 1},
		{"no carry", &CarryOut{X: C32(1), Y: C32(1), In: C32(0)}, 0},
		{"carry 64", &CarryOut{X: C(^uint64(0), W64), Y: C(0, W64), In: C(1, W64)}, 1},
		{"overflow", &OverflowOut{X: C32(0x7FFFFFFF), Y: C32(1), In: C32(0)}, 1},
		{"no overflow", &OverflowOut{X: C32(0xFFFFFFFF), Y: C32(1), In: C32(0)}, 0},
		{"lsl carry", &ShiftCarry{Op: Shl, X: C32(0x80000000), Amount: C32(1), In: False()}, 1},
		{"lsr carry", &ShiftCarry{Op: Shr, X: C32(0x2), Amount: C32(2), In: False()}, 1},
		{"zero shift keeps carry", &ShiftCarry{Op: Shl, X: C32(0), Amount: C32(0), In: True()}, 1},
		{"rrx", &RotateExtend{X: C32(0x3), In: True()}, 0x80000001},
		{"select", &Select{Cond: True(), X: C32(1), Y: C32(2)}, 1},
		{"clz", CallIntrinsic("__clz", W32, C32(0x00010000)), 15},
		{"rev", CallIntrinsic("__rev", W32, C32(0x11223344)), 0x44332211},
		{"rev16", CallIntrinsic("__rev16", W32, C32(0x11223344)), 0x22114433},
		{"revsh", CallIntrinsic("__revsh", W32, C32(0x00000080)), 0xFFFF8000},
		{"rbit", CallIntrinsic("__rbit", W32, C32(1)), 0x80000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			got, err := m.Eval(tt.expr)
			if err != nil {
				t.Fatalf("Eval(%s): %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%s) = %#x, want %#x", tt.expr, got, tt.want)
			}
		})
	}
}

func TestConditions(t *testing.T) {
	for c := EQ; c <= LE; c++ {
		for flags := 0; flags < 16; flags++ {
			n, z, cy, v := flags&8 != 0, flags&4 != 0, flags&2 != 0, flags&1 != 0
			if c.Holds(n, z, cy, v) == c.Invert().Holds(n, z, cy, v) {
				t.Errorf("%s and %s agree on flags %04b", c, c.Invert(), flags)
			}
		}
	}
}

func TestExecGuardsUseEntryState(t *testing.T) {
	m := NewMachine()
	m.Regs["cpsr"] = 1 << 30 // Z set

	eq := &Test{Cond: EQ, Flags: testNZCV}
	var buf Buffer
	e := NewEmitter(&buf)
	e.Begin(eq)
	e.Assign(testZ, False())
	e.Assign(testR0, C32(5))

	if err := m.Exec(buf.Statements()); err != nil {
		t.Fatal(err)
	}
	if m.Regs["r0"] != 5 {
		t.Errorf("r0 = %d; clearing Z inside the group must not cancel later statements", m.Regs["r0"])
	}
	if m.Regs["cpsr"] != 0 {
		t.Errorf("cpsr = %#x, want 0", m.Regs["cpsr"])
	}
}

func TestEmitterTemps(t *testing.T) {
	var buf Buffer
	e := NewEmitter(&buf)
	e.Begin(nil)
	a := e.Let(Bin(Add, testR0, testR1))
	b := e.Let(a)
	e.Begin(nil)
	c := e.Let(testR0)
	if a.Name != "t0" || b.Name != "t1" || c.Name != "t0" {
		t.Errorf("temps = %s %s %s, want t0 t1 t0", a, b, c)
	}

	want := []string{"t0 = (r0 + r1)", "t1 = t0", "t0 = r0"}
	if diff := pretty.Diff(Strings(buf.Statements()), want); len(diff) > 0 {
		t.Errorf("statements differ:\n%s", diff)
	}
}

func TestStatementText(t *testing.T) {
	ne := &Test{Cond: NE, Flags: testNZCV}
	var buf Buffer
	e := NewEmitter(&buf)
	e.Begin(ne)
	e.Store(Bin(Add, testR1, C32(4)), W32, testR0)
	e.Call(C32(0x2000), "memcpy", false)
	e.Goto(testR0, true)
	e.SideEffect("__syscall", C32(0))
	e.Placeholder("cdp p0, #0, c0, c0, c0, #0")
	e.Begin(nil)
	e.Branch(ne, C32(0x1010))
	e.Return()

	want := []string{
		"if (Test(NE,NZCV)) Mem32[(r1 + 0x4)] = r0",
		"if (Test(NE,NZCV)) call 0x2000 <memcpy>",
		"if (Test(NE,NZCV)) goto.x r0",
		"if (Test(NE,NZCV)) __syscall(0x0)",
		"if (Test(NE,NZCV)) <unsupported cdp p0, #0, c0, c0, c0, #0>",
		"branch Test(NE,NZCV), 0x1010",
		"return",
	}
	if diff := pretty.Diff(Strings(buf.Statements()), want); len(diff) > 0 {
		t.Errorf("statements differ:\n%s", diff)
	}
}

func TestExecMemoryAndEvents(t *testing.T) {
	m := NewMachine()
	m.Regs["r1"] = 0x100
	m.Regs["r0"] = 0xAABBCCDD

	var buf Buffer
	e := NewEmitter(&buf)
	e.Begin(nil)
	e.Store(testR1, W16, Truncate(testR0, W16))
	e.Assign(testR0, ZeroExt(&Mem{Addr: testR1, Width: W8}, W32))
	e.SideEffect("__breakpoint", C32(3))
	e.Goto(C32(0x400), false)

	if err := m.Exec(buf.Statements()); err != nil {
		t.Fatal(err)
	}
	if got := m.Load(0x100, W16); got != 0xCCDD {
		t.Errorf("Mem16[0x100] = %#x, want 0xccdd", got)
	}
	if m.Regs["r0"] != 0xDD {
		t.Errorf("r0 = %#x, want 0xdd", m.Regs["r0"])
	}
	want := []Event{
		{Kind: EventSideEffect, Name: "__breakpoint", Args: []uint64{3}},
		{Kind: EventGoto, Target: 0x400, Taken: true},
	}
	if diff := pretty.Diff(m.Events, want); len(diff) > 0 {
		t.Errorf("events differ:\n%s", diff)
	}
}

func TestEvalUnassignedTemp(t *testing.T) {
	m := NewMachine()
	_, err := m.Eval(&Temp{Name: "t3", Width: W32})
	if !errors.Is(err, ErrEval) {
		t.Errorf("err = %v, want ErrEval", err)
	}
}
