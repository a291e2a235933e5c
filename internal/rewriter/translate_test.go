package rewriter

import (
	"testing"

	"github.com/kr/pretty"

	"armlift/internal/arm"
	"armlift/internal/ir"
)

func liftOne(t *testing.T, host *fakeHost, w uint32) Lifted {
	t.Helper()
	out, err := Lift(code(w), 0x1000, host)
	if err != nil {
		t.Fatalf("lift %08x: %v", w, err)
	}
	if len(out) != 1 {
		t.Fatalf("lift %08x: %d clusters", w, len(out))
	}
	return out[0]
}

func TestTranslateText(t *testing.T) {
	tests := []struct {
		name  string
		word  uint32
		class Class
		want  []string
	}{
		{"add", 0xE0810002, ClassLinear, []string{"r0 = (r1 + r2)"}},
		{"adds", 0xE0910002, ClassLinear, []string{
			"t0 = (r1 + r2)",
			"V = overflow(r1, r2, 0x0)",
			"C = carry(r1, r2, 0x0)",
			"r0 = t0",
			"N = (t0 <s 0x0)",
			"Z = (t0 == 0x0)",
		}},
		{"cmp", 0xE1500001, ClassLinear, []string{
			"t0 = (r0 - r1)",
			"V = overflow(r0, ~r1, 0x1)",
			"C = carry(r0, ~r1, 0x1)",
			"N = (t0 <s 0x0)",
			"Z = (t0 == 0x0)",
		}},
		{"addeq", 0x00810002, ClassLinear, []string{"if (Test(EQ,NZCV)) r0 = (r1 + r2)"}},
		{"mov register shift", 0xE1A00211, ClassLinear, []string{"r0 = (r1 << (r2 & 0xff))"}},
		{"mov pc, lr", 0xE1A0F00E, ClassReturn, []string{"return"}},
		{"bx lr", 0xE12FFF1E, ClassReturn, []string{"return"}},
		{"bx r3", 0xE12FFF13, ClassTransfer, []string{"goto.x r3"}},
		{"b", 0xEA000002, ClassTransfer, []string{"goto 0x1010"}},
		{"beq", 0x0A000002, ClassTransfer, []string{"branch Test(EQ,NZCV), 0x1010"}},
		{"bl", 0xEB000010, ClassCall, []string{"lr = 0x1004", "call 0x1048 <helper>"}},
		{"blx immediate", 0xFA000000, ClassCall, []string{"lr = 0x1004", "call.x 0x1008"}},
		{"blx register", 0xE12FFF31, ClassCall, []string{"lr = 0x1004", "call.x r1"}},
		{"blx lr", 0xE12FFF3E, ClassCall, []string{"t0 = lr", "lr = 0x1004", "call.x t0"}},
		{"push", 0xE92D4010, ClassLinear, []string{
			"Mem32[(sp - 0x8)] = r4",
			"Mem32[(sp - 0x4)] = lr",
			"sp = (sp - 0x8)",
		}},
		{"pop with pc", 0xE8BD8010, ClassReturn, []string{
			"r4 = Mem32[sp]",
			"t0 = Mem32[(sp + 0x4)]",
			"sp = (sp + 0x8)",
			"return",
		}},
		{"ldm base in list", 0xE8900003, ClassLinear, []string{
			"t0 = r0",
			"r0 = Mem32[t0]",
			"r1 = Mem32[(t0 + 0x4)]",
		}},
		{"ldr", 0xE5912004, ClassLinear, []string{"r2 = Mem32[(r1 + 0x4)]"}},
		{"ldr post-indexed", 0xE4912004, ClassLinear, []string{"t0 = Mem32[r1]", "r1 = (r1 + 0x4)", "r2 = t0"}},
		{"ldr pre-indexed", 0xE5B12004, ClassLinear, []string{"r1 = (r1 + 0x4)", "r2 = Mem32[r1]"}},
		{"ldr literal", 0xE59F0008, ClassLinear, []string{"r0 = Mem32[0x1010]"}},
		{"ldr pc popped", 0xE49DF004, ClassReturn, []string{"sp = (sp + 0x4)", "return"}},
		{"ldrh", 0xE1D000B0, ClassLinear, []string{"r0 = zext32(Mem16[r0])"}},
		{"ldrd", 0xE1C020D0, ClassLinear, []string{"r2 = Mem32[r0]", "r3 = Mem32[(r0 + 0x4)]"}},
		{"strb", 0xE5C12000, ClassLinear, []string{"Mem8[r1] = trunc8(r2)"}},
		{"str pc", 0xE581F000, ClassLinear, []string{"Mem32[r1] = 0x1008"}},
		{"ldrex", 0xE1900F9F, ClassLinear, []string{"__set_exclusive_monitor(r0)", "r0 = Mem32[r0]"}},
		{"strex", 0xE1810F92, ClassLinear, []string{"r0 = __strex(r1, r2)"}},
		{"swp", 0xE1010092, ClassLinear, []string{"t0 = Mem32[r1]", "Mem32[r1] = r2", "r0 = t0"}},
		{"mul", 0xE0000291, ClassLinear, []string{"r0 = (r1 * r2)"}},
		{"umull", 0xE0843291, ClassLinear, []string{
			"t0 = (zext64(r1) * zext64(r2))",
			"r3 = trunc32(t0)",
			"r4 = trunc32((t0 >>u 0x20))",
		}},
		{"smulbb", 0xE1600281, ClassLinear, []string{"r0 = (sext32(trunc16(r1)) * sext32(trunc16(r2)))"}},
		{"clz", 0xE16F0F11, ClassLinear, []string{"r0 = __clz(r1)"}},
		{"rev", 0xE6BF0F31, ClassLinear, []string{"r0 = __rev(r1)"}},
		{"sxtb", 0xE6AF0071, ClassLinear, []string{"r0 = sext32(trunc8(r1))"}},
		{"ubfx", 0xE7E10251, ClassLinear, []string{"r0 = ((r1 >>u 0x4) & 0x3)"}},
		{"movw", 0xE3011234, ClassLinear, []string{"r1 = 0x1234"}},
		{"movt", 0xE3401000, ClassLinear, []string{"r1 = (r1 & 0xffff)"}},
		{"mrs", 0xE10F0000, ClassLinear, []string{"r0 = cpsr"}},
		{"msr", 0xE129F000, ClassLinear, []string{"cpsr = ((cpsr & 0xffff00) | (r0 & 0xff0000ff))"}},
		{"nop", 0xE320F000, ClassLinear, []string{"nop"}},
		{"wfi", 0xE320F003, ClassLinear, []string{"__wait_for_interrupt()"}},
		{"svc", 0xEF000000, ClassLinear, []string{"__syscall(0x0)"}},
		{"bkpt", 0xE1200070, ClassLinear, []string{"__breakpoint(0x0)"}},
		{"udf", 0xE7F000F0, ClassTransfer, []string{"__undefined(0x0)"}},
		{"dmb", 0xF57FF05F, ClassLinear, []string{"__dmb(0xf)"}},
		{"clrex", 0xF57FF01F, ClassLinear, []string{"__clrex()"}},
		{"pld", 0xF5D1F000, ClassLinear, []string{"__pld(r1)"}},
		{"mcr", 0xEE070F15, ClassLinear, []string{"__mcr(0xf, 0x0, r0, 0x7, 0x5, 0x0)"}},
		{"mrc", 0xEE100F10, ClassLinear, []string{"r0 = __mrc(0xf, 0x0, 0x0, 0x0, 0x0)"}},
		{"cdp", 0xEE000000, ClassUnsupported, []string{"<unsupported cdp p0, #0, c0, c0, c0, #0>"}},
		{"setend", 0xF1010200, ClassUnsupported, []string{"<unsupported setend #1>"}},
		{"ldm user registers", 0xE8DD8000, ClassUnsupported, []string{"<unsupported ldm sp, {pc}^>"}},
		{"sadd16", 0xE6110F12, ClassUnsupported, []string{"<unsupported sadd16 r0, r1, r2>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost(arm.ARMv7)
			host.symbols = map[uint64]string{0x1048: "helper"}
			got := liftOne(t, host, tt.word)
			if diff := pretty.Diff(ir.Strings(got.Stmts), tt.want); len(diff) > 0 {
				t.Errorf("%s lifted to %# v\ndiff: %s", got.Text, pretty.Formatter(ir.Strings(got.Stmts)), diff)
			}
			if got.Class != tt.class {
				t.Errorf("class = %v, want %v", got.Class, tt.class)
			}
			if got.Statements != len(got.Stmts) {
				t.Errorf("cluster reports %d statements, sink got %d", got.Statements, len(got.Stmts))
			}
		})
	}
}

const (
	bitN = 1 << 31
	bitZ = 1 << 30
	bitC = 1 << 29
	bitV = 1 << 28
	bitQ = 1 << 27
)

func TestTranslateSemantics(t *testing.T) {
	tests := []struct {
		name    string
		variant arm.Variant
		word    uint32
		regs    map[string]uint64
		mem     map[uint64]uint32
		want    map[string]uint64
		wantMem map[uint64]uint32
	}{
		{
			name: "adds overflow",
			word: 0xE0910002,
			regs: map[string]uint64{"r1": 0x7FFFFFFF, "r2": 1},
			want: map[string]uint64{"r0": 0x80000000, "cpsr": bitN | bitV},
		},
		{
			name: "adds aliasing destination",
			word: 0xE0900000,
			regs: map[string]uint64{"r0": 0x80000000},
			want: map[string]uint64{"r0": 0, "cpsr": bitZ | bitC | bitV},
		},
		{
			name: "cmp equal",
			word: 0xE1500001,
			regs: map[string]uint64{"r0": 7, "r1": 7},
			want: map[string]uint64{"cpsr": bitZ | bitC},
		},
		{
			name: "subs borrow",
			word: 0xE2500001,
			regs: map[string]uint64{"r0": 0},
			want: map[string]uint64{"r0": 0xFFFFFFFF, "cpsr": bitN},
		},
		{
			name: "adc carry in",
			word: 0xE0A10002,
			regs: map[string]uint64{"r1": 1, "r2": 2, "cpsr": bitC},
			want: map[string]uint64{"r0": 4, "cpsr": bitC},
		},
		{
			name: "rsb",
			word: 0xE2610000,
			regs: map[string]uint64{"r1": 5},
			want: map[string]uint64{"r0": 0xFFFFFFFB},
		},
		{
			name: "movs shifter carry",
			word: 0xE1B00081,
			regs: map[string]uint64{"r1": 0x80000001},
			want: map[string]uint64{"r0": 2, "cpsr": bitC},
		},
		{
			name: "addeq not taken",
			word: 0x00810002,
			regs: map[string]uint64{"r0": 9, "r1": 1, "r2": 2},
			want: map[string]uint64{"r0": 9},
		},
		{
			name: "addne taken",
			word: 0x10810002,
			regs: map[string]uint64{"r0": 9, "r1": 1, "r2": 2},
			want: map[string]uint64{"r0": 3},
		},
		{
			name: "qadd saturates",
			word: 0xE1020051,
			regs: map[string]uint64{"r1": 0x7FFFFFFF, "r2": 1},
			want: map[string]uint64{"r0": 0x7FFFFFFF, "cpsr": bitQ},
		},
		{
			name: "qsub in range",
			word: 0xE1220051,
			regs: map[string]uint64{"r1": 5, "r2": 7},
			want: map[string]uint64{"r0": 0xFFFFFFFE, "cpsr": 0},
		},
		{
			name: "umull",
			word: 0xE0843291,
			regs: map[string]uint64{"r1": 0xFFFFFFFF, "r2": 2},
			want: map[string]uint64{"r3": 0xFFFFFFFE, "r4": 1},
		},
		{
			name: "smull negative",
			word: 0xE0C43291,
			regs: map[string]uint64{"r1": 0xFFFFFFFF, "r2": 2},
			want: map[string]uint64{"r3": 0xFFFFFFFE, "r4": 0xFFFFFFFF},
		},
		{
			name:    "sdiv",
			variant: arm.ARMv7VE,
			word:    0xE710F211,
			regs:    map[string]uint64{"r1": 0xFFFFFFF7, "r2": 2},
			want:    map[string]uint64{"r0": 0xFFFFFFFC},
		},
		{
			name: "ubfx",
			word: 0xE7E10251,
			regs: map[string]uint64{"r1": 0xF0},
			want: map[string]uint64{"r0": 3},
		},
		{
			name: "sbfx",
			word: 0xE7A10251,
			regs: map[string]uint64{"r1": 0x30},
			want: map[string]uint64{"r0": 0xFFFFFFFF},
		},
		{
			name: "bfi",
			word: 0xE7C50211,
			regs: map[string]uint64{"r0": 0xFFFFFFFF, "r1": 0},
			want: map[string]uint64{"r0": 0xFFFFFFCF},
		},
		{
			name: "ldm base in list",
			word: 0xE8900003,
			regs: map[string]uint64{"r0": 0x100},
			mem:  map[uint64]uint32{0x100: 7, 0x104: 9},
			want: map[string]uint64{"r0": 7, "r1": 9},
		},
		{
			name:    "push",
			word:    0xE92D4010,
			regs:    map[string]uint64{"sp": 0x8000, "r4": 0x44, "lr": 0x1234},
			want:    map[string]uint64{"sp": 0x7FF8},
			wantMem: map[uint64]uint32{0x7FF8: 0x44, 0x7FFC: 0x1234},
		},
		{
			name: "ldrsh",
			word: 0xE1D100F0,
			regs: map[string]uint64{"r1": 0x200},
			mem:  map[uint64]uint32{0x200: 0x8001},
			want: map[string]uint64{"r0": 0xFFFF8001},
		},
		{
			name:    "swp",
			word:    0xE1010092,
			regs:    map[string]uint64{"r1": 0x300, "r2": 5},
			mem:     map[uint64]uint32{0x300: 6},
			want:    map[string]uint64{"r0": 6},
			wantMem: map[uint64]uint32{0x300: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.variant
			if v == arm.ARMv4 {
				v = arm.ARMv7
			}
			got := liftOne(t, newFakeHost(v), tt.word)

			m := ir.NewMachine()
			for k, x := range tt.regs {
				m.Regs[k] = x
			}
			for a, x := range tt.mem {
				m.StoreMem(a, ir.W32, uint64(x))
			}
			if err := m.Exec(got.Stmts); err != nil {
				t.Fatalf("exec %v: %v", ir.Strings(got.Stmts), err)
			}
			for k, want := range tt.want {
				if m.Regs[k] != want {
					t.Errorf("%s = %#x, want %#x\n%v", k, m.Regs[k], want, ir.Strings(got.Stmts))
				}
			}
			for a, want := range tt.wantMem {
				if x := m.Load(a, ir.W32); x != uint64(want) {
					t.Errorf("Mem32[%#x] = %#x, want %#x", a, x, want)
				}
			}
		})
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	out, err := Lift(code(0xE92D4010, 0xE3A04000, 0xE8BD8010), 0x1000, newFakeHost(arm.ARMv7))
	if err != nil {
		t.Fatal(err)
	}
	m := ir.NewMachine()
	m.Regs["sp"], m.Regs["r4"], m.Regs["lr"] = 0x8000, 0x44, 0x1234
	for _, l := range out {
		if err := m.Exec(l.Stmts); err != nil {
			t.Fatal(err)
		}
	}
	if m.Regs["r4"] != 0x44 || m.Regs["sp"] != 0x8000 {
		t.Errorf("r4 = %#x, sp = %#x", m.Regs["r4"], m.Regs["sp"])
	}
	if m.Temp("t0") != 0x1234 {
		t.Errorf("popped pc = %#x, want 0x1234", m.Temp("t0"))
	}
	if n := len(m.Events); n != 1 || m.Events[0].Kind != ir.EventReturn {
		t.Errorf("events = %# v", pretty.Formatter(m.Events))
	}
}
