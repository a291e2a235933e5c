package host

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/kr/pretty"

	"armlift/internal/arm"
	"armlift/internal/elfx"
	"armlift/internal/ir"
	"armlift/internal/rewriter"
)

var (
	_ rewriter.Host = (*Static)(nil)
	_ rewriter.Host = (*ELF)(nil)
)

func code(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

func TestStaticSymbolsReachCalls(t *testing.T) {
	h := NewStatic(arm.ARMv7, WithSymbols(map[uint64]string{0x2000: "memcpy"}))
	// bl 0x2000 from 0x1000
	lifted, err := rewriter.Lift(code(0xEB0003FE), 0x1000, h)
	if err != nil {
		t.Fatal(err)
	}
	got := ir.Strings(lifted[0].Stmts)
	want := []string{"lr = 0x1004", "call 0x2000 <memcpy>"}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Errorf("statements differ:\n%s", diff)
	}
}

func TestStaticDiagnostics(t *testing.T) {
	var logs bytes.Buffer
	h := NewStatic(arm.ARMv7, WithLogger(log.New(&logs)))
	// sel r0, r1, r2
	if _, err := rewriter.Lift(code(0xE6810FB2), 0x400, h); err != nil {
		t.Fatal(err)
	}
	d := h.Diagnostics()
	if len(d) != 1 || d[0].Addr != 0x400 || !strings.Contains(d[0].Msg, "'sel'") {
		t.Fatalf("diagnostics = %v", d)
	}
	if !strings.Contains(logs.String(), "0x400") {
		t.Errorf("log output %q does not name the address", logs.String())
	}
	h.ResetDiagnostics()
	if len(h.Diagnostics()) != 0 {
		t.Error("ResetDiagnostics kept entries")
	}
}

func TestStaticDeniedRegister(t *testing.T) {
	h := NewStatic(arm.ARMv7, WithoutRegisters("r1"))
	_, err := rewriter.Lift(code(0xE0810002), 0, h)
	if !errors.Is(err, rewriter.ErrUnresolvableOperand) {
		t.Errorf("err = %v, want ErrUnresolvableOperand", err)
	}
}

func TestVariantFromAttributes(t *testing.T) {
	tests := []struct {
		name string
		ints map[uint64]uint64
		want arm.Variant
		ok   bool
	}{
		{"missing", map[uint64]uint64{}, 0, false},
		{"v4t", map[uint64]uint64{elfx.TagCPUArch: elfx.CPUArchV4T}, arm.ARMv4T, true},
		{"v5te", map[uint64]uint64{elfx.TagCPUArch: elfx.CPUArchV5TE}, arm.ARMv5TE, true},
		{"v6kz", map[uint64]uint64{elfx.TagCPUArch: elfx.CPUArchV6KZ}, arm.ARMv6K, true},
		{"v7", map[uint64]uint64{elfx.TagCPUArch: elfx.CPUArchV7}, arm.ARMv7, true},
		{"v7 with divide", map[uint64]uint64{elfx.TagCPUArch: elfx.CPUArchV7, elfx.TagDIVUse: 2}, arm.ARMv7VE, true},
		{"v8", map[uint64]uint64{elfx.TagCPUArch: elfx.CPUArchV8A}, arm.ARMv7VE, true},
		{"cortex-m", map[uint64]uint64{elfx.TagCPUArch: elfx.CPUArchV7EM}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := VariantFromAttributes(elfx.Attributes{Ints: tt.ints})
			if v != tt.want || ok != tt.ok {
				t.Errorf("VariantFromAttributes = %v, %v; want %v, %v", v, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestNewELF(t *testing.T) {
	im := &elfx.Image{
		Attrs: elfx.Attributes{Ints: map[uint64]uint64{elfx.TagCPUArch: elfx.CPUArchV5TE}},
		Syms: []elfx.Sym{
			{Name: "_Z3fooi", Addr: 0x8000, Size: 8, Func: true},
			{Name: "thumb", Addr: 0x8100, Size: 8, Func: true, Thumb: true},
			{Name: "table", Addr: 0x9000, Size: 8},
		},
		PLTStubs: []elfx.PLTStub{{Addr: 0x7000, GOTAddr: 0xA000}},
		PLTRels:  []elfx.PLTRel{{Offset: 0xA000, SymName: "puts", PLTAddr: 0x7000}},
	}
	h := NewELF(im)
	if h.Variant() != arm.ARMv5TE {
		t.Errorf("Variant() = %v", h.Variant())
	}
	want := []Symbol{{0x7000, "puts@plt"}, {0x8000, "foo(int)"}}
	if diff := pretty.Diff(h.Symbols(), want); len(diff) > 0 {
		t.Errorf("symbols differ:\n%s", diff)
	}

	if v := NewELF(im, WithVariant(arm.ARMv7)).Variant(); v != arm.ARMv7 {
		t.Errorf("override: Variant() = %v", v)
	}
	if v := NewELF(&elfx.Image{}).Variant(); v != arm.DefaultVariant {
		t.Errorf("no attributes: Variant() = %v", v)
	}
}
