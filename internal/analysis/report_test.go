package analysis

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"armlift/internal/arm"
	"armlift/internal/host"
	"armlift/internal/rewriter"
)

// memory is a sparse image made of byte regions.
type memory map[uint64][]byte

func (m memory) ReadBytesVA(va uint64, size int) ([]byte, bool) {
	for base, b := range m {
		if va >= base && va+uint64(size) <= base+uint64(len(b)) {
			off := va - base
			return b[off : off+uint64(size)], true
		}
	}
	return nil, false
}

func words(ws ...uint32) []byte {
	out := make([]byte, 4*len(ws))
	for i, w := range ws {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

func liftSample(t *testing.T) []rewriter.Lifted {
	t.Helper()
	code := words(
		0xEB0003FE, // bl 0x2000
		0xE59F0004, // ldr r0, [pc, #4]
		0xE6810FB2, // sel r0, r1, r2
		0xE12FFF33, // blx r3
		0xE12FFF13, // bx r3
	)
	ls, err := rewriter.Lift(code, 0x1000, host.NewStatic(arm.ARMv7))
	if err != nil {
		t.Fatal(err)
	}
	return ls
}

func TestScan(t *testing.T) {
	got := Scan(liftSample(t))
	want := []Finding{
		{Kind: KindCall, Addr: 0x1000, Target: 0x2000, HasTarget: true},
		{Kind: KindLiteral, Addr: 0x1004, Target: 0x1010, HasTarget: true},
		{Kind: KindPlaceholder, Addr: 0x1008, Detail: "sel r0, r1, r2"},
		{Kind: KindIndirect, Addr: 0x100c, Detail: "call.x r3"},
		{Kind: KindIndirect, Addr: 0x1010, Detail: "goto.x r3"},
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Errorf("findings differ:\n%s", strings.Join(diff, "\n"))
	}
}

func TestDetectors(t *testing.T) {
	mem := memory{
		0x1010: words(0x3000),
		0x3000: []byte("hello, world\x00"),
	}
	chain := NewDetectorChain(
		SymbolDetector{Lookup: func(addr uint64) (string, bool) {
			return "_Z3fooi", addr == 0x2000
		}},
		LiteralDetector{Mem: mem},
	)
	r := Build("sample", liftSample(t), []Fault{{Addr: 0x1014, Err: errors.New("invalid encoding")}}, chain)

	if r.Instructions != 5 || r.Start != 0x1000 || r.End != 0x1014 {
		t.Errorf("report spans %#x..%#x with %d instructions", r.Start, r.End, r.Instructions)
	}
	if r.Classes[rewriter.ClassCall] != 2 || r.Classes[rewriter.ClassUnsupported] != 1 {
		t.Errorf("classes = %v", r.Classes)
	}
	call := r.Findings[0]
	if call.Symbol != "foo(int)" {
		t.Errorf("call symbol = %q", call.Symbol)
	}
	lit := r.Findings[1]
	if lit.Value != 0x3000 || lit.Detail != `"hello, world"` {
		t.Errorf("literal = %+v", lit)
	}
	if r.Count(KindFault) != 1 || r.Findings[len(r.Findings)-1].Kind != KindFault {
		t.Errorf("fault not last: %v", r.Findings)
	}

	md := r.Markdown()
	for _, want := range []string{
		"# sample",
		"| call | 2 |",
		"## Calls",
		"foo(int)",
		"## Literals",
		`"hello, world"`,
		"## Unsupported instructions",
		"## Faults",
		"invalid encoding",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown lacks %q:\n%s", want, md)
		}
	}
}

func TestReadAndEscapeString(t *testing.T) {
	mem := memory{0x100: []byte("ok\x01\x00")}
	s, n, ok := ReadAndEscapeString(mem, 0x100, MaxStringLength)
	if !ok || n != 3 || s != `ok\u0001` {
		t.Errorf("ReadAndEscapeString = %q, %d, %v", s, n, ok)
	}
	if IsPrintable(s) {
		t.Errorf("%q reported printable", s)
	}
	if _, _, ok := ReadAndEscapeString(mem, 0x900, 16); ok {
		t.Error("read of unmapped memory succeeded")
	}
}

func TestCachedDemangle(t *testing.T) {
	const name = "_ZN3foo3barEv"
	if got := CachedDemangle(name); got != "foo::bar()" {
		t.Errorf("CachedDemangle = %q", got)
	}
	before := DemangleHits(name)
	CachedDemangle(name)
	if DemangleHits(name) != before+1 {
		t.Error("second lookup missed the cache")
	}
	if got := CachedDemangle("memcpy"); got != "memcpy" {
		t.Errorf("plain name changed to %q", got)
	}
}
