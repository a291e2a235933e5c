package llvmexport

import (
	"encoding/binary"
	"strings"
	"testing"

	"armlift/internal/arm"
	"armlift/internal/host"
	"armlift/internal/rewriter"
)

func lift(t *testing.T, addr uint64, symbols map[uint64]string, words ...uint32) []rewriter.Lifted {
	t.Helper()
	raw := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[4*i:], w)
	}
	ls, err := rewriter.Lift(raw, addr, host.NewStatic(arm.ARMv7, host.WithSymbols(symbols)))
	if err != nil {
		t.Fatal(err)
	}
	return ls
}

func TestLower(t *testing.T) {
	tests := []struct {
		name  string
		addr  uint64
		syms  map[uint64]string
		words []uint32
		want  []string
	}{
		{
			name: "conditional add",
			addr: 0x1000,
			// cmp r0, #0; addeq r0, r0, #1; bx lr
			words: []uint32{0xE3500000, 0x02800001, 0xE12FFF1E},
			want: []string{
				"@r0 = global i32 0",
				"@cpsr = global i32 0",
				"define void @f()",
				"block_00001000:",
				"br label %block_00001004",
				"br i1",
				"ret void",
			},
		},
		{
			name:  "loop",
			addr:  0x2000,
			words: []uint32{0xEAFFFFFE}, // b .
			want:  []string{"br label %block_00002000"},
		},
		{
			name: "call and exit",
			addr: 0x1000,
			syms: map[uint64]string{0x1048: "helper"},
			// bl helper; b 0x3000
			words: []uint32{0xEB000010, 0xEA0007FD},
			want: []string{
				"call void @helper()",
				"call void @__arm_goto(i32 12288)",
				"declare void @helper()",
			},
		},
		{
			name:  "unsupported",
			addr:  0x1000,
			words: []uint32{0xE6810FB2}, // sel r0, r1, r2
			want:  []string{"call void @__arm_unsupported(i32 4096)"},
		},
		{
			name:  "shift carry",
			addr:  0x1000,
			words: []uint32{0xE1B00211}, // movs r0, r1, lsl r2
			want:  []string{"select i1", "zext i32"},
		},
		{
			name:  "rotate",
			addr:  0x1000,
			words: []uint32{0xE1A00271}, // mov r0, r1, ror r2
			want:  []string{"declare i32 @llvm.fshr.i32(", "call i32 @llvm.fshr.i32("},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, err := Lower("f", lift(t, tt.addr, tt.syms, tt.words...))
			if err != nil {
				t.Fatal(err)
			}
			out := mod.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("module lacks %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestAddFunctionErrors(t *testing.T) {
	if _, err := Lower("empty", nil); err == nil {
		t.Error("lowering nothing succeeded")
	}
	mod := NewModule()
	ls := lift(t, 0x1000, nil, 0xE12FFF1E)
	if _, err := mod.AddFunction("f", ls); err != nil {
		t.Fatal(err)
	}
	if _, err := mod.AddFunction("f", ls); err == nil {
		t.Error("second definition of f succeeded")
	}
	if _, err := mod.AddFunction("g", append(ls, ls...)); err == nil {
		t.Error("duplicate address succeeded")
	}
}
