package arm

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"golang.org/x/arch/arm/armasm"
)

func word(w uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], w)
	return b[:]
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		word uint32
		addr uint32
		op   Opcode
		text string
	}{
		{0xE0810002, 0, OpADD, "add r0, r1, r2"},
		{0xE0910002, 0, OpADD, "adds r0, r1, r2"},
		{0x00810002, 0, OpADD, "addeq r0, r1, r2"},
		{0xE3A00001, 0, OpMOV, "mov r0, #1"},
		{0xE1A0F00E, 0, OpMOV, "mov pc, lr"},
		{0xE1A00211, 0, OpMOV, "mov r0, r1, lsl r2"},
		{0xE1500001, 0, OpCMP, "cmp r0, r1"},
		{0xE12FFF1E, 0, OpBX, "bx lr"},
		{0xE12FFF31, 0, OpBLX, "blx r1"},
		{0xE92D4010, 0, OpSTM, "stmdb sp!, {r4, lr}"},
		{0xE8BD8010, 0, OpLDM, "ldm sp!, {r4, pc}"},
		{0xE8DD8000, 0, OpLDM, "ldm sp, {pc}^"},
		{0xEA000002, 0x1000, OpB, "b 0x1010"},
		{0xFA000000, 0x1000, OpBLX, "blx 0x1008"},
		{0xE5912004, 0, OpLDR, "ldr r2, [r1, #4]"},
		{0xE4912004, 0, OpLDR, "ldr r2, [r1], #4"},
		{0xE5B12004, 0, OpLDR, "ldr r2, [r1, #4]!"},
		{0xE59F0008, 0, OpLDR, "ldr r0, [pc, #8]"},
		{0xE1C020D0, 0, OpLDRD, "ldrd r2, r3, [r0]"},
		{0xE1D000B0, 0, OpLDRH, "ldrh r0, [r0]"},
		{0xE0000291, 0, OpMUL, "mul r0, r1, r2"},
		{0xE0843291, 0, OpUMULL, "umull r3, r4, r1, r2"},
		{0xE1600281, 0, OpSMULxy, "smulbb r0, r1, r2"},
		{0xE16F0F11, 0, OpCLZ, "clz r0, r1"},
		{0xE1020051, 0, OpQADD, "qadd r0, r1, r2"},
		{0xE320F000, 0, OpNOP, "nop"},
		{0xE320F003, 0, OpWFI, "wfi"},
		{0xE7F000F0, 0, OpUDF, "udf #0"},
		{0xEF000000, 0, OpSVC, "svc #0"},
		{0xE1200070, 0, OpBKPT, "bkpt #0"},
		{0xE1600070, 0, OpSMC, "smc #0"},
		{0xE10F0000, 0, OpMRS, "mrs r0, cpsr"},
		{0xE129F000, 0, OpMSR, "msr cpsr_cf, r0"},
		{0xE3011234, 0, OpMOVW, "movw r1, #0x1234"},
		{0xE3401000, 0, OpMOVT, "movt r1, #0"},
		{0xE6AF0071, 0, OpSXTB, "sxtb r0, r1"},
		{0xE6FF0071, 0, OpUXTH, "uxth r0, r1"},
		{0xE6BF0F31, 0, OpREV, "rev r0, r1"},
		{0xE7E10251, 0, OpUBFX, "ubfx r0, r1, #4, #2"},
		{0xE1900F9F, 0, OpLDREX, "ldrex r0, [r0]"},
		{0xE1810F92, 0, OpSTREX, "strex r0, r2, [r1]"},
		{0xE1010092, 0, OpSWP, "swp r0, r2, [r1]"},
		{0xE6810012, 0, OpPKHBT, "pkhbt r0, r1, r2"},
		{0xE6810FB2, 0, OpSEL, "sel r0, r1, r2"},
		{0xF57FF05F, 0, OpDMB, "dmb #15"},
		{0xF57FF04F, 0, OpDSB, "dsb #15"},
		{0xF57FF06F, 0, OpISB, "isb #15"},
		{0xF57FF01F, 0, OpCLREX, "clrex"},
		{0xF5D1F000, 0, OpPLD, "pld [r1]"},
		{0xEE070F15, 0, OpMCR, "mcr p15, #0, r0, c7, c5, #0"},
		{0xEE100F10, 0, OpMRC, "mrc p15, #0, r0, c0, c0, #0"},
		{0xEE000000, 0, OpCDP, "cdp p0, #0, c0, c0, c0, #0"},
	}

	d := NewDecoder(ARMv7VE.Features())
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			in, err := d.Decode(word(tt.word), tt.addr)
			if err != nil {
				t.Fatalf("Decode(%08x) failed: %v", tt.word, err)
			}
			if in.Op != tt.op {
				t.Errorf("Op = %v, want %v", in.Op, tt.op)
			}
			if in.Len != InstructionSize {
				t.Errorf("Len = %d, want %d", in.Len, InstructionSize)
			}
			if got := in.String(); got != tt.text {
				t.Errorf("String() = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestDecodeFields(t *testing.T) {
	d := NewDecoder(ARMv7.Features())

	in, err := d.Decode(word(0x00810002), 0)
	if err != nil {
		t.Fatal(err)
	}
	if in.Cond != EQ || !in.Cond.Conditional() {
		t.Errorf("Cond = %v, want eq", in.Cond)
	}

	in, err = d.Decode(word(0xE8BD8010), 0)
	if err != nil {
		t.Fatal(err)
	}
	if in.Mode != ModeIA || !in.Writeback {
		t.Errorf("ldm mode %v writeback %v", in.Mode, in.Writeback)
	}
	if l := in.Args[1].List; !l.Has(R4) || !l.Has(PC) || l.Len() != 2 {
		t.Errorf("list = %v", l)
	}

	in, err = d.Decode(word(0xE4912004), 0)
	if err != nil {
		t.Fatal(err)
	}
	if in.Mode != ModePostIndexed || !in.Writeback || in.Args[1].Disp != 4 {
		t.Errorf("post-indexed ldr: mode %v writeback %v disp %d", in.Mode, in.Writeback, in.Args[1].Disp)
	}

	in, err = d.Decode(word(0xE59F0008), 0)
	if err != nil {
		t.Fatal(err)
	}
	if in.Mode != ModePCRelative {
		t.Errorf("literal load mode = %v", in.Mode)
	}

	in, err = d.Decode(word(0xEAFFFFFE), 0x2000)
	if err != nil {
		t.Fatal(err)
	}
	if target, ok := in.Target(); !ok || target != 0x2000 {
		t.Errorf("Target() = %#x, %v; want 0x2000", target, ok)
	}
}

func TestVariantTieBreaks(t *testing.T) {
	tests := []struct {
		name    string
		word    uint32
		invalid Variant
		valid   Variant
	}{
		{"bx needs interworking", 0xE12FFF1E, ARMv4, ARMv4T},
		{"blx immediate needs v5t", 0xFA000000, ARMv4T, ARMv5T},
		{"ldrd needs dsp", 0xE1C020D0, ARMv5T, ARMv5TE},
		{"nop hint needs v6k", 0xE320F000, ARMv6, ARMv6K},
		{"movw needs v6t2", 0xE3011234, ARMv6K, ARMv6T2},
		{"dmb needs v7", 0xF57FF05F, ARMv6T2, ARMv7},
		{"sdiv needs the divide extension", 0xE710F211, ARMv7, ARMv7VE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDecoder(tt.invalid.Features()).DecodeWord(tt.word, 0)
			if !errors.Is(err, ErrInvalidEncoding) {
				t.Errorf("%v: err = %v, want ErrInvalidEncoding", tt.invalid, err)
			}
			if _, err := NewDecoder(tt.valid.Features()).DecodeWord(tt.word, 0); err != nil {
				t.Errorf("%v: unexpected error %v", tt.valid, err)
			}
		})
	}
}

func TestDecodeInsufficientBytes(t *testing.T) {
	d := NewDecoder(DefaultVariant.Features())
	buf := word(0xE0810002)
	for n := 0; n < InstructionSize; n++ {
		_, err := d.Decode(buf[:n], 0x100)
		if !errors.Is(err, ErrInsufficientBytes) {
			t.Errorf("len %d: err = %v, want ErrInsufficientBytes", n, err)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Addr != 0x100 {
			t.Errorf("len %d: err = %#v, want DecodeError at 0x100", n, err)
		}
	}
}

// Every word either decodes to a four-byte instruction or is rejected as
// invalid, for every variant.
func TestDecodeTotal(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, v := range Variants() {
		d := NewDecoder(v.Features())
		for i := 0; i < 1<<14; i++ {
			w := r.Uint32()
			in, err := d.DecodeWord(w, 0x8000)
			if err != nil {
				if !errors.Is(err, ErrInvalidEncoding) {
					t.Fatalf("%v %08x: unexpected error %v", v, w, err)
				}
				continue
			}
			if in.Len != InstructionSize {
				t.Fatalf("%v %08x: Len = %d", v, w, in.Len)
			}
			if in.Op == OpInvalid || in.Op >= NumOpcodes {
				t.Fatalf("%v %08x: opcode %d", v, w, in.Op)
			}
			_ = in.String()
		}
	}
}

// Framing agrees with an independent disassembler: consecutive decodes
// land on the boundaries it reports.
func TestFramingMatchesArmasm(t *testing.T) {
	words := []uint32{
		0xE0810002, 0xE2411001, 0xE3A00001, 0xE1500001, 0xE5912004,
		0xE5812004, 0xE1D000B0, 0xE0000291, 0xEA000002, 0xEB000010, 0xE12FFF1E,
	}
	var code []byte
	for _, w := range words {
		code = append(code, word(w)...)
	}

	d := NewDecoder(DefaultVariant.Features())
	for off := 0; off < len(code); {
		in, err := d.Decode(code[off:], uint32(off))
		if err != nil {
			t.Fatalf("offset %d: %v", off, err)
		}
		ref, err := armasm.Decode(code[off:], armasm.ModeARM)
		if err != nil {
			t.Fatalf("armasm at offset %d: %v", off, err)
		}
		if ref.Len != in.Len {
			t.Fatalf("offset %d: Len = %d, armasm %d", off, in.Len, ref.Len)
		}
		if text := armasm.GNUSyntax(ref); !strings.HasPrefix(text, in.Op.String()) {
			t.Errorf("offset %d: opcode %s, armasm %q", off, in.Op, text)
		}
		off += in.Len
	}
}
