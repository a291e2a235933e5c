package arm

import (
	"encoding/binary"
	"math/bits"
)

// Decoder turns A32 instruction words into Instructions. A Decoder holds
// no mutable state and may be shared between goroutines.
type Decoder struct {
	features Features
}

// NewDecoder returns a decoder for the given extension set.
func NewDecoder(f Features) *Decoder {
	return &Decoder{features: f}
}

// Features returns the extension set used to resolve ambiguous encodings.
func (d *Decoder) Features() Features { return d.features }

func (d *Decoder) has(f Features) bool { return d.features.Has(f) }

// Decode decodes the instruction at the start of buf, which is located at
// addr. It never reads past len(buf).
func (d *Decoder) Decode(buf []byte, addr uint32) (*Instruction, error) {
	if len(buf) < InstructionSize {
		return nil, &DecodeError{Addr: uint64(addr), Err: ErrInsufficientBytes}
	}
	return d.DecodeWord(binary.LittleEndian.Uint32(buf[:InstructionSize]), addr)
}

// DecodeWord decodes a single instruction word.
func (d *Decoder) DecodeWord(w, addr uint32) (*Instruction, error) {
	in := &Instruction{
		Cond:    Cond(w >> 28),
		Address: addr,
		Raw:     w,
		Len:     InstructionSize,
	}
	var ok bool
	if in.Cond == NV {
		in.Cond = AL
		ok = d.decodeUnconditional(in, w)
	} else {
		switch field(w, 27, 25) {
		case 0:
			ok = d.decodeDataMisc(in, w)
		case 1:
			ok = d.decodeDataImm(in, w)
		case 2:
			ok = d.decodeLoadStore(in, w)
		case 3:
			if bit(w, 4) {
				ok = d.decodeMedia(in, w)
			} else {
				ok = d.decodeLoadStore(in, w)
			}
		case 4:
			ok = d.decodeBlock(in, w)
		case 5:
			ok = d.decodeBranch(in, w)
		default:
			ok = d.decodeCoproc(in, w)
		}
	}
	if !ok {
		return nil, invalid(addr, w)
	}
	return in, nil
}

func field(w uint32, hi, lo uint) uint32 {
	return (w >> lo) & (1<<(hi-lo+1) - 1)
}

func bit(w uint32, n uint) bool { return w>>n&1 != 0 }

func regAt(w uint32, lo uint) Reg { return Reg(w >> lo & 0xF) }

func regs(rs ...Reg) []Operand {
	out := make([]Operand, len(rs))
	for i, r := range rs {
		out[i] = RegOp(r)
	}
	return out
}

// immShift decodes the 2-bit shift type and 5-bit amount of an
// immediate-shifted register. LSR/ASR #0 mean #32 and ROR #0 means RRX.
func immShift(typ, imm5 uint32) (Shift, uint8) {
	switch typ {
	case 0:
		return LSL, uint8(imm5)
	case 1, 2:
		if imm5 == 0 {
			return Shift(typ), 32
		}
		return Shift(typ), uint8(imm5)
	}
	if imm5 == 0 {
		return RRX, 1
	}
	return ROR, uint8(imm5)
}

// modifiedImm expands a 12-bit rotated immediate.
func modifiedImm(w uint32) Operand {
	rot := field(w, 11, 8) * 2
	return Operand{
		Kind:    KindImm,
		Imm:     bits.RotateLeft32(field(w, 7, 0), -int(rot)),
		Rotated: rot != 0,
	}
}

func addrMode(p, wb bool) AddrMode {
	switch {
	case !p:
		return ModePostIndexed
	case wb:
		return ModePreIndexed
	}
	return ModeOffset
}

func (d *Decoder) decodeDataMisc(in *Instruction, w uint32) bool {
	op1 := field(w, 24, 20)
	switch {
	case field(w, 7, 4) == 0x9:
		if op1&0x10 == 0 {
			return d.decodeMultiply(in, w)
		}
		return d.decodeSync(in, w)
	case bit(w, 7) && bit(w, 4):
		return d.decodeExtraLoadStore(in, w)
	case op1&0x19 == 0x10:
		if !bit(w, 7) {
			return d.decodeMisc(in, w)
		}
		return d.decodeHalfMultiply(in, w)
	}
	return d.decodeDataProc(in, w, false)
}

func (d *Decoder) decodeDataImm(in *Instruction, w uint32) bool {
	switch field(w, 24, 20) {
	case 0x10, 0x14:
		if !d.has(FeatureV6T2) {
			return false
		}
		in.Op = OpMOVW
		if bit(w, 22) {
			in.Op = OpMOVT
		}
		in.Mode = ModeImmediate
		in.Args = []Operand{RegOp(regAt(w, 12)), ImmOp(field(w, 19, 16)<<12 | field(w, 11, 0))}
		return true
	case 0x12, 0x16:
		return d.decodeMSRImm(in, w)
	}
	return d.decodeDataProc(in, w, true)
}

func (d *Decoder) decodeDataProc(in *Instruction, w uint32, imm bool) bool {
	in.Op = OpAND + Opcode(field(w, 24, 21))
	in.SetFlags = bit(w, 20)
	rd, rn := regAt(w, 12), regAt(w, 16)

	var op2 Operand
	switch {
	case imm:
		op2 = modifiedImm(w)
		in.Mode = ModeImmediate
	case bit(w, 4):
		op2 = RegShiftedOp(regAt(w, 0), Shift(field(w, 6, 5)), regAt(w, 8))
		in.Mode = ModeShiftedReg
	default:
		s, n := immShift(field(w, 6, 5), field(w, 11, 7))
		op2 = ShiftedOp(regAt(w, 0), s, n)
		in.Mode = ModeShiftedImm
		if op2.Kind == KindReg {
			in.Mode = ModeRegister
		}
	}

	switch in.Op {
	case OpTST, OpTEQ, OpCMP, OpCMN:
		in.Args = []Operand{RegOp(rn), op2}
	case OpMOV, OpMVN:
		in.Args = []Operand{RegOp(rd), op2}
	default:
		in.Args = []Operand{RegOp(rd), RegOp(rn), op2}
	}
	return true
}

func (d *Decoder) decodeMSRImm(in *Instruction, w uint32) bool {
	mask := uint8(field(w, 19, 16))
	spsr := bit(w, 22)
	if !spsr && mask == 0 {
		// Hints share the encoding with an MSR that writes no fields.
		if !d.has(FeatureV6K) {
			return false
		}
		hint := field(w, 7, 0)
		switch {
		case hint < 5:
			in.Op = [...]Opcode{OpNOP, OpYIELD, OpWFE, OpWFI, OpSEV}[hint]
		case hint&0xF0 == 0xF0 && d.has(FeatureV7):
			in.Op = OpDBG
			in.Args = []Operand{ImmOp(hint & 0xF)}
		default:
			in.Op = OpNOP
		}
		return true
	}
	if mask == 0 {
		return false
	}
	in.Op = OpMSR
	in.Mode = ModeImmediate
	in.Args = []Operand{{Kind: KindPSR, SPSR: spsr, Mask: mask}, modifiedImm(w)}
	return true
}

func (d *Decoder) decodeMultiply(in *Instruction, w uint32) bool {
	hi, lo := regAt(w, 16), regAt(w, 12)
	rs, rm := regAt(w, 8), regAt(w, 0)
	in.SetFlags = bit(w, 20)
	in.Mode = ModeRegister
	switch field(w, 23, 21) {
	case 0:
		in.Op = OpMUL
		in.Args = regs(hi, rm, rs)
	case 1:
		in.Op = OpMLA
		in.Args = regs(hi, rm, rs, lo)
	case 2:
		if !d.has(FeatureV6) || in.SetFlags {
			return false
		}
		in.Op = OpUMAAL
		in.Args = regs(lo, hi, rm, rs)
	case 3:
		if !d.has(FeatureV6T2) || in.SetFlags {
			return false
		}
		in.Op = OpMLS
		in.Args = regs(hi, rm, rs, lo)
	default:
		in.Op = [...]Opcode{OpUMULL, OpUMLAL, OpSMULL, OpSMLAL}[field(w, 22, 21)]
		in.Args = regs(lo, hi, rm, rs)
	}
	return true
}

func (d *Decoder) decodeHalfMultiply(in *Instruction, w uint32) bool {
	if !d.has(FeatureDSP) {
		return false
	}
	rd, ra := regAt(w, 16), regAt(w, 12)
	rm, rn := regAt(w, 8), regAt(w, 0)
	in.Top = [2]bool{bit(w, 5), bit(w, 6)}
	in.Mode = ModeRegister
	switch field(w, 22, 21) {
	case 0:
		in.Op = OpSMLAxy
		in.Args = regs(rd, rn, rm, ra)
	case 1:
		in.Top[0] = false
		if bit(w, 5) {
			in.Op = OpSMULWy
			in.Args = regs(rd, rn, rm)
		} else {
			in.Op = OpSMLAWy
			in.Args = regs(rd, rn, rm, ra)
		}
	case 2:
		in.Op = OpSMLALxy
		in.Args = regs(ra, rd, rn, rm)
	case 3:
		in.Op = OpSMULxy
		in.Args = regs(rd, rn, rm)
	}
	return true
}

func (d *Decoder) decodeMisc(in *Instruction, w uint32) bool {
	op := field(w, 22, 21)
	rd, rm := regAt(w, 12), regAt(w, 0)
	in.Mode = ModeRegister
	switch field(w, 6, 4) {
	case 0:
		spsr := bit(w, 22)
		if op&1 == 0 {
			in.Op = OpMRS
			in.Args = []Operand{RegOp(rd), {Kind: KindPSR, SPSR: spsr}}
			return true
		}
		mask := uint8(field(w, 19, 16))
		if mask == 0 {
			return false
		}
		in.Op = OpMSR
		in.Args = []Operand{{Kind: KindPSR, SPSR: spsr, Mask: mask}, RegOp(rm)}
		return true
	case 1:
		switch {
		case op == 1 && d.has(FeatureThumbInterwork):
			in.Op = OpBX
			in.Args = regs(rm)
			return true
		case op == 3 && d.has(FeatureV5T):
			in.Op = OpCLZ
			in.Args = regs(rd, rm)
			return true
		}
	case 2:
		if op == 1 && d.has(FeatureJazelle) {
			in.Op = OpBXJ
			in.Args = regs(rm)
			return true
		}
	case 3:
		if op == 1 && d.has(FeatureV5T) {
			in.Op = OpBLX
			in.Args = regs(rm)
			return true
		}
	case 5:
		if d.has(FeatureDSP) {
			in.Op = [...]Opcode{OpQADD, OpQSUB, OpQDADD, OpQDSUB}[op]
			in.Args = regs(rd, rm, regAt(w, 16))
			return true
		}
	case 7:
		in.Mode = ModeImmediate
		switch {
		case op == 1 && d.has(FeatureV5T):
			in.Op = OpBKPT
			in.Args = []Operand{ImmOp(field(w, 19, 8)<<4 | field(w, 3, 0))}
			return true
		case op == 3 && d.has(FeatureV6K):
			in.Op = OpSMC
			in.Args = []Operand{ImmOp(field(w, 3, 0))}
			return true
		}
	}
	return false
}
