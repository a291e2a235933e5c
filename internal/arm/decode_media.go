package arm

var parallelPrefixes = [8]ParallelPrefix{0, PrefixS, PrefixQ, PrefixSH, 0, PrefixU, PrefixUQ, PrefixUH}

var parallelOps = [8]Opcode{OpADD16, OpASX, OpSAX, OpSUB16, OpADD8, OpInvalid, OpInvalid, OpSUB8}

func (d *Decoder) decodeMedia(in *Instruction, w uint32) bool {
	op1, op2 := field(w, 24, 20), field(w, 7, 5)
	rd, rn, rm := regAt(w, 12), regAt(w, 16), regAt(w, 0)

	if op1 == 0x1F && op2 == 7 {
		// Permanently undefined in every version.
		if in.Cond != AL {
			return false
		}
		in.Op = OpUDF
		in.Mode = ModeImmediate
		in.Args = []Operand{ImmOp(field(w, 19, 8)<<4 | field(w, 3, 0))}
		return true
	}
	if !d.has(FeatureV6) {
		return false
	}
	in.Mode = ModeRegister

	switch {
	case op1 < 0x08:
		pre, op := parallelPrefixes[op1&7], parallelOps[op2]
		if pre == 0 || op == OpInvalid {
			return false
		}
		in.Op, in.Prefix = op, pre
		in.Args = regs(rd, rn, rm)
		return true
	case op1 < 0x10:
		return d.decodePacking(in, w)
	case op1 < 0x18:
		return d.decodeSignedMultiply(in, w)
	case op1 == 0x18 && op2 == 0:
		rd, ra, rm, rn := regAt(w, 16), regAt(w, 12), regAt(w, 8), regAt(w, 0)
		if ra == PC {
			in.Op = OpUSAD8
			in.Args = regs(rd, rn, rm)
		} else {
			in.Op = OpUSADA8
			in.Args = regs(rd, rn, rm, ra)
		}
		return true
	}

	if !d.has(FeatureV6T2) {
		return false
	}
	lsb := field(w, 11, 7)
	hi := field(w, 20, 16)
	switch {
	case op1&0x1E == 0x1A && op2&3 == 2:
		in.Op = OpSBFX
	case op1&0x1E == 0x1E && op2&3 == 2:
		in.Op = OpUBFX
	case op1&0x1E == 0x1C && op2&3 == 0:
		width := uint32(0)
		if hi >= lsb {
			width = hi - lsb + 1
		}
		in.Mode = ModeImmediate
		if rm == PC {
			in.Op = OpBFC
			in.Args = []Operand{RegOp(rd), ImmOp(lsb), ImmOp(width)}
		} else {
			in.Op = OpBFI
			in.Args = []Operand{RegOp(rd), RegOp(rm), ImmOp(lsb), ImmOp(width)}
		}
		return true
	default:
		return false
	}
	in.Mode = ModeImmediate
	in.Args = []Operand{RegOp(rd), RegOp(rm), ImmOp(lsb), ImmOp(hi + 1)}
	return true
}

// extend fills in an extend instruction, choosing the accumulating form
// unless the Rn field is PC.
func extend(in *Instruction, w uint32, acc, plain Opcode) bool {
	rd, rn := regAt(w, 12), regAt(w, 16)
	rot := uint8(field(w, 11, 10) * 8)
	src := RegOp(regAt(w, 0))
	if rot != 0 {
		src = Operand{Kind: KindShiftImm, Reg: src.Reg, Shift: ROR, Amount: rot}
		in.Mode = ModeShiftedImm
	}
	if rn == PC {
		in.Op = plain
		in.Args = []Operand{RegOp(rd), src}
	} else {
		in.Op = acc
		in.Args = []Operand{RegOp(rd), RegOp(rn), src}
	}
	return true
}

// saturate fills in SSAT or USAT.
func saturate(in *Instruction, w uint32, op Opcode, sat uint32) bool {
	s, n := immShift(field(w, 6, 6)<<1, field(w, 11, 7))
	in.Op = op
	in.Mode = ModeShiftedImm
	in.Args = []Operand{RegOp(regAt(w, 12)), ImmOp(sat), ShiftedOp(regAt(w, 0), s, n)}
	if in.Args[2].Kind == KindReg {
		in.Mode = ModeRegister
	}
	return true
}

func (d *Decoder) decodePacking(in *Instruction, w uint32) bool {
	op1, op2 := field(w, 24, 20), field(w, 7, 5)
	rd, rn, rm := regAt(w, 12), regAt(w, 16), regAt(w, 0)

	switch {
	case op1 == 0x08 && op2&1 == 0:
		tb := bit(w, 6)
		s, n := immShift(field(w, 6, 6)<<1, field(w, 11, 7))
		in.Op = OpPKHBT
		if tb {
			in.Op = OpPKHTB
		}
		in.Args = []Operand{RegOp(rd), RegOp(rn), ShiftedOp(rm, s, n)}
		return true
	case op1 == 0x08 && op2 == 3:
		return extend(in, w, OpSXTAB16, OpSXTB16)
	case op1 == 0x08 && op2 == 5:
		in.Op = OpSEL
		in.Args = regs(rd, rn, rm)
		return true
	case op1&0x1E == 0x0A && op2&1 == 0:
		return saturate(in, w, OpSSAT, field(w, 20, 16)+1)
	case op1 == 0x0A && op2 == 1:
		in.Op = OpSSAT16
		in.Args = []Operand{RegOp(rd), ImmOp(field(w, 19, 16) + 1), RegOp(rm)}
		return true
	case op1 == 0x0A && op2 == 3:
		return extend(in, w, OpSXTAB, OpSXTB)
	case op1 == 0x0B && op2 == 1:
		in.Op = OpREV
	case op1 == 0x0B && op2 == 3:
		return extend(in, w, OpSXTAH, OpSXTH)
	case op1 == 0x0B && op2 == 5:
		in.Op = OpREV16
	case op1 == 0x0C && op2 == 3:
		return extend(in, w, OpUXTAB16, OpUXTB16)
	case op1&0x1E == 0x0E && op2&1 == 0:
		return saturate(in, w, OpUSAT, field(w, 20, 16))
	case op1 == 0x0E && op2 == 1:
		in.Op = OpUSAT16
		in.Args = []Operand{RegOp(rd), ImmOp(field(w, 19, 16)), RegOp(rm)}
		return true
	case op1 == 0x0E && op2 == 3:
		return extend(in, w, OpUXTAB, OpUXTB)
	case op1 == 0x0F && op2 == 1:
		if !d.has(FeatureV6T2) {
			return false
		}
		in.Op = OpRBIT
	case op1 == 0x0F && op2 == 3:
		return extend(in, w, OpUXTAH, OpUXTH)
	case op1 == 0x0F && op2 == 5:
		in.Op = OpREVSH
	default:
		return false
	}
	in.Args = regs(rd, rm)
	return true
}

func (d *Decoder) decodeSignedMultiply(in *Instruction, w uint32) bool {
	op1, op2 := field(w, 24, 20), field(w, 7, 5)
	rd, ra, rm, rn := regAt(w, 16), regAt(w, 12), regAt(w, 8), regAt(w, 0)

	pick := func(acc, plain Opcode) bool {
		if ra == PC {
			in.Op = plain
			in.Args = regs(rd, rn, rm)
		} else {
			in.Op = acc
			in.Args = regs(rd, rn, rm, ra)
		}
		return true
	}

	switch {
	case op1 == 0x10 && op2>>1 == 0:
		return pick(OpSMLAD, OpSMUAD)
	case op1 == 0x10 && op2>>1 == 1:
		return pick(OpSMLSD, OpSMUSD)
	case (op1 == 0x11 || op1 == 0x13) && op2 == 0:
		if !d.has(FeatureDivide) || ra != PC {
			return false
		}
		in.Op = OpSDIV
		if op1 == 0x13 {
			in.Op = OpUDIV
		}
		in.Args = regs(rd, rn, rm)
		return true
	case op1 == 0x14 && op2>>1 <= 1:
		in.Op = OpSMLALD
		if op2>>1 == 1 {
			in.Op = OpSMLSLD
		}
		in.Args = regs(ra, rd, rn, rm)
		return true
	case op1 == 0x15 && op2>>1 == 0:
		in.Round = bit(w, 5)
		return pick(OpSMMLA, OpSMMUL)
	case op1 == 0x15 && op2>>1 == 3:
		in.Round = bit(w, 5)
		in.Op = OpSMMLS
		in.Args = regs(rd, rn, rm, ra)
		return true
	}
	return false
}
