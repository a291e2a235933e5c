package arm

func branchOffset(w uint32) int32 {
	return int32(w<<8) >> 6
}

func (d *Decoder) decodeBranch(in *Instruction, w uint32) bool {
	in.Op = OpB
	if bit(w, 24) {
		in.Op = OpBL
	}
	in.Mode = ModePCRelative
	in.Args = []Operand{{Kind: KindLabel, Offset: branchOffset(w)}}
	return true
}

func (d *Decoder) decodeCoproc(in *Instruction, w uint32) bool {
	cp := Operand{Kind: KindCoproc, Imm: field(w, 11, 8)}
	creg := func(lo uint) Operand { return Operand{Kind: KindCReg, Imm: field(w, lo+3, lo)} }

	if field(w, 27, 24) == 0xF {
		in.Op = OpSVC
		in.Mode = ModeImmediate
		in.Args = []Operand{ImmOp(field(w, 23, 0))}
		return true
	}
	if field(w, 27, 24) == 0xE {
		if !bit(w, 4) {
			in.Op = OpCDP
			in.Args = []Operand{cp, ImmOp(field(w, 23, 20)), creg(12), creg(16), creg(0), ImmOp(field(w, 7, 5))}
			return true
		}
		in.Op = OpMCR
		if bit(w, 20) {
			in.Op = OpMRC
		}
		in.Mode = ModeRegister
		in.Args = []Operand{cp, ImmOp(field(w, 23, 21)), RegOp(regAt(w, 12)), creg(16), creg(0), ImmOp(field(w, 7, 5))}
		return true
	}

	p, u, wb := bit(w, 24), bit(w, 23), bit(w, 21)
	if field(w, 24, 21) == 0x2 {
		if !d.has(FeatureDSP) {
			return false
		}
		in.Op = OpMCRR
		if bit(w, 20) {
			in.Op = OpMRRC
		}
		in.Mode = ModeRegister
		in.Args = []Operand{cp, ImmOp(field(w, 7, 4)), RegOp(regAt(w, 12)), RegOp(regAt(w, 16)), creg(0)}
		return true
	}
	if !p && !u && !wb {
		return false
	}
	in.Op = OpSTC
	if bit(w, 20) {
		in.Op = OpLDC
	}
	mem := Operand{Kind: KindMem, Base: regAt(w, 16), Disp: field(w, 7, 0) * 4, Sub: !u}
	in.Mode = addrMode(p, wb)
	in.Writeback = wb
	if !p && !wb {
		// Unindexed: the offset field is a coprocessor option.
		in.Mode = ModeOffset
		mem.Disp, mem.Sub = 0, false
	}
	in.Args = []Operand{cp, creg(12), mem}
	return true
}

func (d *Decoder) decodeUnconditional(in *Instruction, w uint32) bool {
	if !d.has(FeatureV5T) {
		return false
	}
	op1 := field(w, 27, 20)
	switch {
	case field(w, 27, 25) == 5:
		in.Op = OpBLX
		in.Mode = ModePCRelative
		off := branchOffset(w)
		if bit(w, 24) {
			off |= 2
		}
		in.Args = []Operand{{Kind: KindLabel, Offset: off}}
		return true

	case op1 == 0x10:
		if !d.has(FeatureV6) {
			return false
		}
		if bit(w, 16) {
			if field(w, 7, 4) != 0 {
				return false
			}
			in.Op = OpSETEND
			in.Args = []Operand{{Kind: KindOption, Imm: field(w, 9, 9)}}
			return true
		}
		in.Op = OpCPS
		in.Mode = ModeImmediate
		in.Args = []Operand{ImmOp(field(w, 19, 18)), ImmOp(field(w, 8, 6)), ImmOp(field(w, 4, 0))}
		return true

	case op1 == 0x57:
		opt := Operand{Kind: KindOption, Imm: field(w, 3, 0)}
		switch field(w, 7, 4) {
		case 1:
			if !d.has(FeatureV6K) {
				return false
			}
			in.Op = OpCLREX
			return true
		case 4, 5, 6:
			if !d.has(FeatureV7) {
				return false
			}
			in.Op = [...]Opcode{OpDSB, OpDMB, OpISB}[field(w, 7, 4)-4]
			in.Args = []Operand{opt}
			return true
		}
		return false

	case field(w, 27, 24)&0xD == 0x5 && field(w, 21, 20) == 1:
		if !d.has(FeatureDSP) || (!bit(w, 22) && !d.has(FeatureV7)) {
			return false
		}
		return preload(in, w, OpPLD)

	case field(w, 27, 24)&0xD == 0x4 && field(w, 22, 20) == 5:
		if !d.has(FeatureV7) {
			return false
		}
		return preload(in, w, OpPLI)

	case field(w, 27, 25) == 4:
		if !d.has(FeatureV6) {
			return false
		}
		p, u := bit(w, 24), bit(w, 23)
		switch {
		case p && u:
			in.Mode = ModeIB
		case u:
			in.Mode = ModeIA
		case p:
			in.Mode = ModeDB
		default:
			in.Mode = ModeDA
		}
		in.Writeback = bit(w, 21)
		switch {
		case bit(w, 22) && !bit(w, 20):
			in.Op = OpSRS
			in.Args = []Operand{RegOp(SP), ImmOp(field(w, 4, 0))}
			return true
		case !bit(w, 22) && bit(w, 20):
			in.Op = OpRFE
			in.Args = []Operand{RegOp(regAt(w, 16))}
			return true
		}
		return false

	case field(w, 27, 25) == 6 || field(w, 27, 24) == 0xE:
		return d.decodeCoproc(in, w)
	}
	return false
}

func preload(in *Instruction, w uint32, op Opcode) bool {
	mem := Operand{Kind: KindMem, Base: regAt(w, 16), Sub: !bit(w, 23)}
	in.Op = op
	in.Mode = ModeOffset
	if bit(w, 25) {
		if bit(w, 4) {
			return false
		}
		s, n := immShift(field(w, 6, 5), field(w, 11, 7))
		mem.HasIndex = true
		mem.Index = regAt(w, 0)
		if !(s == LSL && n == 0) {
			mem.Shift, mem.Amount = s, n
		}
	} else {
		mem.Disp = field(w, 11, 0)
		if mem.Base == PC {
			in.Mode = ModePCRelative
		}
	}
	in.Args = []Operand{mem}
	return true
}
