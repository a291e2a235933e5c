package arm

// pair returns the second register of a doubleword transfer.
func pair(r Reg) Reg { return r + 1 }

func (d *Decoder) decodeLoadStore(in *Instruction, w uint32) bool {
	p, u, b, wb, l := bit(w, 24), bit(w, 23), bit(w, 22), bit(w, 21), bit(w, 20)
	rn, rt := regAt(w, 16), regAt(w, 12)

	mem := Operand{Kind: KindMem, Base: rn, Sub: !u}
	byReg := bit(w, 25)
	if byReg {
		s, n := immShift(field(w, 6, 5), field(w, 11, 7))
		mem.HasIndex = true
		mem.Index = regAt(w, 0)
		if !(s == LSL && n == 0) {
			mem.Shift, mem.Amount = s, n
		}
	} else {
		mem.Disp = field(w, 11, 0)
	}

	user := !p && wb
	switch {
	case l && b && user:
		in.Op = OpLDRBT
	case l && b:
		in.Op = OpLDRB
	case l && user:
		in.Op = OpLDRT
	case l:
		in.Op = OpLDR
	case b && user:
		in.Op = OpSTRBT
	case b:
		in.Op = OpSTRB
	case user:
		in.Op = OpSTRT
	default:
		in.Op = OpSTR
	}
	if b {
		in.Size = SizeByte
	}
	in.UserMode = user
	in.Mode = addrMode(p, wb)
	in.Writeback = !p || wb
	if !byReg && rn == PC && in.Mode == ModeOffset {
		in.Mode = ModePCRelative
	}
	in.Args = []Operand{RegOp(rt), mem}
	return true
}

func (d *Decoder) decodeExtraLoadStore(in *Instruction, w uint32) bool {
	p, u, imm, wb, l := bit(w, 24), bit(w, 23), bit(w, 22), bit(w, 21), bit(w, 20)
	if !p && wb {
		// Unprivileged halfword forms are not decoded.
		return false
	}
	rn, rt := regAt(w, 16), regAt(w, 12)

	switch op2 := field(w, 6, 5); {
	case op2 == 1:
		in.Op, in.Size = OpSTRH, SizeHalf
		if l {
			in.Op = OpLDRH
		}
	case op2 == 2 && l:
		in.Op, in.Size, in.Signed = OpLDRSB, SizeByte, true
	case op2 == 3 && l:
		in.Op, in.Size, in.Signed = OpLDRSH, SizeHalf, true
	case !d.has(FeatureDSP):
		return false
	case op2 == 2:
		in.Op, in.Size = OpLDRD, SizeDual
	default:
		in.Op, in.Size = OpSTRD, SizeDual
	}

	mem := Operand{Kind: KindMem, Base: rn, Sub: !u}
	if imm {
		mem.Disp = field(w, 11, 8)<<4 | field(w, 3, 0)
	} else {
		mem.HasIndex = true
		mem.Index = regAt(w, 0)
	}
	in.Mode = addrMode(p, wb)
	in.Writeback = !p || wb
	if imm && rn == PC && in.Mode == ModeOffset {
		in.Mode = ModePCRelative
	}
	if in.Size == SizeDual {
		in.Args = []Operand{RegOp(rt), RegOp(pair(rt)), mem}
	} else {
		in.Args = []Operand{RegOp(rt), mem}
	}
	return true
}

func (d *Decoder) decodeSync(in *Instruction, w uint32) bool {
	rn, rt, rt2 := regAt(w, 16), regAt(w, 12), regAt(w, 0)
	mem := Operand{Kind: KindMem, Base: rn}
	in.Mode = ModeOffset

	if !bit(w, 23) {
		if field(w, 21, 20) != 0 {
			return false
		}
		in.Op = OpSWP
		if bit(w, 22) {
			in.Op, in.Size = OpSWPB, SizeByte
		}
		in.Args = []Operand{RegOp(rt), RegOp(rt2), mem}
		return true
	}

	if !d.has(FeatureV6) {
		return false
	}
	op := field(w, 22, 20)
	if op > 1 && !d.has(FeatureV6K) {
		return false
	}
	switch op {
	case 0:
		in.Op = OpSTREX
	case 1:
		in.Op = OpLDREX
	case 2:
		in.Op, in.Size = OpSTREXD, SizeDual
	case 3:
		in.Op, in.Size = OpLDREXD, SizeDual
	case 4:
		in.Op, in.Size = OpSTREXB, SizeByte
	case 5:
		in.Op, in.Size = OpLDREXB, SizeByte
	case 6:
		in.Op, in.Size = OpSTREXH, SizeHalf
	default:
		in.Op, in.Size = OpLDREXH, SizeHalf
	}
	switch {
	case op == 2:
		in.Args = []Operand{RegOp(rt), RegOp(rt2), RegOp(pair(rt2)), mem}
	case op == 3:
		in.Args = []Operand{RegOp(rt), RegOp(pair(rt)), mem}
	case op&1 == 0:
		in.Args = []Operand{RegOp(rt), RegOp(rt2), mem}
	default:
		in.Args = []Operand{RegOp(rt), mem}
	}
	return true
}

func (d *Decoder) decodeBlock(in *Instruction, w uint32) bool {
	list := RegList(field(w, 15, 0))
	if list == 0 {
		return false
	}
	in.Op = OpSTM
	if bit(w, 20) {
		in.Op = OpLDM
	}
	switch field(w, 24, 23) {
	case 0:
		in.Mode = ModeDA
	case 1:
		in.Mode = ModeIA
	case 2:
		in.Mode = ModeDB
	default:
		in.Mode = ModeIB
	}
	in.Writeback = bit(w, 21)
	in.UserMode = bit(w, 22)
	in.Args = []Operand{RegOp(regAt(w, 16)), {Kind: KindList, List: list}}
	return true
}
