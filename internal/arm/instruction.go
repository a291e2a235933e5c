package arm

import (
	"fmt"
	"strings"
)

const (
	// InstructionSize is the length of every A32 encoding.
	InstructionSize = 4
	// PCReadOffset is added to an instruction's own address when it reads
	// PC in ARM state.
	PCReadOffset = 8
)

// AddrMode tags how an instruction forms its operand or address.
type AddrMode uint8

const (
	ModeNone AddrMode = iota
	ModeImmediate
	ModeRegister
	ModeShiftedImm
	ModeShiftedReg
	ModeOffset
	ModePreIndexed
	ModePostIndexed
	ModeIA
	ModeIB
	ModeDA
	ModeDB
	ModePCRelative
)

var modeNames = [...]string{
	"none", "imm", "reg", "shifted-imm", "shifted-reg",
	"offset", "pre-indexed", "post-indexed",
	"ia", "ib", "da", "db", "pc-relative",
}

func (m AddrMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "?"
}

// Size is the access width of a load or store.
type Size uint8

const (
	SizeWord Size = iota
	SizeByte
	SizeHalf
	SizeDual
)

// Bytes returns the number of bytes accessed per register.
func (s Size) Bytes() int {
	switch s {
	case SizeByte:
		return 1
	case SizeHalf:
		return 2
	}
	return 4
}

// Instruction is one decoded A32 instruction.
type Instruction struct {
	Op        Opcode
	Cond      Cond
	SetFlags  bool
	Args      []Operand
	Mode      AddrMode
	Size      Size
	Signed    bool
	Writeback bool
	UserMode  bool // LDM/STM with ^, LDRT/STRT

	// Halfword selectors of the signed 16-bit multiplies: [0] picks the
	// top half of the first source, [1] of the second.
	Top [2]bool
	// Round is the R bit of SMMUL/SMMLA/SMMLS.
	Round  bool
	Prefix ParallelPrefix

	Address uint32
	Raw     uint32
	Len     int
}

// Arg returns operand i, or a KindNone operand if there is none.
func (in *Instruction) Arg(i int) Operand {
	if i < len(in.Args) {
		return in.Args[i]
	}
	return Operand{}
}

// Target returns the absolute destination of a PC-relative branch.
func (in *Instruction) Target() (uint32, bool) {
	for _, a := range in.Args {
		if a.Kind == KindLabel {
			return in.Address + PCReadOffset + uint32(a.Offset), true
		}
	}
	return 0, false
}

// Mnemonic renders the opcode with its variant, S and condition suffixes.
func (in *Instruction) Mnemonic() string {
	name := in.Op.String()
	switch in.Op {
	case OpSMLAxy, OpSMULxy, OpSMLALxy:
		name += half(in.Top[0]) + half(in.Top[1])
	case OpSMLAWy, OpSMULWy:
		name += half(in.Top[1])
	case OpSMMUL, OpSMMLA, OpSMMLS:
		if in.Round {
			name += "r"
		}
	case OpADD16, OpASX, OpSAX, OpSUB16, OpADD8, OpSUB8:
		name = in.Prefix.String() + name
	case OpLDM, OpSTM:
		if in.Mode != ModeIA {
			name += in.Mode.String()
		}
	}
	if in.SetFlags && !isCompare(in.Op) {
		name += "s"
	}
	return name + in.Cond.Suffix()
}

func half(top bool) string {
	if top {
		return "t"
	}
	return "b"
}

func isCompare(op Opcode) bool {
	return op == OpTST || op == OpTEQ || op == OpCMP || op == OpCMN
}

func (in *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Mnemonic())
	for i, a := range in.Args {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		switch a.Kind {
		case KindMem:
			sb.WriteString(a.memString(in.Mode))
		case KindLabel:
			t, _ := in.Target()
			fmt.Fprintf(&sb, "%#x", t)
		case KindReg:
			sb.WriteString(a.Reg.String())
			if (in.Op == OpLDM || in.Op == OpSTM) && i == 0 && in.Writeback {
				sb.WriteByte('!')
			}
		case KindList:
			sb.WriteString(a.String())
			if in.UserMode {
				sb.WriteByte('^')
			}
		default:
			sb.WriteString(a.String())
		}
	}
	return sb.String()
}
