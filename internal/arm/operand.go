package arm

import "fmt"

// OperandKind tags the variant held by an Operand.
type OperandKind uint8

const (
	KindNone     OperandKind = iota
	KindReg                  // Reg
	KindImm                  // Imm, Rotated
	KindShiftImm             // Reg shifted by Amount
	KindShiftReg             // Reg shifted by ShiftReg
	KindMem                  // Base with Disp or Index (optionally shifted)
	KindList                 // List
	KindLabel                // Offset from the PC read value
	KindPSR                  // SPSR, Mask
	KindCoproc               // Imm is the coprocessor number
	KindCReg                 // Imm is the coprocessor register number
	KindOption               // Imm is a barrier or endianness option
)

// Shift is a barrel-shifter operation.
type Shift uint8

const (
	LSL Shift = iota
	LSR
	ASR
	ROR
	RRX
)

var shiftNames = [...]string{"lsl", "lsr", "asr", "ror", "rrx"}

func (s Shift) String() string {
	if int(s) < len(shiftNames) {
		return shiftNames[s]
	}
	return "?"
}

// PSR field mask bits as encoded in MSR.
const (
	FieldC uint8 = 1 << iota // control, bits 7:0
	FieldX                   // extension, bits 15:8
	FieldS                   // status, bits 23:16
	FieldF                   // flags, bits 31:24
)

// Operand is a raw operand descriptor as found in the encoding. Only the
// fields relevant to Kind are meaningful.
type Operand struct {
	Kind OperandKind

	Reg     Reg
	Imm     uint32
	Rotated bool // immediate produced by a non-zero rotation

	Shift    Shift
	Amount   uint8 // 1..32; zero means no shift
	ShiftReg Reg

	Base     Reg
	Index    Reg
	HasIndex bool
	Disp     uint32
	Sub      bool // offset is subtracted from the base

	List   RegList
	Offset int32

	SPSR bool
	Mask uint8
}

// RegOp returns a plain register operand.
func RegOp(r Reg) Operand { return Operand{Kind: KindReg, Reg: r} }

// ImmOp returns an immediate operand.
func ImmOp(v uint32) Operand { return Operand{Kind: KindImm, Imm: v} }

// ShiftedOp returns r shifted by a constant amount. A zero amount with LSL
// collapses to a plain register.
func ShiftedOp(r Reg, s Shift, amount uint8) Operand {
	if s == LSL && amount == 0 {
		return RegOp(r)
	}
	return Operand{Kind: KindShiftImm, Reg: r, Shift: s, Amount: amount}
}

// RegShiftedOp returns r shifted by the bottom byte of rs.
func RegShiftedOp(r Reg, s Shift, rs Reg) Operand {
	return Operand{Kind: KindShiftReg, Reg: r, Shift: s, ShiftReg: rs}
}

// Regs returns every core register the operand reads.
func (o Operand) Regs() []Reg {
	switch o.Kind {
	case KindReg, KindShiftImm:
		return []Reg{o.Reg}
	case KindShiftReg:
		return []Reg{o.Reg, o.ShiftReg}
	case KindMem:
		if o.HasIndex {
			return []Reg{o.Base, o.Index}
		}
		return []Reg{o.Base}
	case KindList:
		return o.List.Regs()
	}
	return nil
}

func (o Operand) String() string {
	switch o.Kind {
	case KindReg:
		return o.Reg.String()
	case KindImm:
		return formatImm(o.Imm)
	case KindShiftImm:
		if o.Shift == RRX {
			return fmt.Sprintf("%s, rrx", o.Reg)
		}
		return fmt.Sprintf("%s, %s #%d", o.Reg, o.Shift, o.Amount)
	case KindShiftReg:
		return fmt.Sprintf("%s, %s %s", o.Reg, o.Shift, o.ShiftReg)
	case KindMem:
		return o.memString(ModeOffset)
	case KindList:
		return o.List.String()
	case KindLabel:
		return fmt.Sprintf(".%+d", int64(o.Offset)+PCReadOffset)
	case KindPSR:
		return psrString(o.SPSR, o.Mask)
	case KindCoproc:
		return fmt.Sprintf("p%d", o.Imm)
	case KindCReg:
		return fmt.Sprintf("c%d", o.Imm)
	case KindOption:
		return fmt.Sprintf("#%d", o.Imm)
	}
	return ""
}

func (o Operand) memString(mode AddrMode) string {
	var off string
	sign := ""
	if o.Sub {
		sign = "-"
	}
	switch {
	case o.HasIndex && o.Amount != 0 && o.Shift == RRX:
		off = fmt.Sprintf(", %s%s, rrx", sign, o.Index)
	case o.HasIndex && o.Amount != 0:
		off = fmt.Sprintf(", %s%s, %s #%d", sign, o.Index, o.Shift, o.Amount)
	case o.HasIndex:
		off = fmt.Sprintf(", %s%s", sign, o.Index)
	case o.Disp != 0 || mode == ModePreIndexed:
		off = fmt.Sprintf(", #%s%d", sign, o.Disp)
	}
	switch mode {
	case ModePreIndexed:
		return fmt.Sprintf("[%s%s]!", o.Base, off)
	case ModePostIndexed:
		return fmt.Sprintf("[%s]%s", o.Base, off)
	}
	return fmt.Sprintf("[%s%s]", o.Base, off)
}

func psrString(spsr bool, mask uint8) string {
	s := "cpsr"
	if spsr {
		s = "spsr"
	}
	if mask == 0 {
		return s
	}
	s += "_"
	for i, c := range "cxsf" {
		if mask&(1<<i) != 0 {
			s += string(c)
		}
	}
	return s
}

func formatImm(v uint32) string {
	if v < 10 {
		return fmt.Sprintf("#%d", v)
	}
	return fmt.Sprintf("#%#x", v)
}
