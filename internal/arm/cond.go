// Package arm decodes 32-bit ARM (A32) machine code into structured
// instruction records. Decoding is a pure function of the instruction
// word, its address and the architecture feature set.
package arm

// Cond is the 4-bit condition field of an A32 instruction.
type Cond uint8

const (
	EQ Cond = iota // Z set
	NE             // Z clear
	CS             // C set (HS)
	CC             // C clear (LO)
	MI             // N set
	PL             // N clear
	VS             // V set
	VC             // V clear
	HI             // C set and Z clear
	LS             // C clear or Z set
	GE             // N == V
	LT             // N != V
	GT             // Z clear and N == V
	LE             // Z set or N != V
	AL             // always
	NV             // unconditional instruction space
)

var condNames = [...]string{
	"eq", "ne", "cs", "cc", "mi", "pl", "vs", "vc",
	"hi", "ls", "ge", "lt", "gt", "le", "al", "nv",
}

func (c Cond) String() string {
	if int(c) < len(condNames) {
		return condNames[c]
	}
	return "?"
}

// Suffix returns the mnemonic suffix for c: empty for AL and NV.
func (c Cond) Suffix() string {
	if c >= AL {
		return ""
	}
	return condNames[c]
}

// Conditional reports whether execution depends on the flags.
func (c Cond) Conditional() bool { return c < AL }

// Invert returns the opposite condition. AL and NV are returned unchanged.
func (c Cond) Invert() Cond {
	if c >= AL {
		return c
	}
	return c ^ 1
}
