package ir

// Cond is a condition over the N, Z, C and V flags of a FlagGroup. C is
// the carry out of an addition, so a subtraction x - y computed as
// x + ^y + 1 leaves C set when there was no borrow.
type Cond uint8

const (
	EQ  Cond = iota // Z
	NE              // !Z
	UGE             // C
	ULT             // !C
	NEG             // N
	POS             // !N
	OV              // V
	NOV             // !V
	UGT             // C && !Z
	ULE             // !C || Z
	GE              // N == V
	LT              // N != V
	GT              // !Z && N == V
	LE              // Z || N != V
)

var condNames = [...]string{
	"EQ", "NE", "UGE", "ULT", "NEG", "POS", "OV", "NOV",
	"UGT", "ULE", "GE", "LT", "GT", "LE",
}

func (c Cond) String() string {
	if int(c) < len(condNames) {
		return condNames[c]
	}
	return "?"
}

// Invert returns the negated condition.
func (c Cond) Invert() Cond { return c ^ 1 }

// Holds evaluates c for the given flag values.
func (c Cond) Holds(n, z, cy, v bool) bool {
	switch c {
	case EQ:
		return z
	case NE:
		return !z
	case UGE:
		return cy
	case ULT:
		return !cy
	case NEG:
		return n
	case POS:
		return !n
	case OV:
		return v
	case NOV:
		return !v
	case UGT:
		return cy && !z
	case ULE:
		return !cy || z
	case GE:
		return n == v
	case LT:
		return n != v
	case GT:
		return !z && n == v
	case LE:
		return z || n != v
	}
	return false
}

// FlagGroup names the four condition flags inside a status register.
type FlagGroup struct {
	N, Z, C, V *Flag
}

// Name returns the concatenated flag names, e.g. "NZCV".
func (g *FlagGroup) Name() string {
	return g.N.Name + g.Z.Name + g.C.Name + g.V.Name
}
