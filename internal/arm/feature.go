package arm

import (
	"fmt"
	"strings"
)

// Features is a set of architecture extensions. The decoder consults it
// whenever an encoding's meaning depends on the architecture version.
type Features uint32

const (
	FeatureThumbInterwork Features = 1 << iota // BX, v4T
	FeatureV5T                                 // BLX, CLZ, BKPT, unconditional space
	FeatureDSP                                 // v5TE: LDRD/STRD, Q-arithmetic, halfword multiplies, PLD, MCRR
	FeatureJazelle                             // BXJ
	FeatureV6                                  // media instructions, LDREX/STREX, REV, CPS/SRS/RFE
	FeatureV6K                                 // hints, CLREX, byte/half/dual exclusives, SMC
	FeatureV6T2                                // MOVW/MOVT, MLS, RBIT, bitfields, LDRHT
	FeatureV7                                  // barriers, PLI, DBG
	FeatureDivide                              // SDIV/UDIV
)

// Has reports whether all features in want are present.
func (f Features) Has(want Features) bool { return f&want == want }

// Variant names an architecture version.
type Variant uint8

const (
	ARMv4 Variant = iota
	ARMv4T
	ARMv5T
	ARMv5TE
	ARMv5TEJ
	ARMv6
	ARMv6K
	ARMv6T2
	ARMv7
	ARMv7VE
)

var variants = [...]struct {
	name     string
	features Features
}{
	ARMv4:    {"armv4", 0},
	ARMv4T:   {"armv4t", FeatureThumbInterwork},
	ARMv5T:   {"armv5t", FeatureThumbInterwork | FeatureV5T},
	ARMv5TE:  {"armv5te", FeatureThumbInterwork | FeatureV5T | FeatureDSP},
	ARMv5TEJ: {"armv5tej", FeatureThumbInterwork | FeatureV5T | FeatureDSP | FeatureJazelle},
	ARMv6:    {"armv6", FeatureThumbInterwork | FeatureV5T | FeatureDSP | FeatureJazelle | FeatureV6},
	ARMv6K:   {"armv6k", FeatureThumbInterwork | FeatureV5T | FeatureDSP | FeatureJazelle | FeatureV6 | FeatureV6K},
	ARMv6T2:  {"armv6t2", FeatureThumbInterwork | FeatureV5T | FeatureDSP | FeatureJazelle | FeatureV6 | FeatureV6K | FeatureV6T2},
	ARMv7:    {"armv7", FeatureThumbInterwork | FeatureV5T | FeatureDSP | FeatureJazelle | FeatureV6 | FeatureV6K | FeatureV6T2 | FeatureV7},
	ARMv7VE:  {"armv7ve", FeatureThumbInterwork | FeatureV5T | FeatureDSP | FeatureJazelle | FeatureV6 | FeatureV6K | FeatureV6T2 | FeatureV7 | FeatureDivide},
}

// DefaultVariant is used when neither the image nor the user names one.
const DefaultVariant = ARMv7

func (v Variant) String() string {
	if int(v) < len(variants) {
		return variants[v].name
	}
	return fmt.Sprintf("Variant(%d)", uint8(v))
}

// Features returns the extension set of v.
func (v Variant) Features() Features {
	if int(v) < len(variants) {
		return variants[v].features
	}
	return 0
}

// Variants lists every known variant, oldest first.
func Variants() []Variant {
	out := make([]Variant, len(variants))
	for i := range variants {
		out[i] = Variant(i)
	}
	return out
}

// ParseVariant accepts names such as "armv5te", "v6k", "ARMv7" and "7".
func ParseVariant(s string) (Variant, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "arm")
	name = strings.TrimPrefix(name, "v")
	if name == "7-a" || name == "7a" {
		name = "7"
	}
	for i, v := range variants {
		if strings.TrimPrefix(v.name, "armv") == name {
			return Variant(i), nil
		}
	}
	return 0, fmt.Errorf("unknown architecture variant %q", s)
}
