package host

import (
	"github.com/ianlancetaylor/demangle"

	"armlift/internal/arm"
	"armlift/internal/elfx"
)

// ELF is a host backed by an ARM ELF image. Its variant comes from the
// image's build attributes and its symbols from the symbol tables and PLT.
type ELF struct {
	*Static
	Image *elfx.Image
}

// NewELF builds a host for im. Options apply after the image has been read,
// so WithVariant overrides the build attributes.
func NewELF(im *elfx.Image, opts ...Option) *ELF {
	v, ok := VariantFromAttributes(im.Attrs)
	if !ok {
		v = arm.DefaultVariant
	}

	syms := map[uint64]string{}
	for _, s := range im.Syms {
		if !s.Func || s.Thumb {
			continue
		}
		if _, dup := syms[s.Addr]; !dup {
			syms[s.Addr] = demangle.Filter(s.Name)
		}
	}
	for _, stub := range im.PLTStubs {
		if name, ok := im.PLTName(stub.Addr); ok {
			syms[stub.Addr] = demangle.Filter(name) + "@plt"
		}
	}

	all := append([]Option{WithSymbols(syms)}, opts...)
	return &ELF{Static: NewStatic(v, all...), Image: im}
}

// VariantFromAttributes maps Tag_CPU_arch to the variant the decoder
// should use. Microcontroller profiles have no ARM state and are rejected.
func VariantFromAttributes(a elfx.Attributes) (arm.Variant, bool) {
	arch, ok := a.CPUArch()
	if !ok {
		return 0, false
	}
	switch arch {
	case elfx.CPUArchV4:
		return arm.ARMv4, true
	case elfx.CPUArchV4T:
		return arm.ARMv4T, true
	case elfx.CPUArchV5T:
		return arm.ARMv5T, true
	case elfx.CPUArchV5TE:
		return arm.ARMv5TE, true
	case elfx.CPUArchV5TEJ:
		return arm.ARMv5TEJ, true
	case elfx.CPUArchV6:
		return arm.ARMv6, true
	case elfx.CPUArchV6KZ, elfx.CPUArchV6K:
		return arm.ARMv6K, true
	case elfx.CPUArchV6T2:
		return arm.ARMv6T2, true
	case elfx.CPUArchV7:
		if div, _ := a.Int(elfx.TagDIVUse); div == 2 {
			return arm.ARMv7VE, true
		}
		return arm.ARMv7, true
	case elfx.CPUArchV6M, elfx.CPUArchV6SM, elfx.CPUArchV7EM, elfx.CPUArchPreV4:
		return 0, false
	}
	// ARMv8 and later AArch32 state is a superset of ARMv7VE.
	return arm.ARMv7VE, true
}
