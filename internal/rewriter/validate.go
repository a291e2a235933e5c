package rewriter

import "armlift/internal/arm"

// Opcodes whose register fields may not name PC.
var pcForbidden = func() map[arm.Opcode]bool {
	ops := []arm.Opcode{
		arm.OpMUL, arm.OpMLA, arm.OpMLS, arm.OpUMAAL, arm.OpUMULL, arm.OpUMLAL, arm.OpSMULL, arm.OpSMLAL,
		arm.OpSMLAxy, arm.OpSMULxy, arm.OpSMLAWy, arm.OpSMULWy, arm.OpSMLALxy,
		arm.OpSMLAD, arm.OpSMLSD, arm.OpSMUAD, arm.OpSMUSD, arm.OpSMLALD, arm.OpSMLSLD,
		arm.OpSMMUL, arm.OpSMMLA, arm.OpSMMLS, arm.OpSDIV, arm.OpUDIV,
		arm.OpQADD, arm.OpQSUB, arm.OpQDADD, arm.OpQDSUB,
		arm.OpSSAT, arm.OpUSAT, arm.OpSSAT16, arm.OpUSAT16,
		arm.OpCLZ, arm.OpMRS, arm.OpMSR, arm.OpMCR, arm.OpMCRR, arm.OpMRRC,
		arm.OpLDREX, arm.OpSTREX, arm.OpLDREXB, arm.OpSTREXB, arm.OpLDREXH, arm.OpSTREXH,
		arm.OpLDREXD, arm.OpSTREXD, arm.OpSWP, arm.OpSWPB,
		arm.OpSXTB, arm.OpSXTH, arm.OpUXTB, arm.OpUXTH, arm.OpSXTAB, arm.OpSXTAH, arm.OpUXTAB, arm.OpUXTAH,
		arm.OpSXTB16, arm.OpUXTB16, arm.OpSXTAB16, arm.OpUXTAB16,
		arm.OpREV, arm.OpREV16, arm.OpREVSH, arm.OpRBIT,
		arm.OpSBFX, arm.OpUBFX, arm.OpBFC, arm.OpBFI,
		arm.OpSEL, arm.OpPKHBT, arm.OpPKHTB, arm.OpUSAD8, arm.OpUSADA8,
		arm.OpADD16, arm.OpASX, arm.OpSAX, arm.OpSUB16, arm.OpADD8, arm.OpSUB8,
	}
	m := make(map[arm.Opcode]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}()

func isLoad(op arm.Opcode) bool {
	switch op {
	case arm.OpLDR, arm.OpLDRB, arm.OpLDRT, arm.OpLDRBT, arm.OpLDRH, arm.OpLDRSB, arm.OpLDRSH, arm.OpLDRD:
		return true
	}
	return false
}

func isStore(op arm.Opcode) bool {
	switch op {
	case arm.OpSTR, arm.OpSTRB, arm.OpSTRT, arm.OpSTRBT, arm.OpSTRH, arm.OpSTRD:
		return true
	}
	return false
}

// validate rejects register combinations the architecture leaves
// unpredictable.
func (r *resolver) validate() error {
	in := r.in
	if in.Mode == arm.ModeShiftedReg || pcForbidden[in.Op] {
		for _, a := range in.Args {
			for _, n := range a.Regs() {
				if n == arm.PC {
					return unresolvable(in, "%s may not use pc", in.Op)
				}
			}
		}
	}
	if in.Op == arm.OpBLX && in.Arg(0).Kind == arm.KindReg && in.Arg(0).Reg == arm.PC {
		return unresolvable(in, "blx pc")
	}

	if isLoad(in.Op) || isStore(in.Op) {
		mem := in.Args[len(in.Args)-1]
		if in.Writeback {
			if mem.Base == arm.PC {
				return unresolvable(in, "writeback to pc")
			}
			for _, a := range in.Args[:len(in.Args)-1] {
				if a.Reg == mem.Base {
					return unresolvable(in, "writeback base %s is also transferred", mem.Base)
				}
			}
		}
		if in.Size == arm.SizeDual {
			rt := in.Arg(0).Reg
			if rt&1 != 0 || rt == arm.LR {
				return unresolvable(in, "%s needs an even register below lr", in.Op)
			}
			if mem.HasIndex && (mem.Index == rt || mem.Index == rt+1) {
				return unresolvable(in, "index register overlaps the transfer pair")
			}
		}
	}

	switch in.Op {
	case arm.OpLDREXD:
		if rt := in.Arg(0).Reg; rt&1 != 0 || rt == arm.LR {
			return unresolvable(in, "ldrexd needs an even register below lr")
		}
	case arm.OpSTREXD:
		if rt := in.Arg(1).Reg; rt&1 != 0 || rt == arm.LR {
			return unresolvable(in, "strexd needs an even register below lr")
		}
		fallthrough
	case arm.OpSTREX, arm.OpSTREXB, arm.OpSTREXH:
		rd, base := in.Arg(0).Reg, in.Args[len(in.Args)-1].Base
		for _, a := range in.Args[1 : len(in.Args)-1] {
			if a.Reg == rd {
				return unresolvable(in, "status register overlaps the data")
			}
		}
		if rd == base {
			return unresolvable(in, "status register overlaps the base")
		}
	case arm.OpUMULL, arm.OpUMLAL, arm.OpSMULL, arm.OpSMLAL, arm.OpUMAAL, arm.OpSMLALxy, arm.OpSMLALD, arm.OpSMLSLD:
		if in.Arg(0).Reg == in.Arg(1).Reg {
			return unresolvable(in, "rdlo and rdhi are the same register")
		}
	case arm.OpSBFX, arm.OpUBFX, arm.OpBFC, arm.OpBFI:
		n := len(in.Args)
		lsb, width := in.Args[n-2].Imm, in.Args[n-1].Imm
		if width == 0 || lsb+width > 32 {
			return unresolvable(in, "bitfield lsb %d width %d", lsb, width)
		}
	case arm.OpLDM, arm.OpSTM:
		if in.Arg(0).Reg == arm.PC {
			return unresolvable(in, "pc as block transfer base")
		}
	}
	return nil
}
