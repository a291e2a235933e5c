package arm

// Opcode identifies a decoded instruction independently of its condition,
// S bit and addressing mode.
type Opcode uint16

const (
	OpInvalid Opcode = iota

	// Data processing, in encoding order of bits 24:21.
	OpAND
	OpEOR
	OpSUB
	OpRSB
	OpADD
	OpADC
	OpSBC
	OpRSC
	OpTST
	OpTEQ
	OpCMP
	OpCMN
	OpORR
	OpMOV
	OpBIC
	OpMVN
	OpMOVW
	OpMOVT

	// Multiplies.
	OpMUL
	OpMLA
	OpMLS
	OpUMAAL
	OpUMULL
	OpUMLAL
	OpSMULL
	OpSMLAL
	OpSMLAxy
	OpSMULxy
	OpSMLAWy
	OpSMULWy
	OpSMLALxy
	OpSMLAD
	OpSMLSD
	OpSMUAD
	OpSMUSD
	OpSMLALD
	OpSMLSLD
	OpSMMUL
	OpSMMLA
	OpSMMLS
	OpSDIV
	OpUDIV

	// Saturating arithmetic.
	OpQADD
	OpQSUB
	OpQDADD
	OpQDSUB
	OpSSAT
	OpUSAT
	OpSSAT16
	OpUSAT16

	// Miscellaneous.
	OpCLZ
	OpMRS
	OpMSR
	OpNOP
	OpYIELD
	OpWFE
	OpWFI
	OpSEV
	OpDBG
	OpBKPT
	OpSMC
	OpSVC
	OpUDF

	// Branches.
	OpB
	OpBL
	OpBLX
	OpBX
	OpBXJ

	// Single loads and stores.
	OpLDR
	OpSTR
	OpLDRB
	OpSTRB
	OpLDRT
	OpSTRT
	OpLDRBT
	OpSTRBT
	OpLDRH
	OpSTRH
	OpLDRSB
	OpLDRSH
	OpLDRD
	OpSTRD
	OpLDREX
	OpSTREX
	OpLDREXB
	OpSTREXB
	OpLDREXH
	OpSTREXH
	OpLDREXD
	OpSTREXD
	OpSWP
	OpSWPB

	// Multiple loads and stores.
	OpLDM
	OpSTM

	// Media.
	OpSXTB
	OpSXTH
	OpUXTB
	OpUXTH
	OpSXTAB
	OpSXTAH
	OpUXTAB
	OpUXTAH
	OpSXTB16
	OpUXTB16
	OpSXTAB16
	OpUXTAB16
	OpREV
	OpREV16
	OpREVSH
	OpRBIT
	OpSBFX
	OpUBFX
	OpBFC
	OpBFI
	OpSEL
	OpPKHBT
	OpPKHTB
	OpUSAD8
	OpUSADA8
	OpADD16
	OpASX
	OpSAX
	OpSUB16
	OpADD8
	OpSUB8

	// Coprocessor.
	OpCDP
	OpMCR
	OpMRC
	OpMCRR
	OpMRRC
	OpLDC
	OpSTC

	// Unconditional space.
	OpPLD
	OpPLI
	OpCLREX
	OpDSB
	OpDMB
	OpISB
	OpCPS
	OpSETEND
	OpSRS
	OpRFE

	NumOpcodes
)

var opcodeNames = [NumOpcodes]string{
	OpInvalid: "invalid",
	OpAND:     "and", OpEOR: "eor", OpSUB: "sub", OpRSB: "rsb",
	OpADD: "add", OpADC: "adc", OpSBC: "sbc", OpRSC: "rsc",
	OpTST: "tst", OpTEQ: "teq", OpCMP: "cmp", OpCMN: "cmn",
	OpORR: "orr", OpMOV: "mov", OpBIC: "bic", OpMVN: "mvn",
	OpMOVW: "movw", OpMOVT: "movt",

	OpMUL: "mul", OpMLA: "mla", OpMLS: "mls", OpUMAAL: "umaal",
	OpUMULL: "umull", OpUMLAL: "umlal", OpSMULL: "smull", OpSMLAL: "smlal",
	OpSMLAxy: "smla", OpSMULxy: "smul", OpSMLAWy: "smlaw", OpSMULWy: "smulw",
	OpSMLALxy: "smlal",
	OpSMLAD: "smlad", OpSMLSD: "smlsd", OpSMUAD: "smuad", OpSMUSD: "smusd",
	OpSMLALD: "smlald", OpSMLSLD: "smlsld",
	OpSMMUL: "smmul", OpSMMLA: "smmla", OpSMMLS: "smmls",
	OpSDIV: "sdiv", OpUDIV: "udiv",

	OpQADD: "qadd", OpQSUB: "qsub", OpQDADD: "qdadd", OpQDSUB: "qdsub",
	OpSSAT: "ssat", OpUSAT: "usat", OpSSAT16: "ssat16", OpUSAT16: "usat16",

	OpCLZ: "clz", OpMRS: "mrs", OpMSR: "msr",
	OpNOP: "nop", OpYIELD: "yield", OpWFE: "wfe", OpWFI: "wfi", OpSEV: "sev", OpDBG: "dbg",
	OpBKPT: "bkpt", OpSMC: "smc", OpSVC: "svc", OpUDF: "udf",

	OpB: "b", OpBL: "bl", OpBLX: "blx", OpBX: "bx", OpBXJ: "bxj",

	OpLDR: "ldr", OpSTR: "str", OpLDRB: "ldrb", OpSTRB: "strb",
	OpLDRT: "ldrt", OpSTRT: "strt", OpLDRBT: "ldrbt", OpSTRBT: "strbt",
	OpLDRH: "ldrh", OpSTRH: "strh", OpLDRSB: "ldrsb", OpLDRSH: "ldrsh",
	OpLDRD: "ldrd", OpSTRD: "strd",
	OpLDREX: "ldrex", OpSTREX: "strex", OpLDREXB: "ldrexb", OpSTREXB: "strexb",
	OpLDREXH: "ldrexh", OpSTREXH: "strexh", OpLDREXD: "ldrexd", OpSTREXD: "strexd",
	OpSWP: "swp", OpSWPB: "swpb",

	OpLDM: "ldm", OpSTM: "stm",

	OpSXTB: "sxtb", OpSXTH: "sxth", OpUXTB: "uxtb", OpUXTH: "uxth",
	OpSXTAB: "sxtab", OpSXTAH: "sxtah", OpUXTAB: "uxtab", OpUXTAH: "uxtah",
	OpSXTB16: "sxtb16", OpUXTB16: "uxtb16", OpSXTAB16: "sxtab16", OpUXTAB16: "uxtab16",
	OpREV: "rev", OpREV16: "rev16", OpREVSH: "revsh", OpRBIT: "rbit",
	OpSBFX: "sbfx", OpUBFX: "ubfx", OpBFC: "bfc", OpBFI: "bfi",
	OpSEL: "sel", OpPKHBT: "pkhbt", OpPKHTB: "pkhtb", OpUSAD8: "usad8", OpUSADA8: "usada8",
	OpADD16: "add16", OpASX: "asx", OpSAX: "sax", OpSUB16: "sub16", OpADD8: "add8", OpSUB8: "sub8",

	OpCDP: "cdp", OpMCR: "mcr", OpMRC: "mrc", OpMCRR: "mcrr", OpMRRC: "mrrc",
	OpLDC: "ldc", OpSTC: "stc",

	OpPLD: "pld", OpPLI: "pli", OpCLREX: "clrex", OpDSB: "dsb", OpDMB: "dmb", OpISB: "isb",
	OpCPS: "cps", OpSETEND: "setend", OpSRS: "srs", OpRFE: "rfe",
}

func (op Opcode) String() string {
	if op < NumOpcodes {
		return opcodeNames[op]
	}
	return "op?"
}

// Opcodes returns every valid opcode, excluding OpInvalid.
func Opcodes() []Opcode {
	out := make([]Opcode, 0, NumOpcodes-1)
	for op := OpInvalid + 1; op < NumOpcodes; op++ {
		out = append(out, op)
	}
	return out
}

// ParallelPrefix selects the arithmetic flavour of a parallel add/subtract.
type ParallelPrefix uint8

const (
	PrefixS  ParallelPrefix = iota + 1 // signed, sets GE
	PrefixQ                            // signed saturating
	PrefixSH                           // signed halving
	PrefixU                            // unsigned, sets GE
	PrefixUQ                           // unsigned saturating
	PrefixUH                           // unsigned halving
)

var prefixNames = [...]string{"", "s", "q", "sh", "u", "uq", "uh"}

func (p ParallelPrefix) String() string {
	if int(p) < len(prefixNames) {
		return prefixNames[p]
	}
	return "?"
}
