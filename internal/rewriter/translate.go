package rewriter

import (
	"errors"
	"fmt"

	"armlift/internal/arm"
	"armlift/internal/ir"
)

type handler func(t *translator) error

// rule is the translation entry of one opcode: a handler, or the
// unmodelled marker for instructions lifted to a single placeholder.
type rule struct {
	fn         handler
	unmodelled bool
}

func do(fn handler) rule { return rule{fn: fn} }

var unsupported = rule{unmodelled: true}

var rules = [arm.NumOpcodes]rule{
	arm.OpAND: do(dataProc), arm.OpEOR: do(dataProc), arm.OpSUB: do(dataProc), arm.OpRSB: do(dataProc),
	arm.OpADD: do(dataProc), arm.OpADC: do(dataProc), arm.OpSBC: do(dataProc), arm.OpRSC: do(dataProc),
	arm.OpTST: do(dataProc), arm.OpTEQ: do(dataProc), arm.OpCMP: do(dataProc), arm.OpCMN: do(dataProc),
	arm.OpORR: do(dataProc), arm.OpMOV: do(dataProc), arm.OpBIC: do(dataProc), arm.OpMVN: do(dataProc),
	arm.OpMOVW: do(movw), arm.OpMOVT: do(movt),

	arm.OpMUL: do(mul), arm.OpMLA: do(mul), arm.OpMLS: do(mul),
	arm.OpUMAAL: do(mulLong), arm.OpUMULL: do(mulLong), arm.OpUMLAL: do(mulLong), arm.OpSMULL: do(mulLong), arm.OpSMLAL: do(mulLong),
	arm.OpSMLAxy: do(mulHalf), arm.OpSMULxy: do(mulHalf), arm.OpSMLAWy: do(mulWord), arm.OpSMULWy: do(mulWord),
	arm.OpSMLALxy: do(mulHalfLong),
	arm.OpSMLAD: unsupported, arm.OpSMLSD: unsupported, arm.OpSMUAD: unsupported, arm.OpSMUSD: unsupported,
	arm.OpSMLALD: unsupported, arm.OpSMLSLD: unsupported,
	arm.OpSMMUL: do(mulMost), arm.OpSMMLA: do(mulMost), arm.OpSMMLS: do(mulMost),
	arm.OpSDIV: do(div), arm.OpUDIV: do(div),

	arm.OpQADD: do(qarith), arm.OpQSUB: do(qarith), arm.OpQDADD: do(qarith), arm.OpQDSUB: do(qarith),
	arm.OpSSAT: do(ssat), arm.OpUSAT: do(usat), arm.OpSSAT16: unsupported, arm.OpUSAT16: unsupported,

	arm.OpCLZ: do(bitop("__clz")), arm.OpMRS: do(mrs), arm.OpMSR: do(msr),
	arm.OpNOP: do(nop), arm.OpYIELD: do(hint("__yield")), arm.OpWFE: do(hint("__wait_for_event")),
	arm.OpWFI: do(hint("__wait_for_interrupt")), arm.OpSEV: do(hint("__send_event")), arm.OpDBG: unsupported,
	arm.OpBKPT: do(trap("__breakpoint")), arm.OpSMC: do(trap("__secure_monitor_call")), arm.OpSVC: do(trap("__syscall")),
	arm.OpUDF: do(udf),

	arm.OpB: do(branch), arm.OpBL: do(branchLink), arm.OpBLX: do(branchLink), arm.OpBX: do(branchExchange), arm.OpBXJ: unsupported,

	arm.OpLDR: do(load), arm.OpSTR: do(store), arm.OpLDRB: do(load), arm.OpSTRB: do(store),
	arm.OpLDRT: do(load), arm.OpSTRT: do(store), arm.OpLDRBT: do(load), arm.OpSTRBT: do(store),
	arm.OpLDRH: do(load), arm.OpSTRH: do(store), arm.OpLDRSB: do(load), arm.OpLDRSH: do(load),
	arm.OpLDRD: do(loadDual), arm.OpSTRD: do(storeDual),
	arm.OpLDREX: do(loadExclusive), arm.OpLDREXB: do(loadExclusive), arm.OpLDREXH: do(loadExclusive), arm.OpLDREXD: do(loadExclusive),
	arm.OpSTREX: do(storeExclusive), arm.OpSTREXB: do(storeExclusive), arm.OpSTREXH: do(storeExclusive), arm.OpSTREXD: do(storeExclusive),
	arm.OpSWP: do(swap), arm.OpSWPB: do(swap),

	arm.OpLDM: do(loadMultiple), arm.OpSTM: do(storeMultiple),

	arm.OpSXTB: do(extend), arm.OpSXTH: do(extend), arm.OpUXTB: do(extend), arm.OpUXTH: do(extend),
	arm.OpSXTAB: do(extend), arm.OpSXTAH: do(extend), arm.OpUXTAB: do(extend), arm.OpUXTAH: do(extend),
	arm.OpSXTB16: unsupported, arm.OpUXTB16: unsupported, arm.OpSXTAB16: unsupported, arm.OpUXTAB16: unsupported,
	arm.OpREV: do(bitop("__rev")), arm.OpREV16: do(bitop("__rev16")), arm.OpREVSH: do(bitop("__revsh")), arm.OpRBIT: do(bitop("__rbit")),
	arm.OpSBFX: do(bitfieldExtract), arm.OpUBFX: do(bitfieldExtract), arm.OpBFC: do(bitfieldInsert), arm.OpBFI: do(bitfieldInsert),
	arm.OpSEL: unsupported, arm.OpPKHBT: unsupported, arm.OpPKHTB: unsupported,
	arm.OpUSAD8: unsupported, arm.OpUSADA8: unsupported,
	arm.OpADD16: unsupported, arm.OpASX: unsupported, arm.OpSAX: unsupported,
	arm.OpSUB16: unsupported, arm.OpADD8: unsupported, arm.OpSUB8: unsupported,

	arm.OpCDP: unsupported, arm.OpMCR: do(mcr), arm.OpMRC: do(mrc), arm.OpMCRR: unsupported, arm.OpMRRC: unsupported,
	arm.OpLDC: unsupported, arm.OpSTC: unsupported,

	arm.OpPLD: do(preload("__pld")), arm.OpPLI: do(preload("__pli")), arm.OpCLREX: do(hint("__clrex")),
	arm.OpDSB: do(barrier("__dsb")), arm.OpDMB: do(barrier("__dmb")), arm.OpISB: do(barrier("__isb")),
	arm.OpCPS: unsupported, arm.OpSETEND: unsupported, arm.OpSRS: unsupported, arm.OpRFE: unsupported,
}

// Supported reports whether op has a modelled translation.
func Supported(op arm.Opcode) bool {
	return op < arm.NumOpcodes && rules[op].fn != nil
}

type translator struct {
	host  Host
	stage ir.Buffer
	m     *ir.Emitter
	in    *arm.Instruction
	ops   []Operand
	class Class
}

func newTranslator(host Host) *translator {
	t := &translator{host: host}
	t.m = ir.NewEmitter(&t.stage)
	return t
}

// translate lifts in into the staging buffer. On error the buffer is
// left empty.
func (t *translator) translate(in *arm.Instruction) (Class, error) {
	t.stage.Reset()
	t.in, t.class = in, ClassLinear

	ops, err := (&resolver{host: t.host, in: in}).resolve()
	if err != nil {
		return 0, err
	}
	t.ops = ops

	guard := TestFor(in.Cond)
	t.m.Begin(guard)
	r := rules[in.Op]
	switch {
	case r.unmodelled:
		err = arm.ErrUnsupportedSemantics
	case r.fn == nil:
		return 0, &arm.DecodeError{Addr: uint64(in.Address), Word: in.Raw, HasWord: true, Err: arm.ErrInvalidEncoding}
	default:
		err = r.fn(t)
	}
	switch {
	case errors.Is(err, arm.ErrUnsupportedSemantics):
		t.stage.Reset()
		t.m.Begin(guard)
		t.m.Placeholder(in.String())
		t.host.Error(uint64(in.Address), fmt.Sprintf("Rewriting ARM opcode '%s' is not supported yet.", in.Mnemonic()))
		return ClassUnsupported, nil
	case err != nil:
		t.stage.Reset()
		return 0, err
	}
	return t.class, nil
}

func (t *translator) has(f arm.Features) bool { return t.host.Features().Has(f) }

// val returns the value of operand i.
func (t *translator) val(i int) ir.Expr { return t.ops[i].Value }

// reg returns the register named by operand i.
func (t *translator) reg(i int) arm.Reg { return t.in.Args[i].Reg }

// write assigns v to r. Writing PC transfers control.
func (t *translator) write(r arm.Reg, v ir.Expr) {
	if r == arm.PC {
		t.jump(v, t.has(arm.FeatureV7))
		return
	}
	t.m.Assign(coreRegs[r], v)
}

// jump transfers control to target. A jump to the link register is a return.
func (t *translator) jump(target ir.Expr, interwork bool) {
	if target == ir.Expr(regLR) {
		t.m.Return()
		t.class = ClassReturn
		return
	}
	t.m.Goto(target, interwork)
	t.class = ClassTransfer
}

func (t *translator) setNZ(x ir.Expr) {
	zero := ir.C(0, x.Size())
	t.m.Assign(flagN, ir.Bin(ir.Slt, x, zero))
	t.m.Assign(flagZ, ir.Bin(ir.Eq, x, zero))
}

func carryIn() ir.Expr { return ir.ZeroExt(flagC, ir.W32) }

func (t *translator) symbol(addr uint32) string {
	if name, ok := t.host.Symbol(uint64(addr)); ok {
		return name
	}
	return ""
}

func (t *translator) fail(format string, args ...any) error {
	return unresolvable(t.in, format, args...)
}
