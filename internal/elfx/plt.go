package elfx

import "armlift/internal/arm"

// pltStubSize is the length of the short-form ARM PLT entry:
//
//	add ip, pc, #hi
//	add ip, ip, #mid
//	ldr pc, [ip, #lo]!
const pltStubSize = 12

// parsePLTStubs scans .plt for entries and records the GOT slot each one
// loads from. The 20-byte PLT0 header never matches the entry pattern.
func (im *Image) parsePLTStubs() {
	if im.PLT.Size == 0 {
		return
	}
	for va := im.PLT.VA; va+pltStubSize <= im.PLT.VA+im.PLT.Size; {
		if got, ok := im.parsePLTStub(va); ok {
			im.PLTStubs = append(im.PLTStubs, PLTStub{Addr: va, GOTAddr: got})
			va += pltStubSize
			continue
		}
		va += arm.InstructionSize
	}
}

// parsePLTStub decodes the entry at va and returns the address of its GOT
// slot.
func (im *Image) parsePLTStub(va uint64) (uint64, bool) {
	code, ok := im.SliceVA(va, pltStubSize)
	if !ok {
		return 0, false
	}
	d := arm.NewDecoder(arm.DefaultVariant.Features())
	var ins [3]*arm.Instruction
	for i := range ins {
		in, err := d.Decode(code[i*arm.InstructionSize:], uint32(va)+uint32(i*arm.InstructionSize))
		if err != nil || in.Cond != arm.AL {
			return 0, false
		}
		ins[i] = in
	}

	hi, mid, ld := ins[0], ins[1], ins[2]
	if hi.Op != arm.OpADD || hi.Arg(0).Reg != arm.R12 || hi.Arg(1).Reg != arm.PC || hi.Arg(2).Kind != arm.KindImm {
		return 0, false
	}
	if mid.Op != arm.OpADD || mid.Arg(0).Reg != arm.R12 || mid.Arg(1).Reg != arm.R12 || mid.Arg(2).Kind != arm.KindImm {
		return 0, false
	}
	mem := ld.Arg(1)
	if ld.Op != arm.OpLDR || ld.Arg(0).Reg != arm.PC || mem.Base != arm.R12 || mem.HasIndex || mem.Sub {
		return 0, false
	}

	got := uint32(va) + arm.PCReadOffset + hi.Arg(2).Imm + mid.Arg(2).Imm + mem.Disp
	return uint64(got), true
}
