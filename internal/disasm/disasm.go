// Package disasm pairs lifted instructions with a reference disassembly
// and renders them as listing rows.
package disasm

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/arch/arm/armasm"

	"armlift/internal/ir"
	"armlift/internal/rewriter"
	"armlift/internal/ui/colorize"
)

// Inst is one listing row.
type Inst struct {
	VA    uint64  // virtual address of instruction
	Text  string  // GNU syntax from armasm, or the lifter's own text
	Op    string  // mnemonic in lowercase
	Raw   [4]byte // raw encoding
	Class rewriter.Class
	IR    []string
}

// Stream is a linear sequence of rows.
type Stream []Inst

// FromLifted builds the row of one lifted instruction.
func FromLifted(l rewriter.Lifted) Inst {
	in := Inst{VA: l.Address, Class: l.Class, IR: ir.Strings(l.Stmts)}
	binary.LittleEndian.PutUint32(in.Raw[:], l.Raw)
	in.Text = Reference(in.Raw[:], l.Text)
	if f := strings.Fields(l.Text); len(f) > 0 {
		in.Op = strings.ToLower(f[0])
	}
	return in
}

// FromLift converts the result of rewriter.Lift.
func FromLift(ls []rewriter.Lifted) Stream {
	s := make(Stream, len(ls))
	for i, l := range ls {
		s[i] = FromLifted(l)
	}
	return s
}

// Reference returns the armasm GNU-syntax text of code, or fallback when
// armasm does not know the encoding.
func Reference(code []byte, fallback string) string {
	inst, err := armasm.Decode(code, armasm.ModeARM)
	if err != nil {
		return fallback
	}
	return armasm.GNUSyntax(inst)
}

// Format writes the stream as a listing: address, raw word, disassembly
// and, indented below, the IR. Colour follows colorize.Enabled.
func (s Stream) Format(w io.Writer, color bool) error {
	for _, in := range s {
		addr := fmt.Sprintf("%08x", in.VA)
		raw := fmt.Sprintf("%08x", binary.LittleEndian.Uint32(in.Raw[:]))
		text := in.Text
		if color {
			addr = colorize.Address(addr)
			raw = colorize.Address(raw)
			if c, err := colorize.Assembly(text); err == nil {
				text = c
			}
		}
		if _, err := fmt.Fprintf(w, "%s  %s  %s\n", addr, raw, text); err != nil {
			return err
		}
		for _, stmt := range in.IR {
			if color {
				stmt = colorize.IR(stmt)
			}
			if _, err := fmt.Fprintf(w, "            %s\n", stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

// Count returns how many rows have each class.
func (s Stream) Count() map[rewriter.Class]int {
	out := map[rewriter.Class]int{}
	for _, in := range s {
		out[in.Class]++
	}
	return out
}
