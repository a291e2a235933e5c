package rewriter

import "armlift/internal/ir"

// Lifted is one instruction together with the statements it produced.
type Lifted struct {
	Cluster
	Stmts []ir.Statement
}

// Lift runs a rewriter over raw at address until it stops. It returns
// everything lifted before a fault together with the fault.
func Lift(raw []byte, address uint64, host Host) ([]Lifted, error) {
	var buf ir.Buffer
	r, err := New(raw, uint32(len(raw)), 0, address, &buf, host)
	if err != nil {
		return nil, err
	}
	var out []Lifted
	for r.Next() == Emitting {
		stmts := make([]ir.Statement, buf.Len())
		copy(stmts, buf.Statements())
		buf.Reset()
		out = append(out, Lifted{Cluster: r.Cluster(), Stmts: stmts})
	}
	return out, r.Err()
}
