package analysis

import (
	"armlift/internal/ir"
	"armlift/internal/rewriter"
)

// Scan collects the findings of lifted instructions in address order.
func Scan(ls []rewriter.Lifted) []Finding {
	var out []Finding
	for _, l := range ls {
		for _, s := range l.Stmts {
			out = append(out, scanStmt(l.Address, s)...)
		}
	}
	return out
}

func scanStmt(addr uint64, s ir.Statement) []Finding {
	switch s := s.(type) {
	case *ir.Call:
		if c, ok := s.Target.(*ir.Const); ok {
			return []Finding{{Kind: KindCall, Addr: addr, Target: c.Value, HasTarget: true, Symbol: s.Symbol}}
		}
		return []Finding{{Kind: KindIndirect, Addr: addr, Detail: s.String()}}
	case *ir.Goto:
		if _, ok := s.Target.(*ir.Const); !ok {
			return []Finding{{Kind: KindIndirect, Addr: addr, Detail: s.String()}}
		}
	case *ir.Assign:
		if va, ok := literal(s.Src); ok {
			return []Finding{{Kind: KindLiteral, Addr: addr, Target: va, HasTarget: true}}
		}
	case *ir.Placeholder:
		return []Finding{{Kind: KindPlaceholder, Addr: addr, Detail: s.Text}}
	}
	return nil
}

// literal reports the pool address of a load from a constant address.
func literal(e ir.Expr) (uint64, bool) {
	if c, ok := e.(*ir.Cast); ok {
		e = c.X
	}
	m, ok := e.(*ir.Mem)
	if !ok || m.Width != ir.W32 {
		return 0, false
	}
	c, ok := m.Addr.(*ir.Const)
	if !ok {
		return 0, false
	}
	return c.Value, true
}
