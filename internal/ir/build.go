package ir

// Constructors used by lifters. They perform only trivial folding so
// that the emitted text stays close to the source instruction.

// C returns a constant of width w.
func C(v uint64, w Width) *Const { return &Const{Value: v & w.Mask(), Width: w} }

// C32 returns a 32-bit constant.
func C32(v uint32) *Const { return &Const{Value: uint64(v), Width: W32} }

// True and False are Bool constants.
func True() *Const  { return &Const{Value: 1, Width: Bool} }
func False() *Const { return &Const{Value: 0, Width: Bool} }

// Bin builds x op y. Adding or subtracting a zero constant yields x.
func Bin(op BinOp, x, y Expr) Expr {
	if c, ok := y.(*Const); ok && c.Value == 0 {
		switch op {
		case Add, Sub, Or, Xor, Shl, Shr, Sar, Ror:
			return x
		}
	}
	return &Binary{Op: op, X: x, Y: y}
}

// Un builds a unary expression.
func Un(op UnOp, x Expr) Expr { return &Unary{Op: op, X: x} }

// ZeroExt widens x to w, or returns x when it already has width w.
func ZeroExt(x Expr, w Width) Expr {
	if x.Size() == w {
		return x
	}
	return &Cast{Op: ZExt, X: x, Width: w}
}

// SignExt widens x to w with sign extension.
func SignExt(x Expr, w Width) Expr {
	if x.Size() == w {
		return x
	}
	return &Cast{Op: SExt, X: x, Width: w}
}

// Truncate narrows x to w.
func Truncate(x Expr, w Width) Expr {
	if x.Size() == w {
		return x
	}
	return &Cast{Op: Trunc, X: x, Width: w}
}

// CallIntrinsic builds an intrinsic invocation.
func CallIntrinsic(name string, w Width, args ...Expr) *Intrinsic {
	return &Intrinsic{Name: name, Args: args, Width: w}
}
