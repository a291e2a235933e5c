// Package llvmexport lowers lifted instructions to an LLVM IR module.
//
// Registers become i32 globals named after the register, flags are bits of
// the status register global, temporaries are stack slots and memory is
// addressed through inttoptr. Every lifted instruction gets its own basic
// block. Control leaving the lowered range, calls and unmodelled
// instructions become calls to external @__arm_* helpers.
package llvmexport

import (
	"fmt"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/pkg/errors"

	"armlift/internal/ir"
	"armlift/internal/rewriter"
)

// Helpers called by lowered code.
const (
	HelperGoto        = "__arm_goto"
	HelperGotoX       = "__arm_goto_x"
	HelperCall        = "__arm_call"
	HelperCallX       = "__arm_call_x"
	HelperUnsupported = "__arm_unsupported"
	HelperInvalid     = "__arm_invalid"
)

// Module collects lowered functions and the globals and declarations they
// share.
type Module struct {
	m       *llvm.Module
	globals map[string]*llvm.Global
	funcs   map[string]*llvm.Func
	defined map[string]bool
}

func NewModule() *Module {
	return &Module{
		m:       llvm.NewModule(),
		globals: map[string]*llvm.Global{},
		funcs:   map[string]*llvm.Func{},
		defined: map[string]bool{},
	}
}

// Lower builds a module holding one function called name.
func Lower(name string, ls []rewriter.Lifted) (*Module, error) {
	mod := NewModule()
	if _, err := mod.AddFunction(name, ls); err != nil {
		return nil, err
	}
	return mod, nil
}

// LLVM returns the underlying module.
func (mod *Module) LLVM() *llvm.Module { return mod.m }

func (mod *Module) String() string { return mod.m.String() }

// AddFunction lowers ls, in order, into a new void function.
func (mod *Module) AddFunction(name string, ls []rewriter.Lifted) (*llvm.Func, error) {
	if len(ls) == 0 {
		return nil, errors.Errorf("function %s: nothing lifted", name)
	}
	if mod.defined[name] {
		return nil, errors.Errorf("function %s defined twice", name)
	}
	f, ok := mod.funcs[name]
	if !ok {
		f = mod.m.NewFunc(name, types.Void)
		mod.funcs[name] = f
	}
	mod.defined[name] = true

	fl := newFuncLifter(mod, f)
	if err := fl.liftFunc(ls); err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

// global returns the global backing register name.
func (mod *Module) global(name string, w ir.Width) *llvm.Global {
	if g, ok := mod.globals[name]; ok {
		return g
	}
	g := mod.m.NewGlobalDef(name, constant.NewInt(intType(w), 0))
	mod.globals[name] = g
	return g
}

// declare returns the external function name, declaring it on first use.
func (mod *Module) declare(name string, ret types.Type, params ...types.Type) *llvm.Func {
	if f, ok := mod.funcs[name]; ok {
		return f
	}
	ps := make([]*llvm.Param, len(params))
	for i, t := range params {
		ps[i] = llvm.NewParam(fmt.Sprintf("a%d", i), t)
	}
	f := mod.m.NewFunc(name, ret, ps...)
	mod.funcs[name] = f
	return f
}

func intType(w ir.Width) *types.IntType { return types.NewInt(uint64(w)) }
