// Package host provides the rewriter's configuration and symbol services:
// a fixed in-memory host and one backed by an ARM ELF image.
package host

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"armlift/internal/arm"
	"armlift/internal/ir"
)

// Diagnostic is one problem reported by the rewriter.
type Diagnostic struct {
	Addr uint64
	Msg  string
}

func (d Diagnostic) String() string { return fmt.Sprintf("%#08x: %s", d.Addr, d.Msg) }

// Static answers every query from fixed tables. The zero register denial
// set means every register the lifter knows exists.
type Static struct {
	variant arm.Variant
	symbols map[uint64]string
	denied  map[string]bool
	logger  *log.Logger
	diags   []Diagnostic
}

type Option func(*Static)

// WithVariant overrides the architecture variant.
func WithVariant(v arm.Variant) Option {
	return func(s *Static) { s.variant = v }
}

// WithSymbols adds symbol names keyed by address.
func WithSymbols(m map[uint64]string) Option {
	return func(s *Static) {
		for addr, name := range m {
			s.symbols[addr] = name
		}
	}
}

// WithLogger sends diagnostics to lg as warnings.
func WithLogger(lg *log.Logger) Option {
	return func(s *Static) { s.logger = lg }
}

// WithoutRegisters makes HasRegister deny the named registers.
func WithoutRegisters(names ...string) Option {
	return func(s *Static) {
		for _, n := range names {
			s.denied[n] = true
		}
	}
}

func NewStatic(v arm.Variant, opts ...Option) *Static {
	s := &Static{
		variant: v,
		symbols: map[uint64]string{},
		denied:  map[string]bool{},
		logger:  log.New(io.Discard),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Static) Variant() arm.Variant            { return s.variant }
func (s *Static) Features() arm.Features          { return s.variant.Features() }
func (s *Static) HasRegister(r *ir.Register) bool { return r != nil && !s.denied[r.Name] }

func (s *Static) Symbol(addr uint64) (string, bool) {
	name, ok := s.symbols[addr]
	return name, ok
}

// Symbols returns the known symbols in address order.
func (s *Static) Symbols() []Symbol {
	out := make([]Symbol, 0, len(s.symbols))
	for addr, name := range s.symbols {
		out = append(out, Symbol{Addr: addr, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Symbol is an address with its name.
type Symbol struct {
	Addr uint64
	Name string
}

func (s *Static) Error(addr uint64, msg string) {
	s.diags = append(s.diags, Diagnostic{Addr: addr, Msg: msg})
	s.logger.Warn(msg, "addr", fmt.Sprintf("%#x", addr))
}

// Diagnostics returns everything reported through Error so far.
func (s *Static) Diagnostics() []Diagnostic { return s.diags }

// ResetDiagnostics forgets reported problems.
func (s *Static) ResetDiagnostics() { s.diags = nil }
