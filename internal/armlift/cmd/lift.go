package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"armlift/internal/analysis"
	"armlift/internal/armlift/styles"
	"armlift/internal/config"
	"armlift/internal/disasm"
	"armlift/internal/ir"
	"armlift/internal/llvmexport"
	"armlift/internal/logging"
	"armlift/internal/rewriter"
	"armlift/internal/ui/colorize"
)

// liftResult is everything lifted from one unit.
type liftResult struct {
	unit   unit
	lifted []rewriter.Lifted
	faults []analysis.Fault
}

// liftOptions control how a unit is walked.
type liftOptions struct {
	// stopOnFault ends the unit at the first fault instead of seeking past it.
	stopOnFault bool
	// isData reports addresses to step over without decoding.
	isData func(addr uint64) bool
}

// liftUnit drives a rewriter over u. A fault is recorded and, unless
// stopOnFault is set, the rewriter is re-seeked one word further on.
func liftUnit(u unit, h rewriter.Host, opts liftOptions) (liftResult, error) {
	res := liftResult{unit: u}
	var buf ir.Buffer
	r, err := rewriter.New(u.raw, u.length, u.offset, u.addr, &buf, h)
	if err != nil {
		return res, err
	}

	for {
		if opts.isData != nil && r.Remaining() >= 4 && opts.isData(r.Address()) {
			if err := r.Seek(r.Address() + 4); err != nil {
				return res, err
			}
			continue
		}

		switch r.Next() {
		case rewriter.Emitting:
			stmts := make([]ir.Statement, buf.Len())
			copy(stmts, buf.Statements())
			buf.Reset()
			res.lifted = append(res.lifted, rewriter.Lifted{Cluster: r.Cluster(), Stmts: stmts})
			continue
		case rewriter.Faulted:
			addr := r.Address()
			res.faults = append(res.faults, analysis.Fault{Addr: addr, Err: r.Err()})
			slog.Debug("Lift fault", "unit", u.name, "addr", fmt.Sprintf("%#x", addr), "error", r.Err())
			buf.Reset()
			if opts.stopOnFault || errors.Is(r.Err(), rewriter.ErrInsufficientBytes) || addr+4 > u.end() {
				return res, nil
			}
			if err := r.Seek(addr + 4); err != nil {
				return res, err
			}
			continue
		}
		return res, nil
	}
}

// report builds the analysis report of res.
func (t *target) report(res liftResult) *analysis.Report {
	chain := analysis.NewDetectorChain(
		analysis.SymbolDetector{Lookup: t.host.Symbol},
		analysis.LiteralDetector{Mem: t.reader()},
	)
	return analysis.Build(res.unit.name, res.lifted, res.faults, chain)
}

// writeText writes the listing of res, with faults in address order.
func writeText(w io.Writer, res liftResult, color bool) error {
	header := fmt.Sprintf("; %s @ %#08x", res.unit.name, res.unit.addr)
	if color {
		header = colorize.Address(header)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	faults := res.faults
	for _, l := range res.lifted {
		for len(faults) > 0 && faults[0].Addr < l.Address {
			if err := writeFault(w, faults[0], color); err != nil {
				return err
			}
			faults = faults[1:]
		}
		if err := (disasm.Stream{disasm.FromLifted(l)}).Format(w, color); err != nil {
			return err
		}
	}
	for _, f := range faults {
		if err := writeFault(w, f, color); err != nil {
			return err
		}
	}
	return nil
}

func writeFault(w io.Writer, f analysis.Fault, color bool) error {
	line := fmt.Sprintf("%08x  fault: %v", f.Addr, f.Err)
	if color {
		line = colorize.Fault(line)
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

// jsonInst is the JSON form of one lifted instruction.
type jsonInst struct {
	Address     string   `json:"address"`
	Length      int      `json:"length"`
	Raw         string   `json:"raw"`
	Text        string   `json:"text"`
	Class       string   `json:"class"`
	Conditional bool     `json:"conditional,omitempty"`
	IR          []string `json:"ir"`
}

type jsonFault struct {
	Address string `json:"address"`
	Error   string `json:"error"`
}

type jsonUnit struct {
	Name         string      `json:"name"`
	Address      string      `json:"address"`
	Instructions []jsonInst  `json:"instructions"`
	Faults       []jsonFault `json:"faults,omitempty"`
}

func toJSON(res liftResult) jsonUnit {
	u := jsonUnit{
		Name:         res.unit.name,
		Address:      fmt.Sprintf("%#x", res.unit.addr),
		Instructions: make([]jsonInst, 0, len(res.lifted)),
	}
	for _, l := range res.lifted {
		u.Instructions = append(u.Instructions, jsonInst{
			Address:     fmt.Sprintf("%#x", l.Address),
			Length:      l.Length,
			Raw:         fmt.Sprintf("%08x", l.Raw),
			Text:        l.Text,
			Class:       l.Class.String(),
			Conditional: l.Conditional,
			IR:          ir.Strings(l.Stmts),
		})
	}
	for _, f := range res.faults {
		u.Faults = append(u.Faults, jsonFault{Address: fmt.Sprintf("%#x", f.Addr), Error: f.Err.Error()})
	}
	return u
}

func writeJSON(w io.Writer, results []liftResult) error {
	units := make([]jsonUnit, len(results))
	for i, res := range results {
		units[i] = toJSON(res)
	}
	bts, err := json.MarshalIndent(units, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(bts))
	return err
}

// writeLLVM lowers every unit into one module, one function per unit.
func writeLLVM(w io.Writer, results []liftResult) error {
	mod := llvmexport.NewModule()
	for _, res := range results {
		if len(res.lifted) == 0 {
			continue
		}
		if _, err := mod.AddFunction(llvmName(res.unit), res.lifted); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, mod.String())
	return err
}

// llvmName is the LLVM function name of u.
func llvmName(u unit) string { return fmt.Sprintf("fn_%08X", u.addr) }

var liftCmd = &cobra.Command{
	Use:   "lift [file]",
	Short: "Lift A32 code to IR",
	Long: `Lift decodes A32 machine code and prints the IR of every instruction.
The input is an ARM ELF image or a raw code file loaded at --address.`,
	Example: `
# Lift a raw blob loaded at 0x8000
armlift lift -a 0x8000 firmware.bin

# Lift two functions of an ELF image as LLVM IR
armlift lift --symbol main --symbol helper -o llvm ./a.out

# Summarise every function
armlift lift --all --report ./libfoo.so
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		symbols, _ := cmd.Flags().GetStringArray("symbol")
		all, _ := cmd.Flags().GetBool("all")
		report, _ := cmd.Flags().GetBool("report")
		stop, _ := cmd.Flags().GetBool("stop-on-fault")

		lg := logging.NewLogger()
		defer lg.Close()

		t, err := openTarget(args[0], cfg, symbols, all, lg.Logger)
		if err != nil {
			return err
		}
		defer t.Close()
		slog.Info("Lifting", "file", t.path, "units", len(t.units), "variant", t.host.Variant())

		results, err := liftTarget(t, liftOptions{stopOnFault: stop, isData: t.isData})
		if err != nil {
			return err
		}
		return emit(cmd.OutOrStdout(), t, results, cfg, report)
	},
}

func liftTarget(t *target, opts liftOptions) ([]liftResult, error) {
	results := make([]liftResult, 0, len(t.units))
	for _, u := range t.units {
		res, err := liftUnit(u, t.host, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// emit writes results in the configured format, or as a rendered report.
func emit(w io.Writer, t *target, results []liftResult, cfg *config.Config, report bool) error {
	color := !cfg.NoColor && colorize.Enabled()
	if report {
		for _, res := range results {
			md := t.report(res).Markdown()
			if color {
				md = styles.RenderMarkdown(md, 100)
			}
			if _, err := fmt.Fprintln(w, md); err != nil {
				return err
			}
		}
		return nil
	}
	switch cfg.Format {
	case config.FormatJSON:
		return writeJSON(w, results)
	case config.FormatLLVM:
		return writeLLVM(w, results)
	}
	for _, res := range results {
		if err := writeText(w, res, color); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	liftCmd.Flags().StringArrayP("symbol", "s", nil, "Lift the named function (repeatable)")
	liftCmd.Flags().Bool("all", false, "Lift every A32 function of an ELF image")
	liftCmd.Flags().Bool("report", false, "Print a Markdown summary instead of the listing")
	liftCmd.Flags().Bool("stop-on-fault", false, "Stop at the first instruction that cannot be lifted")
	liftCmd.Flags().Bool("llvm", false, "Shorthand for --format llvm")
	addRangeFlags(liftCmd)
	rootCmd.AddCommand(liftCmd)
}
