package cmd

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"armlift/internal/arm"
	"armlift/internal/disasm"
	"armlift/internal/logging"
)

// decodeOptions control decodeUnit.
type decodeOptions struct {
	// dump prints the decoded structure of every instruction.
	dump bool
	// compare marks rows whose mnemonic differs from armasm.
	compare bool
}

// decodeUnit runs the decoder alone over u, one word at a time.
func decodeUnit(w io.Writer, u unit, features arm.Features, opts decodeOptions) error {
	dec := arm.NewDecoder(features)
	cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}

	for off := u.offset; off < u.length; off += 4 {
		addr := u.addr + uint64(off-u.offset)
		code := u.raw[off:u.length]
		in, err := dec.Decode(code, uint32(addr))
		if err != nil {
			if _, werr := fmt.Fprintf(w, "%08x  %-8s  ; %v\n", addr, hexWord(code), err); werr != nil {
				return werr
			}
			continue
		}
		line := fmt.Sprintf("%08x  %08x  %s", addr, in.Raw, in)
		if opts.compare {
			ref := disasm.Reference(code[:4], "")
			if mnemonic(ref) != mnemonic(in.String()) {
				line += fmt.Sprintf("  ; armasm: %s", ref)
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if opts.dump {
			cfg.Fdump(w, in)
		}
	}
	return nil
}

func hexWord(b []byte) string {
	if len(b) >= 4 {
		return fmt.Sprintf("%08x", binary.LittleEndian.Uint32(b))
	}
	return fmt.Sprintf("%x", b)
}

// mnemonic returns the first word of an instruction text.
func mnemonic(s string) string {
	for i, r := range s {
		if r == ' ' || r == '\t' {
			return s[:i]
		}
	}
	return s
}

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode A32 code without lifting",
	Long: `Decode runs the instruction decoder alone and prints one line per word.
Words the decoder rejects are shown with the reason.`,
	Example: `
# Show decoded structures
armlift decode --dump -a 0x1000 blob.bin

# Flag disagreements with golang.org/x/arch
armlift decode --compare ./a.out
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		symbols, _ := cmd.Flags().GetStringArray("symbol")
		var opts decodeOptions
		opts.dump, _ = cmd.Flags().GetBool("dump")
		opts.compare, _ = cmd.Flags().GetBool("compare")

		lg := logging.NewLogger()
		defer lg.Close()

		t, err := openTarget(args[0], cfg, symbols, false, lg.Logger)
		if err != nil {
			return err
		}
		defer t.Close()
		for _, u := range t.units {
			fmt.Fprintf(cmd.OutOrStdout(), "; %s @ %#08x (%s)\n", u.name, u.addr, t.host.Variant())
			if err := decodeUnit(cmd.OutOrStdout(), u, t.host.Features(), opts); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	decodeCmd.Flags().StringArrayP("symbol", "s", nil, "Decode the named function (repeatable)")
	decodeCmd.Flags().Bool("dump", false, "Dump every decoded instruction structure")
	decodeCmd.Flags().Bool("compare", false, "Mark mnemonics that differ from armasm")
	addRangeFlags(decodeCmd)
	rootCmd.AddCommand(decodeCmd)
}
