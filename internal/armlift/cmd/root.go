package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"armlift/internal/armlift/log"
	"armlift/internal/config"
)

func init() {
	addGlobalFlags(rootCmd.PersistentFlags())
	rootCmd.Flags().BoolP("help", "h", false, "Help")
}

// addGlobalFlags adds the flags every command accepts.
func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringP("cwd", "c", "", "Current working directory")
	fs.String("config", "", "JSON configuration file")
	fs.BoolP("debug", "d", false, "Debug")
	fs.String("log-file", "", "Write logs to this file")
	fs.Bool("no-color", false, "Disable colour output")
	fs.StringP("variant", "V", "", "Architecture variant (armv4 ... armv7ve)")
	fs.StringToString("sym", nil, "Extra symbol as address=name (repeatable)")
}

var rootCmd = &cobra.Command{
	Use:   "armlift",
	Short: "A32 machine code to IR lifter",
	Long: `Armlift decodes 32-bit ARM (A32) machine code and lifts every instruction
to a small register-transfer IR, printable as a listing, JSON or LLVM IR.`,
	Example: `
# Lift a raw code blob
armlift lift -a 0x8000 blob.bin

# Browse the functions of an ELF image
armlift view ./libfoo.so
  `,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := ResolveCwd(cmd); err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log.Setup(cfg.LogFile, cfg.Debug)
		return nil
	},
}

// addRangeFlags adds the flags that pick and place raw code.
func addRangeFlags(c *cobra.Command) {
	c.Flags().StringP("address", "a", "", "Load address of the first byte of a raw file")
	c.Flags().Uint32("offset", 0, "Byte offset at which to start")
	c.Flags().Uint32("length", 0, "Bytes of the file to consider (0 = all)")
	c.Flags().StringP("format", "o", "", "Output format: text, json or llvm")
}

// loadConfig layers the --config file, the environment and the flags of cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}
	if changed("variant") {
		cfg.Variant, _ = flags.GetString("variant")
	}
	if changed("address") {
		s, _ := flags.GetString("address")
		a, err := config.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("--address: %w", err)
		}
		cfg.Address = a
	}
	if changed("offset") {
		cfg.Offset, _ = flags.GetUint32("offset")
	}
	if changed("length") {
		cfg.Length, _ = flags.GetUint32("length")
	}
	if changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if changed("llvm") {
		if on, _ := flags.GetBool("llvm"); on {
			cfg.Format = config.FormatLLVM
		}
	}
	if changed("no-color") {
		cfg.NoColor, _ = flags.GetBool("no-color")
	}
	if changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}
	if changed("sym") {
		syms, _ := flags.GetStringToString("sym")
		if cfg.Symbols == nil {
			cfg.Symbols = map[string]string{}
		}
		for addr, name := range syms {
			cfg.Symbols[addr] = name
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Execute() {
	// Use cobra directly when piping so that listings stay plain text.
	if !term.IsTerminal(os.Stdout.Fd()) {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}
