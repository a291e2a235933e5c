// Package config holds the settings shared by the armlift commands.
//
// Settings are layered: defaults, then an optional JSON file, then ARMLIFT_*
// environment variables, then command-line flags.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"

	"armlift/internal/arm"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatLLVM = "llvm"
)

// Config is the configuration of a lift.
type Config struct {
	Variant string            `json:"variant,omitempty" jsonschema:"title=Variant,description=Architecture variant such as armv5te or armv7,default=armv7"`
	Address uint64            `json:"address,omitempty" jsonschema:"title=Load Address,description=Address of the first byte of a raw image"`
	Offset  uint32            `json:"offset,omitempty" jsonschema:"title=Offset,description=Byte offset at which lifting starts"`
	Length  uint32            `json:"length,omitempty" jsonschema:"title=Length,description=Number of bytes to consider; 0 means the whole input"`
	Format  string            `json:"format,omitempty" jsonschema:"title=Format,description=Output format,enum=text,enum=json,enum=llvm,default=text"`
	NoColor bool              `json:"noColor,omitempty" jsonschema:"title=No Color,description=Disable coloured listings"`
	Symbols map[string]string `json:"symbols,omitempty" jsonschema:"title=Symbols,description=Extra symbol names keyed by hexadecimal address"`
	Debug   bool              `json:"debug,omitempty" jsonschema:"title=Debug,description=Enable debug logging"`
	LogFile string            `json:"logFile,omitempty" jsonschema:"title=Log File,description=Write logs to this file instead of stderr"`
}

// Default returns the built-in settings. The variant is left empty so that
// an ELF image's build attributes can choose it.
func Default() *Config {
	return &Config{Format: FormatText}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides c with the ARMLIFT_* variables present in env.
// env is normally os.Getenv.
func (c *Config) ApplyEnv(env func(string) string) error {
	if v := env("ARMLIFT_VARIANT"); v != "" {
		c.Variant = v
	}
	if v := env("ARMLIFT_FORMAT"); v != "" {
		c.Format = v
	}
	if v := env("ARMLIFT_ADDRESS"); v != "" {
		a, err := ParseAddress(v)
		if err != nil {
			return fmt.Errorf("ARMLIFT_ADDRESS: %w", err)
		}
		c.Address = a
	}
	if env("ARMLIFT_NO_COLOR") != "" || env("NO_COLOR") != "" {
		c.NoColor = true
	}
	if v := env("ARMLIFT_DEBUG"); v != "" {
		d, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ARMLIFT_DEBUG: %w", err)
		}
		c.Debug = d
	}
	if v := env("ARMLIFT_LOG_FILE"); v != "" {
		c.LogFile = v
	}
	return nil
}

// Validate checks that every setting can be used.
func (c *Config) Validate() error {
	if _, err := c.ParsedVariant(); err != nil {
		return err
	}
	switch c.Format {
	case FormatText, FormatJSON, FormatLLVM:
	default:
		return fmt.Errorf("unknown output format %q", c.Format)
	}
	if c.Length != 0 && c.Offset > c.Length {
		return fmt.Errorf("offset %d beyond length %d", c.Offset, c.Length)
	}
	if c.Address > 0xFFFFFFFF {
		return fmt.Errorf("address %#x outside the 32-bit address space", c.Address)
	}
	if _, err := c.SymbolMap(); err != nil {
		return err
	}
	return nil
}

// ParsedVariant returns the configured variant, or the default when unset.
func (c *Config) ParsedVariant() (arm.Variant, error) {
	if c.Variant == "" {
		return arm.DefaultVariant, nil
	}
	return arm.ParseVariant(c.Variant)
}

// SymbolMap returns the configured symbols keyed by address.
func (c *Config) SymbolMap() (map[uint64]string, error) {
	out := make(map[uint64]string, len(c.Symbols))
	for k, name := range c.Symbols {
		a, err := ParseAddress(k)
		if err != nil {
			return nil, fmt.Errorf("symbol %q: %w", name, err)
		}
		out[a] = name
	}
	return out, nil
}

// ParseAddress accepts decimal and 0x-prefixed hexadecimal addresses.
func ParseAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if h, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		return strconv.ParseUint(h, 16, 32)
	}
	return strconv.ParseUint(s, 10, 32)
}

// Schema returns the JSON schema of Config.
func Schema() ([]byte, error) {
	reflector := new(jsonschema.Reflector)
	bts, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return bts, nil
}
