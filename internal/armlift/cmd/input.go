package cmd

import (
	"bytes"
	"debug/elf"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"armlift/internal/analysis"
	"armlift/internal/config"
	"armlift/internal/elfx"
	"armlift/internal/host"
)

// unit is one range of code lifted as a whole: a function, the text
// section, or a slice of a raw file.
type unit struct {
	name   string
	raw    []byte
	length uint32
	offset uint32
	// addr is the address of raw[offset].
	addr uint64
}

func (u unit) end() uint64 { return u.addr + uint64(u.length-u.offset) }

// target is an opened input file.
type target struct {
	path  string
	host  *host.Static
	image *elfx.Image
	units []unit
}

func (t *target) Close() error {
	if t.image != nil {
		return t.image.Close()
	}
	return nil
}

// isData reports whether mapping symbols mark addr as data.
func (t *target) isData(addr uint64) bool {
	return t.image != nil && t.image.IsData(addr)
}

// reader returns the image for literal lookups, or nil for raw files.
func (t *target) reader() analysis.Reader {
	if t.image == nil {
		return nil
	}
	return t.image
}

func isELF(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	magic := make([]byte, len(elf.ELFMAG))
	if _, err := f.Read(magic); err != nil {
		return false, nil
	}
	return bytes.Equal(magic, []byte(elf.ELFMAG)), nil
}

// openTarget opens path as an ARM ELF image or, failing the ELF magic, as
// raw A32 code loaded at cfg.Address. symbols selects functions of an ELF
// image; all selects every A32 function; neither selects .text.
func openTarget(path string, cfg *config.Config, symbols []string, all bool, lg *log.Logger) (*target, error) {
	extra, err := cfg.SymbolMap()
	if err != nil {
		return nil, err
	}
	opts := []host.Option{host.WithSymbols(extra), host.WithLogger(lg)}
	if cfg.Variant != "" {
		v, err := cfg.ParsedVariant()
		if err != nil {
			return nil, err
		}
		opts = append(opts, host.WithVariant(v))
	}

	ok, err := isELF(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return openRaw(path, cfg, opts)
	}

	im, err := elfx.Open(path)
	if err != nil {
		return nil, err
	}
	t := &target{path: path, image: im, host: host.NewELF(im, opts...).Static}
	switch {
	case len(symbols) > 0:
		for _, name := range symbols {
			s, ok := findFunction(im, name)
			if !ok {
				im.Close()
				return nil, fmt.Errorf("no A32 function %q in %s", name, path)
			}
			u, err := symbolUnit(im, s)
			if err != nil {
				im.Close()
				return nil, err
			}
			t.units = append(t.units, u)
		}
	case all:
		for _, s := range im.Functions() {
			if u, err := symbolUnit(im, s); err == nil {
				t.units = append(t.units, u)
			}
		}
	default:
		raw, ok := im.SliceVA(im.Text.VA, im.Text.Size)
		if !ok || im.Text.Size == 0 {
			im.Close()
			return nil, fmt.Errorf("%s has no mapped .text", path)
		}
		t.units = append(t.units, unit{name: ".text", raw: raw, length: uint32(len(raw)), addr: im.Text.VA})
	}
	return t, nil
}

func openRaw(path string, cfg *config.Config, opts []host.Option) (*target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	length := cfg.Length
	if length == 0 {
		length = uint32(len(raw))
	}
	if int(length) > len(raw) || cfg.Offset > length {
		return nil, fmt.Errorf("range %d..%d outside %s (%d bytes)", cfg.Offset, length, path, len(raw))
	}
	v, err := cfg.ParsedVariant()
	if err != nil {
		return nil, err
	}
	return &target{
		path: path,
		host: host.NewStatic(v, opts...),
		units: []unit{{
			name:   path,
			raw:    raw,
			length: length,
			offset: cfg.Offset,
			addr:   cfg.Address + uint64(cfg.Offset),
		}},
	}, nil
}

// findFunction looks name up as written, then among demangled names.
func findFunction(im *elfx.Image, name string) (elfx.Sym, bool) {
	if s, ok := im.FindFunctionByName(name); ok && !s.Thumb {
		return s, true
	}
	for _, s := range im.Functions() {
		if analysis.CachedDemangle(s.Name) == name {
			return s, true
		}
	}
	return elfx.Sym{}, false
}

func symbolUnit(im *elfx.Image, s elfx.Sym) (unit, error) {
	if s.Size == 0 {
		return unit{}, fmt.Errorf("function %s has no size", s.Name)
	}
	raw, ok := im.SliceVA(s.Addr, s.Size)
	if !ok {
		return unit{}, fmt.Errorf("function %s at %#x is not mapped", s.Name, s.Addr)
	}
	return unit{name: analysis.CachedDemangle(s.Name), raw: raw, length: uint32(len(raw)), addr: s.Addr}, nil
}
