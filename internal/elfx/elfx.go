// Package elfx opens 32-bit ARM ELF images, locates their code and symbols,
// and maps virtual addresses to file offsets.
package elfx

import (
	"debug/elf"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

type Image struct {
	Path     string
	File     *elf.File
	All      []byte
	Loads    []Seg
	Text     Section
	PLT      Section
	Syms     []Sym
	Mapping  []MapSym
	PLTStubs []PLTStub
	PLTRels  []PLTRel
	Attrs    Attributes
	f        *os.File
}

type Seg struct {
	Vaddr, Off, Filesz uint64
	Flags              elf.ProgFlag
}

type Section struct {
	Name          string
	VA, Off, Size uint64
}

// Sym is a defined function or object symbol. Thumb functions have the
// low address bit cleared and Thumb set.
type Sym struct {
	Name    string
	Addr    uint64
	Size    uint64
	Func    bool
	Thumb   bool
	Dynamic bool
}

// MapSym is an ARM mapping symbol: $a starts A32 code, $t Thumb code and
// $d data.
type MapSym struct {
	Addr uint64
	Kind byte
}

type PLTStub struct {
	Addr    uint64
	GOTAddr uint64
}

type PLTRel struct {
	Offset  uint64
	SymName string
	PLTAddr uint64
}

func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open elf")
	}
	if f.Class != elf.ELFCLASS32 || f.Machine != elf.EM_ARM {
		f.Close()
		return nil, errors.Errorf("%s: not a 32-bit ARM image (%v, %v)", path, f.Class, f.Machine)
	}

	of, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "open file")
	}

	fi, err := of.Stat()
	if err != nil {
		of.Close()
		f.Close()
		return nil, errors.Wrap(err, "stat file")
	}

	var all []byte
	if fi.Size() > 0 {
		all, err = syscall.Mmap(int(of.Fd()), 0, int(fi.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
		if err != nil {
			of.Close()
			f.Close()
			return nil, errors.Wrap(err, "mmap file")
		}
	}

	im := &Image{Path: path, File: f, All: all, f: of}
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD {
			continue
		}
		im.Loads = append(im.Loads, Seg{
			Vaddr:  p.Vaddr,
			Off:    p.Off,
			Filesz: p.Filesz,
			Flags:  p.Flags,
		})
	}

	for _, s := range f.Sections {
		switch s.Name {
		case ".text":
			im.Text = Section{s.Name, s.Addr, s.Offset, s.Size}
		case ".plt":
			im.PLT = Section{s.Name, s.Addr, s.Offset, s.Size}
		case ".ARM.attributes":
			data, err := s.Data()
			if err != nil {
				im.Close()
				return nil, errors.Wrap(err, "read .ARM.attributes")
			}
			if im.Attrs, err = ParseAttributes(data); err != nil {
				im.Close()
				return nil, err
			}
		}
	}

	im.loadSymbols()
	im.parsePLTStubs()
	im.parsePLTRelocations()

	// Stripped images fall back to the first executable segment.
	if im.Text.Size == 0 {
		for _, l := range im.Loads {
			if l.Flags&elf.PF_X != 0 && l.Filesz > 0 {
				im.Text = Section{"LOAD(exec)", l.Vaddr, l.Off, l.Filesz}
				break
			}
		}
	}
	return im, nil
}

// Close unmaps the memory and closes the underlying files.
func (im *Image) Close() error {
	var err1, err2 error
	if im.All != nil {
		err1 = syscall.Munmap(im.All)
		im.All = nil
	}
	if im.f != nil {
		err2 = im.f.Close()
		im.f = nil
	}
	if im.File != nil {
		if err3 := im.File.Close(); err3 != nil && err2 == nil {
			err2 = err3
		}
		im.File = nil
	}
	if err1 != nil {
		return err1
	}
	return err2
}

// VA2Off translates a virtual address into a file offset
// using PT_LOAD segments. It returns false if VA is unmapped.
func (im *Image) VA2Off(va uint64) (uint64, bool) {
	for _, l := range im.Loads {
		if va >= l.Vaddr && va < l.Vaddr+l.Filesz {
			return l.Off + (va - l.Vaddr), true
		}
	}
	return 0, false
}

// SliceVA returns the mapped bytes of [va, va+size). It returns false if
// the range is unmapped or runs past the file.
func (im *Image) SliceVA(va uint64, size uint64) ([]byte, bool) {
	off, ok := im.VA2Off(va)
	if !ok {
		return nil, false
	}
	if size == 0 {
		return []byte{}, true
	}
	end := off + size
	if end > uint64(len(im.All)) {
		return nil, false
	}
	return im.All[off:end], true
}

// ReadBytesVA reads exactly size bytes from a virtual address.
func (im *Image) ReadBytesVA(va uint64, size int) ([]byte, bool) {
	if size <= 0 {
		return []byte{}, true
	}
	return im.SliceVA(va, uint64(size))
}

// InText reports whether va lies in the code section.
func (im *Image) InText(va uint64) bool {
	return im.Text.Size != 0 && va >= im.Text.VA && va < im.Text.VA+im.Text.Size
}

// IsPLTEntry reports whether va lies in .plt.
func (im *Image) IsPLTEntry(va uint64) bool {
	return im.PLT.Size != 0 && va >= im.PLT.VA && va < im.PLT.VA+im.PLT.Size
}

func (im *Image) loadSymbols() {
	if im.File == nil {
		return
	}
	if syms, err := im.File.Symbols(); err == nil {
		im.addSymbols(syms, false)
	}
	if syms, err := im.File.DynamicSymbols(); err == nil {
		im.addSymbols(syms, true)
	}
	sort.SliceStable(im.Syms, func(i, j int) bool { return im.Syms[i].Addr < im.Syms[j].Addr })
	sort.SliceStable(im.Mapping, func(i, j int) bool { return im.Mapping[i].Addr < im.Mapping[j].Addr })
}

func (im *Image) addSymbols(syms []elf.Symbol, dynamic bool) {
	for _, s := range syms {
		if s.Section == elf.SHN_UNDEF || s.Name == "" {
			continue
		}
		if s.Name[0] == '$' {
			// $a, $t, $d and their $x.suffix forms.
			if !dynamic && len(s.Name) >= 2 && strings.ContainsRune("atd", rune(s.Name[1])) {
				im.Mapping = append(im.Mapping, MapSym{Addr: s.Value, Kind: s.Name[1]})
			}
			continue
		}
		typ := elf.ST_TYPE(s.Info)
		if typ != elf.STT_FUNC && typ != elf.STT_OBJECT && typ != elf.STT_NOTYPE {
			continue
		}
		sym := Sym{Name: s.Name, Addr: s.Value, Size: s.Size, Func: typ == elf.STT_FUNC, Dynamic: dynamic}
		if sym.Func && sym.Addr&1 != 0 {
			sym.Addr &^= 1
			sym.Thumb = true
		}
		if dynamic && im.hasSymbol(sym.Name, sym.Addr) {
			continue
		}
		im.Syms = append(im.Syms, sym)
	}
}

func (im *Image) hasSymbol(name string, addr uint64) bool {
	for _, s := range im.Syms {
		if s.Addr == addr && s.Name == name {
			return true
		}
	}
	return false
}

// SymbolAt returns the first symbol defined exactly at va.
func (im *Image) SymbolAt(va uint64) (Sym, bool) {
	i := sort.Search(len(im.Syms), func(i int) bool { return im.Syms[i].Addr >= va })
	if i < len(im.Syms) && im.Syms[i].Addr == va {
		return im.Syms[i], true
	}
	return Sym{}, false
}

// FindFunctionByName returns the function symbol called name.
func (im *Image) FindFunctionByName(name string) (Sym, bool) {
	for _, s := range im.Syms {
		if s.Name == name && s.Func {
			return s, true
		}
	}
	return Sym{}, false
}

// Functions returns the A32 function symbols that have a size, in address
// order.
func (im *Image) Functions() []Sym {
	var out []Sym
	for _, s := range im.Syms {
		if s.Func && !s.Thumb && s.Size > 0 && (len(out) == 0 || out[len(out)-1].Addr != s.Addr) {
			out = append(out, s)
		}
	}
	return out
}

// IsData reports whether the mapping symbols mark va as data, such as a
// literal pool inside a function.
func (im *Image) IsData(va uint64) bool {
	i := sort.Search(len(im.Mapping), func(i int) bool { return im.Mapping[i].Addr > va })
	return i > 0 && im.Mapping[i-1].Kind == 'd'
}

// parsePLTRelocations reads .rel.plt and attaches symbol names to the stubs
// whose GOT slot each relocation patches.
func (im *Image) parsePLTRelocations() {
	if im.File == nil {
		return
	}
	section := im.File.Section(".rel.plt")
	if section == nil {
		return
	}
	data, err := section.Data()
	if err != nil {
		return
	}
	dynsyms, err := im.File.DynamicSymbols()
	if err != nil {
		return
	}

	bo := im.File.ByteOrder
	// Elf32_Rel: r_offset(4) + r_info(4)
	for off := 0; off+8 <= len(data); off += 8 {
		rOffset := uint64(bo.Uint32(data[off:]))
		symIndex := bo.Uint32(data[off+4:]) >> 8

		var name string
		if symIndex > 0 && int(symIndex) <= len(dynsyms) {
			name = dynsyms[symIndex-1].Name
		}
		rel := PLTRel{Offset: rOffset, SymName: name}
		for _, stub := range im.PLTStubs {
			if stub.GOTAddr == rOffset {
				rel.PLTAddr = stub.Addr
				break
			}
		}
		im.PLTRels = append(im.PLTRels, rel)
	}
}

// PLTName returns the imported symbol that the stub at va jumps through.
func (im *Image) PLTName(va uint64) (string, bool) {
	for _, r := range im.PLTRels {
		if r.PLTAddr == va && r.SymName != "" {
			return r.SymName, true
		}
	}
	return "", false
}
