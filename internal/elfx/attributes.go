package elfx

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Build attribute tags of the "aeabi" vendor section.
const (
	TagFile            = 1
	TagCPURawName      = 4
	TagCPUName         = 5
	TagCPUArch         = 6
	TagCPUArchProfile  = 7
	TagARMISAUse       = 8
	TagTHUMBISAUse     = 9
	TagCompatibility   = 32
	TagDIVUse          = 44
	TagAlsoCompatible  = 65
	TagConformance     = 67
	attributesVersionA = 'A'
)

// Tag_CPU_arch values.
const (
	CPUArchPreV4 = iota
	CPUArchV4
	CPUArchV4T
	CPUArchV5T
	CPUArchV5TE
	CPUArchV5TEJ
	CPUArchV6
	CPUArchV6KZ
	CPUArchV6T2
	CPUArchV6K
	CPUArchV7
	CPUArchV6M
	CPUArchV6SM
	CPUArchV7EM
	CPUArchV8A
)

// Attributes holds the file-scope build attributes of the "aeabi" vendor.
type Attributes struct {
	Ints    map[uint64]uint64
	Strings map[uint64]string
}

// Int returns the integer attribute tag.
func (a Attributes) Int(tag uint64) (uint64, bool) {
	v, ok := a.Ints[tag]
	return v, ok
}

// CPUArch returns Tag_CPU_arch.
func (a Attributes) CPUArch() (uint64, bool) { return a.Int(TagCPUArch) }

// CPUName returns Tag_CPU_name, e.g. "7-A" or "ARM926EJ-S".
func (a Attributes) CPUName() string { return a.Strings[TagCPUName] }

// ParseAttributes decodes a .ARM.attributes section. Vendors other than
// "aeabi" and the section and symbol scoped subsections are skipped.
func ParseAttributes(b []byte) (Attributes, error) {
	attrs := Attributes{Ints: map[uint64]uint64{}, Strings: map[uint64]string{}}
	if len(b) == 0 {
		return attrs, nil
	}
	if b[0] != attributesVersionA {
		return attrs, errors.Errorf("attributes: unknown format version %#x", b[0])
	}
	b = b[1:]
	for len(b) > 0 {
		if len(b) < 4 {
			return attrs, errors.New("attributes: truncated section length")
		}
		n := binary.LittleEndian.Uint32(b)
		if n < 4 || uint64(n) > uint64(len(b)) {
			return attrs, errors.Errorf("attributes: bad section length %d", n)
		}
		sec := b[4:n]
		b = b[n:]

		nul := bytes.IndexByte(sec, 0)
		if nul < 0 {
			return attrs, errors.New("attributes: unterminated vendor name")
		}
		if string(sec[:nul]) != "aeabi" {
			continue
		}
		if err := attrs.parseSubsections(sec[nul+1:]); err != nil {
			return attrs, err
		}
	}
	return attrs, nil
}

func (a Attributes) parseSubsections(b []byte) error {
	for len(b) > 0 {
		if len(b) < 5 {
			return errors.New("attributes: truncated subsection")
		}
		tag := b[0]
		n := binary.LittleEndian.Uint32(b[1:])
		if n < 5 || uint64(n) > uint64(len(b)) {
			return errors.Errorf("attributes: bad subsection length %d", n)
		}
		body := b[5:n]
		b = b[n:]
		if tag != TagFile {
			continue
		}
		if err := a.parseTags(body); err != nil {
			return err
		}
	}
	return nil
}

func (a Attributes) parseTags(b []byte) error {
	for len(b) > 0 {
		tag, n := binary.Uvarint(b)
		if n <= 0 {
			return errors.New("attributes: bad tag")
		}
		b = b[n:]

		if tag == TagCompatibility {
			// ULEB128 flag followed by a vendor name.
			_, n := binary.Uvarint(b)
			if n <= 0 {
				return errors.New("attributes: bad compatibility flag")
			}
			b = b[n:]
		}
		if isStringTag(tag) {
			nul := bytes.IndexByte(b, 0)
			if nul < 0 {
				return errors.Errorf("attributes: unterminated string for tag %d", tag)
			}
			a.Strings[tag] = string(b[:nul])
			b = b[nul+1:]
			continue
		}
		v, n := binary.Uvarint(b)
		if n <= 0 {
			return errors.Errorf("attributes: bad value for tag %d", tag)
		}
		a.Ints[tag] = v
		b = b[n:]
	}
	return nil
}

func isStringTag(tag uint64) bool {
	switch tag {
	case TagCPURawName, TagCPUName, TagCompatibility:
		return true
	}
	return tag > TagCompatibility && tag&1 == 1
}
