package analysis

import (
	"encoding/binary"
	"fmt"
)

// Detector interface for pattern detection on findings
type Detector interface {
	// Detect enriches findings. It can modify existing findings or add new ones.
	Detect(findings []Finding) []Finding
}

// DetectorChain runs multiple detectors in sequence
type DetectorChain struct {
	detectors []Detector
}

// NewDetectorChain creates a new detector chain
func NewDetectorChain(detectors ...Detector) *DetectorChain {
	return &DetectorChain{
		detectors: detectors,
	}
}

// Detect runs all detectors in sequence
func (dc *DetectorChain) Detect(findings []Finding) []Finding {
	result := findings
	for _, detector := range dc.detectors {
		result = detector.Detect(result)
	}
	return result
}

// SymbolDetector names call targets that the lifter left anonymous.
type SymbolDetector struct {
	Lookup func(addr uint64) (string, bool)
}

func (d SymbolDetector) Detect(findings []Finding) []Finding {
	for i := range findings {
		f := &findings[i]
		if f.Kind != KindCall || !f.HasTarget {
			continue
		}
		if f.Symbol == "" && d.Lookup != nil {
			if name, ok := d.Lookup(f.Target); ok {
				f.Symbol = name
			}
		}
		f.Symbol = CachedDemangle(f.Symbol)
	}
	return findings
}

// LiteralDetector reads the words of PC-relative literal loads and,
// when a word points at a printable C string, records the string.
type LiteralDetector struct {
	Mem Reader
}

func (d LiteralDetector) Detect(findings []Finding) []Finding {
	if d.Mem == nil {
		return findings
	}
	for i := range findings {
		f := &findings[i]
		if f.Kind != KindLiteral {
			continue
		}
		b, ok := d.Mem.ReadBytesVA(f.Target, 4)
		if !ok || len(b) < 4 {
			continue
		}
		f.Value = binary.LittleEndian.Uint32(b)
		if s, n, ok := ReadAndEscapeString(d.Mem, uint64(f.Value), MaxStringLength); ok && n >= MinStringLength && IsPrintable(s) {
			f.Detail = fmt.Sprintf("%q", s)
		}
	}
	return findings
}
