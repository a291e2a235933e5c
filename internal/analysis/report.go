package analysis

import (
	"fmt"
	"sort"
	"strings"

	"armlift/internal/rewriter"
)

// Report summarises one lift.
type Report struct {
	Name         string
	Start, End   uint64
	Instructions int
	Conditional  int
	Classes      map[rewriter.Class]int
	Findings     []Finding
	Faults       []Fault
}

// Build scans ls, runs chain over the findings and records faults.
// chain may be nil.
func Build(name string, ls []rewriter.Lifted, faults []Fault, chain *DetectorChain) *Report {
	r := &Report{
		Name:    name,
		Classes: map[rewriter.Class]int{},
		Faults:  faults,
	}
	for i, l := range ls {
		if i == 0 || l.Address < r.Start {
			r.Start = l.Address
		}
		if end := l.Address + uint64(l.Length); end > r.End {
			r.End = end
		}
		r.Instructions++
		r.Classes[l.Class]++
		if l.Conditional {
			r.Conditional++
		}
	}
	r.Findings = Scan(ls)
	if chain != nil {
		r.Findings = chain.Detect(r.Findings)
	}
	for _, f := range faults {
		r.Findings = append(r.Findings, Finding{Kind: KindFault, Addr: f.Addr, Detail: f.Err.Error()})
	}
	sort.SliceStable(r.Findings, func(i, j int) bool { return r.Findings[i].Addr < r.Findings[j].Addr })
	return r
}

// Count returns the number of findings of kind k.
func (r *Report) Count(k Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == k {
			n++
		}
	}
	return n
}

// Markdown renders the report for glamour.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Name)
	fmt.Fprintf(&b, "`%#08x`..`%#08x`: **%d** instructions, %d conditional.\n\n", r.Start, r.End, r.Instructions, r.Conditional)

	b.WriteString("## Classes\n\n| class | count |\n|---|---|\n")
	for c := rewriter.ClassLinear; c <= rewriter.ClassUnsupported; c++ {
		fmt.Fprintf(&b, "| %s | %d |\n", c, r.Classes[c])
	}

	sections := []struct {
		kind  Kind
		title string
	}{
		{KindCall, "Calls"},
		{KindIndirect, "Indirect transfers"},
		{KindLiteral, "Literals"},
		{KindPlaceholder, "Unsupported instructions"},
		{KindFault, "Faults"},
	}
	for _, s := range sections {
		if r.Count(s.kind) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", s.title)
		for _, f := range r.Findings {
			if f.Kind != s.kind {
				continue
			}
			b.WriteString("- " + markdownItem(f) + "\n")
		}
	}
	return b.String()
}

func markdownItem(f Finding) string {
	s := fmt.Sprintf("`%#08x`", f.Addr)
	switch f.Kind {
	case KindCall:
		s += fmt.Sprintf(" → `%#x`", f.Target)
		if f.Symbol != "" {
			s += " " + escapeBackticks(f.Symbol)
		}
	case KindLiteral:
		s += fmt.Sprintf(" pool `%#x` = `%#08x`", f.Target, f.Value)
		if f.Detail != "" {
			s += " " + escapeBackticks(f.Detail)
		}
	default:
		s += " `" + escapeBackticks(f.Detail) + "`"
	}
	return s
}

func escapeBackticks(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}
