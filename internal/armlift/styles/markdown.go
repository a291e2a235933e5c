package styles

import (
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/x/exp/charmtone"
)

// palette names the colours a lift report uses.
type palette struct {
	text, heading, title, titleBg, addr, table charmtone.Key
}

var reportPalette = palette{
	text:    charmtone.Smoke,
	heading: charmtone.Malibu,
	title:   charmtone.Zest,
	titleBg: charmtone.Charple,
	addr:    charmtone.Malibu,
	table:   charmtone.Squid,
}

func hex(k charmtone.Key) *string {
	s := k.Hex()
	return &s
}

func on() *bool { b := true; return &b }

// ReportStyle is the glamour style of lift reports. Reports are headings,
// a class table and address lists, so only those elements are styled.
func ReportStyle() ansi.StyleConfig {
	p := reportPalette
	var s ansi.StyleConfig
	s.Document.Color = hex(p.text)
	s.Heading.Color = hex(p.heading)
	s.Heading.Bold = on()
	s.Heading.BlockSuffix = "\n"
	s.H1.Prefix, s.H1.Suffix = " ", " "
	s.H1.Color = hex(p.title)
	s.H1.BackgroundColor = hex(p.titleBg)
	s.H2.Prefix = "## "
	s.List.LevelIndent = 2
	s.Item.BlockPrefix = "• "
	s.Strong.Bold = on()
	s.Code.Color = hex(p.addr)
	s.Table.Color = hex(p.table)
	return s
}

var (
	renderersMu sync.Mutex
	renderers   = map[int]*glamour.TermRenderer{}
)

// renderer returns a report renderer wrapping at width, built once per width.
func renderer(width int) (*glamour.TermRenderer, error) {
	renderersMu.Lock()
	defer renderersMu.Unlock()
	if r, ok := renderers[width]; ok {
		return r, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(ReportStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	renderers[width] = r
	return r, nil
}

// RenderMarkdown renders md at width, returning md itself when rendering fails.
func RenderMarkdown(md string, width int) string {
	r, err := renderer(width)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
