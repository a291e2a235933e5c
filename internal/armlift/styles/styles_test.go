package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/exp/charmtone"
)

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("# main\n\n- `0x1000` call\n", 60)
	for _, want := range []string{"main", "0x1000", "call"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report lacks %q:\n%s", want, out)
		}
	}
}

func TestReportStyle(t *testing.T) {
	s := ReportStyle()
	if s.H1.BackgroundColor == nil || s.Code.Color == nil || s.Table.Color == nil {
		t.Error("title, code or table colour unset")
	}
	if *s.Code.Color != charmtone.Malibu.Hex() {
		t.Errorf("code colour = %s", *s.Code.Color)
	}
}

func TestRendererCached(t *testing.T) {
	a, err := renderer(72)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := renderer(72)
	if a != b {
		t.Error("renderer rebuilt for the same width")
	}
}
