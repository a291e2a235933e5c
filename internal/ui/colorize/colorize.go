// Package colorize highlights listing rows for the terminal.
package colorize

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Enabled reports whether colour output is wanted. ARMLIFT_NO_COLOR and
// NO_COLOR switch it off.
func Enabled() bool {
	return os.Getenv("ARMLIFT_NO_COLOR") == "" && os.Getenv("NO_COLOR") == ""
}

// assemblyLexer returns an assembly lexer, ARM first.
func assemblyLexer() chroma.Lexer {
	for _, name := range []string{"armasm", "gas", "nasm"} {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func listingStyle() *chroma.Style {
	for _, name := range []string{"armlift-dark", "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func terminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Assembly highlights disassembly text. On any failure the input is
// returned unchanged together with the error.
func Assembly(code string) (string, error) {
	if !Enabled() {
		return code, nil
	}
	lexer := assemblyLexer()
	if lexer == nil {
		return code, nil
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var buf strings.Builder
	if err := terminalFormatter().Format(&buf, listingStyle(), iterator); err != nil {
		return code, err
	}
	out := buf.String()
	if !strings.Contains(code, "\n") {
		// Lexers terminate their input with a newline.
		out = strings.ReplaceAll(out, "\n", "")
	}
	return out, nil
}

const (
	addrColor = "\033[38;2;79;79;79m"
	irColor   = "\033[38;2;124;156;157m"
	warnColor = "\033[38;2;255;95;135m"
	reset     = "\033[0m"
)

// Address greys out an address column.
func Address(s string) string { return paint(addrColor, s) }

// IR colours one rendered IR statement. Placeholders stand out.
func IR(s string) string {
	if strings.Contains(s, "<unsupported ") {
		return paint(warnColor, s)
	}
	return paint(irColor, s)
}

// Fault colours an error line.
func Fault(s string) string { return paint(warnColor, s) }

func paint(color, s string) string {
	if !Enabled() {
		return s
	}
	return fmt.Sprintf("%s%s%s", color, s, reset)
}

// StripANSI removes escape sequences.
func StripANSI(s string) string {
	var result strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

// VisibleLen counts the characters StripANSI would keep.
func VisibleLen(s string) int { return len([]rune(StripANSI(s))) }
