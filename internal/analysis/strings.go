package analysis

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// EscapeUnprintable returns a string where printable Unicode runes are preserved.
// Control and unprintable runes are escaped as \uXXXX. Invalid UTF-8 is escaped as \xXX.
func EscapeUnprintable(b []byte) string {
	var sb strings.Builder
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteString(fmt.Sprintf("\\x%02X", b[0]))
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteString(fmt.Sprintf("\\u%04X", r))
		}
		b = b[size:]
	}
	return sb.String()
}

// IsPrintable reports whether an escaped string needed no escapes.
func IsPrintable(s string) bool { return !strings.Contains(s, `\x`) && !strings.Contains(s, `\u`) }

// ReadAndEscapeString reads a NUL-terminated string of at most maxLen
// bytes at va. It returns the escaped string and its length in bytes.
// A string cut short by the end of the image is not a string.
func ReadAndEscapeString(mem Reader, va uint64, maxLen int) (escaped string, n int, ok bool) {
	raw, ok := mem.ReadBytesVA(va, maxLen)
	if !ok {
		// Near the end of a segment: read byte by byte.
		raw = raw[:0]
		for i := 0; i < maxLen; i++ {
			b, ok := mem.ReadBytesVA(va+uint64(i), 1)
			if !ok {
				return "", 0, false
			}
			raw = append(raw, b[0])
			if b[0] == 0 {
				break
			}
		}
	}
	for i, b := range raw {
		if b == 0 {
			return EscapeUnprintable(raw[:i]), i, true
		}
	}
	return EscapeUnprintable(raw), len(raw), true
}
