package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug": log.DebugLevel,
		"warn":  log.WarnLevel,
		"error": log.ErrorLevel,
		"":      log.InfoLevel,
		"loud":  log.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerFromEnv(t *testing.T) {
	t.Setenv("ARMLIFT_LOG_LEVEL", "warn")
	t.Setenv("ARMLIFT_LOG_PREFIX", "test ")

	var buf bytes.Buffer
	lc := NewLoggerWithWriter(&buf)
	lc.Info("hidden")
	lc.Warn("unsupported opcode", "addr", "0x1000")
	if err := lc.Close(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %q", out)
	}
	if !strings.Contains(out, "test") || !strings.Contains(out, "unsupported opcode") {
		t.Errorf("missing warn line: %q", out)
	}
	if IsDebug() {
		t.Error("IsDebug at warn level")
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armlift.log")
	lc, err := NewFileLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	if lc.Path() != path {
		t.Errorf("Path() = %q", lc.Path())
	}
	lc.Error("decode failed", "addr", "0x2000")
	if err := lc.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "decode failed") {
		t.Errorf("log file = %q", b)
	}
}
