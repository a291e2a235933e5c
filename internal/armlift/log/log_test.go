package log

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "armlift.log")
	Setup(path, true)
	if !Initialized() {
		t.Fatal("Setup did not initialise")
	}
	// Later calls keep the first handler.
	Setup("", false)

	slog.Debug("Lift fault", "addr", "0x1004")
	func() {
		defer RecoverPanic("test", nil)
		panic("bad word")
	}()
	if err := Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Lift fault", "addr=0x1004", "Panic in test", "bad word"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("log lacks %q:\n%s", want, b)
		}
	}
}
