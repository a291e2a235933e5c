package cmd

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"armlift/internal/arm"
	"armlift/internal/config"
	"armlift/internal/host"
	"armlift/internal/rewriter"
)

func code(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

// sample is add r0, r1, r2; an invalid word; bx lr; and two stray bytes.
func sample() unit {
	raw := append(code(0xE0810002, 0xE6000010, 0xE12FFF1E), 0xAA, 0xBB)
	return unit{name: "blob", raw: raw, length: uint32(len(raw)), addr: 0x4000}
}

func addrs(res liftResult) (lifted, faults []uint64) {
	for _, l := range res.lifted {
		lifted = append(lifted, l.Address)
	}
	for _, f := range res.faults {
		faults = append(faults, f.Addr)
	}
	return lifted, faults
}

func TestLiftUnit(t *testing.T) {
	tests := []struct {
		name       string
		opts       liftOptions
		wantLifted []uint64
		wantFaults []uint64
	}{
		{
			name:       "seek past faults",
			wantLifted: []uint64{0x4000, 0x4008},
			wantFaults: []uint64{0x4004, 0x400C},
		},
		{
			name:       "stop on fault",
			opts:       liftOptions{stopOnFault: true},
			wantLifted: []uint64{0x4000},
			wantFaults: []uint64{0x4004},
		},
		{
			name:       "skip data",
			opts:       liftOptions{isData: func(addr uint64) bool { return addr == 0x4004 }},
			wantLifted: []uint64{0x4000, 0x4008},
			wantFaults: []uint64{0x400C},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := liftUnit(sample(), host.NewStatic(arm.ARMv7), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			lifted, faults := addrs(res)
			if diff := pretty.Diff(lifted, tt.wantLifted); len(diff) > 0 {
				t.Errorf("lifted differs: %v", diff)
			}
			if diff := pretty.Diff(faults, tt.wantFaults); len(diff) > 0 {
				t.Errorf("faults differ: %v", diff)
			}
		})
	}
}

func TestLiftUnitFaultKinds(t *testing.T) {
	res, err := liftUnit(sample(), host.NewStatic(arm.ARMv7), liftOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(res.faults[0].Err, rewriter.ErrInvalidEncoding) {
		t.Errorf("first fault = %v", res.faults[0].Err)
	}
	if !errors.Is(res.faults[1].Err, rewriter.ErrInsufficientBytes) {
		t.Errorf("second fault = %v", res.faults[1].Err)
	}
}

func liftSample(t *testing.T) liftResult {
	t.Helper()
	res, err := liftUnit(sample(), host.NewStatic(arm.ARMv7), liftOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := writeText(&buf, liftSample(t), false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 7 {
		t.Fatalf("listing has %d lines:\n%s", len(lines), buf.String())
	}
	want := []string{
		"; blob @ 0x004000",
		"00004000  e0810002  add r0, r1, r2",
		"            r0 = (r1 + r2)",
		"00004004  fault: ",
		"00004008  e12fff1e  bx lr",
		"            return",
		"0000400c  fault: ",
	}
	for i, w := range want {
		if !strings.HasPrefix(lines[i], w) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], w)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, []liftResult{liftSample(t)}); err != nil {
		t.Fatal(err)
	}
	var units []jsonUnit
	if err := json.Unmarshal(buf.Bytes(), &units); err != nil {
		t.Fatal(err)
	}
	if len(units) != 1 || len(units[0].Instructions) != 2 || len(units[0].Faults) != 2 {
		t.Fatalf("units = %# v", pretty.Formatter(units))
	}
	ret := units[0].Instructions[1]
	want := jsonInst{Address: "0x4008", Length: 4, Raw: "e12fff1e", Text: ret.Text, Class: "return", IR: []string{"return"}}
	if diff := pretty.Diff(ret, want); len(diff) > 0 {
		t.Errorf("instruction differs: %v", diff)
	}
}

func TestWriteLLVM(t *testing.T) {
	var buf bytes.Buffer
	if err := writeLLVM(&buf, []liftResult{liftSample(t), {unit: unit{name: "empty"}}}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"define void @fn_00004000()", "ret void"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("module lacks %q:\n%s", want, buf.String())
		}
	}
}

func writeTemp(t *testing.T, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenRaw(t *testing.T) {
	path := writeTemp(t, "blob.bin", code(0xE3A00000, 0xEB0003FE, 0xE12FFF1E))
	cfg := config.Default()
	cfg.Address = 0x8000
	cfg.Offset = 4
	cfg.Variant = "armv5te"
	cfg.Symbols = map[string]string{"0x9004": "memcpy"}

	tg, err := openTarget(path, cfg, nil, false, log.New(&bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	defer tg.Close()
	if len(tg.units) != 1 || tg.units[0].addr != 0x8004 || tg.host.Variant() != arm.ARMv5TE {
		t.Fatalf("target = %+v, variant %v", tg.units, tg.host.Variant())
	}
	if tg.reader() != nil || tg.isData(0x8004) {
		t.Error("raw target reports image data")
	}

	results, err := liftTarget(tg, liftOptions{})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := emit(&buf, tg, results, &config.Config{Format: config.FormatText, NoColor: true}, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "call 0x9004 <memcpy>") {
		t.Errorf("listing lacks the named call:\n%s", buf.String())
	}

	buf.Reset()
	if err := emit(&buf, tg, results, &config.Config{NoColor: true}, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "## Calls") || !strings.Contains(buf.String(), "memcpy") {
		t.Errorf("report:\n%s", buf.String())
	}
}

func TestOpenRawRange(t *testing.T) {
	path := writeTemp(t, "blob.bin", code(0xE3A00000))
	cfg := config.Default()
	cfg.Length = 8
	if _, err := openTarget(path, cfg, nil, false, log.New(&bytes.Buffer{})); err == nil {
		t.Error("length beyond the file accepted")
	}
}

func TestLoadConfigFlags(t *testing.T) {
	for _, k := range []string{"ARMLIFT_VARIANT", "ARMLIFT_ADDRESS", "ARMLIFT_NO_COLOR", "NO_COLOR", "ARMLIFT_DEBUG", "ARMLIFT_LOG_FILE"} {
		t.Setenv(k, "")
	}
	t.Setenv("ARMLIFT_FORMAT", "json")
	c := &cobra.Command{Use: "test"}
	addGlobalFlags(c.Flags())
	addRangeFlags(c)
	c.Flags().Bool("llvm", false, "")
	err := c.ParseFlags([]string{"-V", "armv6k", "-a", "0x10000", "--llvm", "--sym", "0x10010=start"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		t.Fatal(err)
	}
	want := &config.Config{
		Variant: "armv6k",
		Address: 0x10000,
		Format:  config.FormatLLVM,
		Symbols: map[string]string{"0x10010": "start"},
	}
	if diff := pretty.Diff(cfg, want); len(diff) > 0 {
		t.Errorf("config differs: %v", diff)
	}

	bad := &cobra.Command{Use: "bad"}
	addGlobalFlags(bad.Flags())
	addRangeFlags(bad)
	if err := bad.ParseFlags([]string{"-o", "yaml"}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(bad); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestDecodeUnit(t *testing.T) {
	u := unit{name: "blob", raw: code(0xE0810002, 0xE6000010), length: 8, addr: 0x100}
	var buf bytes.Buffer
	if err := decodeUnit(&buf, u, arm.ARMv7.Features(), decodeOptions{dump: true}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"00000100  e0810002  add r0, r1, r2", "00000104  e6000010  ;", "Op:"} {
		if !strings.Contains(out, want) {
			t.Errorf("decode output lacks %q:\n%s", want, out)
		}
	}
}

func TestFollowLog(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "armlift-20250101-000000-debug.log")
	newer := filepath.Join(dir, "armlift-20250102-000000-debug.log")
	if err := os.WriteFile(older, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte("first\nsecond\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	path, err := latestLog(dir)
	if err != nil || path != newer {
		t.Fatalf("latestLog = %q, %v", path, err)
	}

	var buf bytes.Buffer
	if err := followLog(context.Background(), &buf, path, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "first\nsecond\n" {
		t.Errorf("followLog copied %q", buf.String())
	}

	if _, err := latestLog(t.TempDir()); err == nil {
		t.Error("latestLog found a file in an empty directory")
	}
}

func TestModelLifecycle(t *testing.T) {
	path := writeTemp(t, "blob.bin", code(0xE0810002, 0xE12FFF1E))
	cfg := config.Default()
	cfg.NoColor = true

	tg, err := openTarget(path, cfg, nil, false, log.New(&bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(path, cfg)
	next, cmd := m.Update(targetMsg{target: tg})
	if cmd == nil {
		t.Fatal("no lift command after opening the target")
	}
	m = next.(model)
	if m.functions.Title != "Functions (1 total)" {
		t.Errorf("title = %q", m.functions.Title)
	}

	msg := liftUnitCmd(tg, 0)()
	next, _ = m.Update(msg)
	m = next.(model)
	if m.loading || len(m.results) != 1 {
		t.Fatalf("loading %v, %d results", m.loading, len(m.results))
	}
	view := m.View()
	for _, want := range []string{"add r0, r1, r2", "return"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
	if !strings.HasSuffix(m.status, "2 instructions, 0 faults") {
		t.Errorf("status = %q", m.status)
	}

	next, _ = m.Update(targetMsg{err: errors.New("not an ARM image")})
	if v := next.(model).View(); !strings.Contains(v, "not an ARM image") {
		t.Errorf("error not shown:\n%s", v)
	}
}
