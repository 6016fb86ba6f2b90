package app

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zurustar/scriptcore/pkg/bundle"
	"github.com/zurustar/scriptcore/pkg/config"
	"github.com/zurustar/scriptcore/pkg/engine"
	"github.com/zurustar/scriptcore/pkg/headless"
	"github.com/zurustar/scriptcore/pkg/vm"
)

// fadeLoop は毎フレーム全画面フェードを描いて待つスクリプト
func fadeLoop() []byte {
	code := make([]byte, 10)
	code[0] = byte(vm.OpScreenFade)
	code[1] = byte(vm.OpFrameSync)
	back := int32(-6)
	binary.LittleEndian.PutUint32(code[6:], uint32(back))
	return code
}

func writeBundle(t *testing.T, dir string, b *bundle.Bundle) string {
	t.Helper()
	data, err := bundle.Encode(b)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	path := filepath.Join(dir, "scene.scb")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HEADLESS", "TIMEOUT", "LOG_LEVEL", "SCRIPTCORE_CONFIG"} {
		t.Setenv(k, "")
	}
}

func TestRun_Help(t *testing.T) {
	clearEnv(t)
	var out bytes.Buffer
	if err := New(WithStdout(&out)).Run([]string{"--help"}); err != nil {
		t.Fatalf("Run(--help) = %v", err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Error("help text not written")
	}
}

func TestRun_NoScript(t *testing.T) {
	clearEnv(t)
	if err := New().Run([]string{"-l", "error"}); !errors.Is(err, ErrNoScript) {
		t.Errorf("Run() = %v, want ErrNoScript", err)
	}
}

func TestRun_MissingScript(t *testing.T) {
	clearEnv(t)
	err := New().Run([]string{"-l", "error", "--headless", filepath.Join(t.TempDir(), "none.scb")})
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Run() = %v, want a not-exist error", err)
	}
}

func TestRun_HeadlessWritesOutputs(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	script := writeBundle(t, dir, &bundle.Bundle{
		Streams: map[string][]byte{bundle.StreamMain: fadeLoop()},
	})
	trace := filepath.Join(dir, "trace.cbor")
	snap := filepath.Join(dir, "last.bmp")

	a := New()
	err := a.Run([]string{"-l", "error", "--headless", "-n", "3", "--trace", trace, "--snapshot", snap, script})
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	r := a.Engine().Result()
	if r.Reason != engine.TickLimit || r.Ticks != 3 {
		t.Errorf("Result() = %+v, want tick limit after 3", r)
	}
	if got := a.Host().Count("RenderFullscreenEffect"); got != 3 {
		t.Errorf("fullscreen effects = %d, want 3", got)
	}

	f, err := os.Open(trace)
	if err != nil {
		t.Fatalf("trace not written: %v", err)
	}
	defer f.Close()
	recs, err := headless.ReadTrace(f)
	if err != nil || len(recs) != 3 {
		t.Errorf("ReadTrace() = %d records, %v; want 3", len(recs), err)
	}
	if fi, err := os.Stat(snap); err != nil || fi.Size() == 0 {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestRun_ConfigNextToScript(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	script := writeBundle(t, dir, &bundle.Bundle{
		Streams: map[string][]byte{bundle.StreamMain: {0x04}},
	})
	toml := "[interpreter]\nlegacy_unchecked_pools = true\n"
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	a := New()
	if err := a.Run([]string{"-l", "error", "--headless", "--debug-flags", script}); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	w := a.World()
	if !w.Legacy || !w.Debug {
		t.Errorf("legacy = %v, debug = %v; want both from config and flags", w.Legacy, w.Debug)
	}
	if a.Engine().Reason() != engine.AllHalted {
		t.Errorf("reason = %v, want all halted", a.Engine().Reason())
	}
}

func TestRun_BadConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	script := writeBundle(t, dir, &bundle.Bundle{
		Streams: map[string][]byte{bundle.StreamMain: {0x04}},
	})
	cfg := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(cfg, []byte("[interpreter]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := New().Run([]string{"-l", "error", "--headless", "-c", cfg, script})
	if !errors.Is(err, config.ErrUnknownKeys) {
		t.Errorf("Run() = %v, want ErrUnknownKeys", err)
	}
}

func TestRun_ScriptFailureIsReported(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	script := writeBundle(t, dir, &bundle.Bundle{
		Streams: map[string][]byte{bundle.StreamMain: {0x20}},
	})
	err := New().Run([]string{"-l", "error", "--headless", script})
	var re *vm.RuntimeError
	if !errors.As(err, &re) || re.Type != vm.ErrorUndefinedOpcode {
		t.Errorf("Run() = %v, want the undefined opcode error", err)
	}
}

func TestRun_EntryOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	// offset 0 is undefined; the run starts at the block end at offset 1
	script := writeBundle(t, dir, &bundle.Bundle{
		Streams: map[string][]byte{bundle.StreamMain: {0x20, 0x04}},
	})
	if err := New().Run([]string{"-l", "error", "--headless", "--entry", "1", script}); err != nil {
		t.Errorf("Run() = %v", err)
	}
	if err := New().Run([]string{"-l", "error", "--headless", "--entry", "9", script}); err == nil {
		t.Error("entry outside the main stream must fail")
	}
}

func TestFindSoundFont(t *testing.T) {
	dir := t.TempDir()
	if loc := findSoundFont(dir, "fonts/custom.sf2"); loc == nil || loc.Path != "fonts/custom.sf2" || loc.FileSystem == nil {
		t.Errorf("relative configured path = %+v", loc)
	}
	abs := filepath.Join(dir, "abs.sf2")
	if loc := findSoundFont(dir, abs); loc == nil || loc.Path != abs || loc.FileSystem != nil {
		t.Errorf("absolute configured path = %+v", loc)
	}

	if err := os.WriteFile(filepath.Join(dir, "generaluser-gs.SF2"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	loc := findSoundFont(dir, "")
	if loc == nil || filepath.Base(loc.Path) != "generaluser-gs.SF2" {
		t.Errorf("default name lookup = %+v", loc)
	}
}
