package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	text := `
[interpreter]
tick_delta = 16
legacy_unchecked_pools = true

[pools]
spawn_capacity = 32

[audio]
soundfont = "gm.sf2"
muted = true

[window]
title = "demo"
`
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()

	if cfg.Interpreter.TickDelta != 16 || !cfg.Interpreter.LegacyUncheckedPools {
		t.Errorf("interpreter = %+v", cfg.Interpreter)
	}
	if cfg.Interpreter.TickBudget != def.Interpreter.TickBudget {
		t.Errorf("tick_budget = %d, want default %d", cfg.Interpreter.TickBudget, def.Interpreter.TickBudget)
	}
	if cfg.Pools.SpawnCapacity != 32 || cfg.Pools.Stride != def.Pools.Stride {
		t.Errorf("pools = %+v", cfg.Pools)
	}
	if cfg.Audio.SoundFont != "gm.sf2" || !cfg.Audio.Muted || cfg.Audio.VoiceDir != "voice" {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Window.Title != "demo" || cfg.Window.Width != 640 {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q", cfg.Path)
	}
	if l := cfg.Layout(); l.SpawnCapacity != 32 || l.Stride != def.Pools.Stride {
		t.Errorf("Layout() = %+v", l)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"unknown key", "[interpreter]\ntick_rate = 3\n", ErrUnknownKeys},
		{"unknown section", "[network]\nport = 80\n", ErrUnknownKeys},
		{"zero tick", "[interpreter]\ntick_delta = 0\n", ErrInvalid},
		{"bad stride", "[pools]\nstride = -1\n", ErrInvalid},
		{"bad window", "[window]\nscale = 0.0\n", ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := Parse("[interpreter\n"); err == nil || errors.Is(err, ErrUnknownKeys) {
		t.Errorf("Parse(malformed) error = %v", err)
	}
}

func TestUnknownKeysAreListed(t *testing.T) {
	_, err := Parse("[audio]\nvolume = 1\n[window]\nfullscreen = true\n")
	if err == nil || !strings.Contains(err.Error(), "audio.volume") || !strings.Contains(err.Error(), "window.fullscreen") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Audio.SoundFont = "a.sf2"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Parse(string(data))
	if err != nil {
		t.Fatalf("Parse(Encode()) error = %v\n%s", err, data)
	}
	if got.Audio.SoundFont != "a.sf2" || got.Pools != cfg.Pools || got.Interpreter != cfg.Interpreter {
		t.Errorf("round trip = %+v", got)
	}
}
