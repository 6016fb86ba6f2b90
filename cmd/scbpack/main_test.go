package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zurustar/scriptcore/pkg/bundle"
)

func writeBundle(t *testing.T, path string) {
	t.Helper()
	data, err := bundle.Encode(&bundle.Bundle{
		Streams: map[string][]byte{
			bundle.StreamMain:     {0x33, 0, 0, 0, 0, 0, 0, 0, 0, 0x04},
			bundle.StreamDialogue: {0x02},
		},
		Resources: []bundle.Resource{{ID: 5, Data: []byte{1}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_Convert(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scene.scb")
	out := filepath.Join(dir, "copy.scb")
	writeBundle(t, in)

	var stdout bytes.Buffer
	if err := run([]string{"-o", out, "-entry", "9", in}, &stdout); err != nil {
		t.Fatalf("run() = %v", err)
	}
	b, err := bundle.Load(out)
	if err != nil {
		t.Fatalf("output does not load: %v", err)
	}
	if b.Entry != 9 || len(b.Resources) != 1 || len(b.Dialogue()) != 1 {
		t.Errorf("converted bundle = entry %d, %d resources, dialogue %d bytes", b.Entry, len(b.Resources), len(b.Dialogue()))
	}
	if !strings.Contains(stdout.String(), "wrote "+out) {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "scene.scb")
	writeBundle(t, in)

	tests := []struct {
		name string
		args []string
	}{
		{"no input", nil},
		{"two inputs", []string{in, in}},
		{"missing input", []string{filepath.Join(dir, "none.bin")}},
		{"entry past end", []string{"-o", filepath.Join(dir, "x.scb"), "-entry", "99", in}},
		{"overwrite input", []string{in}},
		{"unknown flag", []string{"-z", in}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.args, &bytes.Buffer{}); err == nil {
				t.Errorf("run(%v) should fail", tt.args)
			}
		})
	}
}

func TestRun_Info(t *testing.T) {
	in := filepath.Join(t.TempDir(), "scene.scb")
	writeBundle(t, in)

	var stdout bytes.Buffer
	if err := run([]string{"-info", in}, &stdout); err != nil {
		t.Fatalf("run() = %v", err)
	}
	got := stdout.String()
	for _, want := range []string{"entry      0x0", "dialogue", "main", "resources  1"} {
		if !strings.Contains(got, want) {
			t.Errorf("info output %q does not contain %q", got, want)
		}
	}
}
