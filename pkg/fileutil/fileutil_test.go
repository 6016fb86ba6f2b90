package fileutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestFindFileCaseInsensitive(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"Scriptcore.TOML", "00000012.WAV", "lower.mid"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("test"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "voice.wav"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		searchName string
		want       string
	}{
		{"exact match", "lower.mid", "lower.mid"},
		{"different case", "scriptcore.toml", "Scriptcore.TOML"},
		{"upper extension", "00000012.wav", "00000012.WAV"},
		{"directories are skipped", "VOICE.WAV", ""},
		{"missing", "missing.txt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindFileCaseInsensitive(tmpDir, tt.searchName)
			if tt.want == "" {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("error = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != filepath.Join(tmpDir, tt.want) {
				t.Errorf("got %q, want %q", got, filepath.Join(tmpDir, tt.want))
			}
		})
	}
}

func TestFS(t *testing.T) {
	fsys := New(fstest.MapFS{
		"voice/00000001.WAV": {Data: []byte("one")},
		"voice/00000002.mid": {Data: []byte("two")},
		"top.bin":            {Data: []byte("top")},
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"exact", "voice/00000002.mid", "two"},
		{"case folded", "voice/00000001.wav", "one"},
		{"backslashes", "\\voice\\00000002.mid", "two"},
		{"root", "/TOP.BIN", "top"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := fsys.ReadFile(tt.path)
			if err != nil {
				t.Fatalf("ReadFile(%q) error = %v", tt.path, err)
			}
			if string(data) != tt.want {
				t.Errorf("ReadFile(%q) = %q, want %q", tt.path, data, tt.want)
			}
		})
	}

	if _, err := fsys.ReadFile("voice/00000003.wav"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v", err)
	}
	if _, err := fsys.FindFile("nodir", "x"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("missing dir error = %v", err)
	}
}
