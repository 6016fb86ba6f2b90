// Package fileutil resolves resource files by name without regard to case.
//
// Resource names inside script bundles and voice directories come from
// case-insensitive file systems, so every lookup first tries the exact path
// and then scans the directory for a name that differs only in case.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no entry matches a name.
var ErrNotFound = errors.New("file not found")

// FileSystem reads resources from a directory tree.
type FileSystem interface {
	// ReadFile reads name, matching each path element case-insensitively.
	ReadFile(name string) ([]byte, error)
	// FindFile returns the actual path of filename inside dir.
	FindFile(dir, filename string) (string, error)
}

// FS implements FileSystem over an fs.FS such as os.DirFS or an embed.FS.
type FS struct {
	fsys fs.FS
}

// New returns a FileSystem over fsys.
func New(fsys fs.FS) *FS {
	return &FS{fsys: fsys}
}

// Dir returns a FileSystem rooted at the host directory root.
func Dir(root string) *FS {
	return New(os.DirFS(root))
}

// clean converts a host or script path into an fs.FS path.
func clean(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return path.Clean(name)
}

// ReadFile reads name, falling back to a case-insensitive match of the base name.
func (f *FS) ReadFile(name string) ([]byte, error) {
	p := clean(name)
	data, err := fs.ReadFile(f.fsys, p)
	if err == nil {
		return data, nil
	}
	actual, ferr := f.FindFile(path.Dir(p), path.Base(p))
	if ferr != nil {
		return nil, ferr
	}
	return fs.ReadFile(f.fsys, actual)
}

// FindFile returns the path of the entry of dir whose name equals filename
// ignoring case.
func (f *FS) FindFile(dir, filename string) (string, error) {
	dir = clean(dir)
	entries, err := fs.ReadDir(f.fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	want := strings.ToLower(filename)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(entry.Name()) == want {
			return path.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, filename, dir)
}

// FindFileCaseInsensitive looks for filename in the host directory dir and
// returns its actual path.
//
// Example:
//
//	path, err := FindFileCaseInsensitive("/path/to/dir", "SCRIPTCORE.TOML")
//	// finds "scriptcore.toml"
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	exact := filepath.Join(dir, filename)
	if st, err := os.Stat(exact); err == nil && !st.IsDir() {
		return exact, nil
	}
	p, err := Dir(dir).FindFile(".", filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(p)), nil
}
