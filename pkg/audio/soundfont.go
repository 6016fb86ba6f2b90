package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/scriptcore/pkg/fileutil"
)

// ReadSoundFont reads a SoundFont file through fsys, or from the host file
// system when fsys is nil.
func ReadSoundFont(fsys fileutil.FileSystem, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if fsys == nil {
		data, err = os.ReadFile(path)
	} else {
		data, err = fsys.ReadFile(path)
	}
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fileutil.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrSoundFontNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("failed to read SoundFont file: %w", err)
	}
	return data, nil
}

// LoadSoundFont reads and parses a SoundFont file.
func LoadSoundFont(fsys fileutil.FileSystem, path string) (*meltysynth.SoundFont, error) {
	if path == "" {
		return nil, ErrNoSoundFont
	}
	data, err := ReadSoundFont(fsys, path)
	if err != nil {
		return nil, err
	}
	sf, err := meltysynth.NewSoundFont(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SoundFont: %w", err)
	}
	return sf, nil
}
