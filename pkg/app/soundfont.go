package app

import (
	"os"
	"path/filepath"

	"github.com/zurustar/scriptcore/pkg/fileutil"
)

// SoundFontLocation represents the location of a SoundFont file.
type SoundFontLocation struct {
	// Path is the path to the SoundFont file
	Path string
	// FileSystem is the FileSystem to use for loading (nil for host paths)
	FileSystem fileutil.FileSystem
}

// DefaultSoundFontName is the default SoundFont filename to search for.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// findSoundFont searches for a SoundFont file in the following order:
//  1. The configured path (absolute, or relative to the script directory)
//  2. The default name in the script directory (case-insensitive)
//  3. The default name in the current directory
//
// It returns nil when nothing is found.
func findSoundFont(scriptDir, configured string) *SoundFontLocation {
	if configured != "" {
		if filepath.IsAbs(configured) {
			return &SoundFontLocation{Path: configured}
		}
		return &SoundFontLocation{Path: filepath.ToSlash(configured), FileSystem: fileutil.Dir(scriptDir)}
	}

	if p, err := fileutil.FindFileCaseInsensitive(scriptDir, DefaultSoundFontName); err == nil {
		return &SoundFontLocation{Path: p}
	}

	if _, err := os.Stat(DefaultSoundFontName); err == nil {
		return &SoundFontLocation{Path: DefaultSoundFontName}
	}
	return nil
}
