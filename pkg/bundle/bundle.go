// Package bundle loads script bundles: the bytecode streams, the resource
// chain and the placement table a scene runs against.
//
// Two containers are understood. A .scb file is a CBOR map written by the
// bundle tools; a .bin file is a raw image whose 0x2C-byte header holds the
// offsets of each region.
package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Stream names.
const (
	StreamMain       = "main"
	StreamStructural = "structural"
	StreamDialogue   = "dialogue"
)

// Magic identifies a CBOR bundle.
const Magic = "SCB1"

// Version is the bundle format version written by Encode.
const Version = 1

var (
	// ErrBadMagic is returned for data that is not a bundle.
	ErrBadMagic = errors.New("bundle: bad magic")
	// ErrNoMainStream is returned for a bundle without a main stream.
	ErrNoMainStream = errors.New("bundle: no main stream")
	// ErrCorruptChain is returned for a malformed resource chain.
	ErrCorruptChain = errors.New("bundle: corrupt resource chain")
	// ErrPlacementTable is returned for a placement table whose size is not
	// a multiple of the record size.
	ErrPlacementTable = errors.New("bundle: bad placement table")
)

// Resource is one entry of the resource chain.
type Resource struct {
	ID   uint32 `cbor:"id"`
	Data []byte `cbor:"data"`
}

// Kind is an entry of the spawn kind table.
type Kind struct {
	ID    int32 `cbor:"id"`
	State int32 `cbor:"state"`
	Arg   uint8 `cbor:"arg"`
}

// Bundle is a loaded script bundle.
type Bundle struct {
	Magic     string            `cbor:"magic"`
	Version   uint              `cbor:"version"`
	Entry     uint32            `cbor:"entry"`
	Streams   map[string][]byte `cbor:"streams"`
	Resources []Resource        `cbor:"resources,omitempty"`
	// PlacementTable is the raw table; Placements is its decoded form.
	PlacementTable []byte      `cbor:"placements,omitempty"`
	Kinds          []Kind      `cbor:"kinds,omitempty"`
	Palette        []uint32    `cbor:"palette,omitempty"`
	Placements     []Placement `cbor:"-"`

	// Path is the file the bundle was loaded from.
	Path string `cbor:"-"`
}

// Stream returns the named stream, or nil.
func (b *Bundle) Stream(name string) []byte { return b.Streams[name] }

// Main returns the primary stream.
func (b *Bundle) Main() []byte { return b.Streams[StreamMain] }

// Structural returns the block structure stream, or nil.
func (b *Bundle) Structural() []byte { return b.Streams[StreamStructural] }

// Dialogue returns the dialogue control stream, or nil.
func (b *Bundle) Dialogue() []byte { return b.Streams[StreamDialogue] }

// FindResource returns the resource whose id matches under the 31-bit mask.
func (b *Bundle) FindResource(id uint32) (Resource, bool) {
	id &= idMask
	for _, r := range b.Resources {
		if r.ID&idMask == id {
			return r, true
		}
	}
	return Resource{}, false
}

// validate checks the fields every container must provide and decodes the
// placement table.
func (b *Bundle) validate() error {
	if len(b.Main()) == 0 {
		return ErrNoMainStream
	}
	if int(b.Entry) > len(b.Main()) {
		return fmt.Errorf("bundle: entry %#x outside main stream of %d bytes", b.Entry, len(b.Main()))
	}
	p, err := DecodePlacements(b.PlacementTable)
	if err != nil {
		return err
	}
	b.Placements = p
	return nil
}

// Load reads a bundle from path. Files ending in .bin are parsed as raw
// images; anything else must be a CBOR bundle.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	var b *Bundle
	if strings.EqualFold(filepath.Ext(path), ".bin") {
		b, err = ParseImage(data)
	} else {
		b, err = Decode(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b.Path = path
	return b, nil
}
