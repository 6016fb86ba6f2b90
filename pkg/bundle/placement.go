package bundle

import (
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"
)

// PlacementSize is the size of one placement record.
const PlacementSize = 0x10

// Placement is one record of the placement table consumed by set_pw_all.
type Placement struct {
	X, Y, Z int32
	// Timing seeds the spawn phase.
	Timing int8
	Mode   uint8
	ID     int8
	Attr   uint8
}

// DecodePlacements unpacks a little-endian placement table.
func DecodePlacements(data []byte) ([]Placement, error) {
	if len(data)%PlacementSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPlacementTable, len(data))
	}
	out := make([]Placement, len(data)/PlacementSize)
	for i := range out {
		rec := data[i*PlacementSize : (i+1)*PlacementSize]
		if err := restruct.Unpack(rec, binary.LittleEndian, &out[i]); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrPlacementTable, i, err)
		}
	}
	return out, nil
}

// EncodePlacements packs placements into a table.
func EncodePlacements(p []Placement) ([]byte, error) {
	out := make([]byte, 0, len(p)*PlacementSize)
	for i := range p {
		rec, err := restruct.Pack(binary.LittleEndian, &p[i])
		if err != nil {
			return nil, fmt.Errorf("bundle: pack placement %d: %w", i, err)
		}
		out = append(out, rec...)
	}
	return out, nil
}
