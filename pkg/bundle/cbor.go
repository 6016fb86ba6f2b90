package bundle

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bundle: cbor enc mode: %v", err))
	}
	encMode = em

	dm, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("bundle: cbor dec mode: %v", err))
	}
	decMode = dm
}

// Decode parses a CBOR bundle. Duplicate map keys are rejected.
func Decode(data []byte) (*Bundle, error) {
	var b Bundle
	if err := decMode.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle: decode: %w", err)
	}
	if b.Magic != Magic {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, b.Magic)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Encode writes b as a deterministic CBOR bundle. Placements are packed into
// the placement table when it is empty.
func Encode(b *Bundle) ([]byte, error) {
	out := *b
	out.Magic = Magic
	if out.Version == 0 {
		out.Version = Version
	}
	if len(out.PlacementTable) == 0 && len(out.Placements) > 0 {
		t, err := EncodePlacements(out.Placements)
		if err != nil {
			return nil, err
		}
		out.PlacementTable = t
	}
	data, err := encMode.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("bundle: encode: %w", err)
	}
	return data, nil
}
