package bundle

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/go-restruct/restruct"
)

// Raw image layout.
const (
	HeaderWords = 11
	HeaderSize  = HeaderWords * 4

	regionMain       = 0
	regionStructural = 1
	regionDialogue   = 2
	regionResources  = 5
	regionPlacements = 8

	idMask   = 0x7FFFFFFF
	chainEnd = 0xFFFFFFFF
	// recordHeader is the size and id words in front of each resource.
	recordHeader = 8
)

type imageHeader struct {
	Offsets [HeaderWords]uint32
}

// regions converts header offsets into [start, end) spans. A region runs to
// the next larger offset in the header, or to the end of the file. Offsets
// inside the header mark an absent region.
func (h *imageHeader) regions(size int) [HeaderWords][2]int {
	sorted := make([]int, 0, HeaderWords+1)
	for _, o := range h.Offsets {
		sorted = append(sorted, int(o))
	}
	sorted = append(sorted, size)
	sort.Ints(sorted)

	var out [HeaderWords][2]int
	for i, o := range h.Offsets {
		start := int(o)
		if start < HeaderSize || start > size {
			continue
		}
		end := size
		for _, s := range sorted {
			if s > start {
				end = s
				break
			}
		}
		out[i] = [2]int{start, end}
	}
	return out
}

// ParseImage splits a raw image into a bundle.
func ParseImage(data []byte) (*Bundle, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: image of %d bytes is shorter than its header", ErrBadMagic, len(data))
	}
	var h imageHeader
	if err := restruct.Unpack(data[:HeaderSize], binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("bundle: image header: %w", err)
	}
	spans := h.regions(len(data))
	region := func(i int) []byte {
		s := spans[i]
		return data[s[0]:s[1]]
	}

	b := &Bundle{
		Magic:   Magic,
		Version: Version,
		Streams: map[string][]byte{StreamMain: region(regionMain)},
	}
	if s := region(regionStructural); len(s) > 0 {
		b.Streams[StreamStructural] = s
	}
	if s := region(regionDialogue); len(s) > 0 {
		b.Streams[StreamDialogue] = s
	}
	res, err := ParseChain(region(regionResources))
	if err != nil {
		return nil, err
	}
	b.Resources = res
	// Trailing bytes past the last whole record are padding.
	pt := region(regionPlacements)
	b.PlacementTable = pt[:len(pt)/PlacementSize*PlacementSize]
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// ParseChain walks a resource chain of (size, id, data) records. size is the
// total record length; the id 0xFFFFFFFF or the end of data stops the walk.
func ParseChain(data []byte) ([]Resource, error) {
	var out []Resource
	for off := 0; off+recordHeader <= len(data); {
		size := binary.LittleEndian.Uint32(data[off:])
		id := binary.LittleEndian.Uint32(data[off+4:])
		if id == chainEnd {
			break
		}
		if size < recordHeader || uint64(off)+uint64(size) > uint64(len(data)) {
			return nil, fmt.Errorf("%w: record at %#x has size %#x", ErrCorruptChain, off, size)
		}
		out = append(out, Resource{ID: id & idMask, Data: data[off+recordHeader : off+int(size)]})
		off += int(size)
	}
	return out, nil
}

// AppendChain appends resources to dst in chain form, followed by the end marker.
func AppendChain(dst []byte, res []Resource) []byte {
	for _, r := range res {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(recordHeader+len(r.Data)))
		dst = binary.LittleEndian.AppendUint32(dst, r.ID)
		dst = append(dst, r.Data...)
	}
	dst = binary.LittleEndian.AppendUint32(dst, recordHeader)
	return binary.LittleEndian.AppendUint32(dst, chainEnd)
}
