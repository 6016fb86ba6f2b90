package pool

import (
	"encoding/binary"
	"math"
)

// Arena is the contiguous record memory shared by every pool view.
//
// Records are laid out back to back at a fixed stride. Accessors take absolute
// byte offsets; anything outside the arena reads as zero and writes are dropped,
// which is what keeps legacy-unchecked selections from touching real memory.
type Arena struct {
	mem    []byte
	stride int
}

// NewArena allocates records*stride zeroed bytes.
func NewArena(records, stride int) *Arena {
	if records < 0 {
		records = 0
	}
	if stride <= 0 {
		stride = DefaultStride
	}
	return &Arena{mem: make([]byte, records*stride), stride: stride}
}

// Stride returns the record size in bytes.
func (a *Arena) Stride() int { return a.stride }

// Records returns how many whole records the arena holds.
func (a *Arena) Records() int { return len(a.mem) / a.stride }

// Size returns the arena size in bytes.
func (a *Arena) Size() int { return len(a.mem) }

func (a *Arena) span(off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off+n > len(a.mem) {
		return nil, false
	}
	return a.mem[off : off+n], true
}

// InBounds reports whether n bytes starting at off are backed by the arena.
func (a *Arena) InBounds(off, n int) bool {
	_, ok := a.span(off, n)
	return ok
}

// U8 reads a byte.
func (a *Arena) U8(off int) uint8 {
	if b, ok := a.span(off, 1); ok {
		return b[0]
	}
	return 0
}

// PutU8 writes a byte.
func (a *Arena) PutU8(off int, v uint8) {
	if b, ok := a.span(off, 1); ok {
		b[0] = v
	}
}

// U16 reads a little-endian uint16.
func (a *Arena) U16(off int) uint16 {
	if b, ok := a.span(off, 2); ok {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

// PutU16 writes a little-endian uint16.
func (a *Arena) PutU16(off int, v uint16) {
	if b, ok := a.span(off, 2); ok {
		binary.LittleEndian.PutUint16(b, v)
	}
}

// U32 reads a little-endian uint32.
func (a *Arena) U32(off int) uint32 {
	if b, ok := a.span(off, 4); ok {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

// PutU32 writes a little-endian uint32.
func (a *Arena) PutU32(off int, v uint32) {
	if b, ok := a.span(off, 4); ok {
		binary.LittleEndian.PutUint32(b, v)
	}
}

// F32 reads a little-endian float32.
func (a *Arena) F32(off int) float32 {
	return math.Float32frombits(a.U32(off))
}

// PutF32 writes a little-endian float32.
func (a *Arena) PutF32(off int, v float32) {
	a.PutU32(off, math.Float32bits(v))
}

// ZeroRecord clears the record starting at off.
func (a *Arena) ZeroRecord(off int) {
	if b, ok := a.span(off, a.stride); ok {
		clear(b)
	}
}
