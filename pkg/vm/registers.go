package vm

import (
	"math"

	"github.com/zurustar/scriptcore/pkg/pool"
)

// regKind is the storage encoding of a register field.
type regKind uint8

const (
	regU16 regKind = iota
	regS32
	regS8
	regU8
	// regF32 is a float field quantized to an integer on read.
	regF32
	// regAvg16 stores twice the register value as a signed halfword.
	regAvg16
	// regLink holds a frame reference stored as slot+1; zero reads back as -1.
	regLink
)

func (k regKind) size() int {
	switch k {
	case regS8, regU8:
		return 1
	case regU16, regAvg16:
		return 2
	default:
		return 4
	}
}

type register struct {
	off  int
	kind regKind
}

// registers maps register ids to record fields. Ids missing from the map
// read as zero and ignore writes.
var registers = map[uint32]register{
	0x00: {0x00, regU16},
	0x01: {0x02, regU16},
	0x02: {0x0C, regS32},
	0x03: {0x04, regU16},
	0x04: {0x08, regU16},
	0x05: {0x06, regU16},
	0x06: {0xA8, regAvg16},
	0x07: {0xAA, regU16},
	0x08: {0xA0, regU16},
	0x09: {0x6C, regS32},
	0x0A: {0x70, regS32},
	0x0B: {0x78, regS32},
	0x0C: {0x74, regS32},
	0x0D: {0x5C, regF32},
	0x0E: {0x48, regF32},
	0x0F: {0x62, regU16},
	0x10: {0x94, regS8},
	0x11: {0x95, regS8},
	0x13: {0x4C, regF32},
	0x14: {0xBE, regU16},
	0x15: {0xBC, regU8},
	0x16: {0xC2, regU16},
	0x17: {0xC4, regF32},
	0x18: {0xC0, regU16},
	0x19: {0x60, regU16},
	0x1A: {0x30, regF32},
	0x1B: {0x34, regF32},
	0x1C: {0x3C, regF32},
	0x1D: {0x40, regF32},
	0x1E: {0x44, regF32},
	0x1F: {0x154, regF32},
	0x20: {0x158, regF32},
	0x21: {0x7C, regF32},
	0x22: {0x134, regU8},
	0x23: {0x138, regS32},
	0x24: {0x64, regLink},
	0x25: {0xCC, regLink},
	0x26: {0xBD, regS8},
	0x27: {0x68, regLink},
	0x28: {0x54, regF32},
	0x29: {0x58, regF32},
	0x2A: {0x11C, regF32},
	0x2B: {0x120, regF32},
	0x2C: {0x12A, regU16},
	0x2D: {0x128, regU16},
	0x2E: {0x12C, regU16},
	0x2F: {0x12E, regU16},
	0x30: {0x132, regU8},
	0x31: {0x136, regU16},
	0x32: {0x195, regS8},
	0x33: {0x0A, regU16},
	0x34: {0x140, regF32},
	0x35: {0x144, regF32},
	0x36: {0x148, regF32},
	0x37: {0x133, regS8},
	0x38: {0x198, regS32},
	0x39: {0x19C, regS32},
	0x3A: {0x1A0, regS32},
	0x3B: {0x1A4, regS32},
	0x3C: {0x1A8, regS32},
	0x3D: {0x1AC, regS32},
	0x3E: {0x1B0, regS32},
	0x3F: {0x1B4, regS32},
	0x40: {0x96, regU8},
}

// quantize converts f to an int32, saturating at the int32 range. NaN is 0.
func quantize(f float32) int32 {
	switch {
	case math.IsNaN(float64(f)):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(f)
	}
}

// field resolves id against sel. Fields that do not fit in the record stride
// are reported as absent.
func field(sel pool.Selection, id uint32) (a *pool.Arena, off int, r register, ok bool) {
	r, ok = registers[id]
	if !ok {
		return nil, 0, r, false
	}
	base, valid := sel.Offset()
	a = sel.Arena()
	if !valid || a == nil {
		return nil, 0, r, false
	}
	if r.off+r.kind.size() > a.Stride() {
		return nil, 0, r, false
	}
	return a, base + r.off, r, true
}

// ReadRegister reads register id of the selected record.
func ReadRegister(sel pool.Selection, id uint32) uint32 {
	a, off, r, ok := field(sel, id)
	if !ok {
		return 0
	}
	switch r.kind {
	case regU16:
		return uint32(a.U16(off))
	case regS32:
		return a.U32(off)
	case regS8:
		return uint32(int32(int8(a.U8(off))))
	case regU8:
		return uint32(a.U8(off))
	case regF32:
		return uint32(quantize(a.F32(off)))
	case regAvg16:
		return uint32(int32(int16(a.U16(off))) / 2)
	case regLink:
		return a.U32(off) - 1
	}
	return 0
}

// WriteRegister stores v into register id of the selected record and
// returns the value a subsequent read yields.
func WriteRegister(sel pool.Selection, id uint32, v uint32) uint32 {
	a, off, r, ok := field(sel, id)
	if !ok {
		return 0
	}
	switch r.kind {
	case regU16:
		a.PutU16(off, uint16(v))
	case regS32:
		a.PutU32(off, v)
	case regS8, regU8:
		a.PutU8(off, uint8(v))
	case regF32:
		a.PutF32(off, float32(int32(v)))
	case regAvg16:
		a.PutU16(off, uint16(v<<1))
	case regLink:
		a.PutU32(off, v+1)
	}
	return ReadRegister(sel, id)
}
