package vm

// Bank staging geometry.
const (
	DefaultBanks = 8
	// BankWords is the size of one staging bank (0x460 bytes).
	BankWords = 0x118
)

// swizzle maps a linear word index onto the tiled staging order: 8-word
// groups interleave across 16-word tiles with alternating half rows.
func swizzle(i uint32) uint32 {
	hi := i >> 4
	return (((i&0xF)>>3)+(hi&0xFE))*0x10 + (i & 7) + (hi&1)*8
}

// BankStaging holds the tiled word banks written by opcode 0xE4 and the frame
// stamp at which each bank was last dirtied.
type BankStaging struct {
	banks  [][BankWords]uint32
	stamps []uint32
	dirty  []bool
}

// NewBankStaging returns n zeroed banks.
func NewBankStaging(n int) *BankStaging {
	if n <= 0 {
		n = DefaultBanks
	}
	return &BankStaging{
		banks:  make([][BankWords]uint32, n),
		stamps: make([]uint32, n),
		dirty:  make([]bool, n),
	}
}

// Len returns the number of banks.
func (b *BankStaging) Len() int { return len(b.banks) }

// Words returns a copy of bank i in staging order, or nil out of range.
func (b *BankStaging) Words(i uint32) []uint32 {
	if i >= uint32(len(b.banks)) {
		return nil
	}
	out := make([]uint32, BankWords)
	copy(out, b.banks[i][:])
	return out
}

// Dirty reports whether bank i was written during frame.
func (b *BankStaging) Dirty(i, frame uint32) bool {
	if i >= uint32(len(b.banks)) {
		return false
	}
	return b.dirty[i] && b.stamps[i] == frame
}

// Stage writes words into bank starting at linear index start. It reports
// whether this is the first write to the bank in frame. Words whose swizzled
// index falls outside the bank are dropped and counted.
func (b *BankStaging) Stage(bank, start uint32, words []uint32, frame uint32) (first bool, dropped int, err error) {
	if bank >= uint32(len(b.banks)) {
		return false, 0, NewIndexOutOfRangeError("bank", int64(bank), len(b.banks))
	}
	dst := &b.banks[bank]
	for k, w := range words {
		i := swizzle(start + uint32(k))
		if i >= BankWords {
			dropped++
			continue
		}
		dst[i] = w
	}
	if !b.dirty[bank] || b.stamps[bank] != frame {
		b.dirty[bank] = true
		b.stamps[bank] = frame
		first = true
	}
	return first, dropped, nil
}
