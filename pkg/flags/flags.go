// Package flags implements the scenario flag bitmap shared by every script context.
//
// Out-of-range indices are a silent no-op: writes are dropped and reads report
// the flag as clear. Scripts depend on that, so none of the methods log or fail.
package flags

// Capacity is the size of the bitmap in bytes (18,432 flags).
const Capacity = 0x900

// Bits is the number of addressable flags.
const Bits = Capacity * 8

// Store is a fixed-capacity bit array addressed by flag index.
type Store struct {
	bits []byte
}

// New returns a cleared store with the default capacity.
func New() *Store {
	return NewWithCapacity(Capacity)
}

// NewWithCapacity returns a cleared store of n bytes.
func NewWithCapacity(n int) *Store {
	if n < 0 {
		n = 0
	}
	return &Store{bits: make([]byte, n)}
}

// Len returns the capacity in bytes.
func (s *Store) Len() int {
	return len(s.bits)
}

func (s *Store) locate(index uint32) (int, byte, bool) {
	b := index >> 3
	if b >= uint32(len(s.bits)) {
		return 0, 0, false
	}
	return int(b), byte(1) << (index & 7), true
}

// Test reports whether flag index is set.
func (s *Store) Test(index uint32) bool {
	b, mask, ok := s.locate(index)
	if !ok {
		return false
	}
	return s.bits[b]&mask != 0
}

// Set sets flag index.
func (s *Store) Set(index uint32) {
	if b, mask, ok := s.locate(index); ok {
		s.bits[b] |= mask
	}
}

// Clear clears flag index.
func (s *Store) Clear(index uint32) {
	if b, mask, ok := s.locate(index); ok {
		s.bits[b] &^= mask
	}
}

// Toggle flips flag index and returns its new state.
func (s *Store) Toggle(index uint32) bool {
	b, mask, ok := s.locate(index)
	if !ok {
		return false
	}
	s.bits[b] ^= mask
	return s.bits[b]&mask != 0
}

// Byte returns the whole bucket byte at byte offset b, or 0 past the end.
func (s *Store) Byte(b uint32) byte {
	if b >= uint32(len(s.bits)) {
		return 0
	}
	return s.bits[b]
}

// SetByte overwrites the bucket byte at byte offset b. Past the end it does nothing.
func (s *Store) SetByte(b uint32, v byte) {
	if b < uint32(len(s.bits)) {
		s.bits[b] = v
	}
}

// Reset clears every flag.
func (s *Store) Reset() {
	clear(s.bits)
}

// Snapshot returns a copy of the raw bitmap.
func (s *Store) Snapshot() []byte {
	out := make([]byte, len(s.bits))
	copy(out, s.bits)
	return out
}

// AnySet reports whether at least one of the given flags is set.
func (s *Store) AnySet(indices ...uint32) bool {
	for _, i := range indices {
		if s.Test(i) {
			return true
		}
	}
	return false
}
