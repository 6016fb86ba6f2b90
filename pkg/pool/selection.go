package pool

import "fmt"

// Mode selects how out-of-range indices are handled.
type Mode int

const (
	// Checked rejects indices outside the pool and clears the selection.
	Checked Mode = iota
	// LegacyUnchecked keeps the raw index; accesses past the arena read zero.
	LegacyUnchecked
)

func (m Mode) String() string {
	switch m {
	case Checked:
		return "checked"
	case LegacyUnchecked:
		return "legacy"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Selection is an optional reference to one record of a pool.
type Selection struct {
	pool *Pool
	id   SlotID
	ok   bool
}

// None is the empty selection.
func None() Selection { return Selection{} }

// Select returns a selection of id in p without any bounds check.
func Select(p *Pool, id SlotID) Selection {
	return Selection{pool: p, id: id, ok: p != nil}
}

// ID returns the selected slot.
func (s Selection) ID() (SlotID, bool) { return s.id, s.ok }

// Valid reports whether something is selected.
func (s Selection) Valid() bool { return s.ok }

// Pool returns the pool the selection belongs to.
func (s Selection) Pool() *Pool { return s.pool }

// InRange reports whether the selection addresses a real record of its pool.
func (s Selection) InRange() bool {
	return s.ok && s.pool.Contains(s.id)
}

// Offset returns the arena offset of the selected record.
func (s Selection) Offset() (int, bool) {
	if !s.ok {
		return 0, false
	}
	return s.pool.Offset(s.id), true
}

// Arena returns the backing arena, or nil for the empty selection.
func (s Selection) Arena() *Arena {
	if !s.ok {
		return nil
	}
	return s.pool.arena
}

// Equal reports whether both selections address the same record.
func (s Selection) Equal(o Selection) bool {
	if s.ok != o.ok {
		return false
	}
	if !s.ok {
		return true
	}
	so, _ := s.Offset()
	oo, _ := o.Offset()
	return so == oo
}

func (s Selection) String() string {
	if !s.ok {
		return "none"
	}
	return fmt.Sprintf("%s#%d", s.pool.name, s.id)
}

// IndexOf returns the slot index of s, or Sentinel when nothing is selected.
func IndexOf(s Selection) int32 {
	if !s.ok {
		return Sentinel
	}
	return int32(s.id)
}

// Selector holds the current selection of one script context.
type Selector struct {
	mode    Mode
	current Selection
}

// NewSelector returns an empty selector.
func NewSelector(mode Mode) *Selector {
	return &Selector{mode: mode}
}

// Mode returns the bounds policy.
func (s *Selector) Mode() Mode { return s.mode }

// Current returns the current selection.
func (s *Selector) Current() Selection { return s.current }

// Set replaces the current selection.
func (s *Selector) Set(sel Selection) { s.current = sel }

// Clear drops the current selection.
func (s *Selector) Clear() { s.current = None() }

// SelectByIndex selects index in p, or fallback when index is Sentinel.
// In Checked mode an index outside p clears the selection and returns ErrOutOfRange.
func (s *Selector) SelectByIndex(p *Pool, index int32, fallback Selection) (Selection, error) {
	if index == Sentinel {
		s.current = fallback
		return s.current, nil
	}
	id := SlotID(index)
	if s.mode == Checked && !p.Contains(id) {
		s.current = None()
		return s.current, fmt.Errorf("%w: %s index %d (capacity %d)", ErrOutOfRange, p.name, index, p.capacity)
	}
	s.current = Select(p, id)
	return s.current, nil
}

// SelectByTag selects the lowest-index live record of p whose tag equals tag.
// On a miss a LegacyUnchecked selector is left one record past the end of p,
// where the scan stopped; a Checked selector keeps its selection.
func (s *Selector) SelectByTag(p *Pool, tag int32) bool {
	for i := 0; i < p.capacity; i++ {
		id := SlotID(i)
		if p.Status(id) < 1 {
			continue
		}
		if p.Tag(id) == tag {
			s.current = Select(p, id)
			return true
		}
	}
	if s.mode == LegacyUnchecked {
		s.current = Select(p, SlotID(p.capacity))
	}
	return false
}
