// Package slots implements the process slot table: a fixed set of handles to
// asynchronous sub-processes such as timed tracks.
package slots

import (
	"log/slog"

	"github.com/zurustar/scriptcore/pkg/logger"
)

const (
	// Capacity is the number of slots.
	Capacity = 65
	// AssignLimit is the exclusive upper bound accepted by Assign.
	AssignLimit = 0x40
	// ClearLimit is the inclusive upper bound accepted by Clear.
	ClearLimit = 0x40
)

// Handle is an opaque sub-process reference. Zero means empty.
type Handle uint32

// Table holds the slots and the "current slot" fallback.
type Table struct {
	slots   [Capacity]Handle
	current int32
	log     *slog.Logger
}

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the diagnostics logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *Table) {
		t.log = log
	}
}

// New returns an empty table with no current slot.
func New(opts ...Option) *Table {
	t := &Table{current: -1, log: logger.GetLogger()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Current returns the current slot index (negative when unset).
func (t *Table) Current() int32 { return t.current }

// SetCurrent sets the current slot index.
func (t *Table) SetCurrent(i int32) { t.current = i }

// Assign stores h in slot i. Indices >= AssignLimit are logged and ignored.
func (t *Table) Assign(i int32, h Handle) bool {
	if i < 0 || i >= AssignLimit {
		t.log.Warn("finish_proc: slot index out of range", "index", i)
		return false
	}
	t.slots[i] = h
	return true
}

// Clear empties slot i, or the current slot when i is negative.
// A negative fallback is logged; an index past ClearLimit is ignored silently.
func (t *Table) Clear(i int32) bool {
	if i < 0 {
		i = t.current
		if i < 0 {
			t.log.Warn("finish_proc error", "current", t.current)
			return false
		}
	}
	if i > ClearLimit {
		return false
	}
	t.slots[i] = 0
	return true
}

// Release empties slot i if it still holds h.
func (t *Table) Release(i int32, h Handle) {
	if i < 0 || int(i) >= Capacity || t.slots[i] != h {
		return
	}
	t.slots[i] = 0
}

// Get returns the handle in slot i, or 0 out of range.
func (t *Table) Get(i int32) Handle {
	if i < 0 || int(i) >= Capacity {
		return 0
	}
	return t.slots[i]
}

// Active reports whether slot i holds a handle.
func (t *Table) Active(i int32) bool {
	return t.Get(i) != 0
}

// Count returns the number of non-empty slots.
func (t *Table) Count() int {
	n := 0
	for _, h := range t.slots {
		if h != 0 {
			n++
		}
	}
	return n
}
