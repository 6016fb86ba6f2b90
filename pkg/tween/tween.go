// Package tween holds the time-stepped values scripts advance once per tick:
// parameter ramps, colour fade tracks, the fullscreen fade and the Q5 timer
// behind timed interpolation opcodes.
//
// All durations are in Q5 ticks: a tick delta of 32 is one frame.
package tween

import (
	"errors"
	"fmt"
)

// RampScale converts a tick delta into frames.
const RampScale = 1.0 / 32

// DefaultCapacity is the number of entries in the parameter table.
const DefaultCapacity = 0x40

// ErrIndex is returned for an entry index outside a table.
var ErrIndex = errors.New("tween index out of range")

// ErrZeroTotal is returned when a fade track with a zero length is advanced.
var ErrZeroTotal = errors.New("fade track total is zero")

// Submitter receives scaled parameter values.
type Submitter interface {
	SubmitParameter(v float32)
}

// Entry is one (current, target, step) triple.
type Entry struct {
	Current float32
	Target  float32
	Step    float32
}

// Settled reports whether the entry has reached its target.
func (e Entry) Settled() bool { return e.Current == e.Target }

// Table is the shared parameter tween table.
type Table struct {
	entries []Entry
}

// NewTable returns a table of n zeroed entries.
func NewTable(n int) *Table {
	if n <= 0 {
		n = DefaultCapacity
	}
	return &Table{entries: make([]Entry, n)}
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

func (t *Table) check(i uint32) error {
	if i >= uint32(len(t.entries)) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndex, i, len(t.entries))
	}
	return nil
}

// Get returns entry i.
func (t *Table) Get(i uint32) (Entry, error) {
	if err := t.check(i); err != nil {
		return Entry{}, err
	}
	return t.entries[i], nil
}

// Set replaces entry i.
func (t *Table) Set(i uint32, e Entry) error {
	if err := t.check(i); err != nil {
		return err
	}
	t.entries[i] = e
	return nil
}

// Ramp moves entry i toward its target by step*tick/32 and reports whether
// the entry was already settled before the call. A settled entry is not touched.
// The step never overshoots: a positive step stops at the target from below,
// anything else stops at it from above.
func (t *Table) Ramp(i uint32, tick uint32) (bool, error) {
	if err := t.check(i); err != nil {
		return false, err
	}
	e := &t.entries[i]
	if e.Current == e.Target {
		return true, nil
	}
	dt := float32(tick) * RampScale
	next := e.Current + e.Step*dt
	if e.Step > 0 {
		if next >= e.Target {
			next = e.Target
		}
	} else if next <= e.Target {
		next = e.Target
	}
	e.Current = next
	return false, nil
}

// SubmitCurrent forwards current*scale of entry i to s without touching the entry.
func (t *Table) SubmitCurrent(i uint32, scale float32, s Submitter) error {
	if err := t.check(i); err != nil {
		return err
	}
	s.SubmitParameter(t.entries[i].Current * scale)
	return nil
}
