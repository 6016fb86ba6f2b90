// Package pool implements the fixed-stride object pools scripts target and the
// selection context that tracks the "current object".
package pool

import (
	"errors"
	"fmt"
)

const (
	// Sentinel is the reserved index that means "use the fallback selection".
	// IndexOf also returns it when nothing is selected.
	Sentinel = 0x100

	// DefaultStride is the record size shared by frame and spawn records.
	DefaultStride = 0xEC

	// DefaultFrameLead is the number of frame records in front of the spawn pool.
	DefaultFrameLead = 20

	// DefaultSpawnCapacity is the number of spawn records (and status bytes).
	DefaultSpawnCapacity = 0xF6

	// TagOffset is the record offset of the int32 tag matched by SelectByTag.
	TagOffset = 0x4C
)

// ErrOutOfRange is returned by checked selections outside a pool.
var ErrOutOfRange = errors.New("pool index out of range")

// SlotID is an index relative to the start of a pool.
type SlotID int

// Pool is a view over a contiguous run of arena records.
// A pool with a status array only treats records whose status is >= 1 as live.
type Pool struct {
	name     string
	arena    *Arena
	first    int
	capacity int
	status   []byte
}

// NewPool returns a view of capacity records starting at record first.
func NewPool(name string, arena *Arena, first, capacity int, withStatus bool) *Pool {
	p := &Pool{name: name, arena: arena, first: first, capacity: capacity}
	if withStatus {
		p.status = make([]byte, capacity)
	}
	return p
}

// Name returns the pool's label.
func (p *Pool) Name() string { return p.name }

// Capacity returns the number of records in the view.
func (p *Pool) Capacity() int { return p.capacity }

// Arena returns the backing arena.
func (p *Pool) Arena() *Arena { return p.arena }

// Contains reports whether id addresses a record of this pool.
func (p *Pool) Contains(id SlotID) bool {
	return id >= 0 && int(id) < p.capacity
}

// Offset returns the arena byte offset of id without any bounds check.
func (p *Pool) Offset(id SlotID) int {
	return (p.first + int(id)) * p.arena.stride
}

// Status returns the status byte of id, or 0 if the pool has none.
func (p *Pool) Status(id SlotID) byte {
	if p.status == nil || !p.Contains(id) {
		return 0
	}
	return p.status[id]
}

// SetStatus stores the status byte of id.
func (p *Pool) SetStatus(id SlotID, v byte) {
	if p.status != nil && p.Contains(id) {
		p.status[id] = v
	}
}

// Tag returns the tag field of id.
func (p *Pool) Tag(id SlotID) int32 {
	return int32(p.arena.U32(p.Offset(id) + TagOffset))
}

// SetTag stores the tag field of id.
func (p *Pool) SetTag(id SlotID, tag int32) {
	p.arena.PutU32(p.Offset(id)+TagOffset, uint32(tag))
}

// Allocate claims the lowest free record, zeroes it and marks it live.
func (p *Pool) Allocate() (SlotID, bool) {
	if p.status == nil {
		return 0, false
	}
	for i := range p.status {
		if p.status[i] == 0 {
			p.status[i] = 1
			p.arena.ZeroRecord(p.Offset(SlotID(i)))
			return SlotID(i), true
		}
	}
	return 0, false
}

// Release marks id free.
func (p *Pool) Release(id SlotID) {
	p.SetStatus(id, 0)
}

// Live returns the number of records with a status >= 1.
func (p *Pool) Live() int {
	n := 0
	for _, s := range p.status {
		if s >= 1 {
			n++
		}
	}
	return n
}

// Rebase converts an id of another view over the same arena into this view.
func (p *Pool) Rebase(other *Pool, id SlotID) SlotID {
	return SlotID(other.first + int(id) - p.first)
}

func (p *Pool) String() string {
	return fmt.Sprintf("%s[%d@%d]", p.name, p.capacity, p.first)
}

// Pools groups the views scripts address.
type Pools struct {
	Arena *Arena
	Frame *Pool
	Spawn *Pool
}

// Layout sizes the arena.
type Layout struct {
	Stride        int
	FrameLead     int
	SpawnCapacity int
}

// DefaultLayout returns the reference sizes.
func DefaultLayout() Layout {
	return Layout{Stride: DefaultStride, FrameLead: DefaultFrameLead, SpawnCapacity: DefaultSpawnCapacity}
}

// NewPools lays out the frame records followed by the spawn records in one arena.
// The frame view spans the whole arena, so frame index FrameLead+k is spawn slot k.
func NewPools(l Layout) *Pools {
	if l.Stride <= 0 {
		l.Stride = DefaultStride
	}
	total := l.FrameLead + l.SpawnCapacity
	arena := NewArena(total, l.Stride)
	return &Pools{
		Arena: arena,
		Frame: NewPool("frame", arena, 0, total, false),
		Spawn: NewPool("spawn", arena, l.FrameLead, l.SpawnCapacity, true),
	}
}
