package vm

import (
	"errors"
	"fmt"

	"github.com/zurustar/scriptcore/pkg/slots"
)

// subprocess is a context started by 0x9D. It runs the primary stream from
// the assigned offset and lives as long as its slot holds its handle.
type subprocess struct {
	slot   int32
	handle slots.Handle
	m      *Machine
	done   bool
}

// Processes returns the number of live sub-processes.
func (m *Machine) Processes() int { return len(m.root.procs) }

// CurrentSlot returns the slot this context runs in, or -1 for a top-level
// context.
func (m *Machine) CurrentSlot() int32 { return m.slot }

// startProcess schedules a context over the primary stream at off for slot.
// Any process already running in the slot is replaced. Sub-processes are
// owned by the top-level context and share its slot table.
func (m *Machine) startProcess(slot int32, off uint32, h slots.Handle) {
	root := m.root
	for _, p := range root.procs {
		if p.slot == slot {
			p.done = true
		}
	}
	buf := root.main.Bytes()
	if uint64(off) >= uint64(len(buf)) {
		m.log.Warn("sub-process offset outside the stream", "context", m.name, "slot", slot, "offset", off, "len", len(buf))
		return
	}
	c := New(m.world, buf,
		WithName(fmt.Sprintf("%s/slot%d", root.name, slot)),
		WithLogger(m.log),
		WithTickDelta(m.tick),
		WithBudget(m.budget),
	)
	_ = c.main.Seek(int(off))
	c.root = root
	c.slot = slot
	c.slots = root.slots
	c.undefined = root.undefined
	root.procs = append(root.procs, &subprocess{slot: slot, handle: h, m: c})
	m.log.Debug("sub-process started", "context", c.name, "offset", off)
}

// tickProcesses ticks every live sub-process with its slot as the current
// slot. A process retires when its body ends, it fails, or its slot no longer
// holds its handle; a retiring body releases its slot.
func (m *Machine) tickProcesses() error {
	var errs []error
	for i := 0; i < len(m.procs); i++ {
		p := m.procs[i]
		if p.done || m.slots.Get(p.slot) != p.handle {
			p.done = true
			continue
		}
		prev := m.slots.Current()
		m.slots.SetCurrent(p.slot)
		_, err := p.m.run()
		m.slots.SetCurrent(prev)
		if err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", p.slot, err))
		}
		if p.m.halted {
			p.done = true
			m.slots.Release(p.slot, p.handle)
		}
	}
	live := m.procs[:0]
	for _, p := range m.procs {
		if !p.done {
			live = append(live, p)
		}
	}
	clear(m.procs[len(live):])
	m.procs = live
	return errors.Join(errs...)
}

func (m *Machine) stopProcesses() {
	for _, p := range m.procs {
		m.slots.Release(p.slot, p.handle)
	}
	m.procs = nil
}
