package vm

import "github.com/zurustar/scriptcore/pkg/slots"

// opSlotAssign stores a handle for the primary stream offset that follows the
// operand and starts a sub-process there. Handles are the offset plus one so
// that offset zero is still live.
func opSlotAssign(m *Machine, _ Opcode) (uint32, error) {
	idx, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	off, err := m.ctl.U32()
	if err != nil {
		return 0, err
	}
	h := slots.Handle(off + 1)
	if m.slots.Assign(idx, h) {
		m.startProcess(idx, off, h)
	}
	return 0, nil
}

// opSlotFinish empties a slot; a negative operand finishes the current slot.
func opSlotFinish(m *Machine, _ Opcode) (uint32, error) {
	idx, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	m.slots.Clear(idx)
	return 0, nil
}

func opSlotQuery(m *Machine, _ Opcode) (uint32, error) {
	idx, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	return b2u(m.slots.Active(idx)), nil
}
