package vm

func opReturnZero(*Machine, Opcode) (uint32, error) { return 0, nil }

// opFrameSync skips a four-byte header, takes the self-relative jump that
// follows it and ends the frame.
func opFrameSync(m *Machine, _ Opcode) (uint32, error) {
	if err := m.main.Advance(4); err != nil {
		return 0, err
	}
	if err := m.jump(); err != nil {
		return 0, err
	}
	m.yield = true
	return 0, nil
}

func opProbeBusy(m *Machine, _ Opcode) (uint32, error) {
	return b2u(m.world.Host.Readiness.IsSystemBusy()), nil
}

func opStatusProbe(m *Machine, _ Opcode) (uint32, error) {
	return uint32(m.world.Status & StatusFlag40), nil
}

// opCallFunction calls an entry of the host function table.
func opCallFunction(m *Machine, _ Opcode) (uint32, error) {
	index, err := m.Eval()
	if err != nil {
		return 0, err
	}
	arg, err := m.Eval()
	if err != nil {
		return 0, err
	}
	fns := m.world.Host.Functions
	if index >= uint32(len(fns)) || fns[index] == nil {
		m.log.Warn("function table index out of range", "context", m.name, "index", index, "len", len(fns))
		return 0, nil
	}
	fns[index](arg)
	return 0, nil
}
