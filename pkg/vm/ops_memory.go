package vm

// Diagnostics raised by work memory and flag byte access.
const (
	msgWorkOver  = "script work over"
	msgFlagWork  = "scenario flag work error"
	msgWorkError = "script work error"
)

// FlagByteCeiling is the highest flag index addressable as a whole byte.
const FlagByteCeiling = 0x47F8

// flagDebugLimit bounds the flag indices traced when flag debugging is on.
const flagDebugLimit = 800

// ALU selectors of 0x37/0x39.
const (
	aluAssign = 0x25
	aluMul    = 0x26
	aluDiv    = 0x27
	aluMod    = 0x28
	aluAdd    = 0x29
	aluSub    = 0x2A
	aluAnd    = 0x2B
	aluXor    = 0x2C
	aluOr     = 0x2D
	aluInc    = 0x2E
	aluDec    = 0x2F
)

// workIndex wraps idx into work memory, reporting indices past the end.
func (m *Machine) workIndex(idx int32) int {
	if idx > WorkWords-1 {
		m.log.Warn(msgWorkOver, "context", m.name, "index", idx)
	}
	return int(idx) & (WorkWords - 1)
}

// flagByteIndex converts a byte-aligned flag index to a byte offset,
// reporting misaligned or out-of-range indices. The access still happens;
// bytes past the store read as zero.
func (m *Machine) flagByteIndex(idx int32) uint32 {
	if idx > FlagByteCeiling || idx&7 != 0 {
		m.log.Warn(msgFlagWork, "context", m.name, "index", idx)
	}
	return uint32(idx / 8)
}

// opReadWorkOrFlag reads a work memory word (0x36) or a flag byte (0x38).
func opReadWorkOrFlag(m *Machine, op Opcode) (uint32, error) {
	idx, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	if op == OpReadWork {
		return uint32(m.work[m.workIndex(idx)]), nil
	}
	return uint32(m.world.Flags.Byte(m.flagByteIndex(idx))), nil
}

// opWorkALU applies a read-modify-write to a work memory word (0x37) or a
// flag byte (0x39). The selector byte follows the operands.
func opWorkALU(m *Machine, op Opcode) (uint32, error) {
	idx, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	rhs, err := m.Eval()
	if err != nil {
		return 0, err
	}

	var (
		cur  uint32
		word int
		b    uint32
	)
	if op == OpWorkALU {
		word = m.workIndex(idx)
		cur = uint32(m.work[word])
	} else {
		b = m.flagByteIndex(idx)
		cur = uint32(m.world.Flags.Byte(b))
	}

	sel, err := m.ctl.U8()
	if err != nil {
		return 0, err
	}
	switch sel {
	case aluAssign:
		cur = rhs
	case aluMul:
		cur *= rhs
	case aluDiv:
		if rhs == 0 {
			return 0, NewDivisionByZeroError()
		}
		cur = uint32(int32(cur) / int32(rhs))
	case aluMod:
		if rhs == 0 {
			return 0, NewDivisionByZeroError()
		}
		cur = uint32(int32(cur) % int32(rhs))
	case aluAdd:
		cur += rhs
	case aluSub:
		cur -= rhs
	case aluAnd:
		cur &= rhs
	case aluXor:
		cur ^= rhs
	case aluOr:
		cur |= rhs
	case aluInc:
		cur++
	case aluDec:
		cur--
	default:
		m.log.Warn(msgWorkError, "context", m.name, "selector", sel)
	}

	if op == OpWorkALU {
		m.work[word] = int32(cur)
	} else {
		m.world.Flags.SetByte(b, byte(cur))
	}
	return cur, nil
}

// opFlag queries (0x3D), sets (0x3E), clears (0x3F) or toggles (0x40) a flag
// and returns its previous state.
func opFlag(m *Machine, op Opcode) (uint32, error) {
	idx, err := m.Eval()
	if err != nil {
		return 0, err
	}
	f := m.world.Flags
	was := f.Test(idx)
	if m.world.Debug && op != OpFlagQuery && idx < flagDebugLimit {
		m.log.Debug("flag write", "context", m.name, "opcode", op, "index", idx, "was", was)
	}
	switch op {
	case OpFlagSet:
		f.Set(idx)
	case OpFlagClear:
		f.Clear(idx)
	case OpFlagToggle:
		f.Toggle(idx)
	}
	return b2u(was), nil
}
