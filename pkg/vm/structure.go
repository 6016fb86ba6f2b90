package vm

// Block structure interpreter. The structural stream nests blocks: 0x32
// opens a block (saving the continuation five bytes on and moving the primary
// cursor by its self-relative cell) and 0x04 closes one. A 0x04 at the base
// depth ends the context.

const (
	baseDepth = 0x10
	// ReturnStackSize is the number of open blocks a context can nest.
	ReturnStackSize = 32
	blockOpen       = 0x32
	// continuation skips the open byte and its four-byte header.
	continuation = 5
)

type blockStack struct {
	ret   [ReturnStackSize]int
	sp    int
	depth int
}

func (b *blockStack) reset() {
	b.sp = ReturnStackSize
	b.depth = baseDepth
}

// Depth returns the number of currently open blocks.
func (m *Machine) Depth() int { return baseDepth - m.blocks.depth }

func (m *Machine) stepStructure() error {
	c := m.structural
	if c.AtEnd() {
		m.halted = true
		return nil
	}
	pos := c.Pos()
	b, err := c.U8()
	if err != nil {
		return at(err, pos, 0)
	}
	op := Opcode(b)

	switch {
	case op == lowBlockEnd:
		if m.blocks.depth == baseDepth {
			m.halted = true
			return nil
		}
		m.blocks.depth++
		if m.blocks.sp >= ReturnStackSize {
			m.log.Warn("block end without open block", "context", m.name, "pos", pos)
			m.halted = true
			return nil
		}
		ret := m.blocks.ret[m.blocks.sp]
		m.blocks.sp++
		err = c.Seek(ret)
	case op < LowLimit:
		err = lowTable[op](m)
	case b == Prefix:
		ext, rerr := c.U8()
		if rerr != nil {
			return at(rerr, pos, op)
		}
		op = ExtendedBase + Opcode(ext)
		_, err = m.dispatch(op)
	case op == blockOpen:
		if m.blocks.sp == 0 {
			return at(NewStackOverflowError(ReturnStackSize), pos, op)
		}
		m.blocks.sp--
		m.blocks.ret[m.blocks.sp] = pos + continuation
		m.blocks.depth--
		err = m.jump()
	default:
		_, err = m.dispatch(op)
	}
	if err != nil {
		return at(err, pos, op)
	}
	return nil
}
