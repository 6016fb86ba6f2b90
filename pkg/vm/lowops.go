package vm

// Low-range statements. Jumps always act on the primary cursor; skips and
// table reads act on the dispatching cursor.

const lowBlockEnd = 0x04

type lowHandler func(m *Machine) error

var lowTable [LowLimit]lowHandler

func init() {
	lowTable = [LowLimit]lowHandler{
		0x00: lowNop,
		0x01: lowConditional,
		0x02: lowJumpTable,
		0x03: lowJump,
		0x04: lowNop,
		0x05: lowNop,
		0x06: lowNop,
		0x07: lowSkip,
		0x08: lowJump,
		0x09: lowSkip,
		0x0A: lowJump,
	}
}

func lowNop(*Machine) error { return nil }

func (m *Machine) jump() error {
	if err := m.main.Jump(); err != nil {
		return wrapError(ErrorBadJump, "relative jump", err)
	}
	return nil
}

func lowJump(m *Machine) error { return m.jump() }

func lowSkip(m *Machine) error { return m.ctl.Advance(4) }

// lowConditional jumps when the condition is zero and skips the delta otherwise.
func lowConditional(m *Machine) error {
	v, err := m.Eval()
	if err != nil {
		return err
	}
	if v == 0 {
		return m.jump()
	}
	return m.ctl.Advance(4)
}

// lowJumpTable evaluates a key and scans (key, target) pairs. A match leaves
// the cursor on the matching target word; no match leaves it on the default
// word after the table. Either way the primary cursor then jumps.
func lowJumpTable(m *Machine) error {
	key, err := m.EvalInt()
	if err != nil {
		return err
	}
	c := m.ctl
	count, err := c.U8()
	if err != nil {
		return err
	}
	if err := c.Align4(); err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		k, err := c.S32()
		if err != nil {
			return err
		}
		if k == key {
			break
		}
		if err := c.Advance(4); err != nil {
			return err
		}
	}
	return m.jump()
}
