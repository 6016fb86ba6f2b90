package vm

import (
	"github.com/zurustar/scriptcore/pkg/cursor"
)

// Evaluator stack geometry.
const (
	StackDepth     = 32
	stackSentinels = 8
	sentinelValue  = 0xFFFFFFFF
	maxEvalNesting = 64
)

// Evaluator bytes below StandardBase.
const (
	evReturn  = 0x0B
	evImm8    = 0x0C
	evImm16   = 0x0D
	evImm32   = 0x0E
	evHundred = 0x0F
	evMille   = 0x10
	evDegrees = 0x11
	evEq      = 0x12
	evNe      = 0x13
	evLt      = 0x14
	evGt      = 0x15
	evGe      = 0x16
	evLe      = 0x17
	evNot     = 0x18
	evCompl   = 0x19
	evAnd     = 0x1A
	evOr      = 0x1B
	evAdd     = 0x1C
	evSub     = 0x1D
	evNeg     = 0x1E
	evXor     = 0x1F
	evBitAnd  = 0x20
	evOrAlias = 0x21
	evDiv     = 0x22
	evMul     = 0x23
	evMod     = 0x24
	evPack3   = 0x30
	evPack4   = 0x31
)

// AngleUnits is the number of angle units per radian (0x11 immediates are
// degrees scaled by 0xF570/0x168).
const AngleUnits = 10000

// evalStack is the operand stack of one evaluation. It starts with eight
// 0xFFFFFFFF sentinels below a 0 base value.
type evalStack struct {
	vals []uint32
}

func (s *evalStack) reset() {
	if s.vals == nil {
		s.vals = make([]uint32, 0, stackSentinels+1+StackDepth)
	}
	s.vals = s.vals[:0]
	for i := 0; i < stackSentinels; i++ {
		s.vals = append(s.vals, sentinelValue)
	}
	s.vals = append(s.vals, 0)
}

func (s *evalStack) push(v uint32) error {
	if len(s.vals) >= stackSentinels+1+StackDepth {
		return NewStackOverflowError(len(s.vals) - stackSentinels)
	}
	s.vals = append(s.vals, v)
	return nil
}

func (s *evalStack) pop() uint32 {
	if len(s.vals) == 0 {
		return sentinelValue
	}
	v := s.vals[len(s.vals)-1]
	s.vals = s.vals[:len(s.vals)-1]
	return v
}

func (s *evalStack) top() uint32 {
	if len(s.vals) == 0 {
		return sentinelValue
	}
	return s.vals[len(s.vals)-1]
}

// Eval decodes one operand from the dispatching stream (the primary stream
// unless the context runs a block structure). Nested evaluations
// (handler operands, packed immediates) get a fresh stack each.
func (m *Machine) Eval() (uint32, error) {
	if m.depth >= maxEvalNesting {
		return 0, NewStackOverflowError(m.depth)
	}
	m.depth++
	saved := m.stack
	m.stack = evalStack{}
	m.stack.reset()
	defer func() {
		m.stack = saved
		m.depth--
	}()

	c := m.ctl
	for {
		pos := c.Pos()
		b, err := c.Peek()
		if err != nil {
			return 0, at(err, pos, 0)
		}
		if b > evPack4 {
			v, err := m.evalHandler(c, pos)
			if err != nil {
				return 0, err
			}
			if err := m.stack.push(v); err != nil {
				return 0, at(err, pos, Opcode(b))
			}
			continue
		}
		if v, ok, err := m.immediate(c); ok || err != nil {
			if err != nil {
				return 0, at(err, pos, Opcode(b))
			}
			if err := m.stack.push(v); err != nil {
				return 0, at(err, pos, Opcode(b))
			}
			continue
		}
		if err := c.Advance(1); err != nil {
			return 0, at(err, pos, Opcode(b))
		}
		if b == evReturn {
			return m.stack.top(), nil
		}
		if err := m.operator(b); err != nil {
			return 0, at(err, pos, Opcode(b))
		}
	}
}

// EvalInt is Eval reinterpreted as a signed value.
func (m *Machine) EvalInt() (int32, error) {
	v, err := m.Eval()
	return int32(v), err
}

func (m *Machine) evalHandler(c *cursor.Cursor, pos int) (uint32, error) {
	b, _ := c.U8()
	op := Opcode(b)
	if b == Prefix {
		ext, err := c.U8()
		if err != nil {
			return 0, at(err, pos, op)
		}
		op = ExtendedBase + Opcode(ext)
	}
	v, err := m.dispatch(op)
	if err != nil {
		err = at(err, pos, op)
		if IsFatal(err) {
			return 0, err
		}
		// Handlers consume all operands before reporting, so the
		// expression can go on.
		m.log.Warn("runtime error", "context", m.name, "error", err)
	}
	return v, nil
}

// immediate decodes literal and packed operands. ok is false when b is not
// an immediate and nothing was consumed.
func (m *Machine) immediate(c *cursor.Cursor) (uint32, bool, error) {
	b, err := c.Peek()
	if err != nil {
		return 0, false, err
	}
	switch b {
	case evImm8, evImm16, evImm32, evHundred, evMille, evDegrees, evPack3, evPack4:
	default:
		return 0, false, nil
	}
	_ = c.Advance(1)

	switch b {
	case evImm8:
		v, err := c.U8()
		return uint32(v), true, err
	case evImm16:
		v, err := c.U16()
		return uint32(v), true, err
	case evImm32:
		v, err := c.U32()
		return v, true, err
	case evHundred:
		v, err := c.S32()
		return uint32(v * 100), true, err
	case evMille:
		v, err := c.S16()
		return uint32(int32(v) * 1000), true, err
	case evDegrees:
		v, err := c.S16()
		return uint32(int32(v) * 0xF570 / 0x168), true, err
	default:
		n := 3
		if b == evPack4 {
			n = 4
		}
		var out uint32
		for i := 0; i < n; i++ {
			v, err := m.Eval()
			if err != nil {
				return 0, true, err
			}
			out |= (v & 0xFF) << (8 * i)
		}
		return out, true, nil
	}
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// operator applies an operator byte to the stack. Unknown bytes pop one
// value and are reported.
func (m *Machine) operator(b byte) error {
	s := &m.stack
	switch b {
	case evNot:
		return s.push(b2u(s.pop() == 0))
	case evCompl:
		return s.push(^s.pop())
	case evNeg:
		return s.push(uint32(-int32(s.pop())))
	}

	switch b {
	case evEq, evNe, evLt, evGt, evGe, evLe, evAnd, evOr, evOrAlias,
		evAdd, evSub, evXor, evBitAnd, evDiv, evMul, evMod:
	default:
		s.pop()
		m.log.Warn("unknown evaluator operator", "context", m.name, "opcode", Opcode(b), "pos", m.ctl.Pos()-1)
		return nil
	}

	s0 := s.pop()
	s1 := s.pop()
	a, z := int32(s1), int32(s0)
	var r uint32
	switch b {
	case evEq:
		r = b2u(s1 == s0)
	case evNe:
		r = b2u(s1 != s0)
	case evLt:
		r = b2u(a < z)
	case evGt:
		r = b2u(z < a)
	case evGe:
		r = b2u(a >= z)
	case evLe:
		r = b2u(z >= a)
	case evAnd:
		r = b2u(s0 != 0)
		if s1 == 0 {
			r = 0
		}
	case evOr, evOrAlias:
		r = s1 | s0
	case evAdd:
		r = s1 + s0
	case evSub:
		r = s1 - s0
	case evXor:
		r = s1 ^ s0
	case evBitAnd:
		r = s1 & s0
	case evMul:
		r = s1 * s0
	case evDiv:
		if z == 0 {
			return NewDivisionByZeroError()
		}
		r = uint32(a / z)
	case evMod:
		if z == 0 {
			return NewDivisionByZeroError()
		}
		r = uint32(a % z)
	}
	return s.push(r)
}
