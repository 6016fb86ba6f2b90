package vm

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func le16(v int16) []byte { return binary.LittleEndian.AppendUint16(nil, uint16(v)) }

func TestEval_Immediates(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want uint32
	}{
		{"empty operand is the base zero", expr(), 0},
		{"u8", expr(b8(0x7F)), 0x7F},
		{"u16", expr([]byte{evImm16, 0x34, 0x12}), 0x1234},
		{"u32", expr(imm(-2)), 0xFFFFFFFE},
		{"hundreds", expr([]byte{evHundred}, le32(uint32(0xFFFFFFFD))), uint32(0xFFFFFED4)}, // -300
		{"thousands", expr([]byte{evMille}, le16(2)), 2000},
		{"degrees", expr([]byte{evDegrees}, le16(180)), 31416},
		{"pack3", expr([]byte{evPack3}, expr(b8(1)), expr(b8(2)), expr([]byte{evImm16, 0x03, 0x01})), 0x030201},
		{"pack4", expr([]byte{evPack4}, expr(b8(0xAA)), expr(b8(0xBB)), expr(b8(0xCC)), expr(b8(0xDD))), 0xDDCCBBAA},
		{"last value wins", expr(b8(1), b8(2)), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestMachine(t, tt.code)
			if got := eval(t, m); got != tt.want {
				t.Errorf("Eval() = %#x, want %#x", got, tt.want)
			}
			if !m.Main().AtEnd() {
				t.Errorf("cursor at %d, want end %d", m.Main().Pos(), m.Main().Len())
			}
		})
	}
}

func TestEval_Operators(t *testing.T) {
	bin := func(a, b int32, o byte) []byte { return expr(imm(a), imm(b), []byte{o}) }
	un := func(a int32, o byte) []byte { return expr(imm(a), []byte{o}) }
	neg := func(v int32) uint32 { return uint32(v) }

	tests := []struct {
		name string
		code []byte
		want uint32
	}{
		{"add", bin(2, 3, evAdd), 5},
		{"sub wraps", bin(2, 3, evSub), 0xFFFFFFFF},
		{"mul", bin(4, 5, evMul), 20},
		{"div", bin(7, 2, evDiv), 3},
		{"div truncates toward zero", bin(-7, 2, evDiv), neg(-3)},
		{"mod keeps dividend sign", bin(-7, 2, evMod), neg(-1)},
		{"eq", bin(3, 3, evEq), 1},
		{"ne", bin(3, 3, evNe), 0},
		{"lt signed", bin(-1, 0, evLt), 1},
		{"gt", bin(3, 2, evGt), 1},
		{"ge equal", bin(2, 2, evGe), 1},
		{"le", bin(3, 2, evLe), 0},
		{"logical and false", bin(0, 5, evAnd), 0},
		{"logical and true", bin(2, 5, evAnd), 1},
		{"or", bin(1, 2, evOr), 3},
		{"or alias", bin(4, 1, evOrAlias), 5},
		{"xor", bin(3, 1, evXor), 2},
		{"bitand", bin(6, 3, evBitAnd), 2},
		{"not", un(5, evNot), 0},
		{"not zero", un(0, evNot), 1},
		{"complement", un(0, evCompl), 0xFFFFFFFF},
		{"negate", un(5, evNeg), neg(-5)},
		{"operator on the base", expr([]byte{evAdd}), 0xFFFFFFFF},
		{"unknown operator pops one", expr(b8(1), b8(2), []byte{0x25}), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestMachine(t, tt.code)
			if got := eval(t, m); got != tt.want {
				t.Errorf("Eval() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestEval_FatalErrors(t *testing.T) {
	var overflow []byte
	for i := 0; i <= StackDepth; i++ {
		overflow = append(overflow, b8(1)...)
	}
	tests := []struct {
		name string
		code []byte
		want ErrorType
	}{
		{"division by zero", expr(b8(1), b8(0), []byte{evDiv}), ErrorDivisionByZero},
		{"modulo by zero", expr(b8(1), b8(0), []byte{evMod}), ErrorDivisionByZero},
		{"stack overflow", expr(overflow), ErrorStackOverflow},
		{"truncated immediate", []byte{evImm32, 1, 2}, ErrorTruncated},
		{"missing terminator", b8(1), ErrorTruncated},
		{"undefined handler", expr([]byte{0x35}), ErrorUndefinedOpcode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestMachine(t, tt.code)
			_, err := m.Eval()
			var re *RuntimeError
			if !errors.As(err, &re) {
				t.Fatalf("Eval() error = %v, want RuntimeError", err)
			}
			if re.Type != tt.want {
				t.Errorf("error type = %s, want %s", re.Type, tt.want)
			}
			if !IsFatal(err) {
				t.Error("error should be fatal")
			}
		})
	}
}

func TestEval_StackHoldsThirtyTwoValues(t *testing.T) {
	var code []byte
	for i := 1; i <= StackDepth; i++ {
		code = append(code, b8(uint8(i))...)
	}
	m, _, _ := newTestMachine(t, expr(code))
	if got := eval(t, m); got != StackDepth {
		t.Errorf("Eval() = %d, want %d", got, StackDepth)
	}
}

func TestEval_HandlerOperand(t *testing.T) {
	m, _, _ := newTestMachine(t, expr(op(OpReadWork), expr(b8(5)), b8(3), []byte{evAdd}))
	m.SetWork(5, 42)
	if got := eval(t, m); got != 45 {
		t.Errorf("Eval() = %d, want 45", got)
	}
}

func TestEval_NonFatalHandlerErrorContinues(t *testing.T) {
	// Ramp of an entry past the table reports an index error but still
	// yields a value, so the expression goes on.
	m, _, _ := newTestMachine(t, expr(op(OpRamp), expr(imm(0x1000)), b8(7), []byte{evAdd}))
	if got := eval(t, m); got != 7 {
		t.Errorf("Eval() = %d, want 7", got)
	}
}

func TestProperty_EvalBinaryArithmetic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("add, sub and xor wrap like uint32", prop.ForAll(
		func(a, b int32) bool {
			check := func(o byte, want uint32) bool {
				m, _, _ := newTestMachine(t, expr(imm(a), imm(b), []byte{o}))
				v, err := m.Eval()
				return err == nil && v == want
			}
			ua, ub := uint32(a), uint32(b)
			return check(evAdd, ua+ub) && check(evSub, ua-ub) && check(evXor, ua^ub)
		},
		gen.Int32(), gen.Int32(),
	))

	properties.Property("div and mod satisfy a = q*b + r", prop.ForAll(
		func(a, b int32) bool {
			if b == 0 {
				return true
			}
			m, _, _ := newTestMachine(t, cat(expr(imm(a), imm(b), []byte{evDiv}), expr(imm(a), imm(b), []byte{evMod})))
			q, err := m.Eval()
			if err != nil {
				return false
			}
			r, err := m.Eval()
			if err != nil {
				return false
			}
			return int32(q)*b+int32(r) == a
		},
		gen.Int32(), gen.Int32(),
	))

	properties.TestingRun(t)
}
