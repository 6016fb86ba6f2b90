package vm

import "fmt"

// Opcode identifies a handler. Values 0x100-0x1FF are the 0xFF-prefixed
// extended range.
type Opcode uint16

// Prefix introduces a two-byte extended opcode.
const Prefix = 0xFF

// Range boundaries.
const (
	LowLimit      Opcode = 0x0B // opcodes below this are low-range statements
	StandardBase  Opcode = 0x32 // first standard handler opcode
	ExtendedBase  Opcode = 0x100
	ExtendedLimit Opcode = 0x200
)

// Standard opcodes with a fixed meaning.
const (
	OpReturnZero    Opcode = 0x32
	OpFrameSync     Opcode = 0x33
	OpProbeBusy     Opcode = 0x34
	OpReadWork      Opcode = 0x36
	OpWorkALU       Opcode = 0x37
	OpReadFlagByte  Opcode = 0x38
	OpFlagByteALU   Opcode = 0x39
	OpFlagQuery     Opcode = 0x3D
	OpFlagSet       Opcode = 0x3E
	OpFlagClear     Opcode = 0x3F
	OpFlagToggle    Opcode = 0x40
	OpInterpolateA  Opcode = 0x42
	OpInterpolateB  Opcode = 0x44
	OpLoadModels    Opcode = 0x4D
	OpPendingSpawns Opcode = 0x4F
	OpSetPwAll      Opcode = 0x51
	OpSelectSlot    Opcode = 0x58
	OpSlotIndex     Opcode = 0x59
	OpSelectByTag   Opcode = 0x5A
	OpAngleTo       Opcode = 0x70
	OpDistanceTo    Opcode = 0x71
	OpWrapLerp      Opcode = 0x72
	OpWrapDelta     Opcode = 0x73
	OpReadRegister  Opcode = 0x76
	OpWriteRegister Opcode = 0x77
	OpAndRegister   Opcode = 0x78
	OpOrRegister    Opcode = 0x79
	OpXorRegister   Opcode = 0x7A
	OpAddRegister   Opcode = 0x7B
	OpSubRegister   Opcode = 0x7C
	OpModelPosition Opcode = 0x7F
	OpModelRotation Opcode = 0x80
	OpScreenFade    Opcode = 0x86
	OpRamp          Opcode = 0x91
	OpSubmitCurrent Opcode = 0x92
	OpSetRGB        Opcode = 0x96
	OpFadeTrack     Opcode = 0x9B
	OpSlotAssign    Opcode = 0x9D
	OpSlotFinish    Opcode = 0x9E
	OpSlotQuery     Opcode = 0x9F
	OpCallFunction  Opcode = 0xBE
	OpStatusProbe   Opcode = 0xD4
	OpBankUpload    Opcode = 0xE4
)

// Extended opcodes.
const (
	OpParamBlock      Opcode = 0x10D
	OpFadeTrackStart  Opcode = 0x120
	OpScreenFadeStart Opcode = 0x121
	OpParamSet        Opcode = 0x122
)

// IsExtended reports whether op is in the 0xFF-prefixed range.
func (op Opcode) IsExtended() bool { return op >= ExtendedBase }

func (op Opcode) String() string {
	if op.IsExtended() {
		return fmt.Sprintf("0xFF%02X", uint16(op-ExtendedBase))
	}
	return fmt.Sprintf("0x%02X", uint16(op))
}
