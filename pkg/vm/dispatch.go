package vm

// Handler executes one standard or extended opcode. The opcode byte(s) have
// already been consumed; the handler reads its own operands. The result is
// pushed when the handler runs inside an expression and dropped otherwise.
type Handler func(m *Machine, op Opcode) (uint32, error)

var (
	standardTable [0x100 - StandardBase]Handler
	extendedTable [0x100]Handler
)

func init() {
	for op, h := range standardHandlers() {
		standardTable[op-StandardBase] = h
	}
	for op, h := range extendedHandlers() {
		extendedTable[op-ExtendedBase] = h
	}
}

// lookup returns the handler for op, or nil.
func lookup(op Opcode) Handler {
	switch {
	case op >= ExtendedBase && op < ExtendedLimit:
		return extendedTable[op-ExtendedBase]
	case op >= StandardBase && op < Prefix:
		return standardTable[op-StandardBase]
	default:
		return nil
	}
}

// Defined reports whether op has a handler.
func Defined(op Opcode) bool { return lookup(op) != nil }

func (m *Machine) dispatch(op Opcode) (uint32, error) {
	h := lookup(op)
	if h == nil {
		m.undefined.Record(op, m.ctl.Pos())
		return 0, NewUndefinedOpcodeError(op)
	}
	return h(m, op)
}

func standardHandlers() map[Opcode]Handler {
	return map[Opcode]Handler{
		OpReturnZero:    opReturnZero,
		OpFrameSync:     opFrameSync,
		OpProbeBusy:     opProbeBusy,
		OpReadWork:      opReadWorkOrFlag,
		OpWorkALU:       opWorkALU,
		OpReadFlagByte:  opReadWorkOrFlag,
		OpFlagByteALU:   opWorkALU,
		OpFlagQuery:     opFlag,
		OpFlagSet:       opFlag,
		OpFlagClear:     opFlag,
		OpFlagToggle:    opFlag,
		OpInterpolateA:  opTimedInterpolation,
		OpInterpolateB:  opTimedInterpolation,
		OpLoadModels:    opLoadModels,
		OpPendingSpawns: opPendingSpawns,
		OpSetPwAll:      opSetPwAll,
		OpSelectSlot:    opSelectSlot,
		OpSlotIndex:     opSlotIndex,
		OpSelectByTag:   opSelectByTag,
		OpAngleTo:       opAngleTo,
		OpDistanceTo:    opDistanceTo,
		OpWrapLerp:      opWrapLerp,
		OpWrapDelta:     opWrapDelta,
		OpReadRegister:  opReadRegister,
		OpWriteRegister: opModifyRegister,
		OpAndRegister:   opModifyRegister,
		OpOrRegister:    opModifyRegister,
		OpXorRegister:   opModifyRegister,
		OpAddRegister:   opModifyRegister,
		OpSubRegister:   opModifyRegister,
		OpModelPosition: opModelAxis,
		OpModelRotation: opModelAxis,
		OpScreenFade:    opScreenFade,
		OpRamp:          opRamp,
		OpSubmitCurrent: opSubmitCurrent,
		OpSetRGB:        opSetRGB,
		OpFadeTrack:     opFadeTrack,
		OpSlotAssign:    opSlotAssign,
		OpSlotFinish:    opSlotFinish,
		OpSlotQuery:     opSlotQuery,
		OpCallFunction:  opCallFunction,
		OpStatusProbe:   opStatusProbe,
		OpBankUpload:    opBankUpload,
	}
}

func extendedHandlers() map[Opcode]Handler {
	return map[Opcode]Handler{
		OpParamBlock:      opParamBlock,
		OpFadeTrackStart:  opFadeTrackStart,
		OpScreenFadeStart: opScreenFadeStart,
		OpParamSet:        opParamSet,
	}
}
