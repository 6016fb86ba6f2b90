package vm

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zurustar/scriptcore/pkg/tween"
)

// opTimedInterpolation advances the context timer toward a duration in frames,
// forwarding the elapsed frames to the interpolator. It returns 1 once done.
func opTimedInterpolation(m *Machine, op Opcode) (uint32, error) {
	dur, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	done := m.timer.Advance(dur, m.tick, func(frames int32) {
		m.world.Host.Interpolator.Interpolate(op, frames)
	})
	return b2u(done), nil
}

// opScreenFade steps the fullscreen fade and draws it.
func opScreenFade(m *Machine, _ Opcode) (uint32, error) {
	s := &m.world.Screen
	argb := s.Step(m.tick)
	m.world.Host.Renderer.RenderFullscreenEffect(FullscreenEffect{
		ARGB:   argb,
		X0:     -tween.ScreenHalfWidth,
		Y0:     -tween.ScreenHalfHeight,
		X1:     tween.ScreenHalfWidth,
		Y1:     tween.ScreenHalfHeight,
		Packet: tween.FullscreenPacket,
		State:  1,
	})
	return b2u(s.Done), nil
}

// opScreenFadeStart arms the fullscreen fade: rate, hold, then a packed RGB base.
func opScreenFadeStart(m *Machine, _ Opcode) (uint32, error) {
	var v [3]uint32
	for i := range v {
		x, err := m.Eval()
		if err != nil {
			return 0, err
		}
		v[i] = x
	}
	m.world.Screen.Start(uint16(v[0]), int16(v[1]), v[2])
	return 0, nil
}

func opSetRGB(m *Machine, _ Opcode) (uint32, error) {
	var c [3]uint32
	for i := range c {
		x, err := m.Eval()
		if err != nil {
			return 0, err
		}
		c[i] = x & 0xFF
	}
	m.world.RGB = c[0]<<16 | c[1]<<8 | c[2]
	return 0, nil
}

// opFadeTrack steps a colour fade track and reports completion.
func opFadeTrack(m *Machine, _ Opcode) (uint32, error) {
	track, err := m.Eval()
	if err != nil {
		return 0, err
	}
	done, err := m.world.Fades.Step(track, m.tick)
	switch {
	case errors.Is(err, tween.ErrZeroTotal):
		return 0, wrapError(ErrorZeroDenominator, fmt.Sprintf("fade track %d", track), err)
	case err != nil:
		return 0, wrapError(ErrorIndexOutOfRange, "fade track", err)
	}
	return b2u(done), nil
}

func unpackRGB(v uint32) [3]uint8 {
	return [3]uint8{uint8(v >> 16), uint8(v >> 8), uint8(v)}
}

// opFadeTrackStart arms a fade track: index, total frames, then the two
// endpoint colours as packed RGB.
func opFadeTrackStart(m *Machine, _ Opcode) (uint32, error) {
	var v [4]uint32
	for i := range v {
		x, err := m.Eval()
		if err != nil {
			return 0, err
		}
		v[i] = x
	}
	if err := m.world.Fades.Start(v[0], int32(v[1]), unpackRGB(v[2]), unpackRGB(v[3])); err != nil {
		return 0, wrapError(ErrorIndexOutOfRange, "fade track", err)
	}
	return 0, nil
}

// opBankUpload copies words embedded in the primary stream into a staging
// bank and forwards them to the renderer.
func opBankUpload(m *Machine, _ Opcode) (uint32, error) {
	var v [4]uint32
	for i := range v {
		x, err := m.Eval()
		if err != nil {
			return 0, err
		}
		v[i] = x
	}
	bank, start, length, rel := v[0], v[1], v[2], v[3]

	buf := m.main.Bytes()
	end := uint64(rel) + uint64(length)*4
	if end > uint64(len(buf)) {
		return 0, NewRuntimeError(ErrorTruncated,
			fmt.Sprintf("bank stream %d words at %#x exceeds stream of %d bytes", length, rel, len(buf)))
	}
	words := make([]uint32, length)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(buf[int(rel)+4*i:])
	}

	first, dropped, err := m.world.Banks.Stage(bank, start, words, m.world.Frame)
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		m.log.Warn("bank stream overruns staging bank", "context", m.name, "bank", bank, "start", start, "dropped", dropped)
	}
	if first {
		m.log.Debug("bank dirtied", "context", m.name, "bank", bank, "frame", m.world.Frame)
	}
	m.world.Host.Renderer.WriteBankStream(bank, start, words)
	return 0, nil
}
