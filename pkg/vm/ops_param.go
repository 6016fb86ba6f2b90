package vm

import (
	"math"

	"github.com/zurustar/scriptcore/pkg/pool"
	"github.com/zurustar/scriptcore/pkg/tween"
)

// DefaultModels is the size of the model transform table.
const DefaultModels = 16

// Axes of a model transform.
const axisCount = 3

// wrapAngle folds a into [-π, π].
func wrapAngle(a float32) float32 {
	r := math.Remainder(float64(a), 2*math.Pi)
	return float32(r)
}

// approachAngle moves cur toward target along the shorter arc by at most
// step, never overshooting.
func approachAngle(cur, target, step float32) float32 {
	d := wrapAngle(target - cur)
	if step < 0 {
		step = -step
	}
	switch {
	case d > step:
		return wrapAngle(cur + step)
	case d < -step:
		return wrapAngle(cur - step)
	default:
		return target
	}
}

func (m *Machine) submit(v float32) {
	m.world.Host.Params.SubmitParameter(v)
}

// targetDelta returns the vector from the selected record to the target record.
func (m *Machine) targetDelta(sel pool.Selection) (dx, dy float64) {
	a := m.world.Pools.Arena
	tgt := m.world.Pools.Frame.Offset(TargetRecord)
	tx, ty := a.F32(tgt+FieldX), a.F32(tgt+FieldY)
	var ox, oy float32
	if off, ok := sel.Offset(); ok {
		oa := sel.Arena()
		ox, oy = oa.F32(off+FieldX), oa.F32(off+FieldY)
	}
	return float64(tx - ox), float64(ty - oy)
}

// opAngleTo submits the angle from the selected record to the target record.
// The sentinel selects the most recently spawned object.
func opAngleTo(m *Machine, _ Opcode) (uint32, error) {
	idx, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	sel := m.SelectFrame(idx, m.world.lastSpawned)
	dx, dy := m.targetDelta(sel)
	m.submit(float32(math.Atan2(dy, dx)) * m.world.Scales.Angle)
	return 0, nil
}

// opDistanceTo submits the distance from the selected record to the target
// record. The sentinel keeps the current selection.
func opDistanceTo(m *Machine, _ Opcode) (uint32, error) {
	idx, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	sel := m.SelectFrame(idx, m.sel.Current())
	dx, dy := m.targetDelta(sel)
	m.submit(float32(math.Hypot(dx, dy)) * m.world.Scales.Distance)
	return 0, nil
}

// opWrapLerp moves a wrapped start value toward a target by rate per frame
// and submits the result.
func opWrapLerp(m *Machine, _ Opcode) (uint32, error) {
	var v [3]int32
	for i := range v {
		x, err := m.EvalInt()
		if err != nil {
			return 0, err
		}
		v[i] = x
	}
	scale := m.world.Scales.WrapLerp
	start := wrapAngle(float32(v[0]) / scale)
	target := wrapAngle(float32(v[1]) / scale)
	step := float32(v[2]) / scale * (1.0 / 32) * float32(m.tick)
	m.submit(approachAngle(start, target, step) * scale)
	return 0, nil
}

// opWrapDelta submits the wrapped difference b-a.
func opWrapDelta(m *Machine, _ Opcode) (uint32, error) {
	a, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	b, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	scale := m.world.Scales.Delta
	m.submit(wrapAngle(float32(b)/scale-float32(a)/scale) * scale)
	return 0, nil
}

// opModelAxis submits one axis of a model's position (0x7F) or rotation (0x80).
func opModelAxis(m *Machine, op Opcode) (uint32, error) {
	idx, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	axis, err := m.ctl.U8()
	if err != nil {
		return 0, err
	}
	if axis >= axisCount {
		m.log.Warn("axis out of range", "context", m.name, "axis", axis)
		return 0, nil
	}
	models := m.world.Models
	if idx < 0 || int(idx) >= len(models) {
		m.log.Warn("model index out of range", "context", m.name, "index", idx, "len", len(models))
		return 0, nil
	}
	v := models[idx].Rotation[axis]
	if op == OpModelPosition {
		v = models[idx].Position[axis]
	}
	m.submit(v * m.world.Scales.Model)
	return 0, nil
}

// opRamp advances a parameter entry toward its target and reports whether it
// has settled.
func opRamp(m *Machine, _ Opcode) (uint32, error) {
	idx, err := m.Eval()
	if err != nil {
		return 0, err
	}
	done, err := m.world.Params.Ramp(idx, m.tick)
	if err != nil {
		return 0, wrapError(ErrorIndexOutOfRange, "parameter ramp", err)
	}
	return b2u(done), nil
}

func opSubmitCurrent(m *Machine, _ Opcode) (uint32, error) {
	idx, err := m.Eval()
	if err != nil {
		return 0, err
	}
	if err := m.world.Params.SubmitCurrent(idx, m.world.Scales.Submit, m.world.Host.Params); err != nil {
		return 0, wrapError(ErrorIndexOutOfRange, "parameter submit", err)
	}
	return 0, nil
}

// opParamSet initialises a parameter entry from integer operands.
func opParamSet(m *Machine, _ Opcode) (uint32, error) {
	idx, err := m.Eval()
	if err != nil {
		return 0, err
	}
	var v [3]int32
	for i := range v {
		if v[i], err = m.EvalInt(); err != nil {
			return 0, err
		}
	}
	e := tween.Entry{Current: float32(v[0]), Target: float32(v[1]), Step: float32(v[2])}
	if err := m.world.Params.Set(idx, e); err != nil {
		return 0, wrapError(ErrorIndexOutOfRange, "parameter set", err)
	}
	return 0, nil
}

// opParamBlock evaluates nine operands and submits them as a scaled block.
func opParamBlock(m *Machine, _ Opcode) (uint32, error) {
	var v [9]uint32
	for i := range v {
		x, err := m.Eval()
		if err != nil {
			return 0, err
		}
		v[i] = x
	}
	s := m.world.Scales.Block
	m.world.Host.Renderer.SubmitParamBlock(ParamBlock{
		X:  float32(int32(v[1])) / s,
		Y:  float32(int32(v[4])) / s,
		Z:  float32(int32(v[5])) / s,
		W:  float32(int32(v[6])) / s,
		A0: v[0],
		A2: v[2],
		A3: uint16(v[3]),
		B0: uint8(v[7]),
		B1: uint8(v[8]),
	})
	return 0, nil
}
