package vm

import (
	"math"

	"github.com/zurustar/scriptcore/pkg/bundle"
	"github.com/zurustar/scriptcore/pkg/pool"
)

// Spawn record fields written by set_pw_all.
const (
	spawnFieldID   = 0x98
	spawnFieldCode = 0xCC
	spawnFieldSel  = 0x95
	spawnCodeBase  = 0x400
	spawnKindTBox  = 0x3A
	placementTBox  = 3
	placementRoll  = 2
	rollingWord    = 0x1A
	rollingLow     = 0x1E
	rollingHigh    = 0x32
	tboxIDLimit    = 0x7F
	// phaseUnit converts a placement timing byte into radians.
	phaseUnit = math.Pi / 128
)

// opLoadModels resolves a list of resource ids that follows the opcode: a
// count byte followed by count words whose low halves are ids.
// The list ends at the first zero id; negative ids are skipped.
func opLoadModels(m *Machine, _ Opcode) (uint32, error) {
	count, err := m.ctl.U8()
	if err != nil {
		return 0, err
	}
	ids := make([]int16, count)
	for i := range ids {
		w, err := m.ctl.U32()
		if err != nil {
			return 0, err
		}
		ids[i] = int16(w)
	}
	res := m.world.Host.Resources
	for _, id := range ids {
		if id == 0 {
			break
		}
		if id < 0 {
			continue
		}
		if _, ok := res.ResolveEntity(uint16(id)); !ok {
			m.log.Warn("ER_BADNO [load_model]", "context", m.name, "id", id)
		}
	}
	return 0, nil
}

func opPendingSpawns(m *Machine, _ Opcode) (uint32, error) {
	m.world.Host.Entities.ProcessPendingSpawns()
	return 0, nil
}

// opSetPwAll spawns every placement whose mode matches the mode byte that
// follows the opcode.
func opSetPwAll(m *Machine, _ Opcode) (uint32, error) {
	mode, err := m.ctl.U8()
	if err != nil {
		return 0, err
	}
	w := m.world
	for idx, pl := range w.placements {
		if pl.Mode != mode {
			continue
		}
		if mode == placementTBox {
			if uint8(pl.ID) > tboxIDLimit {
				m.log.Warn("tbox param error [set_pw_all]", "context", m.name, "index", idx, "id", pl.ID)
				continue
			}
			m.spawnPlacement(idx, pl, spawnKindTBox, 0, func(a *pool.Arena, off int) {
				a.PutU16(off+spawnFieldID, uint16(int16(pl.ID)))
				a.PutU32(off+spawnFieldCode, uint32(pl.Attr)+spawnCodeBase)
			})
			continue
		}
		kind, ok := w.spawnKind(int32(pl.ID))
		if !ok {
			continue
		}
		m.spawnPlacement(idx, pl, 0, kind.Arg, func(a *pool.Arena, off int) {
			if mode != placementRoll || !w.Rolling {
				return
			}
			if pl.Attr >= rollingLow && pl.Attr < rollingHigh {
				a.PutU8(off+spawnFieldSel, pl.Attr)
				return
			}
			a.PutU8(off+spawnFieldSel, uint8(m.work[rollingWord]))
			m.work[rollingWord]++
		})
	}
	return 0, nil
}

// spawnKind finds the enabled kind entry for id.
func (w *World) spawnKind(id int32) (SpawnKind, bool) {
	for _, k := range w.Kinds {
		if k.ID == id && k.State != KindDisabled {
			return k, true
		}
	}
	return SpawnKind{}, false
}

// spawnPlacement asks the entity host for a record, tags it with the
// placement index and lets init fill in kind-specific fields.
func (m *Machine) spawnPlacement(idx int, pl bundle.Placement, kind, arg uint8, init func(a *pool.Arena, off int)) {
	w := m.world
	sp := w.Pools.Spawn
	id, ok := w.Host.Entities.Spawn(SpawnRequest{
		Index:     idx,
		Placement: pl,
		Kind:      kind,
		Phase:     wrapAngle(float32(pl.Timing) * phaseUnit),
		Arg:       arg,
	})
	if !ok || !sp.Contains(id) {
		w.lastSpawned = pool.None()
		return
	}
	sel := pool.Select(sp, id)
	w.lastSpawned = sel
	sp.SetTag(id, int32(idx))
	off, _ := sel.Offset()
	init(sp.Arena(), off)
}

// opSelectSlot selects a frame record by index. Indices at or above the
// sentinel are ignored.
func opSelectSlot(m *Machine, _ Opcode) (uint32, error) {
	idx, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	if idx < pool.Sentinel {
		m.SelectFrame(idx, pool.None())
	}
	return 0, nil
}

func opSlotIndex(m *Machine, _ Opcode) (uint32, error) {
	return uint32(m.frameIndexOf(m.sel.Current())), nil
}

func opSelectByTag(m *Machine, _ Opcode) (uint32, error) {
	tag, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	return b2u(m.sel.SelectByTag(m.world.Pools.Spawn, tag)), nil
}

// opReadRegister reselects a frame record and reads one of its registers.
func opReadRegister(m *Machine, _ Opcode) (uint32, error) {
	selector, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	id, err := m.Eval()
	if err != nil {
		return 0, err
	}
	sel := m.SelectFrame(selector, m.sel.Current())
	return ReadRegister(sel, id), nil
}

// opModifyRegister applies a write (0x77), and, or, xor, add or sub (0x7C)
// of an immediate to a register of the reselected record.
func opModifyRegister(m *Machine, op Opcode) (uint32, error) {
	selector, err := m.EvalInt()
	if err != nil {
		return 0, err
	}
	id, err := m.Eval()
	if err != nil {
		return 0, err
	}
	imm, err := m.Eval()
	if err != nil {
		return 0, err
	}
	sel := m.SelectFrame(selector, m.sel.Current())
	v := imm
	if op != OpWriteRegister {
		cur := ReadRegister(sel, id)
		switch op {
		case OpAndRegister:
			v = cur & imm
		case OpOrRegister:
			v = cur | imm
		case OpXorRegister:
			v = cur ^ imm
		case OpAddRegister:
			v = cur + imm
		case OpSubRegister:
			v = cur - imm
		}
	}
	return WriteRegister(sel, id, v), nil
}
