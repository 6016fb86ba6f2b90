package vm

import (
	"encoding/binary"
	"testing"

	"github.com/zurustar/scriptcore/pkg/logger"
	"github.com/zurustar/scriptcore/pkg/pool"
)

// recorder is a Host that remembers every call.
type recorder struct {
	params   []float32
	effects  []FullscreenEffect
	banks    [][]uint32
	blocks   []ParamBlock
	interp   []int32
	resolved []uint16
	spawns   []SpawnRequest
	pending  int
	busy     bool
	called   []uint32
	spawn    *pool.Pool
}

func (r *recorder) SubmitParameter(v float32) { r.params = append(r.params, v) }

func (r *recorder) ResolveEntity(id uint16) (EntityHandle, bool) {
	r.resolved = append(r.resolved, id)
	return EntityHandle(id), id < 100
}

func (r *recorder) RenderFullscreenEffect(fx FullscreenEffect) { r.effects = append(r.effects, fx) }

func (r *recorder) WriteBankStream(_, _ uint32, words []uint32) { r.banks = append(r.banks, words) }

func (r *recorder) SubmitParamBlock(pb ParamBlock) { r.blocks = append(r.blocks, pb) }

func (r *recorder) IsLoaderIdle() bool { return true }
func (r *recorder) IsAudioChannelBusy() bool { return false }
func (r *recorder) IsSystemBusy() bool { return r.busy }

func (r *recorder) Spawn(req SpawnRequest) (pool.SlotID, bool) {
	r.spawns = append(r.spawns, req)
	return r.spawn.Allocate()
}

func (r *recorder) ProcessPendingSpawns() { r.pending++ }

func (r *recorder) Interpolate(_ Opcode, step int32) { r.interp = append(r.interp, step) }

func (r *recorder) host() Host {
	return Host{
		Params:       r,
		Resources:    r,
		Renderer:     r,
		Readiness:    r,
		Entities:     r,
		Interpolator: r,
		Functions: []HostFunc{
			func(arg uint32) { r.called = append(r.called, arg) },
		},
	}
}

func newTestWorld(t *testing.T, opts ...WorldOption) (*World, *recorder) {
	t.Helper()
	rec := &recorder{}
	all := append([]WorldOption{WithWorldLogger(logger.Discard()), WithHost(rec.host())}, opts...)
	w := NewWorld(all...)
	rec.spawn = w.Pools.Spawn
	return w, rec
}

func newTestMachine(t *testing.T, code []byte, opts ...Option) (*Machine, *World, *recorder) {
	t.Helper()
	w, rec := newTestWorld(t)
	return New(w, code, opts...), w, rec
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func le32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }

// imm encodes a 32-bit immediate.
func imm(v int32) []byte { return cat([]byte{evImm32}, le32(uint32(v))) }

// b8 encodes an 8-bit immediate.
func b8(v uint8) []byte { return []byte{evImm8, v} }

// expr terminates an operand.
func expr(parts ...[]byte) []byte { return cat(cat(parts...), []byte{evReturn}) }

// op encodes a standard opcode byte.
func op(o Opcode) []byte {
	if o.IsExtended() {
		return []byte{Prefix, byte(o - ExtendedBase)}
	}
	return []byte{byte(o)}
}

// eval evaluates code as one operand.
func eval(t *testing.T, m *Machine) uint32 {
	t.Helper()
	v, err := m.Eval()
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	return v
}

// run ticks m until it halts and fails the test on errors.
func run(t *testing.T, m *Machine) {
	t.Helper()
	for i := 0; i < 100; i++ {
		st, err := m.Tick()
		if err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
		if st == Halted {
			return
		}
	}
	t.Fatal("context did not halt")
}
