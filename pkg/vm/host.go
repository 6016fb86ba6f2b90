package vm

import (
	"github.com/zurustar/scriptcore/pkg/bundle"
	"github.com/zurustar/scriptcore/pkg/pool"
)

// ParamSink receives scaled scalar parameters (mixer volume, graphics params).
type ParamSink interface {
	SubmitParameter(v float32)
}

// EntityHandle is an opaque reference to a resolved resource.
type EntityHandle uint32

// Resources resolves 16-bit resource ids.
type Resources interface {
	ResolveEntity(id uint16) (EntityHandle, bool)
}

// FullscreenEffect is a coloured rectangle covering the screen.
type FullscreenEffect struct {
	ARGB   uint32
	X0, Y0 int16
	X1, Y1 int16
	Packet uint16
	State  uint32
}

// ParamBlock is the scaled parameter block submitted by extended opcode 0x0D.
type ParamBlock struct {
	X, Y, Z, W float32
	A0         uint32
	A2         uint32
	A3         uint16
	B0, B1     uint8
}

// Renderer stages graphics data.
type Renderer interface {
	RenderFullscreenEffect(fx FullscreenEffect)
	WriteBankStream(bank, start uint32, words []uint32)
	SubmitParamBlock(pb ParamBlock)
}

// Readiness exposes the predicates polled by wait opcodes.
type Readiness interface {
	IsLoaderIdle() bool
	IsAudioChannelBusy() bool
	IsSystemBusy() bool
}

// SpawnRequest describes one placement spawned by set_pw_all.
type SpawnRequest struct {
	Index     int
	Placement bundle.Placement
	Kind      uint8
	Phase     float32
	Arg       uint8
}

// Entities owns entity allocation in the spawn pool.
type Entities interface {
	Spawn(req SpawnRequest) (pool.SlotID, bool)
	ProcessPendingSpawns()
}

// Interpolator receives timed interpolation steps. kind is the opcode that
// requested the update.
type Interpolator interface {
	Interpolate(kind Opcode, step int32)
}

// Voices loads dialogue voice resources onto a channel.
type Voices interface {
	LoadVoice(channel, wait int8, id uint32)
}

// TextSink receives decoded dialogue text.
type TextSink interface {
	Emit(text string)
}

// HostFunc is an entry in the host function table called by opcode 0xBE.
type HostFunc func(arg uint32)

// Host bundles the collaborators a World calls into. Nil members are
// replaced with no-op implementations by NewWorld.
type Host struct {
	Params       ParamSink
	Resources    Resources
	Renderer     Renderer
	Readiness    Readiness
	Entities     Entities
	Interpolator Interpolator
	Voices       Voices
	Text         TextSink
	Functions    []HostFunc
}

type nopHost struct{}

func (nopHost) SubmitParameter(float32) {}
func (nopHost) ResolveEntity(uint16) (EntityHandle, bool) { return 0, false }
func (nopHost) RenderFullscreenEffect(FullscreenEffect) {}
func (nopHost) WriteBankStream(uint32, uint32, []uint32) {}
func (nopHost) SubmitParamBlock(ParamBlock) {}
func (nopHost) IsLoaderIdle() bool { return true }
func (nopHost) IsAudioChannelBusy() bool { return false }
func (nopHost) IsSystemBusy() bool { return false }
func (nopHost) Spawn(SpawnRequest) (pool.SlotID, bool) { return 0, false }
func (nopHost) ProcessPendingSpawns() {}
func (nopHost) Interpolate(Opcode, int32) {}
func (nopHost) LoadVoice(int8, int8, uint32) {}
func (nopHost) Emit(string) {}

func (h Host) withDefaults() Host {
	var n nopHost
	if h.Params == nil {
		h.Params = n
	}
	if h.Resources == nil {
		h.Resources = n
	}
	if h.Renderer == nil {
		h.Renderer = n
	}
	if h.Readiness == nil {
		h.Readiness = n
	}
	if h.Entities == nil {
		h.Entities = n
	}
	if h.Interpolator == nil {
		h.Interpolator = n
	}
	if h.Voices == nil {
		h.Voices = n
	}
	if h.Text == nil {
		h.Text = n
	}
	return h
}
