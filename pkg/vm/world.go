package vm

import (
	"log/slog"

	"github.com/zurustar/scriptcore/pkg/bundle"
	"github.com/zurustar/scriptcore/pkg/flags"
	"github.com/zurustar/scriptcore/pkg/logger"
	"github.com/zurustar/scriptcore/pkg/pool"
	"github.com/zurustar/scriptcore/pkg/tween"
)

// Global record fields shared by every context.
const (
	// TargetRecord is the frame record whose position is the angle/distance target.
	TargetRecord = 0
	// Record offsets of the float position used by angle and distance opcodes.
	FieldX = 0x20
	FieldY = 0x24
)

// Status bits of World.Status.
const (
	StatusFlag40 = 0x0040
)

// State bits of ModeState.State.
const (
	StateModeDerived = 0x2001
	StatePalette     = 0x2000
)

// Model is one entry of the model transform table read by 0x7F/0x80.
type Model struct {
	Position [3]float32
	Rotation [3]float32
}

// SpawnKind is an entry of the auxiliary kind table consulted by set_pw_all
// for placements whose mode is not 3.
type SpawnKind struct {
	ID    int32
	State int32
	Arg   uint8
}

// KindDisabled marks a SpawnKind that must not be spawned.
const KindDisabled = 0x55

// ModeState is the coarse game mode derived from flag clusters.
type ModeState struct {
	Mode    uint8
	Variant uint8
	State   uint32
	Aux     bool
}

// Scales applied before values are forwarded to the parameter sink.
type Scales struct {
	Angle    float32
	Distance float32
	WrapLerp float32
	Delta    float32
	Model    float32
	Submit   float32
	Block    float32
}

// DefaultScales returns unit scales with angle domains in 1/10000 radian units.
func DefaultScales() Scales {
	return Scales{
		Angle:    AngleUnits,
		Distance: 1,
		WrapLerp: AngleUnits,
		Delta:    AngleUnits,
		Model:    1,
		Submit:   1,
		Block:    1,
	}
}

// World is the state shared by every script context: flags, pools, tween
// tables, fades and host collaborators.
type World struct {
	Flags   *flags.Store
	Pools   *pool.Pools
	Params  *tween.Table
	Fades   *tween.FadeTracks
	Screen  tween.ScreenFade
	Banks   *BankStaging
	Models  []Model
	Kinds   []SpawnKind
	Scales  Scales
	Mode    ModeState
	RGB     uint32
	Status  uint16
	Frame   uint32
	Debug   bool
	Legacy  bool
	Rolling bool
	Host    Host

	placements  []bundle.Placement
	lastSpawned pool.Selection
	log         *slog.Logger
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithWorldLogger sets the diagnostics logger.
func WithWorldLogger(log *slog.Logger) WorldOption {
	return func(w *World) { w.log = log }
}

// WithHost installs the collaborators.
func WithHost(h Host) WorldOption {
	return func(w *World) { w.Host = h }
}

// WithLayout sizes the object arena.
func WithLayout(l pool.Layout) WorldOption {
	return func(w *World) { w.Pools = pool.NewPools(l) }
}

// WithLegacyPools switches selections to unchecked arithmetic.
func WithLegacyPools(legacy bool) WorldOption {
	return func(w *World) { w.Legacy = legacy }
}

// WithDebugFlags enables flag mutation tracing.
func WithDebugFlags(debug bool) WorldOption {
	return func(w *World) { w.Debug = debug }
}

// WithBundle attaches the placement and kind tables of a loaded bundle.
func WithBundle(b *bundle.Bundle) WorldOption {
	return func(w *World) {
		w.placements = b.Placements
		for _, k := range b.Kinds {
			w.Kinds = append(w.Kinds, SpawnKind{ID: k.ID, State: k.State, Arg: k.Arg})
		}
	}
}

// NewWorld creates the shared state with default sizes.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		Flags:  flags.New(),
		Pools:  pool.NewPools(pool.DefaultLayout()),
		Params: tween.NewTable(tween.DefaultCapacity),
		Fades:  tween.NewFadeTracks(tween.DefaultTracks),
		Banks:  NewBankStaging(DefaultBanks),
		Models: make([]Model, DefaultModels),
		Scales: DefaultScales(),
		log:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.Host = w.Host.withDefaults()
	return w
}

// Logger returns the diagnostics logger.
func (w *World) Logger() *slog.Logger { return w.log }

// Placements returns the placement table consumed by set_pw_all.
func (w *World) Placements() []bundle.Placement { return w.placements }

// SetPlacements replaces the placement table.
func (w *World) SetPlacements(p []bundle.Placement) { w.placements = p }

// LastSpawned returns the most recently spawned object.
func (w *World) LastSpawned() pool.Selection { return w.lastSpawned }

// PoolMode returns the selection mode contexts should use.
func (w *World) PoolMode() pool.Mode {
	if w.Legacy {
		return pool.LegacyUnchecked
	}
	return pool.Checked
}

// BeginFrame advances the frame stamp used for bank dirty tracking.
func (w *World) BeginFrame() { w.Frame++ }

// DeriveMode applies DeriveMode to the world's flags.
func (w *World) DeriveMode() bool {
	m, ok := DeriveMode(w.Flags, w.Mode)
	w.Mode = m
	return ok
}
