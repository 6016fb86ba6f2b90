package engine

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/zurustar/scriptcore/pkg/dialogue"
	"github.com/zurustar/scriptcore/pkg/logger"
	"github.com/zurustar/scriptcore/pkg/vm"
)

// blockEnd halts a context.
var blockEnd = []byte{0x04}

// frameLoop yields every frame forever: a frame sync whose jump returns to 0.
func frameLoop() []byte {
	code := make([]byte, 9)
	code[0] = byte(vm.OpFrameSync)
	back := int32(-5)
	binary.LittleEndian.PutUint32(code[5:], uint32(back))
	return code
}

type counter struct{ n int }

func (c *counter) Update() { c.n++ }

func newEngine(t *testing.T, codes [][]byte, opts ...Option) (*Engine, *vm.World) {
	t.Helper()
	log := logger.Discard()
	w := vm.NewWorld(vm.WithWorldLogger(log))
	var contexts []*vm.Machine
	for i, code := range codes {
		contexts = append(contexts, vm.New(w, code, vm.WithLogger(log), vm.WithName(string(rune('a'+i)))))
	}
	return New(w, contexts, append([]Option{WithLogger(log)}, opts...)...), w
}

func TestUpdate_StopsWhenAllHalted(t *testing.T) {
	e, w := newEngine(t, [][]byte{blockEnd, blockEnd})

	if err := e.Update(); !errors.Is(err, ErrTerminated) {
		t.Fatalf("Update() = %v, want ErrTerminated", err)
	}
	r := e.Result()
	if r.Reason != AllHalted || r.Ticks != 1 || r.Err() != nil {
		t.Errorf("Result() = %+v, want all halted after 1 tick", r)
	}
	if w.Frame != 1 {
		t.Errorf("frame = %d, want 1", w.Frame)
	}
	if err := e.Update(); !errors.Is(err, ErrTerminated) {
		t.Error("a stopped engine must stay stopped")
	}
	if e.Ticks() != 1 {
		t.Errorf("Ticks() = %d after stop, want 1", e.Ticks())
	}
}

func TestRun_TickLimit(t *testing.T) {
	e, w := newEngine(t, [][]byte{frameLoop()}, WithMaxTicks(5))
	r := e.Run(context.Background())
	if r.Reason != TickLimit || r.Ticks != 5 {
		t.Errorf("Run() = %+v, want tick limit after 5", r)
	}
	if w.Frame != 5 {
		t.Errorf("frame = %d, want 5", w.Frame)
	}
	if e.Contexts()[0].Halted() {
		t.Error("looping context must still be live")
	}
}

func TestRun_Cancelled(t *testing.T) {
	e, _ := newEngine(t, [][]byte{frameLoop()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := e.Run(ctx)
	if r.Reason != Terminated || r.Ticks != 0 {
		t.Errorf("Run() = %+v, want terminated before the first tick", r)
	}
	if !e.IsTerminated() {
		t.Error("IsTerminated() = false")
	}
}

func TestRun_Timeout(t *testing.T) {
	e, _ := newEngine(t, [][]byte{frameLoop()}, WithTimeout(time.Millisecond), WithFrameRate(1000))
	r := e.Run(context.Background())
	if r.Reason != Timeout {
		t.Errorf("Run() reason = %v, want timeout", r.Reason)
	}
}

func TestRun_CollectsContextErrors(t *testing.T) {
	e, _ := newEngine(t, [][]byte{{0x20}, frameLoop()}, WithMaxTicks(3))
	r := e.Run(context.Background())
	if r.Reason != TickLimit || r.Ticks != 3 {
		t.Fatalf("Run() = %+v, want tick limit after 3", r)
	}
	if len(r.Errors) != 1 {
		t.Fatalf("errors = %v, want one", r.Errors)
	}
	var re *vm.RuntimeError
	if !errors.As(r.Err(), &re) || re.Type != vm.ErrorUndefinedOpcode {
		t.Errorf("error = %v, want undefined opcode", r.Err())
	}
}

func TestUpdate_RunsDialogueAndUpdaters(t *testing.T) {
	log := logger.Discard()
	w := vm.NewWorld(vm.WithWorldLogger(log))
	m := vm.New(w, blockEnd, vm.WithLogger(log))
	ds := dialogue.New(w, []byte{0x1B, 7, 0, 0x02}, dialogue.WithLogger(log))
	c := &counter{}
	e := New(w, []*vm.Machine{m}, WithLogger(log), WithDialogue(ds), WithUpdater(c), WithUpdater(nil))

	r := e.Run(context.Background())
	if r.Reason != AllHalted || r.Ticks != 1 {
		t.Fatalf("Run() = %+v", r)
	}
	if !w.Flags.Test(7) {
		t.Error("dialogue stream did not run")
	}
	if ds.Status() != dialogue.Done {
		t.Errorf("dialogue status = %v, want done", ds.Status())
	}
	if c.n != 1 {
		t.Errorf("updater ran %d times, want 1", c.n)
	}
	e.LogUndefined()
}

func TestStopReason_String(t *testing.T) {
	tests := map[StopReason]string{
		NotStopped:     "running",
		AllHalted:      "all contexts halted",
		TickLimit:      "tick limit",
		Timeout:        "timeout",
		Terminated:     "terminated",
		StopReason(42): "StopReason(42)",
	}
	for r, want := range tests {
		if got := r.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestProperty_TickLimitIsExact(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("a looping script runs exactly max ticks", prop.ForAll(
		func(n int) bool {
			e, w := newEngine(t, [][]byte{frameLoop(), frameLoop()}, WithMaxTicks(n))
			r := e.Run(context.Background())
			return r.Reason == TickLimit && r.Ticks == n && int(w.Frame) == n
		},
		gen.IntRange(1, 64),
	))

	properties.TestingRun(t)
}

func TestUpdate_DerivesModeFromFlags(t *testing.T) {
	// 0x3E sets flag 0x50D, then the context idles.
	code := append([]byte{byte(vm.OpFlagSet), 0x0D, 0x0D, 0x05, 0x0B}, frameLoop()...)
	e, w := newEngine(t, [][]byte{code})
	if w.Mode != (vm.ModeState{}) {
		t.Fatalf("initial mode = %+v", w.Mode)
	}
	if err := e.Update(); err != nil {
		t.Fatal(err)
	}
	want := vm.ModeState{Mode: vm.DerivedMode, Variant: vm.DerivedVariant, State: vm.StateModeDerived}
	if w.Mode != want {
		t.Errorf("mode = %+v, want %+v", w.Mode, want)
	}
}

func TestUpdate_WaitsForSubprocesses(t *testing.T) {
	// Main starts slot 3 at offset 9 and ends; the body finishes its own
	// slot and then idles until it is retired.
	back := int32(-5)
	code := []byte{byte(vm.OpSlotAssign), 0x0C, 3, 0x0B, 9, 0, 0, 0, 0x04}
	code = append(code, byte(vm.OpSlotFinish), 0x0C, 1, 0x1E, 0x0B)
	code = append(code, byte(vm.OpFrameSync), 0, 0, 0, 0)
	code = binary.LittleEndian.AppendUint32(code, uint32(back))
	e, _ := newEngine(t, [][]byte{code}, WithMaxTicks(10))

	r := e.Run(context.Background())
	if r.Reason != AllHalted || r.Ticks != 2 || r.Err() != nil {
		t.Errorf("Run() = %+v, want all halted after 2 ticks", r)
	}
	if s := e.Contexts()[0].Slots(); s.Get(3) != 0 {
		t.Errorf("slot 3 = %#x, want finished", s.Get(3))
	}
}
