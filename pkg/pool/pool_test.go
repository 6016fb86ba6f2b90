package pool

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestPools() *Pools {
	return NewPools(DefaultLayout())
}

func TestNewPools_Layout(t *testing.T) {
	p := newTestPools()
	if got, want := p.Frame.Capacity(), DefaultFrameLead+DefaultSpawnCapacity; got != want {
		t.Errorf("frame capacity = %d, want %d", got, want)
	}
	if got := p.Spawn.Capacity(); got != DefaultSpawnCapacity {
		t.Errorf("spawn capacity = %d, want %d", got, DefaultSpawnCapacity)
	}
	// the spawn pool starts 20 records (0x1270 bytes) into the arena
	if got := p.Spawn.Offset(0); got != 0x1270 {
		t.Errorf("spawn base offset = %#x, want 0x1270", got)
	}
	if p.Frame.Offset(DefaultFrameLead) != p.Spawn.Offset(0) {
		t.Error("frame index 20 should alias spawn slot 0")
	}
	if got := p.Frame.Rebase(p.Spawn, 3); got != DefaultFrameLead+3 {
		t.Errorf("Rebase = %d, want %d", got, DefaultFrameLead+3)
	}
}

func TestSelector_SelectByIndex(t *testing.T) {
	p := newTestPools()
	fallback := Select(p.Spawn, 7)

	tests := []struct {
		name    string
		mode    Mode
		index   int32
		want    Selection
		wantErr bool
	}{
		{"sentinel yields fallback", Checked, Sentinel, fallback, false},
		{"in range", Checked, 5, Select(p.Frame, 5), false},
		{"checked past end", Checked, int32(p.Frame.Capacity()), None(), true},
		{"checked negative", Checked, -1, None(), true},
		{"legacy past end", LegacyUnchecked, 0x1FF, Select(p.Frame, 0x1FF), false},
		{"legacy sentinel", LegacyUnchecked, Sentinel, fallback, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(tt.mode)
			s.Set(Select(p.Frame, 1))
			got, err := s.SelectByIndex(p.Frame, tt.index, fallback)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOutOfRange) {
				t.Errorf("error = %v, want ErrOutOfRange", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("selection = %v, want %v", got, tt.want)
			}
			if !s.Current().Equal(tt.want) {
				t.Errorf("current = %v, want %v", s.Current(), tt.want)
			}
		})
	}
}

func TestSelector_LegacyReadsPastArenaAreZero(t *testing.T) {
	p := newTestPools()
	s := NewSelector(LegacyUnchecked)
	sel, err := s.SelectByIndex(p.Frame, 0x4000, None())
	if err != nil {
		t.Fatal(err)
	}
	off, ok := sel.Offset()
	if !ok {
		t.Fatal("legacy selection should have an offset")
	}
	a := sel.Arena()
	a.PutU32(off, 0xDEADBEEF)
	if got := a.U32(off); got != 0 {
		t.Errorf("read past arena = %#x, want 0", got)
	}
	if sel.InRange() {
		t.Error("legacy selection past the pool should not be InRange")
	}
}

func TestSelector_SelectByTag(t *testing.T) {
	p := newTestPools()
	spawn := p.Spawn

	// slot 2: inactive but matching, slot 4 and 6: active and matching
	spawn.SetTag(2, 9)
	spawn.SetTag(4, 9)
	spawn.SetStatus(4, 1)
	spawn.SetTag(6, 9)
	spawn.SetStatus(6, 2)
	spawn.SetTag(5, 3)
	spawn.SetStatus(5, 1)

	s := NewSelector(Checked)
	if !s.SelectByTag(spawn, 9) {
		t.Fatal("expected a match")
	}
	if id, _ := s.Current().ID(); id != 4 {
		t.Errorf("selected slot %d, want 4", id)
	}

	s.Set(Select(spawn, 1))
	if s.SelectByTag(spawn, 77) {
		t.Error("unexpected match for tag 77")
	}
	if id, _ := s.Current().ID(); id != 1 {
		t.Error("a failed scan must keep the previous selection")
	}

	legacy := NewSelector(LegacyUnchecked)
	legacy.Set(Select(spawn, 1))
	if legacy.SelectByTag(spawn, 77) {
		t.Error("unexpected match for tag 77")
	}
	id, ok := legacy.Current().ID()
	if !ok || int(id) != spawn.Capacity() || legacy.Current().InRange() {
		t.Errorf("legacy miss left %v, want one past the pool", legacy.Current())
	}
}

func TestPool_AllocateRelease(t *testing.T) {
	p := newTestPools()
	a, ok := p.Spawn.Allocate()
	if !ok || a != 0 {
		t.Fatalf("first Allocate = %d, %v", a, ok)
	}
	b, _ := p.Spawn.Allocate()
	if b != 1 {
		t.Fatalf("second Allocate = %d, want 1", b)
	}
	p.Spawn.Release(a)
	c, _ := p.Spawn.Allocate()
	if c != 0 {
		t.Errorf("Allocate after Release = %d, want 0", c)
	}
	if p.Spawn.Live() != 2 {
		t.Errorf("Live() = %d, want 2", p.Spawn.Live())
	}
	if _, ok := p.Frame.Allocate(); ok {
		t.Error("frame view has no status array and must not allocate")
	}
}

func TestIndexOf_None(t *testing.T) {
	if got := IndexOf(None()); got != Sentinel {
		t.Errorf("IndexOf(None) = %#x, want %#x", got, Sentinel)
	}
}

func TestProperty_PoolSelection(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	p := newTestPools()

	properties.Property("sentinel always yields the fallback", prop.ForAll(
		func(fb int, legacy bool) bool {
			mode := Checked
			if legacy {
				mode = LegacyUnchecked
			}
			s := NewSelector(mode)
			fallback := Select(p.Spawn, SlotID(fb))
			got, err := s.SelectByIndex(p.Frame, Sentinel, fallback)
			return err == nil && got.Equal(fallback)
		},
		gen.IntRange(0, DefaultSpawnCapacity-1),
		gen.Bool(),
	))

	properties.Property("IndexOf recovers the selected index", prop.ForAll(
		func(k int) bool {
			s := NewSelector(Checked)
			sel, err := s.SelectByIndex(p.Frame, int32(k), None())
			return err == nil && IndexOf(sel) == int32(k)
		},
		gen.IntRange(0, DefaultFrameLead+DefaultSpawnCapacity-1),
	))

	properties.Property("tag scan picks the lowest active match", prop.ForAll(
		func(statuses []int, tags []int, target int) bool {
			pools := newTestPools()
			want := -1
			for i := range statuses {
				id := SlotID(i)
				pools.Spawn.SetStatus(id, byte(statuses[i]))
				pools.Spawn.SetTag(id, int32(tags[i]))
				if want < 0 && statuses[i] >= 1 && tags[i] == target {
					want = i
				}
			}
			s := NewSelector(Checked)
			found := s.SelectByTag(pools.Spawn, int32(target))
			if want < 0 {
				return !found && !s.Current().Valid()
			}
			id, _ := s.Current().ID()
			return found && int(id) == want
		},
		gen.SliceOfN(32, gen.IntRange(0, 2)),
		gen.SliceOfN(32, gen.IntRange(0, 4)),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}
