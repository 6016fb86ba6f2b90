package slots

import (
	"io"
	"log/slog"
	"testing"
)

func newTestTable() *Table {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestTable_Assign(t *testing.T) {
	tests := []struct {
		name  string
		index int32
		ok    bool
	}{
		{"first", 0, true},
		{"last assignable", AssignLimit - 1, true},
		{"limit", AssignLimit, false},
		{"negative", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := newTestTable()
			if got := tbl.Assign(tt.index, 0x1234); got != tt.ok {
				t.Fatalf("Assign(%d) = %v, want %v", tt.index, got, tt.ok)
			}
			if tt.ok && tbl.Get(tt.index) != 0x1234 {
				t.Errorf("Get(%d) = %#x", tt.index, tbl.Get(tt.index))
			}
			if !tt.ok && tbl.Count() != 0 {
				t.Error("rejected Assign must not change the table")
			}
		})
	}
}

func TestTable_Clear(t *testing.T) {
	t.Run("explicit index", func(t *testing.T) {
		tbl := newTestTable()
		tbl.Assign(3, 7)
		if !tbl.Clear(3) || tbl.Active(3) {
			t.Error("slot 3 should be cleared")
		}
	})

	t.Run("negative uses current", func(t *testing.T) {
		tbl := newTestTable()
		tbl.Assign(5, 7)
		tbl.SetCurrent(5)
		if !tbl.Clear(-1) {
			t.Fatal("Clear(-1) should use the current slot")
		}
		if tbl.Active(5) {
			t.Error("slot 5 should be cleared")
		}
	})

	t.Run("negative with no current", func(t *testing.T) {
		tbl := newTestTable()
		tbl.Assign(0, 7)
		if tbl.Clear(-1) {
			t.Error("Clear(-1) without a current slot should fail")
		}
		if !tbl.Active(0) {
			t.Error("table must be untouched")
		}
	})

	t.Run("inclusive upper bound", func(t *testing.T) {
		tbl := newTestTable()
		if !tbl.Clear(ClearLimit) {
			t.Error("Clear(64) is inside the inclusive bound")
		}
		if tbl.Clear(ClearLimit + 1) {
			t.Error("Clear(65) is past the bound")
		}
	})
}

func TestTable_GetOutOfRange(t *testing.T) {
	tbl := newTestTable()
	if tbl.Get(Capacity) != 0 || tbl.Get(-3) != 0 {
		t.Error("out-of-range Get should return 0")
	}
}
