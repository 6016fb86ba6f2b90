package vm

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// UndefinedTracker counts executions of opcodes without a handler. The first
// occurrence of each opcode is logged; later ones are only counted.
type UndefinedTracker struct {
	counts map[Opcode]int
	first  map[Opcode]int
	log    *slog.Logger
}

// NewUndefinedTracker returns an empty tracker reporting to log.
func NewUndefinedTracker(log *slog.Logger) *UndefinedTracker {
	return &UndefinedTracker{
		counts: make(map[Opcode]int),
		first:  make(map[Opcode]int),
		log:    log,
	}
}

// Record notes an execution of op at stream position pos.
func (t *UndefinedTracker) Record(op Opcode, pos int) {
	if _, seen := t.counts[op]; !seen {
		t.first[op] = pos
		t.log.Warn("undefined opcode", "opcode", op, "pos", pos)
	}
	t.counts[op]++
}

// Count returns how many times op was recorded.
func (t *UndefinedTracker) Count(op Opcode) int { return t.counts[op] }

// Len returns the number of distinct undefined opcodes seen.
func (t *UndefinedTracker) Len() int { return len(t.counts) }

// Opcodes returns the recorded opcodes in ascending order.
func (t *UndefinedTracker) Opcodes() []Opcode {
	ops := make([]Opcode, 0, len(t.counts))
	for op := range t.counts {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Summary formats the counts as "op×n@pos" entries.
func (t *UndefinedTracker) Summary() string {
	var b strings.Builder
	for i, op := range t.Opcodes() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s×%d@%#x", op, t.counts[op], t.first[op])
	}
	return b.String()
}

// LogSummary writes the summary at info level when anything was recorded.
func (t *UndefinedTracker) LogSummary(context string) {
	if len(t.counts) == 0 {
		return
	}
	t.log.Info("undefined opcode summary", "context", context, "distinct", len(t.counts), "opcodes", t.Summary())
}
