// Package vm executes script bytecode against a shared World.
//
// A Machine is one script context: it owns the instruction cursors, the
// evaluator stack, 128 words of work memory, the object selection and the
// process slot table. Every Machine created on the same World sees the same
// flags, pools and tween tables.
package vm

import (
	"errors"
	"log/slog"

	"github.com/zurustar/scriptcore/pkg/cursor"
	"github.com/zurustar/scriptcore/pkg/pool"
	"github.com/zurustar/scriptcore/pkg/slots"
	"github.com/zurustar/scriptcore/pkg/tween"
)

// WorkWords is the size of per-context work memory.
const WorkWords = 128

// DefaultTickDelta is one frame in Q5 units.
const DefaultTickDelta = 32

// DefaultBudget caps the instructions one Tick may execute.
const DefaultBudget = 4096

// Status is the outcome of a Tick.
type Status int

const (
	// Running means the context yielded and wants more ticks.
	Running Status = iota
	// Halted means the context reached its end or failed.
	Halted
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// Machine is one script context.
type Machine struct {
	name  string
	world *World

	main       *cursor.Cursor
	structural *cursor.Cursor
	ctl        *cursor.Cursor

	work  [WorkWords]int32
	stack evalStack
	depth int

	sel   *pool.Selector
	slots *slots.Table
	timer tween.Timer

	blocks blockStack

	root  *Machine
	slot  int32
	procs []*subprocess

	tick   uint32
	budget int
	yield  bool
	halted bool
	err    error

	undefined *UndefinedTracker
	log       *slog.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the diagnostics logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Machine) { m.log = log }
}

// WithName names the context in diagnostics.
func WithName(name string) Option {
	return func(m *Machine) { m.name = name }
}

// WithTickDelta sets the Q5 time added per tick.
func WithTickDelta(delta uint32) Option {
	return func(m *Machine) { m.tick = delta }
}

// WithBudget caps the instructions executed per tick.
func WithBudget(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.budget = n
		}
	}
}

// WithStructure runs the context through the block structure interpreter
// over buf. Operands are decoded from buf; jumps still move the primary cursor.
func WithStructure(buf []byte) Option {
	return func(m *Machine) {
		if len(buf) > 0 {
			m.structural = cursor.New("structural", buf)
		}
	}
}

// New creates a context executing main against w.
func New(w *World, main []byte, opts ...Option) *Machine {
	m := &Machine{
		name:   "main",
		world:  w,
		main:   cursor.New("primary", main),
		tick:   DefaultTickDelta,
		budget: DefaultBudget,
		slot:   -1,
		log:    w.Logger(),
	}
	m.root = m
	for _, opt := range opts {
		opt(m)
	}
	m.ctl = m.main
	if m.structural != nil {
		m.ctl = m.structural
	}
	m.sel = pool.NewSelector(w.PoolMode())
	m.slots = slots.New(slots.WithLogger(m.log))
	m.undefined = NewUndefinedTracker(m.log)
	m.stack.reset()
	m.blocks.reset()
	return m
}

// Name returns the context name.
func (m *Machine) Name() string { return m.name }

// World returns the shared state.
func (m *Machine) World() *World { return m.world }

// Main returns the primary cursor.
func (m *Machine) Main() *cursor.Cursor { return m.main }

// Structural returns the structural cursor, or nil in statement mode.
func (m *Machine) Structural() *cursor.Cursor { return m.structural }

// Selection returns the current object selection.
func (m *Machine) Selection() pool.Selection { return m.sel.Current() }

// Slots returns the process slot table.
func (m *Machine) Slots() *slots.Table { return m.slots }

// Work returns work memory word i (wrapped to the array).
func (m *Machine) Work(i int) int32 { return m.work[i&(WorkWords-1)] }

// SetWork stores v in work memory word i (wrapped to the array).
func (m *Machine) SetWork(i int, v int32) { m.work[i&(WorkWords-1)] = v }

// TickDelta returns the Q5 time added per tick.
func (m *Machine) TickDelta() uint32 { return m.tick }

// Halted reports whether the context and every sub-process it scheduled have
// stopped.
func (m *Machine) Halted() bool { return m.halted && len(m.procs) == 0 }

// Err returns the error that halted the context, if any.
func (m *Machine) Err() error { return m.err }

// Undefined returns the undefined opcode tracker.
func (m *Machine) Undefined() *UndefinedTracker { return m.undefined }

// Tick runs the context until it yields the frame, halts, or exhausts its
// instruction budget, then ticks the sub-processes started from its slots.
func (m *Machine) Tick() (Status, error) {
	st, err := m.run()
	if perr := m.tickProcesses(); perr != nil {
		err = errors.Join(err, perr)
	}
	if st == Halted && len(m.procs) > 0 {
		st = Running
	}
	return st, err
}

func (m *Machine) run() (Status, error) {
	if m.halted {
		return Halted, nil
	}
	m.yield = false
	for n := 0; n < m.budget; n++ {
		var err error
		if m.structural != nil {
			err = m.stepStructure()
		} else {
			err = m.Step()
		}
		if err != nil {
			if IsFatal(err) {
				return m.halt(err)
			}
			m.log.Warn("runtime error", "context", m.name, "error", err)
		}
		if m.halted {
			return Halted, m.err
		}
		if m.yield {
			return Running, nil
		}
	}
	m.log.Debug("tick budget exhausted", "context", m.name, "budget", m.budget)
	return Running, nil
}

func (m *Machine) halt(err error) (Status, error) {
	m.halted = true
	m.err = err
	if err != nil {
		m.log.Error("context halted", "context", m.name, "error", err)
		m.stopProcesses()
	}
	return Halted, err
}

// Step executes one statement from the primary stream.
func (m *Machine) Step() error {
	if m.main.AtEnd() {
		m.halted = true
		return nil
	}
	pos := m.main.Pos()
	b, err := m.main.U8()
	if err != nil {
		return at(err, pos, 0)
	}
	op := Opcode(b)
	switch {
	case op < LowLimit:
		if op == lowBlockEnd {
			m.halted = true
			return nil
		}
		err = lowTable[op](m)
	case b == Prefix:
		ext, rerr := m.main.U8()
		if rerr != nil {
			return at(rerr, pos, op)
		}
		op = ExtendedBase + Opcode(ext)
		_, err = m.dispatch(op)
	case op < StandardBase:
		m.undefined.Record(op, pos)
		err = NewUndefinedOpcodeError(op)
	default:
		_, err = m.dispatch(op)
	}
	if err != nil {
		return at(err, pos, op)
	}
	return nil
}

// SelectFrame selects index in the frame pool, or fallback for the sentinel.
// Checked-mode violations clear the selection and are logged.
func (m *Machine) SelectFrame(index int32, fallback pool.Selection) pool.Selection {
	sel, err := m.sel.SelectByIndex(m.world.Pools.Frame, index, fallback)
	if err != nil {
		m.log.Warn("object selection out of range", "context", m.name, "index", index, "error", err)
	}
	return sel
}

// frameIndexOf returns the frame pool index of sel, or the sentinel.
func (m *Machine) frameIndexOf(sel pool.Selection) int32 {
	id, ok := sel.ID()
	if !ok {
		return pool.Sentinel
	}
	return int32(m.world.Pools.Frame.Rebase(sel.Pool(), id))
}
