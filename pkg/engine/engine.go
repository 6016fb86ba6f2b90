// Package engine drives script contexts frame by frame.
//
// An Engine owns the contexts that share one vm.World, the dialogue stream
// and any per-frame updaters (the audio mixer). Each Update is one frame:
// the frame stamp advances, every live context runs one tick, the dialogue
// stream runs one tick, and the updaters run. The engine stops when every
// context has halted, when the tick limit or timeout is reached, or when it
// is terminated.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zurustar/scriptcore/pkg/dialogue"
	"github.com/zurustar/scriptcore/pkg/logger"
	"github.com/zurustar/scriptcore/pkg/vm"
)

// ErrTerminated is returned by Update once the engine has stopped.
var ErrTerminated = errors.New("engine terminated")

// StopReason says why a run ended.
type StopReason int

const (
	// NotStopped means the engine is still running.
	NotStopped StopReason = iota
	// AllHalted means every context reached its end or failed.
	AllHalted
	// TickLimit means the configured number of ticks ran.
	TickLimit
	// Timeout means the wall-clock limit passed.
	Timeout
	// Terminated means Terminate was called or the run context was cancelled.
	Terminated
)

func (r StopReason) String() string {
	switch r {
	case NotStopped:
		return "running"
	case AllHalted:
		return "all contexts halted"
	case TickLimit:
		return "tick limit"
	case Timeout:
		return "timeout"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("StopReason(%d)", int(r))
	}
}

// Updater is called once per frame after the contexts ran.
type Updater interface {
	Update()
}

// Result summarizes a run.
type Result struct {
	Ticks  int
	Reason StopReason
	// Errors holds the fatal error of every context that failed.
	Errors []error
}

// Err joins the context errors, or returns nil.
func (r Result) Err() error { return errors.Join(r.Errors...) }

// Engine runs script contexts against a shared world.
type Engine struct {
	world    *vm.World
	contexts []*vm.Machine
	dialogue *dialogue.Stream
	updaters []Updater

	maxTicks int
	timeout  time.Duration
	frame    time.Duration

	ticks      int
	startTime  time.Time
	reason     StopReason
	errs       []error
	terminated atomic.Bool
	log        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostics logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMaxTicks stops the engine after n frames. Zero means no limit.
func WithMaxTicks(n int) Option {
	return func(e *Engine) { e.maxTicks = n }
}

// WithTimeout stops the engine after d of wall-clock time. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithFrameRate paces Run to fps frames per second. Zero runs frames back to back.
func WithFrameRate(fps int) Option {
	return func(e *Engine) {
		if fps > 0 {
			e.frame = time.Second / time.Duration(fps)
		} else {
			e.frame = 0
		}
	}
}

// WithDialogue runs a dialogue stream alongside the contexts.
func WithDialogue(s *dialogue.Stream) Option {
	return func(e *Engine) { e.dialogue = s }
}

// WithUpdater adds a per-frame updater.
func WithUpdater(u Updater) Option {
	return func(e *Engine) {
		if u != nil {
			e.updaters = append(e.updaters, u)
		}
	}
}

// New creates an engine over contexts that share w.
func New(w *vm.World, contexts []*vm.Machine, opts ...Option) *Engine {
	e := &Engine{
		world:    w,
		contexts: contexts,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// World returns the shared world.
func (e *Engine) World() *vm.World { return e.world }

// Contexts returns the script contexts.
func (e *Engine) Contexts() []*vm.Machine { return e.contexts }

// Ticks returns the number of frames run.
func (e *Engine) Ticks() int { return e.ticks }

// Reason returns why the engine stopped, or NotStopped.
func (e *Engine) Reason() StopReason { return e.reason }

// Start resets the wall clock used for the timeout.
func (e *Engine) Start() {
	e.startTime = time.Now()
	e.terminated.Store(false)
	e.log.Info("Engine started", "contexts", len(e.contexts))
}

// Terminate asks the engine to stop before the next frame.
func (e *Engine) Terminate() {
	if !e.terminated.Swap(true) {
		e.log.Info("Engine termination requested")
	}
}

// IsTerminated returns whether Terminate was called.
func (e *Engine) IsTerminated() bool {
	return e.terminated.Load()
}

// stop records the first stop reason.
func (e *Engine) stop(r StopReason) {
	if e.reason == NotStopped {
		e.reason = r
		e.log.Info("Engine stopped", "reason", r, "ticks", e.ticks)
	}
}

// CheckTermination reports whether the engine should stop, recording why.
func (e *Engine) CheckTermination() bool {
	switch {
	case e.reason != NotStopped:
		return true
	case e.terminated.Load():
		e.stop(Terminated)
	case e.maxTicks > 0 && e.ticks >= e.maxTicks:
		e.stop(TickLimit)
	case e.timeout > 0 && !e.startTime.IsZero() && time.Since(e.startTime) >= e.timeout:
		e.stop(Timeout)
	case e.allHalted():
		e.stop(AllHalted)
	default:
		return false
	}
	return true
}

func (e *Engine) allHalted() bool {
	for _, m := range e.contexts {
		if !m.Halted() {
			return false
		}
	}
	return true
}

// Update runs one frame. It returns ErrTerminated once the engine has stopped.
// Context failures halt only that context; they are collected in Result.
func (e *Engine) Update() error {
	if e.startTime.IsZero() {
		e.Start()
	}
	if e.CheckTermination() {
		return ErrTerminated
	}

	e.world.BeginFrame()
	for _, m := range e.contexts {
		if m.Halted() {
			continue
		}
		if _, err := m.Tick(); err != nil {
			e.log.Error("context failed", "context", m.Name(), "error", err)
			e.errs = append(e.errs, fmt.Errorf("context %s: %w", m.Name(), err))
		}
	}
	if err := e.tickDialogue(); err != nil {
		e.log.Error("dialogue stream failed", "error", err)
		e.errs = append(e.errs, fmt.Errorf("dialogue: %w", err))
	}
	e.deriveMode()
	for _, u := range e.updaters {
		u.Update()
	}
	e.ticks++

	if e.CheckTermination() {
		return ErrTerminated
	}
	return nil
}

// deriveMode re-derives the world mode from the flags written this frame.
func (e *Engine) deriveMode() {
	prev := e.world.Mode
	if e.world.DeriveMode() && e.world.Mode != prev {
		e.log.Info("Mode derived from flags", "mode", e.world.Mode.Mode, "variant", e.world.Mode.Variant, "aux", e.world.Mode.Aux)
	}
}

func (e *Engine) tickDialogue() error {
	if e.dialogue == nil {
		return nil
	}
	if e.dialogue.Status() == dialogue.Done {
		return nil
	}
	_, err := e.dialogue.Tick()
	return err
}

// Run calls Update until the engine stops or ctx is done.
func (e *Engine) Run(ctx context.Context) Result {
	e.Start()
	var pace *time.Ticker
	if e.frame > 0 {
		pace = time.NewTicker(e.frame)
		defer pace.Stop()
	}
	for {
		if err := ctx.Err(); err != nil {
			e.Terminate()
		}
		if errors.Is(e.Update(), ErrTerminated) {
			break
		}
		if pace != nil {
			select {
			case <-ctx.Done():
			case <-pace.C:
			}
		}
	}
	return e.Result()
}

// Result returns the run summary so far.
func (e *Engine) Result() Result {
	return Result{
		Ticks:  e.ticks,
		Reason: e.reason,
		Errors: append([]error(nil), e.errs...),
	}
}

// LogUndefined logs the undefined opcode summary of every context and the
// dialogue stream.
func (e *Engine) LogUndefined() {
	for _, m := range e.contexts {
		m.Undefined().LogSummary(m.Name())
	}
	if e.dialogue != nil {
		e.dialogue.Undefined().LogSummary("dialogue")
	}
}
