// Package dialogue runs the dialogue control stream: a byte stream of
// control codes below 0x20 interleaved with Shift-JIS text runs.
//
// The stream keeps its own cursor and shares the World's flags, mode and
// collaborators with the bytecode contexts. Wait codes leave the cursor on
// the code and report Parked so the next tick polls again.
package dialogue

import (
	"fmt"
	"log/slog"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"

	"github.com/zurustar/scriptcore/pkg/cursor"
	"github.com/zurustar/scriptcore/pkg/logger"
	"github.com/zurustar/scriptcore/pkg/vm"
)

// Status is the state of the stream after a step.
type Status int

const (
	// Running means the stream can continue.
	Running Status = iota
	// Parked means a wait code is not yet satisfied.
	Parked
	// Done means the end code was reached.
	Done
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Parked:
		return "parked"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Control codes.
const (
	codePalette    = 0x00
	codeEnd        = 0x02
	codeSpeed      = 0x0C
	codeVoice      = 0x16
	codeWaitLoader = 0x17
	codeControlA   = 0x18
	codeControlB   = 0x19
	codeWaitAudio  = 0x1A
	codeFlagSet    = 0x1B
	codeFlagClear  = 0x1C
	textBase       = 0x20
)

const (
	// PaletteLimit is the number of palette entries kept by code 0x00.
	PaletteLimit = 8
	// PaletteFlag is raised once a palette has been loaded.
	PaletteFlag = 0x8FE
	// VoiceChannels is the number of voice channels code 0x16 may address.
	VoiceChannels = 3
)

// maxSteps bounds the work done by one Tick.
const maxSteps = 256

// Stream executes a dialogue control stream.
type Stream struct {
	c         *cursor.Cursor
	world     *vm.World
	palette   []uint32
	speed     uint32
	control   [2]uint8
	status    Status
	dec       *encoding.Decoder
	undefined *vm.UndefinedTracker
	log       *slog.Logger
}

// Option configures a Stream.
type Option func(*Stream)

// WithLogger sets the diagnostics logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Stream) {
		s.log = log
	}
}

// New returns a stream positioned at the start of data.
func New(w *vm.World, data []byte, opts ...Option) *Stream {
	s := &Stream{
		c:     cursor.New("dialogue", data),
		world: w,
		dec:   japanese.ShiftJIS.NewDecoder(),
		log:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.undefined = vm.NewUndefinedTracker(s.log)
	return s
}

// Status returns the status of the last step.
func (s *Stream) Status() Status { return s.status }

// Pos returns the cursor position.
func (s *Stream) Pos() int { return s.c.Pos() }

// Palette returns a copy of the loaded palette.
func (s *Stream) Palette() []uint32 {
	return append([]uint32(nil), s.palette...)
}

// Speed returns the text speed in Q5 units.
func (s *Stream) Speed() uint32 { return s.speed }

// Control returns the byte stored by code 0x18 (i == 0) or 0x19 (i == 1).
func (s *Stream) Control(i int) uint8 { return s.control[i&1] }

// Undefined returns the tracker of unknown control codes.
func (s *Stream) Undefined() *vm.UndefinedTracker { return s.undefined }

// Tick steps the stream until it parks, ends or emits a text run.
func (s *Stream) Tick() (Status, error) {
	for i := 0; i < maxSteps; i++ {
		b, _ := s.c.Peek()
		st, err := s.Step()
		if err != nil || st != Running || b >= textBase {
			return st, err
		}
	}
	return s.status, nil
}

// Step executes one control code or one text run.
func (s *Stream) Step() (Status, error) {
	if s.status == Done {
		return Done, nil
	}
	if s.c.AtEnd() {
		s.log.Debug("dialogue stream ended without end code", "pos", s.c.Pos())
		s.status = Done
		return Done, nil
	}
	pos := s.c.Pos()
	b, _ := s.c.Peek()
	st, err := s.exec(b)
	if err != nil {
		s.status = Done
		return Done, &vm.RuntimeError{Type: vm.ErrorTruncated, Message: "dialogue stream", Pos: pos, Opcode: vm.Opcode(b), Err: err}
	}
	s.status = st
	return st, nil
}

func (s *Stream) exec(b byte) (Status, error) {
	if b >= textBase {
		return Running, s.text()
	}
	h := s.world.Host
	switch b {
	case codeWaitLoader:
		if !h.Readiness.IsLoaderIdle() {
			return Parked, nil
		}
		return Running, s.c.Advance(1)
	case codeWaitAudio:
		if h.Readiness.IsAudioChannelBusy() {
			return Parked, nil
		}
		return Running, s.c.Advance(1)
	}

	pos := s.c.Pos()
	_ = s.c.Advance(1)
	switch b {
	case codePalette:
		return Running, s.loadPalette()
	case codeEnd:
		return Done, nil
	case codeSpeed:
		if err := s.c.Advance(1); err != nil {
			return Running, err
		}
		v, err := s.c.U8()
		s.speed = uint32(v) << 5
		return Running, err
	case codeVoice:
		return Running, s.loadVoice()
	case codeControlA, codeControlB:
		v, err := s.c.U8()
		s.control[b-codeControlA] = v
		return Running, err
	case codeFlagSet, codeFlagClear:
		id, err := s.c.U16()
		if err != nil {
			return Running, err
		}
		if b == codeFlagSet {
			s.world.Flags.Set(uint32(id))
		} else {
			s.world.Flags.Clear(uint32(id))
		}
		return Running, nil
	default:
		s.undefined.Record(vm.Opcode(b), pos)
		return Running, nil
	}
}

// loadPalette reads a count byte and count colour words. Entries past
// PaletteLimit are consumed but dropped.
func (s *Stream) loadPalette() error {
	n, err := s.c.U8()
	if err != nil {
		return err
	}
	if n > PaletteLimit {
		s.log.Warn("palette too long", "count", n, "limit", PaletteLimit)
	}
	s.palette = s.palette[:0]
	for i := 0; i < int(n); i++ {
		v, err := s.c.U32()
		if err != nil {
			return err
		}
		if i < PaletteLimit {
			s.palette = append(s.palette, v)
		}
	}
	s.world.Flags.Set(PaletteFlag)
	s.world.Mode.State |= vm.StatePalette
	return nil
}

func (s *Stream) loadVoice() error {
	ch, err := s.c.S8()
	if err != nil {
		return err
	}
	wait, err := s.c.S8()
	if err != nil {
		return err
	}
	id, err := s.c.U32()
	if err != nil {
		return err
	}
	if ch < 0 || ch >= VoiceChannels {
		s.log.Warn("voice channel out of range", "channel", ch, "id", id)
		return nil
	}
	s.world.Host.Voices.LoadVoice(ch, wait, id)
	return nil
}

// text decodes the run of bytes up to the next control code and emits it.
func (s *Stream) text() error {
	buf := s.c.Bytes()
	start := s.c.Pos()
	end := start
	for end < len(buf) && buf[end] >= textBase {
		end++
	}
	if err := s.c.Seek(end); err != nil {
		return err
	}
	out, err := s.dec.Bytes(buf[start:end])
	if err != nil {
		s.log.Warn("undecodable dialogue text", "pos", start, "error", err)
		return nil
	}
	s.world.Host.Text.Emit(string(out))
	return nil
}
