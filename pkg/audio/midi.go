package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

// MIDI control change used for the master volume.
const (
	midiChannels   = 16
	midiControl    = 0xB0
	midiCCVolume   = 7
	midiVolumeFull = 127
)

// midiStream renders a MIDI sequence as 16-bit stereo PCM for an audio player.
// After the sequence ends, or once stopped, it produces silence.
type midiStream struct {
	synth       *meltysynth.Synthesizer
	sequencer   *meltysynth.MidiFileSequencer
	sampleCount int64
	stopped     bool
	mu          sync.Mutex
}

// newMIDIStream parses data and starts a non-looping sequence on a fresh
// synthesizer. It returns the sequence length.
func newMIDIStream(sf *meltysynth.SoundFont, data []byte) (*midiStream, time.Duration, error) {
	midi, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	synth, err := meltysynth.NewSynthesizer(sf, meltysynth.NewSynthesizerSettings(SampleRate))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	seq := meltysynth.NewMidiFileSequencer(synth)
	seq.Play(midi, false)
	return &midiStream{synth: synth, sequencer: seq}, midi.GetLength(), nil
}

// Read implements io.Reader.
func (s *midiStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.sequencer == nil {
		clear(p)
		return len(p), nil
	}

	samples := len(p) / 4
	if samples == 0 {
		return 0, nil
	}
	left := make([]float32, samples)
	right := make([]float32, samples)
	s.sequencer.Render(left, right)
	s.sampleCount += int64(samples)

	for i := range samples {
		l := int16(clamp(left[i], -1, 1) * 32767)
		r := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}
	return samples * 4, nil
}

// SetVolume sends the volume as CC7 to every MIDI channel.
func (s *midiStream) SetVolume(vol float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.synth == nil {
		return
	}
	cc := int32(vol*midiVolumeFull + 0.5)
	for ch := int32(0); ch < midiChannels; ch++ {
		s.synth.ProcessMidiMessage(ch, midiControl, midiCCVolume, cc)
	}
}

// Stop silences the stream.
func (s *midiStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// SampleCount returns the number of frames rendered so far.
func (s *midiStream) SampleCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleCount
}
