package audio

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// voice is one resource loaded on a channel.
type voice struct {
	id       uint32
	src      io.Reader
	midi     *midiStream
	duration time.Duration
	player   *audio.Player
	delay    int
	started  bool
}

// decodeVoice prepares the sample stream for a resource. MIDI needs sf.
func decodeVoice(ext string, data []byte, sf *meltysynth.SoundFont) (*voice, error) {
	switch ext {
	case ".wav":
		stream, err := wav.DecodeWithSampleRate(SampleRate, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		bytesPerSecond := int64(SampleRate * 4)
		d := time.Duration(stream.Length()) * time.Second / time.Duration(bytesPerSecond)
		return &voice{src: stream, duration: d}, nil
	case ".mid":
		if sf == nil {
			return nil, ErrNoSoundFont
		}
		ms, d, err := newMIDIStream(sf, data)
		if err != nil {
			return nil, err
		}
		return &voice{src: ms, midi: ms, duration: d}, nil
	default:
		return nil, fmt.Errorf("%w: extension %q", ErrInvalidFormat, ext)
	}
}

func (v *voice) start() {
	v.delay = 0
	v.started = true
	if v.player != nil {
		v.player.Play()
	}
}

// finished reports whether a started voice has played to its end. MIDI
// streams never run dry, so they end by position.
func (v *voice) finished() bool {
	if !v.started || v.player == nil {
		return false
	}
	if v.midi != nil {
		return v.player.Position() >= v.duration
	}
	return !v.player.IsPlaying()
}

func (v *voice) setVolume(vol float64) {
	if v.player != nil {
		v.player.SetVolume(vol)
	}
	if v.midi != nil {
		v.midi.SetVolume(vol)
	}
}

func (v *voice) close() {
	if v.midi != nil {
		v.midi.Stop()
	}
	if v.player != nil {
		v.player.Close()
	}
}
