// Package audio plays dialogue voices through a shared Ebitengine audio context.
//
// The Mixer owns a fixed set of voice channels. Each channel plays one WAV or
// MIDI resource; MIDI resources are rendered with a SoundFont synthesizer.
// Scripts control the master volume through the parameter sink and poll the
// channels through the readiness predicates.
package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/sinshu/go-meltysynth/meltysynth"

	"github.com/zurustar/scriptcore/pkg/fileutil"
	"github.com/zurustar/scriptcore/pkg/logger"
)

const (
	// SampleRate is the rate of the shared audio context.
	SampleRate = 44100
	// Channels is the number of voice channels.
	Channels = 3
)

var (
	// ErrVoiceNotFound is returned when no resource file exists for a voice id.
	ErrVoiceNotFound = errors.New("voice resource not found")

	// ErrInvalidFormat is returned when a voice resource cannot be decoded.
	ErrInvalidFormat = errors.New("invalid voice format")

	// ErrNoSoundFont is returned when a MIDI voice is loaded without a SoundFont.
	ErrNoSoundFont = errors.New("SoundFont file is required for MIDI playback")

	// ErrSoundFontNotFound is returned when the SoundFont file cannot be read.
	ErrSoundFontNotFound = errors.New("SoundFont file not found")

	// ErrChannel is returned for a channel outside [0, Channels).
	ErrChannel = errors.New("voice channel out of range")
)

// Voice resource extensions, in lookup order.
var voiceExts = []string{".wav", ".mid"}

// Mixer plays voices on a fixed set of channels.
type Mixer struct {
	ctx       *audio.Context
	fsys      fileutil.FileSystem
	voiceDir  string
	soundFont *meltysynth.SoundFont
	scale     float32
	volume    float64
	muted     bool
	channels  [Channels]*voice
	log       *slog.Logger
	mu        sync.Mutex
}

// Option configures a Mixer.
type Option func(*Mixer)

// WithLogger sets the diagnostics logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Mixer) {
		m.log = log
	}
}

// WithContext shares an existing audio context. Without it the mixer uses
// the current context, creating one on first playback.
func WithContext(ctx *audio.Context) Option {
	return func(m *Mixer) {
		m.ctx = ctx
	}
}

// WithFileSystem sets where voice resources are read from.
func WithFileSystem(fsys fileutil.FileSystem) Option {
	return func(m *Mixer) {
		m.fsys = fsys
	}
}

// WithVoiceDir sets the directory of voice resources inside the file system.
func WithVoiceDir(dir string) Option {
	return func(m *Mixer) {
		m.voiceDir = dir
	}
}

// WithSoundFont enables MIDI voices.
func WithSoundFont(sf *meltysynth.SoundFont) Option {
	return func(m *Mixer) {
		m.soundFont = sf
	}
}

// WithParamScale sets the factor applied to submitted parameters before
// they become the master volume.
func WithParamScale(scale float32) Option {
	return func(m *Mixer) {
		m.scale = scale
	}
}

// WithMuted starts the mixer muted.
func WithMuted(muted bool) Option {
	return func(m *Mixer) {
		m.muted = muted
	}
}

// New creates a mixer with full volume.
func New(opts ...Option) *Mixer {
	m := &Mixer{
		fsys:     fileutil.Dir("."),
		voiceDir: "voice",
		scale:    1,
		volume:   1,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// context returns the audio context, creating it on first use.
// Must be called with m.mu held.
func (m *Mixer) context() *audio.Context {
	if m.ctx == nil {
		m.ctx = audio.CurrentContext()
	}
	if m.ctx == nil {
		m.ctx = audio.NewContext(SampleRate)
	}
	return m.ctx
}

// VoicePath returns the resource name of voice id with the given extension.
func (m *Mixer) VoicePath(id uint32, ext string) string {
	return path.Join(m.voiceDir, fmt.Sprintf("%08d%s", id, ext))
}

// readVoice finds the first existing resource file for id.
func (m *Mixer) readVoice(id uint32) (string, []byte, error) {
	for _, ext := range voiceExts {
		data, err := m.fsys.ReadFile(m.VoicePath(id, ext))
		if err == nil {
			return ext, data, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %d in %s", ErrVoiceNotFound, id, m.voiceDir)
}

// LoadVoice replaces the voice on channel with resource id. A positive wait
// delays playback by that many updates. Failures are logged and leave the
// channel empty.
func (m *Mixer) LoadVoice(channel, wait int8, id uint32) {
	if err := m.Load(int(channel), int(wait), id); err != nil {
		m.log.Warn("voice load failed", "channel", channel, "id", id, "error", err)
	}
}

// Load is LoadVoice with the error returned.
func (m *Mixer) Load(channel, wait int, id uint32) error {
	if channel < 0 || channel >= Channels {
		return fmt.Errorf("%w: %d", ErrChannel, channel)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopChannel(channel)
	ext, data, err := m.readVoice(id)
	if err != nil {
		return err
	}
	v, err := decodeVoice(ext, data, m.soundFont)
	if err != nil {
		return err
	}
	player, err := m.context().NewPlayer(v.src)
	if err != nil {
		return fmt.Errorf("failed to create audio player: %w", err)
	}
	v.id = id
	v.player = player
	m.applyVolume(v)
	m.channels[channel] = v
	if wait > 0 {
		v.delay = wait
		return nil
	}
	v.start()
	return nil
}

// Stop silences one channel.
func (m *Mixer) Stop(channel int) {
	if channel < 0 || channel >= Channels {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopChannel(channel)
}

// stopChannel must be called with m.mu held.
func (m *Mixer) stopChannel(channel int) {
	if v := m.channels[channel]; v != nil {
		v.close()
		m.channels[channel] = nil
	}
}

// StopAll silences every channel.
func (m *Mixer) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.channels {
		m.stopChannel(i)
	}
}

// Update is called once per tick: it counts down delayed voices and frees
// channels whose voice has finished.
func (m *Mixer) Update() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.channels {
		if v == nil {
			continue
		}
		if v.delay > 0 {
			v.delay--
			if v.delay == 0 {
				v.start()
			}
			continue
		}
		if v.finished() {
			v.close()
			m.channels[i] = nil
		}
	}
}

// Voice returns the resource id on channel and whether the channel is in use.
func (m *Mixer) Voice(channel int) (uint32, bool) {
	if channel < 0 || channel >= Channels {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.channels[channel]
	if v == nil {
		return 0, false
	}
	return v.id, true
}

// IsLoaderIdle reports whether no voice is waiting for its delayed start.
func (m *Mixer) IsLoaderIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.channels {
		if v != nil && v.delay > 0 {
			return false
		}
	}
	return true
}

// IsAudioChannelBusy reports whether any channel holds a voice.
func (m *Mixer) IsAudioChannelBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.channels {
		if v != nil {
			return true
		}
	}
	return false
}

// IsSystemBusy is always false; the mixer has no background work.
func (m *Mixer) IsSystemBusy() bool { return false }

// SubmitParameter sets the master volume to v times the parameter scale,
// clamped to [0, 1].
func (m *Mixer) SubmitParameter(v float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = float64(clamp(v*m.scale, 0, 1))
	for _, ch := range m.channels {
		if ch != nil {
			m.applyVolume(ch)
		}
	}
}

// Volume returns the master volume.
func (m *Mixer) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// SetMuted mutes or unmutes every channel. The master volume is kept.
func (m *Mixer) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	for _, ch := range m.channels {
		if ch != nil {
			m.applyVolume(ch)
		}
	}
}

// IsMuted returns whether the mixer is muted.
func (m *Mixer) IsMuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted
}

// applyVolume must be called with m.mu held.
func (m *Mixer) applyVolume(v *voice) {
	vol := m.volume
	if m.muted {
		vol = 0
	}
	v.setVolume(vol)
}

// Close stops every channel.
func (m *Mixer) Close() {
	m.StopAll()
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
