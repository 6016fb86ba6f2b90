// Package config loads the scriptcore.toml runtime configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/zurustar/scriptcore/pkg/pool"
	"github.com/zurustar/scriptcore/pkg/vm"
)

// FileName is the configuration file looked up next to a script.
const FileName = "scriptcore.toml"

var (
	// ErrUnknownKeys is returned when the file has keys no section defines.
	ErrUnknownKeys = errors.New("unknown configuration keys")
	// ErrInvalid is returned when a value is out of range.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the runtime configuration.
type Config struct {
	Interpreter Interpreter `toml:"interpreter"`
	Pools       Pools       `toml:"pools"`
	Audio       Audio       `toml:"audio"`
	Window      Window      `toml:"window"`

	// Path is the file the configuration was read from (set at load time).
	Path string `toml:"-"`
}

// Interpreter configures the script contexts.
type Interpreter struct {
	TickDelta            uint32 `toml:"tick_delta"`
	TickBudget           int    `toml:"tick_budget"`
	LegacyUncheckedPools bool   `toml:"legacy_unchecked_pools"`
	DebugFlags           bool   `toml:"debug_flags"`
}

// Pools configures the object arena layout.
type Pools struct {
	FrameLead     int `toml:"frame_lead"`
	SpawnCapacity int `toml:"spawn_capacity"`
	Stride        int `toml:"stride"`
}

// Audio configures the mixer.
type Audio struct {
	SoundFont  string  `toml:"soundfont"`
	VoiceDir   string  `toml:"voice_dir"`
	ParamScale float32 `toml:"param_scale"`
	Muted      bool    `toml:"muted"`
}

// Window configures the ebiten window.
type Window struct {
	Width  int     `toml:"width"`
	Height int     `toml:"height"`
	Scale  float64 `toml:"scale"`
	Title  string  `toml:"title"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Interpreter: Interpreter{
			TickDelta:  vm.DefaultTickDelta,
			TickBudget: vm.DefaultBudget,
		},
		Pools: Pools{
			FrameLead:     pool.DefaultFrameLead,
			SpawnCapacity: pool.DefaultSpawnCapacity,
			Stride:        pool.DefaultStride,
		},
		Audio: Audio{
			VoiceDir:   "voice",
			ParamScale: 1.0 / 128,
		},
		Window: Window{
			Width:  640,
			Height: 448,
			Scale:  1,
			Title:  "scriptcore",
		},
	}
}

// Load reads path over the defaults. Keys that are missing keep their
// default; keys that no section defines are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes TOML text over the defaults.
func Parse(text string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: %s", ErrUnknownKeys, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Interpreter.TickDelta == 0:
		return fmt.Errorf("%w: interpreter.tick_delta must be positive", ErrInvalid)
	case c.Interpreter.TickBudget <= 0:
		return fmt.Errorf("%w: interpreter.tick_budget must be positive", ErrInvalid)
	case c.Pools.Stride <= 0:
		return fmt.Errorf("%w: pools.stride must be positive", ErrInvalid)
	case c.Pools.FrameLead < 0 || c.Pools.SpawnCapacity < 0:
		return fmt.Errorf("%w: pool sizes must not be negative", ErrInvalid)
	case c.Audio.ParamScale < 0:
		return fmt.Errorf("%w: audio.param_scale must not be negative", ErrInvalid)
	case c.Window.Width <= 0 || c.Window.Height <= 0 || c.Window.Scale <= 0:
		return fmt.Errorf("%w: window size and scale must be positive", ErrInvalid)
	}
	return nil
}

// Layout returns the arena layout.
func (c *Config) Layout() pool.Layout {
	return pool.Layout{
		Stride:        c.Pools.Stride,
		FrameLead:     c.Pools.FrameLead,
		SpawnCapacity: c.Pools.SpawnCapacity,
	}
}

// Encode writes the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
