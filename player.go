// Package multisampler is a sample-based polyphonic instrument: WAV regions
// mapped across key and velocity zones, grouped into keyswitchable
// articulations, played back through a fixed pool of ADSR voices.
package multisampler

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	intaudio "github.com/cbegin/multisampler-go/internal/audio"
	intpreset "github.com/cbegin/multisampler-go/internal/preset"
	intsampler "github.com/cbegin/multisampler-go/internal/sampler"
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	params intsampler.Params
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{params: intsampler.DefaultParams()}
}

// WithParams overrides the engine parameters (polyphony, envelope defaults,
// velocity curve).
func WithParams(params intsampler.Params) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.params = params
	}
}

// WithMaxVoices overrides just the polyphony limit.
func WithMaxVoices(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.params.MaxVoices = n
	}
}

// Player ties preset loading, the sampler engine, and realtime output
// together. All control methods are serialized against the audio render
// path: preset reloads and note events never race a block render.
type Player struct {
	mu         sync.Mutex
	sampleRate int
	engine     *intsampler.Engine
	audio      *intaudio.Player
	baseGain   float64
	volume     float64
}

func NewPlayer(sampleRate int, opts ...PlayerOption) (*Player, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	engine := intsampler.New(sampleRate, cfg.params)
	return &Player{
		sampleRate: sampleRate,
		engine:     engine,
		baseGain:   cfg.params.MasterGain,
		volume:     1,
	}, nil
}

// Process implements the audio stream's SampleSource: it renders one block
// under the player lock so control operations stay serialized with audio.
func (p *Player) Process(dst []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.Process(dst)
}

// LoadPreset parses a preset file (JSON or DecentSampler .dspreset,
// dispatched by extension), replaces the region table, and preloads every
// sample. On a parse failure the previous table is left intact. Individual
// regions whose samples fail to decode stay silent without failing the
// load; their count is returned.
func (p *Player) LoadPreset(path string) (int, error) {
	var (
		groups []intsampler.Group
		err    error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dspreset":
		groups, err = intpreset.LoadDspreset(path)
	default:
		groups, err = intpreset.LoadJSON(path)
	}
	if err != nil {
		return 0, fmt.Errorf("load preset %s: %w", path, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.SetGroups(groups)
	return p.engine.Preload(), nil
}

// NoteOn triggers a note (velocity 0..1) and returns the voice slot used,
// or -1 for keyswitches, unmatched notes, and exhausted pools.
func (p *Player) NoteOn(note int, velocity float64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.NoteOn(note, velocity)
}

// NoteOff releases a note.
func (p *Player) NoteOff(note int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.NoteOff(note)
}

// AllNotesOff releases every sounding voice through its envelope.
func (p *Player) AllNotesOff() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.AllNotesOff()
}

// Panic hard-stops all voices immediately.
func (p *Player) Panic() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.Panic()
}

// SetActiveGroup selects an articulation by index.
func (p *Player) SetActiveGroup(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.SetActiveGroup(index)
}

// SetKeyswitch selects an articulation by its keyswitch note without
// producing sound.
func (p *Player) SetKeyswitch(note int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.SetKeyswitch(note)
}

// ActiveVoiceCount reports how many voices are currently sounding.
func (p *Player) ActiveVoiceCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.ActiveVoiceCount()
}

// RegionCount reports the total number of regions across all groups.
func (p *Player) RegionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.RegionCount()
}

// SetMasterVolume scales the configured master gain. Values below zero
// clamp to silence.
func (p *Player) SetMasterVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v < 0 {
		v = 0
	}
	p.volume = v
	p.engine.SetMasterGain(p.baseGain * v)
}

// MasterVolume returns the current master volume scalar.
func (p *Player) MasterVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Engine exposes the underlying sampler engine for offline rendering and
// programmatic table construction. Callers must not use it concurrently
// with a started player.
func (p *Player) Engine() *intsampler.Engine {
	return p.engine
}

// Start begins realtime playback through the shared audio context. The
// player renders silence until notes arrive.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		pl, err := intaudio.NewPlayer(p.sampleRate, p)
		if err != nil {
			return err
		}
		p.audio = pl
	}
	p.audio.Play()
	return nil
}

// Pause suspends realtime playback without releasing the output stream.
// Start resumes it.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

// IsPlaying reports whether realtime playback is currently running.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio != nil && p.audio.IsPlaying()
}

// Stop halts realtime playback and releases the output stream.
func (p *Player) Stop() error {
	p.mu.Lock()
	audio := p.audio
	p.audio = nil
	p.mu.Unlock()
	if audio == nil {
		return nil
	}
	return audio.Stop()
}
