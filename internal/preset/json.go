// Package preset parses sampler instrument presets into region tables.
// Two encodings are supported: the native JSON format and DecentSampler
// .dspreset XML. Parsers only build the table; sample decoding happens
// later via the engine's preload step.
package preset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cbegin/multisampler-go/internal/sampler"
)

type jsonSample struct {
	Path        string  `json:"path"`
	RootNote    *int    `json:"root_note"`
	LoNote      *int    `json:"lo_note"`
	HiNote      *int    `json:"hi_note"`
	LoVel       *int    `json:"lo_vel"`
	HiVel       *int    `json:"hi_vel"`
	VolumeDb    float64 `json:"volume_db"`
	Pan         float64 `json:"pan"`
	TuneCents   int     `json:"tune_cents"`
	LoopEnabled bool    `json:"loop_enabled"`
	LoopStart   uint64  `json:"loop_start"`
	LoopEnd     uint64  `json:"loop_end"`
}

type jsonEnvelope struct {
	Attack  *float64 `json:"attack"`
	Decay   *float64 `json:"decay"`
	Sustain *float64 `json:"sustain"`
	Release *float64 `json:"release"`
}

type jsonGroup struct {
	Name      string        `json:"name"`
	Keyswitch *int          `json:"keyswitch"`
	VolumeDb  float64       `json:"volume_db"`
	Envelope  *jsonEnvelope `json:"envelope"`
	Samples   []jsonSample  `json:"samples"`
}

type jsonPreset struct {
	Name     string        `json:"name"`
	Groups   []jsonGroup   `json:"groups"`
	Samples  []jsonSample  `json:"samples"`
	Envelope *jsonEnvelope `json:"envelope"`
}

// LoadJSON reads and parses a JSON preset file. Sample paths are resolved
// relative to the preset's directory.
func LoadJSON(path string) ([]sampler.Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseJSON(data, filepath.Dir(path))
}

// ParseJSON parses JSON preset bytes. Two layouts are accepted: a
// multi-group form with keyswitches ("groups": [...]) and a flat
// single-group form ("samples": [...]).
func ParseJSON(data []byte, basePath string) ([]sampler.Group, error) {
	var p jsonPreset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	var groups []sampler.Group
	switch {
	case len(p.Groups) > 0:
		for _, jg := range p.Groups {
			g := sampler.DefaultGroup(jg.Name)
			if g.Name == "" {
				g.Name = "Group"
			}
			if jg.Keyswitch != nil {
				g.Keyswitch = *jg.Keyswitch
			}
			g.VolumeDb = jg.VolumeDb
			applyEnvelope(&g, jg.Envelope)
			for _, js := range jg.Samples {
				g.Regions = append(g.Regions, regionFromJSON(js, basePath))
			}
			groups = append(groups, g)
		}
	case len(p.Samples) > 0:
		g := sampler.DefaultGroup(p.Name)
		if g.Name == "" {
			g.Name = "Preset"
		}
		applyEnvelope(&g, p.Envelope)
		for _, js := range p.Samples {
			g.Regions = append(g.Regions, regionFromJSON(js, basePath))
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func applyEnvelope(g *sampler.Group, env *jsonEnvelope) {
	if env == nil {
		return
	}
	if env.Attack != nil {
		g.Attack = *env.Attack
	}
	if env.Decay != nil {
		g.Decay = *env.Decay
	}
	if env.Sustain != nil {
		g.Sustain = *env.Sustain
	}
	if env.Release != nil {
		g.Release = *env.Release
	}
}

func regionFromJSON(js jsonSample, basePath string) sampler.Region {
	root := 60
	if js.RootNote != nil {
		root = *js.RootNote
	}
	r := sampler.Region{
		Path:        resolvePath(basePath, js.Path),
		RootNote:    root,
		LoNote:      root,
		HiNote:      root,
		HiVel:       127,
		VolumeDb:    js.VolumeDb,
		Pan:         js.Pan,
		TuneCents:   js.TuneCents,
		LoopEnabled: js.LoopEnabled,
		LoopStart:   js.LoopStart,
		LoopEnd:     js.LoopEnd,
	}
	if js.LoNote != nil {
		r.LoNote = *js.LoNote
	}
	if js.HiNote != nil {
		r.HiNote = *js.HiNote
	}
	if js.LoVel != nil {
		r.LoVel = *js.LoVel
	}
	if js.HiVel != nil {
		r.HiVel = *js.HiVel
	}
	return r
}

// resolvePath normalizes Windows-style separators and resolves the sample
// path relative to the preset file's directory.
func resolvePath(basePath, p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if basePath == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, filepath.FromSlash(p))
}
