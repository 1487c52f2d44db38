package preset

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cbegin/multisampler-go/internal/sampler"
)

// DecentSampler .dspreset XML structures. Attributes stay strings so that
// "absent" and "present but zero" can be told apart.
type dsDocument struct {
	XMLName xml.Name  `xml:"DecentSampler"`
	Groups  []dsGroups `xml:"groups"`
}

type dsGroups struct {
	Attack  string    `xml:"attack,attr"`
	Decay   string    `xml:"decay,attr"`
	Sustain string    `xml:"sustain,attr"`
	Release string    `xml:"release,attr"`
	Volume  string    `xml:"volume,attr"`
	Groups  []dsGroup `xml:"group"`
}

type dsGroup struct {
	Name      string     `xml:"name,attr"`
	Volume    string     `xml:"volume,attr"`
	Attack    string     `xml:"attack,attr"`
	Decay     string     `xml:"decay,attr"`
	Sustain   string     `xml:"sustain,attr"`
	Release   string     `xml:"release,attr"`
	Keyswitch string     `xml:"keyswitch,attr"`
	Samples   []dsSample `xml:"sample"`
}

type dsSample struct {
	Path          string `xml:"path,attr"`
	RootNote      string `xml:"rootNote,attr"`
	LoNote        string `xml:"loNote,attr"`
	HiNote        string `xml:"hiNote,attr"`
	LoVel         string `xml:"loVel,attr"`
	HiVel         string `xml:"hiVel,attr"`
	Volume        string `xml:"volume,attr"`
	Pan           string `xml:"pan,attr"`
	Tuning        string `xml:"tuning,attr"`
	LoopEnabled   string `xml:"loopEnabled,attr"`
	LoopStart     string `xml:"loopStart,attr"`
	LoopEnd       string `xml:"loopEnd,attr"`
	LoopCrossfade string `xml:"loopCrossfade,attr"`
}

// LoadDspreset reads and parses a DecentSampler .dspreset file.
func LoadDspreset(path string) ([]sampler.Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDspreset(data, filepath.Dir(path))
}

// ParseDspreset parses .dspreset XML bytes. Group envelope attributes
// inherit from the enclosing <groups> element; groups without samples are
// dropped. An empty result yields one empty default group.
func ParseDspreset(data []byte, basePath string) ([]sampler.Group, error) {
	var doc dsDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var groups []sampler.Group
	for _, gs := range doc.Groups {
		defAttack := parseTime(gs.Attack)
		defDecay := parseTime(gs.Decay)
		defSustain := parseFloatDefault(gs.Sustain, 1.0)
		defRelease := parseTime(gs.Release)
		defVolume := parseDb(gs.Volume)

		for _, dg := range gs.Groups {
			g := sampler.Group{
				Name:      stringDefault(dg.Name, "Group"),
				VolumeDb:  parseDb(dg.Volume) + defVolume,
				Attack:    inheritTime(dg.Attack, defAttack),
				Decay:     inheritTime(dg.Decay, defDecay),
				Sustain:   inheritFloat(dg.Sustain, defSustain),
				Release:   inheritTime(dg.Release, defRelease),
				Keyswitch: parseIntDefault(dg.Keyswitch, -1),
			}
			for _, ds := range dg.Samples {
				g.Regions = append(g.Regions, regionFromDspreset(ds, basePath))
			}
			if len(g.Regions) > 0 {
				groups = append(groups, g)
			}
		}
	}
	if len(groups) == 0 {
		groups = append(groups, sampler.DefaultGroup("Default"))
	}
	return groups, nil
}

func regionFromDspreset(ds dsSample, basePath string) sampler.Region {
	root := parseIntDefault(ds.RootNote, 60)
	return sampler.Region{
		Path:          resolvePath(basePath, ds.Path),
		RootNote:      root,
		LoNote:        parseIntDefault(ds.LoNote, root),
		HiNote:        parseIntDefault(ds.HiNote, root),
		LoVel:         parseIntDefault(ds.LoVel, 0),
		HiVel:         parseIntDefault(ds.HiVel, 127),
		VolumeDb:      parseDb(ds.Volume),
		Pan:           parseFloatDefault(ds.Pan, 0),
		TuneCents:     parseIntDefault(ds.Tuning, 0),
		LoopEnabled:   strings.EqualFold(ds.LoopEnabled, "true"),
		LoopStart:     parseUintDefault(ds.LoopStart, 0),
		LoopEnd:       parseUintDefault(ds.LoopEnd, 0),
		LoopCrossfade: parseUintDefault(ds.LoopCrossfade, 0),
	}
}

// parseTime handles "100ms", "1.5s", and bare-number second values.
func parseTime(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.Contains(s, "ms") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "ms")), 64)
		if err != nil {
			return 0
		}
		return v / 1000.0
	}
	if i := strings.Index(s, "s"); i >= 0 {
		s = s[:i]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseDb handles "-3dB", "0db", and bare numbers.
func parseDb(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	lower := strings.ToLower(s)
	if i := strings.Index(lower, "db"); i >= 0 {
		s = s[:i]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func inheritTime(s string, def float64) float64 {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return parseTime(s)
}

func inheritFloat(s string, def float64) float64 {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return parseFloatDefault(s, def)
}

func parseFloatDefault(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func parseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseUintDefault(s string, def uint64) uint64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func stringDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
