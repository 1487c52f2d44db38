package sampler

// Region maps one audio file across a key/velocity zone. Runtime fields
// (Samples, Frames, Loaded, Failed) are populated by Preload; until then the
// region is silent.
type Region struct {
	Path      string
	RootNote  int
	LoNote    int
	HiNote    int
	LoVel     int
	HiVel     int
	VolumeDb  float64
	Pan       float64 // -1 = left, 0 = center, 1 = right
	TuneCents int

	LoopEnabled   bool
	LoopStart     uint64 // in engine-rate frames once loaded
	LoopEnd       uint64 // 0 = end of file
	LoopCrossfade uint64 // parsed from presets, not applied during playback

	Samples    []float32 // interleaved stereo at the engine rate
	Frames     int
	SampleRate int
	Loaded     bool
	Failed     bool
}

// Group is one articulation: an ordered set of regions, an optional
// keyswitch note, and envelope overrides (negative = inherit engine default).
type Group struct {
	Name      string
	Regions   []Region
	Keyswitch int // MIDI note that activates this group, -1 = none
	VolumeDb  float64
	Attack    float64
	Decay     float64
	Sustain   float64
	Release   float64
}

// DefaultGroup returns an empty group with no keyswitch and all envelope
// fields inheriting the engine defaults.
func DefaultGroup(name string) Group {
	return Group{
		Name:      name,
		Keyswitch: -1,
		Attack:    -1,
		Decay:     -1,
		Sustain:   -1,
		Release:   -1,
	}
}

// resolveRegion finds the region index for a note/velocity pair inside the
// active group. Exact key+velocity matches cycle through the per-note
// round-robin counter; with no exact match it falls back to key-only
// matching and picks the region whose root note is closest.
func (e *Engine) resolveRegion(note int, velocity float64) (int, bool) {
	if e.activeGroup < 0 || e.activeGroup >= len(e.groups) {
		return 0, false
	}
	group := &e.groups[e.activeGroup]
	vel := int(velocity * 127.0)

	n := 0
	for i := range group.Regions {
		r := &group.Regions[i]
		if note >= r.LoNote && note <= r.HiNote && vel >= r.LoVel && vel <= r.HiVel {
			e.matchScratch[n] = i
			n++
		}
	}
	if n > 0 {
		rr := (e.roundRobin[note] + 1) % n
		e.roundRobin[note] = rr
		return e.matchScratch[rr], true
	}

	// Fallback: ignore velocity, closest root note wins (first on ties).
	best := -1
	bestDist := int(^uint(0) >> 1)
	for i := range group.Regions {
		r := &group.Regions[i]
		if note >= r.LoNote && note <= r.HiNote {
			dist := note - r.RootNote
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist {
				bestDist = dist
				best = i
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}
