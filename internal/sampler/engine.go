package sampler

import (
	"math"
	"sync/atomic"

	"github.com/cbegin/multisampler-go/internal/wav"
)

// poolCapacity is the fixed size of the voice pool. MaxVoices can be tuned
// at runtime but never exceeds this.
const poolCapacity = 64

// Params controls the sampler engine.
type Params struct {
	MaxVoices  int
	MasterGain float64
	AttackSec  float64
	DecaySec   float64
	SustainLvl float64
	ReleaseSec float64
	VelCurve   float64 // velocity response: -1 = soft, 0 = linear, 1 = hard
}

// DefaultParams returns sensible defaults for sample playback.
func DefaultParams() Params {
	return Params{
		MaxVoices:  16,
		MasterGain: 0.8,
		AttackSec:  0.01,
		DecaySec:   0.1,
		SustainLvl: 1.0,
		ReleaseSec: 0.3,
		VelCurve:   0,
	}
}

// Engine is a polyphonic sample playback engine with key zones, velocity
// layers, round-robin alternation, and articulation keyswitches. It is
// single-threaded and pull-based: the host calls NoteOn/NoteOff from its
// control path and Process (or GenerateBlock) from its audio path, never
// concurrently.
type Engine struct {
	sampleRate float64
	params     Params

	groups       []Group
	activeGroup  int
	roundRobin   [128]int // per-note cycling through equal matches
	matchScratch []int
	epoch        uint32 // bumped on every table replacement

	voices      [poolCapacity]voice
	maxVoices   int
	noteCounter uint64
	masterGain  uint64 // atomic float64 bits

	mixL []float32
	mixR []float32
}

// New creates a sampler engine at the given sample rate with one empty
// default group.
func New(sampleRate int, params Params) *Engine {
	if params.MaxVoices <= 0 {
		params.MaxVoices = DefaultParams().MaxVoices
	}
	if params.MaxVoices > poolCapacity {
		params.MaxVoices = poolCapacity
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		maxVoices:  params.MaxVoices,
		masterGain: math.Float64bits(params.MasterGain),
	}
	e.groups = append(e.groups, DefaultGroup("Default"))
	for i := range e.voices {
		e.voices[i].midiNote = -1
	}
	return e
}

// SampleRate returns the engine's operating rate in Hz.
func (e *Engine) SampleRate() int { return int(e.sampleRate) }

// AddRegion appends a region to the first group, creating a default group
// if the table is empty.
func (e *Engine) AddRegion(r Region) {
	if len(e.groups) == 0 {
		e.groups = append(e.groups, DefaultGroup("Default"))
	}
	e.groups[0].Regions = append(e.groups[0].Regions, r)
	e.growScratch(len(e.groups[0].Regions))
}

// AddGroup appends a complete group.
func (e *Engine) AddGroup(g Group) {
	e.groups = append(e.groups, g)
	e.growScratch(len(g.Regions))
}

// SetGroups replaces the whole region table. Voices still referencing the
// old table are stranded by the epoch bump and fall silent on the next
// render.
func (e *Engine) SetGroups(groups []Group) {
	e.Clear()
	e.groups = append(e.groups[:0], groups...)
	for i := range e.groups {
		e.growScratch(len(e.groups[i].Regions))
	}
}

// Clear removes all groups and silences every voice.
func (e *Engine) Clear() {
	e.groups = e.groups[:0]
	e.roundRobin = [128]int{}
	e.activeGroup = 0
	e.epoch++
	e.Panic()
}

// RegionCount returns the total number of regions across all groups.
func (e *Engine) RegionCount() int {
	n := 0
	for i := range e.groups {
		n += len(e.groups[i].Regions)
	}
	return n
}

// GroupCount returns the number of groups.
func (e *Engine) GroupCount() int { return len(e.groups) }

// ActiveGroupIndex returns the index of the current articulation.
func (e *Engine) ActiveGroupIndex() int { return e.activeGroup }

// SetActiveGroup selects an articulation by index. Out-of-range indices are
// ignored.
func (e *Engine) SetActiveGroup(index int) {
	if index >= 0 && index < len(e.groups) {
		e.activeGroup = index
	}
}

// SetKeyswitch selects the articulation whose keyswitch matches note, if
// any, without producing sound.
func (e *Engine) SetKeyswitch(note int) {
	for i := range e.groups {
		if e.groups[i].Keyswitch == note {
			e.activeGroup = i
			return
		}
	}
}

// SetMaxVoices adjusts the polyphony limit at runtime.
func (e *Engine) SetMaxVoices(n int) {
	if n < 0 {
		n = 0
	}
	if n > poolCapacity {
		n = poolCapacity
	}
	e.maxVoices = n
}

// MaxVoices returns the current polyphony limit.
func (e *Engine) MaxVoices() int { return e.maxVoices }

// Preload decodes every region's sample file at the engine rate. Decoding
// never happens on the trigger path: a region that has not been preloaded
// (or whose file failed to decode) is unplayable and NoteOn treats it as
// "no match". Returns the number of regions that failed to load.
func (e *Engine) Preload() int {
	failed := 0
	for gi := range e.groups {
		for ri := range e.groups[gi].Regions {
			r := &e.groups[gi].Regions[ri]
			if r.Loaded || r.Failed {
				if r.Failed {
					failed++
				}
				continue
			}
			clip, err := wav.DecodeFile(r.Path, int(e.sampleRate))
			if err != nil {
				r.Failed = true
				failed++
				continue
			}
			installClip(r, clip)
		}
	}
	return failed
}

// installClip attaches decoded audio to a region and rescales its loop
// points into engine-rate frames.
func installClip(r *Region, clip *wav.Clip) {
	r.Samples = clip.Samples
	r.Frames = clip.Frames
	r.SampleRate = clip.Rate
	if r.LoopEnd == 0 {
		r.LoopEnd = uint64(r.Frames)
	} else {
		r.LoopStart = uint64(float64(r.LoopStart) * clip.Ratio)
		r.LoopEnd = uint64(float64(r.LoopEnd) * clip.Ratio)
	}
	if r.LoopEnd > uint64(r.Frames) {
		r.LoopEnd = uint64(r.Frames)
	}
	if r.LoopEnabled && r.LoopStart >= r.LoopEnd {
		r.LoopEnabled = false
	}
	r.Loaded = true
}

// NoteOn triggers a note. velocity is 0..1. Returns the voice slot used, or
// -1 when the note is a keyswitch, nothing matches, the matched region is
// not playable, or no slot could be found.
func (e *Engine) NoteOn(note int, velocity float64) int {
	if note < 0 || note > 127 {
		return -1
	}
	velocity = clamp(velocity, 0, 1)

	// Keyswitches never sound.
	for i := range e.groups {
		if e.groups[i].Keyswitch == note {
			e.activeGroup = i
			return -1
		}
	}

	ri, ok := e.resolveRegion(note, velocity)
	if !ok {
		return -1
	}
	group := &e.groups[e.activeGroup]
	region := &group.Regions[ri]
	if !region.Loaded || region.Failed {
		return -1
	}

	slot := e.findFreeVoice()
	if slot < 0 {
		slot = e.findVoiceToSteal()
	}
	if slot < 0 {
		return -1
	}

	e.noteCounter++
	v := &e.voices[slot]
	*v = voice{
		groupIdx:     e.activeGroup,
		regionIdx:    ri,
		epoch:        e.epoch,
		midiNote:     note,
		pitch:        pitchFromNote(note, region.RootNote, region.TuneCents),
		velocityGain: e.velocityCurve(velocity),
		pan:          region.Pan,
		volumeScale:  dbToLinear(region.VolumeDb + group.VolumeDb),
		stage:        stageAttack,
		attack:       override(group.Attack, e.params.AttackSec),
		decay:        override(group.Decay, e.params.DecaySec),
		sustain:      override(group.Sustain, e.params.SustainLvl),
		release:      override(group.Release, e.params.ReleaseSec),
		noteId:       e.noteCounter,
	}
	return slot
}

// NoteOff releases the first active, non-releasing voice playing note.
// Nothing happens if no such voice exists.
func (e *Engine) NoteOff(note int) {
	for i := 0; i < e.maxVoices && i < poolCapacity; i++ {
		v := &e.voices[i]
		if v.active() && !v.releasing() && v.midiNote == note {
			v.triggerRelease()
			return
		}
	}
}

// AllNotesOff gracefully releases every sounding voice.
func (e *Engine) AllNotesOff() {
	for i := range e.voices {
		e.voices[i].triggerRelease()
	}
}

// Panic immediately silences every voice, bypassing envelopes.
func (e *Engine) Panic() {
	for i := range e.voices {
		e.voices[i].reset()
	}
}

// ActiveVoiceCount returns the number of sounding voices within the current
// polyphony limit.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := 0; i < e.maxVoices && i < poolCapacity; i++ {
		if e.voices[i].active() {
			n++
		}
	}
	return n
}

// Process renders len(dst)/2 frames of interleaved stereo audio into dst.
// This is the realtime hot path: no allocation once the mix buffers have
// grown to the host's block size.
func (e *Engine) Process(dst []float32) {
	frames := len(dst) / 2
	if frames == 0 {
		return
	}
	if cap(e.mixL) < frames {
		e.mixL = make([]float32, frames)
		e.mixR = make([]float32, frames)
	}
	mixL := e.mixL[:frames]
	mixR := e.mixR[:frames]
	for i := 0; i < frames; i++ {
		mixL[i] = 0
		mixR[i] = 0
	}

	for i := 0; i < e.maxVoices && i < poolCapacity; i++ {
		e.processVoice(&e.voices[i], mixL, mixR, frames)
	}

	// Master volume plus polyphony normalization to keep the summed level
	// bounded as MaxVoices grows.
	denom := e.maxVoices
	if denom < 1 {
		denom = 1
	}
	scale := float32(e.masterGainValue() / math.Sqrt(float64(denom)))
	for i := 0; i < frames; i++ {
		dst[i*2] = mixL[i] * scale
		dst[i*2+1] = mixR[i] * scale
	}
}

// GenerateBlock renders frameCount frames into a freshly allocated
// interleaved stereo buffer.
func (e *Engine) GenerateBlock(frameCount int) []float32 {
	out := make([]float32, frameCount*2)
	e.Process(out)
	return out
}

// SetMasterGain sets the master gain atomically.
func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

// --- internal helpers ---

func (e *Engine) masterGainValue() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

func (e *Engine) findFreeVoice() int {
	for i := 0; i < e.maxVoices && i < poolCapacity; i++ {
		if !e.voices[i].active() {
			return i
		}
	}
	return -1
}

// findVoiceToSteal picks the active voice with the smallest noteId: the
// oldest triggered note still sounding, releasing or not. Deterministic
// FIFO-by-trigger-order, not quietest-voice.
func (e *Engine) findVoiceToSteal() int {
	steal := -1
	oldest := uint64(math.MaxUint64)
	for i := 0; i < e.maxVoices && i < poolCapacity; i++ {
		if e.voices[i].active() && e.voices[i].noteId < oldest {
			oldest = e.voices[i].noteId
			steal = i
		}
	}
	return steal
}

func (e *Engine) velocityCurve(velocity float64) float64 {
	c := e.params.VelCurve
	switch {
	case c < 0:
		return math.Pow(velocity, 1+c)
	case c > 0:
		return math.Pow(velocity, 1+c*2)
	}
	return velocity
}

func (e *Engine) growScratch(n int) {
	if cap(e.matchScratch) < n {
		e.matchScratch = make([]int, n)
	}
	e.matchScratch = e.matchScratch[:cap(e.matchScratch)]
}

func override(v, fallback float64) float64 {
	if v >= 0 {
		return v
	}
	return fallback
}

func pitchFromNote(playedNote, rootNote, tuneCents int) float64 {
	semitones := float64(playedNote-rootNote) + float64(tuneCents)/100.0
	return math.Pow(2, semitones/12.0)
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
