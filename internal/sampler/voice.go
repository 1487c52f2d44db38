package sampler

import "math"

// voice is one pool slot. It references its region by group/region index
// plus the table epoch, never by pointer: a preset reload bumps the epoch
// and strands any voice still pointing at the old table.
type voice struct {
	groupIdx  int
	regionIdx int
	epoch     uint32

	midiNote     int
	position     float64 // fractional frame position in the region buffer
	pitch        float64 // playback-rate multiplier
	velocityGain float64
	pan          float64
	volumeScale  float64

	stage        envStage
	value        float64
	progress     float64
	releaseStart float64
	attack       float64
	decay        float64
	sustain      float64
	release      float64

	noteId uint64 // monotonically increasing, used for oldest-first stealing
}

func (v *voice) active() bool    { return v.stage != stageIdle }
func (v *voice) releasing() bool { return v.stage == stageRelease }

func (v *voice) reset() {
	v.stage = stageIdle
	v.value = 0
	v.midiNote = -1
}

// sampleAt fetches one channel at a fractional frame position with linear
// interpolation, clamped at the buffer end.
func sampleAt(r *Region, position float64, channel int) float64 {
	if len(r.Samples) == 0 {
		return 0
	}
	p0 := int(position)
	if p0 >= r.Frames {
		return 0
	}
	p1 := p0 + 1
	if p1 >= r.Frames {
		p1 = p0
	}
	frac := position - float64(p0)
	s0 := float64(r.Samples[p0*2+channel])
	s1 := float64(r.Samples[p1*2+channel])
	return s0 + frac*(s1-s0)
}

// processVoice renders frames samples of one voice into the accumulators,
// advancing envelope and position in lock-step one sample at a time.
func (e *Engine) processVoice(v *voice, mixL, mixR []float32, frames int) {
	if !v.active() {
		return
	}
	if v.epoch != e.epoch ||
		v.groupIdx < 0 || v.groupIdx >= len(e.groups) ||
		v.regionIdx < 0 || v.regionIdx >= len(e.groups[v.groupIdx].Regions) {
		v.reset()
		return
	}
	region := &e.groups[v.groupIdx].Regions[v.regionIdx]

	for i := 0; i < frames; i++ {
		e.advanceEnvelope(v)
		if v.stage == stageIdle {
			return
		}

		// End-of-buffer handling before the fetch. The segment past
		// loopEnd plays through on the first pass; only running off the
		// buffer wraps back into the loop.
		if v.position >= float64(region.Frames) {
			wrapped := false
			if region.LoopEnabled {
				loopEnd := region.LoopEnd
				if loopEnd == 0 || loopEnd > uint64(region.Frames) {
					loopEnd = uint64(region.Frames)
				}
				if loopLen := loopEnd - region.LoopStart; loopLen > 0 {
					start := float64(region.LoopStart)
					v.position = start + math.Mod(v.position-start, float64(loopLen))
					wrapped = true
				}
			}
			if !wrapped {
				// Ran off the end: let the envelope fade out.
				v.triggerRelease()
				v.position = float64(region.Frames)
			}
		}

		gain := v.value * v.velocityGain * v.volumeScale
		l := sampleAt(region, v.position, 0) * gain
		r := sampleAt(region, v.position, 1) * gain

		panL := 1.0 - math.Max(0, v.pan)
		panR := 1.0 + math.Min(0, v.pan)

		mixL[i] += float32(l * panL)
		mixR[i] += float32(r * panR)

		v.position += v.pitch
	}
}

