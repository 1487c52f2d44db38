package sampler

type envStage int

const (
	stageIdle envStage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

// minStageTime keeps every envelope stage at least 1 ms long so zero-length
// stages neither divide by zero nor click.
const minStageTime = 0.001

// advanceEnvelope steps a voice's envelope by one sample period and stores
// the resulting 0..1 amplitude in v.value. All segments are linear.
func (e *Engine) advanceEnvelope(v *voice) {
	if v.stage == stageIdle {
		return
	}
	dt := 1.0 / e.sampleRate

	switch v.stage {
	case stageAttack:
		t := v.attack
		if t < minStageTime {
			t = minStageTime
		}
		v.progress += dt / t
		if v.progress >= 1 {
			v.progress = 0
			v.stage = stageDecay
		}
	case stageDecay:
		t := v.decay
		if t < minStageTime {
			t = minStageTime
		}
		v.progress += dt / t
		if v.progress >= 1 {
			v.progress = 0
			v.stage = stageSustain
		}
	case stageSustain:
		// Held until noteOff.
	case stageRelease:
		t := v.release
		if t < minStageTime {
			t = minStageTime
		}
		v.progress += dt / t
		if v.progress >= 1 {
			v.stage = stageIdle
			v.value = 0
			return
		}
	}

	v.value = envelopeValue(v)
}

// envelopeValue computes the current amplitude from the stage and progress.
func envelopeValue(v *voice) float64 {
	switch v.stage {
	case stageAttack:
		return v.progress
	case stageDecay:
		return 1.0 - v.progress*(1.0-v.sustain)
	case stageSustain:
		return v.sustain
	case stageRelease:
		return v.releaseStart * (1.0 - v.progress)
	default:
		return 0
	}
}

// triggerRelease moves a voice into Release from any sounding stage,
// capturing the current output value as the release starting point.
func (v *voice) triggerRelease() {
	if v.stage == stageIdle || v.stage == stageRelease {
		return
	}
	v.releaseStart = v.value
	v.progress = 0
	v.stage = stageRelease
}
