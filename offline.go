package multisampler

import (
	intsampler "github.com/cbegin/multisampler-go/internal/sampler"
	intwav "github.com/cbegin/multisampler-go/internal/wav"
)

// NoteEvent schedules one note for offline rendering. Frame and Duration
// are in output frames at the engine rate.
type NoteEvent struct {
	Frame    int
	Duration int
	Note     int
	Velocity float64
}

// renderBlockFrames is the fixed block size used for offline rendering.
// Events are quantized to block boundaries, mirroring how a realtime host
// pulls audio.
const renderBlockFrames = 256

// RenderEvents renders a schedule of note events through the engine into an
// interleaved stereo buffer of frameCount frames. Events must be ordered by
// Frame.
func RenderEvents(e *intsampler.Engine, events []NoteEvent, frameCount int) []float32 {
	out := make([]float32, frameCount*2)
	offs := make([]NoteEvent, 0, len(events))
	next := 0

	for start := 0; start < frameCount; start += renderBlockFrames {
		frames := renderBlockFrames
		if start+frames > frameCount {
			frames = frameCount - start
		}

		for next < len(events) && events[next].Frame < start+frames {
			ev := events[next]
			next++
			e.NoteOn(ev.Note, ev.Velocity)
			if ev.Duration > 0 {
				ev.Frame += ev.Duration
				offs = append(offs, ev)
			}
		}
		remaining := offs[:0]
		for _, ev := range offs {
			if ev.Frame < start+frames {
				e.NoteOff(ev.Note)
			} else {
				remaining = append(remaining, ev)
			}
		}
		offs = remaining

		e.Process(out[start*2 : (start+frames)*2])
	}
	return out
}

// EncodeWAVFloat32LE wraps the interleaved samples in a 32-bit float WAV
// container.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	return intwav.Encode(samples, sampleRate, channels)
}
