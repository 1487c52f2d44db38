package wav

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeFloat32PassThrough(t *testing.T) {
	// A stereo clip already at the target rate must keep its frame count.
	const frames = 480
	src := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		s := float32(math.Sin(2 * math.Pi * 220 * float64(i) / 48000))
		src[i*2] = s
		src[i*2+1] = -s
	}
	clip, err := Decode(Encode(src, 48000, 2), 48000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if clip.Frames != frames {
		t.Fatalf("frames = %d, want %d", clip.Frames, frames)
	}
	if clip.Ratio != 1.0 {
		t.Fatalf("ratio = %v, want 1.0", clip.Ratio)
	}
	for i := range src {
		if math.Abs(float64(clip.Samples[i]-src[i])) > 1e-6 {
			t.Fatalf("sample %d = %v, want %v", i, clip.Samples[i], src[i])
		}
	}
}

func TestDecodePCM16Mono(t *testing.T) {
	src := []float32{0, 0.5, -0.5, 1}
	clip, err := Decode(EncodePCM16(src, 48000, 1), 48000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if clip.Frames != len(src) {
		t.Fatalf("frames = %d, want %d", clip.Frames, len(src))
	}
	// Mono duplicated into both channels.
	for i := 0; i < clip.Frames; i++ {
		l, r := clip.Samples[i*2], clip.Samples[i*2+1]
		if l != r {
			t.Fatalf("frame %d: L=%v R=%v, want equal", i, l, r)
		}
		if math.Abs(float64(l-src[i])) > 1e-3 {
			t.Fatalf("frame %d = %v, want ~%v", i, l, src[i])
		}
	}
}

func TestDecodePCM24SignExtension(t *testing.T) {
	// Hand-build a tiny 24-bit mono file with one positive and one
	// negative full-scale-ish sample.
	body := []byte{
		0x00, 0x00, 0x40, // +0x400000 = half scale
		0x00, 0x00, 0xC0, // -0x400000
	}
	data := buildWAV(t, 1, 1, 48000, 24, body)
	clip, err := Decode(data, 48000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if clip.Frames != 2 {
		t.Fatalf("frames = %d, want 2", clip.Frames)
	}
	if got := clip.Samples[0]; math.Abs(float64(got)-0.5) > 1e-6 {
		t.Fatalf("positive sample = %v, want 0.5", got)
	}
	if got := clip.Samples[2]; math.Abs(float64(got)+0.5) > 1e-6 {
		t.Fatalf("negative sample = %v, want -0.5", got)
	}
}

func TestDecodeResamplesToTargetRate(t *testing.T) {
	const srcFrames = 1000
	src := make([]float32, srcFrames)
	for i := range src {
		src[i] = float32(i) / srcFrames
	}
	clip, err := Decode(EncodePCM16(src, 24000, 1), 48000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if clip.Ratio != 2.0 {
		t.Fatalf("ratio = %v, want 2.0", clip.Ratio)
	}
	if clip.Frames != srcFrames*2 {
		t.Fatalf("frames = %d, want %d", clip.Frames, srcFrames*2)
	}
}

func TestDecodeRejectsUnsupportedBitDepth(t *testing.T) {
	data := buildWAV(t, 1, 1, 48000, 8, []byte{0x80, 0x80})
	if _, err := Decode(data, 48000); err == nil {
		t.Fatal("expected error for 8-bit PCM")
	}
}

func TestDecodeRejectsNonWAV(t *testing.T) {
	if _, err := Decode([]byte("definitely not a riff container"), 48000); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestDecodeSkipsUnknownChunks(t *testing.T) {
	src := []float32{0.25, -0.25}
	data := EncodePCM16(src, 48000, 1)
	// Splice a junk chunk between the header and fmt.
	junk := make([]byte, 8+6)
	copy(junk, []byte("JUNK"))
	binary.LittleEndian.PutUint32(junk[4:], 6)
	spliced := append(append(append([]byte{}, data[:12]...), junk...), data[12:]...)
	binary.LittleEndian.PutUint32(spliced[4:], uint32(len(spliced)-8))
	clip, err := Decode(spliced, 48000)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if clip.Frames != 2 {
		t.Fatalf("frames = %d, want 2", clip.Frames)
	}
}

func buildWAV(t *testing.T, format, channels uint16, rate uint32, bits uint16, body []byte) []byte {
	t.Helper()
	out := make([]byte, 44+len(body))
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(36+len(body)))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], format)
	binary.LittleEndian.PutUint16(out[22:], channels)
	binary.LittleEndian.PutUint32(out[24:], rate)
	binary.LittleEndian.PutUint32(out[28:], rate*uint32(channels)*uint32(bits)/8)
	binary.LittleEndian.PutUint16(out[32:], channels*bits/8)
	binary.LittleEndian.PutUint16(out[34:], bits)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(len(body)))
	copy(out[44:], body)
	return out
}
