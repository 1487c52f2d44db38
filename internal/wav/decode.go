package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// Clip is a decoded audio file: stereo interleaved float32 frames at the
// rate requested by the caller. Ratio is target rate / source rate; loop
// points expressed in source frames must be scaled by it.
type Clip struct {
	Samples []float32 // interleaved [L0, R0, L1, R1, ...]
	Frames  int
	Rate    int
	Ratio   float64
}

var (
	ErrNotWAV            = errors.New("wav: not a RIFF/WAVE file")
	ErrUnsupportedFormat = errors.New("wav: unsupported sample format")
	ErrNoData            = errors.New("wav: missing fmt or data chunk")
)

// DecodeFile reads and decodes a WAV file, resampled to targetRate.
func DecodeFile(path string, targetRate int) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data, targetRate)
}

// Decode parses a RIFF/WAVE container and returns a stereo clip at
// targetRate. Supported encodings: PCM16, PCM24, and 32-bit IEEE float.
// Mono sources are duplicated to both channels.
func Decode(data []byte, targetRate int) (*Clip, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	var (
		audioFormat uint16
		channels    uint16
		srcRate     uint32
		bits        uint16
		raw         []float64
	)

	// Chunk scan: only fmt and data matter, everything else is skipped.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrNotWAV
			}
			audioFormat = binary.LittleEndian.Uint16(data[body:])
			channels = binary.LittleEndian.Uint16(data[body+2:])
			srcRate = binary.LittleEndian.Uint32(data[body+4:])
			bits = binary.LittleEndian.Uint16(data[body+14:])
		case "data":
			var err error
			raw, err = decodeSamples(data[body:body+size], audioFormat, bits)
			if err != nil {
				return nil, err
			}
		}
		pos = body + size
		if pos%2 == 1 {
			pos++ // chunks are word aligned
		}
		if raw != nil {
			break
		}
	}

	if raw == nil || channels == 0 || srcRate == 0 {
		return nil, ErrNoData
	}
	inFrames := len(raw) / int(channels)
	if inFrames == 0 {
		return nil, ErrNoData
	}
	return resample(raw, int(channels), int(srcRate), targetRate, inFrames), nil
}

func decodeSamples(body []byte, format uint16, bits uint16) ([]float64, error) {
	switch {
	case bits == 16:
		n := len(body) / 2
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(body[i*2:]))
			out[i] = float64(v) / 32768.0
		}
		return out, nil
	case bits == 24:
		n := len(body) / 3
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			b := body[i*3 : i*3+3]
			v := int32(b[2])<<16 | int32(b[1])<<8 | int32(b[0])
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF) // sign extend
			}
			out[i] = float64(v) / 8388608.0
		}
		return out, nil
	case bits == 32 && format == 3:
		n := len(body) / 4
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:])))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: format=%d bits=%d", ErrUnsupportedFormat, format, bits)
}

// resample converts raw interleaved samples to stereo at targetRate using
// linear interpolation. A ratio of 1.0 preserves the frame count exactly.
func resample(raw []float64, channels, srcRate, targetRate, inFrames int) *Clip {
	ratio := float64(targetRate) / float64(srcRate)
	outFrames := int(float64(inFrames) * ratio)
	if outFrames < 1 {
		outFrames = 1
	}

	out := make([]float32, outFrames*2)
	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) / ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)
		if srcIdx >= inFrames-1 {
			srcIdx = inFrames - 2
			frac = 1.0
			if srcIdx < 0 { // single-frame source
				srcIdx = 0
				frac = 0
			}
		}
		next := srcIdx + 1
		if next >= inFrames {
			next = srcIdx
		}
		for ch := 0; ch < 2; ch++ {
			srcCh := ch
			if channels == 1 {
				srcCh = 0
			}
			s0 := raw[srcIdx*channels+srcCh]
			s1 := raw[next*channels+srcCh]
			out[i*2+ch] = float32(s0 + frac*(s1-s0))
		}
	}

	return &Clip{
		Samples: out,
		Frames:  outFrames,
		Rate:    targetRate,
		Ratio:   ratio,
	}
}
