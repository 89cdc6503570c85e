package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const chimeSampleRate = 22050

// Tone is one sine segment of a chime.
type Tone struct {
	Hz       float64
	Duration time.Duration
}

// SynthesizePCM16 renders tones back to back as mono PCM16LE. Each tone is
// faded in and out to avoid clicks at the boundaries.
func SynthesizePCM16(sampleRate int, amplitude float64, tones ...Tone) []byte {
	if sampleRate <= 0 {
		sampleRate = chimeSampleRate
	}
	amplitude = math.Max(0, math.Min(1, amplitude))

	total := 0
	for _, t := range tones {
		total += samplesFor(t.Duration, sampleRate)
	}
	pcm := make([]byte, 0, total*2)
	for _, t := range tones {
		n := samplesFor(t.Duration, sampleRate)
		fade := n / 10
		for i := 0; i < n; i++ {
			env := 1.0
			switch {
			case fade > 0 && i < fade:
				env = float64(i) / float64(fade)
			case fade > 0 && i >= n-fade:
				env = float64(n-1-i) / float64(fade)
			}
			v := amplitude * env * math.Sin(2*math.Pi*t.Hz*float64(i)/float64(sampleRate))
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(v*math.MaxInt16)))
		}
	}
	return pcm
}

func samplesFor(d time.Duration, sampleRate int) int {
	if d <= 0 {
		return 0
	}
	return int(d.Seconds() * float64(sampleRate))
}

// FallbackChimeWAV is the descending two-tone clip played when a turn fails.
func FallbackChimeWAV() ([]byte, error) {
	pcm := SynthesizePCM16(chimeSampleRate, 0.35,
		Tone{Hz: 660, Duration: 180 * time.Millisecond},
		Tone{Hz: 440, Duration: 260 * time.Millisecond},
	)
	return EncodeWAVPCM16LE(pcm, chimeSampleRate)
}

// AckChimeWAV is the ascending clip returned by the offline synthesizer.
func AckChimeWAV() ([]byte, error) {
	pcm := SynthesizePCM16(chimeSampleRate, 0.3,
		Tone{Hz: 523.25, Duration: 140 * time.Millisecond},
		Tone{Hz: 659.25, Duration: 140 * time.Millisecond},
		Tone{Hz: 783.99, Duration: 200 * time.Millisecond},
	)
	return EncodeWAVPCM16LE(pcm, chimeSampleRate)
}
