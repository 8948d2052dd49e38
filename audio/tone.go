package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Segment is mono 16-bit little-endian PCM
type Segment struct {
	Data       []byte
	SampleRate uint32
	Duration   time.Duration
}

// fade keeps the tone from clicking at either end
const fade = 10 * time.Millisecond

// Tone synthesizes a sine wave at freq Hz with short linear fades
func Tone(freq float64, d time.Duration, sampleRate uint32, volume float64) Segment {
	n := int(d.Seconds() * float64(sampleRate))
	fadeN := int(fade.Seconds() * float64(sampleRate))
	if fadeN*2 > n {
		fadeN = n / 2
	}
	amp := math.Max(0, math.Min(volume, 1)) * math.MaxInt16

	data := make([]byte, n*2)
	for i := 0; i < n; i++ {
		gain := 1.0
		if fadeN > 0 {
			switch {
			case i < fadeN:
				gain = float64(i) / float64(fadeN)
			case i >= n-fadeN:
				gain = float64(n-1-i) / float64(fadeN)
			}
		}
		v := amp * gain * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(v)))
	}

	return Segment{Data: data, SampleRate: sampleRate, Duration: d}
}

// RMS is the root mean square sample level
func (seg Segment) RMS() float64 {
	numSamples := len(seg.Data) / 2
	if numSamples == 0 {
		return 0
	}

	var sumSquares float64
	for i := 0; i < numSamples; i++ {
		sample := int16(binary.LittleEndian.Uint16(seg.Data[i*2:]))
		sumSquares += float64(sample) * float64(sample)
	}
	return math.Sqrt(sumSquares / float64(numSamples))
}
