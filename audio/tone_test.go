package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestToneLength(t *testing.T) {
	seg := Tone(880, 180*time.Millisecond, 48000, 0.5)
	if want := 48000 * 180 / 1000 * 2; len(seg.Data) != want {
		t.Fatalf("len(Data) = %d, want %d", len(seg.Data), want)
	}
	if seg.Duration != 180*time.Millisecond {
		t.Fatalf("Duration = %v", seg.Duration)
	}
}

func TestToneFadesAtEdges(t *testing.T) {
	seg := Tone(440, 100*time.Millisecond, 8000, 1)
	first := int16(binary.LittleEndian.Uint16(seg.Data[0:]))
	last := int16(binary.LittleEndian.Uint16(seg.Data[len(seg.Data)-2:]))
	if first != 0 || last != 0 {
		t.Fatalf("edge samples = %d, %d, want 0, 0", first, last)
	}
}

func TestToneLevel(t *testing.T) {
	seg := Tone(1000, time.Second, 48000, 0.5)
	// a sine's RMS is peak/sqrt(2); fades shave a little off
	want := 0.5 * math.MaxInt16 / math.Sqrt2
	if got := seg.RMS(); got < want*0.95 || got > want*1.01 {
		t.Fatalf("RMS() = %.0f, want about %.0f", got, want)
	}

	if got := Tone(1000, time.Second, 48000, 0).RMS(); got != 0 {
		t.Fatalf("silent RMS() = %v, want 0", got)
	}
}
