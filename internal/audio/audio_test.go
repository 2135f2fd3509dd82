package audio

import (
	"testing"
	"time"
)

// --- Constants ---

func TestConstants(t *testing.T) {
	// 48kHz * 20ms = 960 samples per channel
	if got := SampleRate * int(FrameDuration/time.Millisecond) / 1000; got != FrameSize {
		t.Errorf("FrameSize mismatch: want %d, got %d", got, FrameSize)
	}
	if FrameSamples != FrameSize*Channels {
		t.Errorf("FrameSamples = %d, want %d", FrameSamples, FrameSize*Channels)
	}
	if FrameBytes != FrameSamples*2 {
		t.Errorf("FrameBytes = %d, want %d", FrameBytes, FrameSamples*2)
	}
}

func TestSecondsSampleConversion(t *testing.T) {
	if got := SecondsToSamples(1.0); got != SampleRate {
		t.Errorf("SecondsToSamples(1.0) = %d, want %d", got, SampleRate)
	}
	if got := SecondsToSamples(-1.0); got != 0 {
		t.Errorf("SecondsToSamples(-1.0) = %d, want 0", got)
	}
	if got := SamplesToSeconds(SampleRate / 2); got != 0.5 {
		t.Errorf("SamplesToSeconds = %v, want 0.5", got)
	}
	if SecondsPerFrame != 0.02 {
		t.Errorf("SecondsPerFrame = %v, want 0.02", SecondsPerFrame)
	}
}

// --- Smoothstep ---

func TestSmoothstepBoundaries(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}
	for _, tt := range tests {
		got := Smoothstep(tt.input)
		if got != tt.want {
			t.Errorf("Smoothstep(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSmoothstepMonotonic(t *testing.T) {
	prev := 0.0
	for i := 1; i <= 100; i++ {
		x := float64(i) / 100.0
		val := Smoothstep(x)
		if val < prev {
			t.Errorf("Smoothstep not monotonic: f(%v)=%v < f(%v)=%v", x, val, float64(i-1)/100.0, prev)
		}
		prev = val
	}
}

// --- RampGain ---

func TestRampGainBoundaries(t *testing.T) {
	const dur, fade = 2.0, 0.006
	tests := []struct {
		name string
		pos  float64
		want float64
	}{
		{"before start", -0.001, 0},
		{"exact start", 0, 0},
		{"past fade-in", fade, 1},
		{"middle", 1.0, 1},
		{"exact end", dur, 0},
		{"past end", dur + 0.001, 0},
	}
	for _, tt := range tests {
		if got := RampGain(tt.pos, dur, fade); got != tt.want {
			t.Errorf("%s: RampGain(%v) = %v, want %v", tt.name, tt.pos, got, tt.want)
		}
	}
}

func TestRampGainMidFade(t *testing.T) {
	// Halfway into the fade window the smoothstep midpoint applies.
	got := RampGain(0.003, 2.0, 0.006)
	if got != 0.5 {
		t.Errorf("RampGain at fade midpoint = %v, want 0.5", got)
	}
}

func TestRampGainZeroFade(t *testing.T) {
	if got := RampGain(0.5, 1.0, 0); got != 1 {
		t.Errorf("RampGain with no fade = %v, want 1", got)
	}
}

func TestRampGainShortSegment(t *testing.T) {
	// Segment shorter than two fade windows never reaches full gain.
	const dur, fade = 0.008, 0.006
	for pos := 0.001; pos < dur; pos += 0.001 {
		if got := RampGain(pos, dur, fade); got >= 1 {
			t.Errorf("RampGain(%v) = %v, want < 1 on short segment", pos, got)
		}
	}
}

// --- ClampFrame ---

func TestClampFrameSaturates(t *testing.T) {
	acc := []int32{0, 100, -100, 40000, -40000, 32767, -32768}
	want := []int16{0, 100, -100, 32767, -32768, 32767, -32768}
	got := ClampFrame(acc)
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ClampFrame[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// --- SamplesToBytes ---

func TestSamplesToBytesLittleEndian(t *testing.T) {
	samples := []int16{0x0102, -1}
	got := SamplesToBytes(samples)
	want := []byte{0x02, 0x01, 0xff, 0xff}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("byte[%d] = %#x, want %#x", i, got[i], want[i])
		}
	}
}
