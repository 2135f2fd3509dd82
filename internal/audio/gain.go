package audio

import "encoding/binary"

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// RampGain returns the boundary gain for a playback position pos seconds
// into a segment of length dur seconds, with a fade window of fade
// seconds at each end: 0 at the exact boundary, 1 once pos is at least
// fade away from both edges, smoothstep-shaped in between. Outside
// [0,dur) the gain is 0.
func RampGain(pos, dur, fade float64) float64 {
	if pos < 0 || pos >= dur {
		return 0
	}
	if fade <= 0 {
		return 1
	}
	up := pos / fade
	down := (dur - pos) / fade
	g := up
	if down < g {
		g = down
	}
	return Smoothstep(g)
}

// ClampFrame narrows an int32 accumulator frame to int16 with saturation.
func ClampFrame(acc []int32) []int16 {
	out := make([]int16, len(acc))
	for i, v := range acc {
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
