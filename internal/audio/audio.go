package audio

import "time"

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// SecondsPerFrame is the timeline advance of one output frame.
const SecondsPerFrame = float64(FrameSize) / float64(SampleRate)

// SecondsToSamples converts seconds to a whole per-channel sample count
// at the engine rate.
func SecondsToSamples(sec float64) int {
	if sec <= 0 {
		return 0
	}
	return int(sec * SampleRate)
}

// SamplesToSeconds converts a per-channel sample count to seconds.
func SamplesToSeconds(n int) float64 {
	return float64(n) / float64(SampleRate)
}
