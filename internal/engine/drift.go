package engine

// DefaultDriftThreshold is the continuous-playback drift beyond which a
// hard reseek is applied, in seconds.
const DefaultDriftThreshold = 0.25

// DriftPolicy decides when an externally reported playback time should
// hard-correct the engine clock. Micro-corrections during continuous
// playback are deliberately suppressed to avoid audible stutter; the
// clock is only snapped on a discrete seek, on entry into a segment's
// active window, or once drift exceeds the threshold.
type DriftPolicy struct {
	Threshold float64 // seconds; DefaultDriftThreshold when zero
}

// ShouldReseek reports whether the clock should hard-snap to the
// reported time.
func (p DriftPolicy) ShouldReseek(drift float64, justEntered, seeked bool) bool {
	if seeked || justEntered {
		return true
	}
	th := p.Threshold
	if th <= 0 {
		th = DefaultDriftThreshold
	}
	if drift < 0 {
		drift = -drift
	}
	return drift > th
}
