package engine

import (
	"sync"

	"github.com/Madhi07/canvaEditTool-V7/internal/clip"
)

const (
	// MaxTickDelta clamps a single self-advance step so a stalled tick
	// (debugger, backgrounded tab, GC pause) cannot jump the playhead.
	MaxTickDelta = 0.25

	// SegmentSnap is how far inside an image segment's window the clock
	// lands when transitioning into it. Landing exactly on the boundary
	// would make the first tick look like the segment already finished.
	SegmentSnap = 0.001
)

// Clock is the single moving playhead. While the active visual segment
// is a video, time is driven externally (the media element reports it);
// while it is an image, the clock drives itself once per tick.
type Clock struct {
	mu      sync.Mutex
	current float64
	playing bool
}

// NewClock creates a halted clock at time zero.
func NewClock() *Clock {
	return &Clock{}
}

// CurrentTime returns the playhead position in timeline seconds.
func (c *Clock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Playing reports whether the transport is running.
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// SetPlaying starts or halts the transport.
func (c *Clock) SetPlaying(v bool) {
	c.mu.Lock()
	c.playing = v
	c.mu.Unlock()
}

// Seek snaps the playhead to t.
func (c *Clock) Seek(t float64) {
	if t < 0 {
		t = 0
	}
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// ActiveSegment returns the visual clip whose window contains t.
// The clips must be reflowed (ordered, gapless).
func ActiveSegment(visual []clip.Clip, t float64) (clip.Clip, bool) {
	for _, c := range visual {
		if c.Contains(t) {
			return c, true
		}
	}
	return clip.Clip{}, false
}

// Advance self-advances the playhead by delta seconds when the active
// visual segment is an image. Video segments are left alone (their media
// element drives time). Exhausting an image's window moves the playhead
// just inside the next segment; exhausting the last segment halts the
// transport. Returns whether the transport is still running.
func (c *Clock) Advance(delta float64, visual []clip.Clip) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.playing {
		return false
	}
	if delta > MaxTickDelta {
		delta = MaxTickDelta
	}
	if delta < 0 {
		delta = 0
	}

	seg, ok := ActiveSegment(visual, c.current)
	if !ok {
		// Playhead past the last segment (or empty timeline): halt.
		c.playing = false
		return false
	}
	if seg.Kind == clip.KindVideo {
		return true
	}

	c.current += delta
	if c.current < seg.EndTime {
		return true
	}

	next, ok := ActiveSegment(visual, seg.EndTime)
	if !ok {
		c.current = seg.EndTime
		c.playing = false
		return false
	}
	if next.Kind == clip.KindImage {
		c.current = next.StartTime + SegmentSnap
	} else {
		c.current = next.StartTime
	}
	return true
}
