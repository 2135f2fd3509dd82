package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Madhi07/canvaEditTool-V7/internal/audio"
	"github.com/Madhi07/canvaEditTool-V7/internal/clip"
	"github.com/Madhi07/canvaEditTool-V7/internal/decode"
)

// DefaultFade is the gain ramp applied at each clip boundary. Starting
// or ending a clip at full gain produces an audible click; the ramp is
// short enough to be inaudible as a fade but long enough to remove the
// discontinuity. Not optional.
const DefaultFade = 0.006

// watchdogSlack is added to a handle's scheduled end before the watchdog
// force-removes it, covering a missed or racing natural-end removal.
const watchdogSlack = 250 * time.Millisecond

// BufferSource supplies decoded audio for a source ref. *decode.Cache
// satisfies it.
type BufferSource interface {
	Get(ctx context.Context, sourceRef string) (*decode.Buffer, error)
}

// Snapshot captures the temporal fields a handle was scheduled under.
// If the clip is edited mid-playback these no longer match and the
// handle is stopped (and restarted with fresh values on the same tick).
type Snapshot struct {
	SourceRef string
	StartTime float64
	EndTime   float64
	TrimStart float64
	TrimEnd   float64
	Gain      float64
}

func snapshotOf(c clip.Clip) Snapshot {
	return Snapshot{
		SourceRef: c.SourceRef,
		StartTime: c.StartTime,
		EndTime:   c.EndTime,
		TrimStart: c.TrimStart,
		TrimEnd:   c.TrimEnd,
		Gain:      c.Gain,
	}
}

// Handle is one playing audio clip: its decoded buffer, the schedule
// instants, and the snapshot it was started under.
type Handle struct {
	ClipID       string
	Snap         Snapshot
	Buf          *decode.Buffer
	ScheduledAt  float64 // timeline instant playback began
	AssetOffset  float64 // seconds into the asset at ScheduledAt
	PlayDuration float64 // seconds of playback scheduled
	EndAt        float64 // ScheduledAt + PlayDuration

	watchdog *time.Timer
	stopped  bool
}

// StartMath computes the asset offset and play duration for starting a
// clip at scheduleTime. A non-positive duration means there is nothing
// left to play.
func StartMath(c clip.Clip, scheduleTime float64) (assetOffset, playDuration float64) {
	assetOffset = c.TrimStart + (scheduleTime - c.StartTime)
	playDuration = c.EndTime - scheduleTime
	if remain := c.AssetDuration - assetOffset; remain < playDuration {
		playDuration = remain
	}
	return assetOffset, playDuration
}

// Scheduler owns the active map of playback handles. Its per-tick diff
// is the sole writer; the mix loop reads handles under the same lock.
// Every asynchronous decode continuation is guarded by the session
// token: a monotonically increasing counter bumped on every play/pause
// toggle and every discrete seek, so a slow decode can never start audio
// the user has already navigated away from.
type Scheduler struct {
	source BufferSource
	nowFn  func() float64 // output clock readout for late-decode checks
	fade   float64

	session atomic.Int64

	mu      sync.Mutex
	active  map[string]*Handle
	pending map[string]struct{}
	master  float64
}

// NewScheduler creates a scheduler reading decoded audio from source and
// re-checking the output clock through nowFn when decodes resolve late.
func NewScheduler(source BufferSource, nowFn func() float64) *Scheduler {
	return &Scheduler{
		source:  source,
		nowFn:   nowFn,
		fade:    DefaultFade,
		active:  make(map[string]*Handle),
		pending: make(map[string]struct{}),
		master:  1.0,
	}
}

// SetFade overrides the boundary gain ramp length.
func (s *Scheduler) SetFade(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.fade = d.Seconds()
	s.mu.Unlock()
}

// Session returns the current session token.
func (s *Scheduler) Session() int64 {
	return s.session.Load()
}

// BumpSession invalidates every in-flight decode continuation.
func (s *Scheduler) BumpSession() int64 {
	return s.session.Add(1)
}

// SetMasterVolume rescales the shared output gain. Per-clip handles are
// untouched; the master factor is applied at mix time.
func (s *Scheduler) SetMasterVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.mu.Lock()
	s.master = v
	s.mu.Unlock()
}

// MasterVolume returns the shared output gain.
func (s *Scheduler) MasterVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.master
}

// ActiveCount returns the number of playing handles.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// ActiveIDs returns the clip ids with a playing handle.
func (s *Scheduler) ActiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

// handlesSnapshot returns the current handles.
func (s *Scheduler) handlesSnapshot() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Handle, 0, len(s.active))
	for _, h := range s.active {
		out = append(out, h)
	}
	return out
}

// Tick diffs the wanted clips against the active handles at the given
// playhead time. Wanted and active: keep, unless the clip was edited
// since scheduling, then stop and restart. Wanted without a handle:
// start. Active but no longer wanted: stop.
func (s *Scheduler) Tick(ctx context.Context, now float64, playing bool, audioClips []clip.Clip) {
	wanted := make(map[string]clip.Clip)
	if playing {
		for _, c := range audioClips {
			if c.Kind == clip.KindAudio && c.Contains(now) {
				wanted[c.ID] = c
			}
		}
	}

	s.mu.Lock()
	for id, h := range s.active {
		c, ok := wanted[id]
		if !ok || snapshotOf(c) != h.Snap {
			s.stopLocked(h)
		}
	}
	token := s.session.Load()
	for id, c := range wanted {
		if _, ok := s.active[id]; ok {
			continue
		}
		if _, ok := s.pending[id]; ok {
			continue
		}
		s.pending[id] = struct{}{}
		go s.startClip(ctx, token, c)
	}
	s.mu.Unlock()
}

// startClip is the asynchronous decode-then-schedule continuation. It
// captured the session token at launch and aborts without side effects
// if the token has since changed.
func (s *Scheduler) startClip(ctx context.Context, token int64, c clip.Clip) {
	defer func() {
		s.mu.Lock()
		delete(s.pending, c.ID)
		s.mu.Unlock()
	}()

	buf, err := s.source.Get(ctx, c.SourceRef)
	if err != nil {
		// Degrade: this clip silently does not play this cycle.
		log.Printf("Clip %s: decode unavailable: %v", c.ID, err)
		return
	}

	if s.session.Load() != token {
		return // stale: user paused or seeked while decoding
	}

	now := s.nowFn()
	if !c.Contains(now) {
		return // playhead left the window during the decode
	}

	assetOffset, playDuration := StartMath(c, now)
	if playDuration <= 0 {
		log.Printf("Clip %s: %v (offset %.3f)", c.ID, ErrScheduleRejected, assetOffset)
		return
	}

	h := &Handle{
		ClipID:       c.ID,
		Snap:         snapshotOf(c),
		Buf:          buf,
		ScheduledAt:  now,
		AssetOffset:  assetOffset,
		PlayDuration: playDuration,
		EndAt:        now + playDuration,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Load() != token {
		return
	}
	if _, ok := s.active[c.ID]; ok {
		return
	}
	// Watchdog: guarantee removal after the scheduled end even if the
	// natural end is missed by a race.
	h.watchdog = time.AfterFunc(time.Duration(playDuration*float64(time.Second))+watchdogSlack, func() {
		s.expire(c.ID, h)
	})
	s.active[c.ID] = h
}

// StopAll bumps the session token and stops every active handle. Used on
// pause, discrete seek, and teardown. In-flight decodes self-cancel once
// they observe the new token.
func (s *Scheduler) StopAll() {
	s.BumpSession()
	s.mu.Lock()
	for _, h := range s.active {
		s.stopLocked(h)
	}
	s.mu.Unlock()
}

// stopLocked releases a handle: cancels its watchdog and removes it from
// the active map. Safe to call more than once.
func (s *Scheduler) stopLocked(h *Handle) {
	if h.stopped {
		return
	}
	h.stopped = true
	if h.watchdog != nil {
		h.watchdog.Stop()
	}
	delete(s.active, h.ClipID)
}

func (s *Scheduler) expire(id string, h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[id] == h {
		s.stopLocked(h)
	}
}

// Render mixes every active handle into the int32 accumulator frame
// starting at timeline instant now. Each sample gets the boundary ramp
// times clip gain times master volume; handles whose window has passed
// are dropped (natural end).
func (s *Scheduler) Render(acc []int32, now float64) {
	frames := len(acc) / audio.Channels

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.active {
		base := (now - h.Snap.StartTime + h.Snap.TrimStart) * audio.SampleRate
		for j := 0; j < frames; j++ {
			t := now + float64(j)/audio.SampleRate
			if t < h.ScheduledAt || t >= h.EndAt {
				continue
			}
			g := audio.RampGain(t-h.ScheduledAt, h.PlayDuration, s.fade) * h.Snap.Gain * s.master
			if g <= 0 {
				continue
			}
			l, r := h.Buf.FrameAt(int(base) + j)
			acc[j*audio.Channels] += int32(float64(l) * g)
			acc[j*audio.Channels+1] += int32(float64(r) * g)
		}
		if now >= h.EndAt {
			s.stopLocked(h)
		}
	}
}
