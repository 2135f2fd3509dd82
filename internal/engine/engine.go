package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Madhi07/canvaEditTool-V7/internal/audio"
	"github.com/Madhi07/canvaEditTool-V7/internal/clip"
)

// Transport is the state the UI player reports on every update.
// CurrentTime and MasterVolume are optional; a bumped SeekGeneration
// marks the time report as a discrete seek rather than a continuous
// element-time reading.
type Transport struct {
	Playing        bool     `json:"playing"`
	CurrentTime    *float64 `json:"currentTime,omitempty"`
	SeekGeneration int64    `json:"seekGeneration"`
	MasterVolume   *float64 `json:"masterVolume,omitempty"`
}

// Status is a point-in-time readout for the UI.
type Status struct {
	CurrentTime   float64 `json:"currentTime"`
	Playing       bool    `json:"playing"`
	SessionToken  int64   `json:"sessionToken"`
	ActiveHandles int     `json:"activeHandles"`
	MasterVolume  float64 `json:"masterVolume"`
}

// Engine drives the playback clock, runs the scheduler diff once per
// tick, and renders the mixed output frames consumed by the monitor
// broadcaster. It is a pure function of (clip list, transport state);
// clip mutations re-enter through the store, never through the engine.
type Engine struct {
	store *clip.Store
	clock *Clock
	sched *Scheduler
	drift DriftPolicy

	frameCh chan []int16

	mu          sync.Mutex
	lastSeekGen int64
	followedSeg string // visual segment id the clock is following
}

// New wires an engine over the store and a decoded-buffer source.
func New(store *clip.Store, source BufferSource, drift DriftPolicy) *Engine {
	e := &Engine{
		store:   store,
		clock:   NewClock(),
		drift:   drift,
		frameCh: make(chan []int16, 100),
	}
	e.sched = NewScheduler(source, e.clock.CurrentTime)
	return e
}

// Frames returns the channel of mixed 20ms PCM frames.
func (e *Engine) Frames() <-chan []int16 {
	return e.frameCh
}

// Clock returns the playback clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Scheduler returns the audio scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.sched }

// Status returns the current transport readout.
func (e *Engine) Status() Status {
	return Status{
		CurrentTime:   e.clock.CurrentTime(),
		Playing:       e.clock.Playing(),
		SessionToken:  e.sched.Session(),
		ActiveHandles: e.sched.ActiveCount(),
		MasterVolume:  e.sched.MasterVolume(),
	}
}

// Run ticks the engine at the output frame rate until ctx is cancelled.
// Each tick: advance the clock (image segments self-advance), diff the
// scheduler, render one mixed frame, emit it. Paused transport emits
// silence so downstream encoders keep a continuous stream.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.frameCh)
	defer e.sched.StopAll()

	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame := e.step(ctx)

		select {
		case e.frameCh <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// step produces one output frame.
func (e *Engine) step(ctx context.Context) []int16 {
	playing := e.clock.Playing()
	if playing {
		if !e.clock.Advance(audio.SecondsPerFrame, e.store.VisualClips()) {
			// Transport just halted at the end of the last segment.
			log.Printf("Transport reached end of timeline at %.3fs", e.clock.CurrentTime())
			e.sched.StopAll()
			playing = false
		}
	}

	now := e.clock.CurrentTime()
	e.sched.Tick(ctx, now, playing, e.store.AudioClips())

	acc := make([]int32, audio.FrameSamples)
	if playing {
		e.sched.Render(acc, now)
	}
	return audio.ClampFrame(acc)
}

// Apply consumes a transport update from the UI. A changed seek
// generation is a discrete seek (stop everything, snap the clock); a
// play/pause toggle bumps the session token; a bare time report
// while a video segment is active steers the clock through the drift
// policy so micro-corrections never cause stutter.
func (e *Engine) Apply(t Transport) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t.MasterVolume != nil {
		e.sched.SetMasterVolume(*t.MasterVolume)
	}

	seeked := t.SeekGeneration > e.lastSeekGen
	if seeked {
		e.lastSeekGen = t.SeekGeneration
		e.sched.StopAll() // bumps the session token
		e.followedSeg = ""
		if t.CurrentTime != nil {
			e.clock.Seek(*t.CurrentTime)
		}
	}

	wasPlaying := e.clock.Playing()
	if t.Playing != wasPlaying {
		if t.Playing {
			e.sched.BumpSession()
		} else {
			e.sched.StopAll()
		}
		e.clock.SetPlaying(t.Playing)
	}

	if t.CurrentTime != nil && !seeked {
		e.followTime(*t.CurrentTime)
	}
}

// followTime handles a continuous element-time report: only video
// segments are externally driven, and only entry, seek, or real drift
// justifies a hard correction.
func (e *Engine) followTime(reported float64) {
	seg, ok := ActiveSegment(e.store.VisualClips(), e.clock.CurrentTime())
	if !ok || seg.Kind != clip.KindVideo {
		return
	}
	justEntered := seg.ID != e.followedSeg
	e.followedSeg = seg.ID

	drift := reported - e.clock.CurrentTime()
	if e.drift.ShouldReseek(drift, justEntered, false) {
		e.clock.Seek(reported)
	}
}

// Shutdown releases playback resources. The decode cache and output
// graph are process-wide; handles and pending decodes are invalidated
// here so nothing fires after teardown.
func (e *Engine) Shutdown() {
	e.sched.StopAll()
}
