package engine

import (
	"context"
	"testing"
	"time"

	"github.com/Madhi07/canvaEditTool-V7/internal/clip"
	"github.com/Madhi07/canvaEditTool-V7/internal/decode"
)

func newTestEngine(t *testing.T, buffers map[string]*decode.Buffer) (*Engine, *clip.Store, *fakeSource) {
	t.Helper()
	store := clip.NewStore()
	src := &fakeSource{buffers: buffers}
	e := New(store, src, DriftPolicy{})
	return e, store, src
}

func floatPtr(v float64) *float64 { return &v }

func TestApplyPlayPauseBumpsSession(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	before := e.Scheduler().Session()
	e.Apply(Transport{Playing: true})
	if e.Scheduler().Session() <= before {
		t.Error("play did not bump the session token")
	}
	if !e.Clock().Playing() {
		t.Error("play did not start the clock")
	}

	mid := e.Scheduler().Session()
	e.Apply(Transport{Playing: false})
	if e.Scheduler().Session() <= mid {
		t.Error("pause did not bump the session token")
	}
	if e.Clock().Playing() {
		t.Error("pause did not halt the clock")
	}
}

func TestApplyRepeatedStateIsNoop(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	e.Apply(Transport{Playing: true})
	token := e.Scheduler().Session()

	// Same transport state again: no toggle, no token churn.
	e.Apply(Transport{Playing: true})
	if got := e.Scheduler().Session(); got != token {
		t.Errorf("session = %d after repeated play, want %d", got, token)
	}
}

func TestApplyDiscreteSeek(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	e.Apply(Transport{Playing: true})
	token := e.Scheduler().Session()

	e.Apply(Transport{Playing: true, CurrentTime: floatPtr(7.5), SeekGeneration: 1})
	if got := e.Clock().CurrentTime(); got != 7.5 {
		t.Errorf("CurrentTime = %.3f after seek, want 7.5", got)
	}
	if e.Scheduler().Session() <= token {
		t.Error("discrete seek did not bump the session token")
	}

	// Replaying the same generation is not another seek.
	e.Apply(Transport{Playing: true, CurrentTime: floatPtr(7.6), SeekGeneration: 1})
	if got := e.Clock().CurrentTime(); got == 7.6 {
		t.Error("stale seek generation treated as a discrete seek")
	}
}

func TestApplyMasterVolume(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	e.Apply(Transport{MasterVolume: floatPtr(0.3)})
	if got := e.Scheduler().MasterVolume(); got != 0.3 {
		t.Errorf("MasterVolume = %.3f, want 0.3", got)
	}
}

func TestFollowTimeDriftSuppression(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	if _, err := store.Add(clip.New(clip.KindVideo, "v.mp4", 10)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	e.Apply(Transport{Playing: true})

	// First report: entering the segment's window, hard snap.
	e.Apply(Transport{Playing: true, CurrentTime: floatPtr(1.0)})
	if got := e.Clock().CurrentTime(); got != 1.0 {
		t.Fatalf("CurrentTime = %.3f after entry report, want 1.0", got)
	}

	// Micro drift while continuously playing: suppressed.
	e.Apply(Transport{Playing: true, CurrentTime: floatPtr(1.05)})
	if got := e.Clock().CurrentTime(); got != 1.0 {
		t.Errorf("CurrentTime = %.3f, micro-correction should be suppressed", got)
	}

	// Real drift: hard correction.
	e.Apply(Transport{Playing: true, CurrentTime: floatPtr(2.0)})
	if got := e.Clock().CurrentTime(); got != 2.0 {
		t.Errorf("CurrentTime = %.3f, want hard reseek to 2.0", got)
	}
}

func TestFollowTimeIgnoredOnImageSegment(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	if _, err := store.Add(clip.New(clip.KindImage, "bg.png", 10)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	e.Apply(Transport{Playing: true})

	e.Apply(Transport{Playing: true, CurrentTime: floatPtr(4.0)})
	if got := e.Clock().CurrentTime(); got != 0 {
		t.Errorf("CurrentTime = %.3f, image segments are self-driven", got)
	}
}

func TestStepRendersActiveAudio(t *testing.T) {
	buffers := map[string]*decode.Buffer{"a.wav": constBuffer(2000, 10)}
	e, store, _ := newTestEngine(t, buffers)

	if _, err := store.Add(clip.New(clip.KindImage, "bg.png", 10)); err != nil {
		t.Fatalf("Add image: %v", err)
	}
	a := clip.New(clip.KindAudio, "a.wav", 8)
	if _, err := store.Add(a); err != nil {
		t.Fatalf("Add audio: %v", err)
	}

	e.Apply(Transport{Playing: true})

	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frame := e.step(ctx)
		if frame[0] != 0 {
			if frame[0] != 2000 {
				t.Errorf("mixed sample = %d, want 2000 at unit gain", frame[0])
			}
			return
		}
	}
	t.Fatal("engine never rendered the audio clip")
}

func TestStepHaltsAtTimelineEnd(t *testing.T) {
	e, store, _ := newTestEngine(t, nil)
	if _, err := store.Add(clip.New(clip.KindImage, "bg.png", 0.1)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	e.Apply(Transport{Playing: true})

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		e.step(ctx)
	}
	if e.Clock().Playing() {
		t.Error("transport still playing past the last segment")
	}
	if got := e.Status().ActiveHandles; got != 0 {
		t.Errorf("%d handles alive after halt", got)
	}
}

func TestStatusReadout(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)
	e.Apply(Transport{Playing: true, MasterVolume: floatPtr(0.7)})

	st := e.Status()
	if !st.Playing {
		t.Error("Status.Playing = false, want true")
	}
	if st.MasterVolume != 0.7 {
		t.Errorf("Status.MasterVolume = %.3f, want 0.7", st.MasterVolume)
	}
	if st.ActiveHandles != 0 {
		t.Errorf("Status.ActiveHandles = %d, want 0", st.ActiveHandles)
	}
}
