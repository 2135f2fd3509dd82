package clip

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SplitEpsilon is the guard band at each edge of a clip's visible window
// inside which a split is refused: cutting a sliver thinner than this
// produces a clip too small to grab in the UI.
const SplitEpsilon = 0.05

// Store is the authoritative ordered collection of clips. It is the sole
// mutator: every operation builds a complete replacement list, re-derives
// layout, and swaps it in atomically, or rejects the edit leaving the
// prior list untouched. Consumers only ever see snapshot copies.
type Store struct {
	mu    sync.RWMutex
	clips []Clip
	gen   uint64
}

// NewStore creates an empty clip store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns a copy of the canonical clip list.
func (s *Store) Snapshot() []Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Clip, len(s.clips))
	copy(out, s.clips)
	return out
}

// AudioClips returns a copy of the audio clips only.
func (s *Store) AudioClips() []Clip {
	return s.filter(func(c Clip) bool { return c.Kind == KindAudio })
}

// VisualClips returns a copy of the video/image clips in timeline order.
func (s *Store) VisualClips() []Clip {
	return s.filter(Clip.Visual)
}

func (s *Store) filter(keep func(Clip) bool) []Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Clip
	for _, c := range s.clips {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the clip with the given id, if present.
func (s *Store) Get(id string) (Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clips {
		if c.ID == id {
			return c, true
		}
	}
	return Clip{}, false
}

// Generation returns a counter bumped on every successful mutation, so
// consumers can cheaply detect that the list changed.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Add validates and inserts a clip, then re-derives layout. A visual clip
// is appended at the end of the visual sequence; an audio clip keeps its
// requested StartTime and gets a track assigned. Returns the clip as
// stored.
func (s *Store) Add(c Clip) (Clip, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Gain == 0 {
		c.Gain = 1.0
	}
	if c.PlaybackRate == 0 {
		c.PlaybackRate = 1.0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Visual() {
		// Place after the current last visual clip; reflow keeps it there.
		cursor := 0.0
		for _, existing := range s.clips {
			if existing.Visual() && existing.EndTime > cursor {
				cursor = existing.EndTime
			}
		}
		c.StartTime = cursor
	}
	c.EndTime = c.StartTime + c.VisibleLength()

	if err := c.Validate(); err != nil {
		return Clip{}, err
	}

	next := append(s.snapshotLocked(), c)
	s.commitLocked(next)
	stored, _ := s.getLocked(c.ID)
	return stored, nil
}

// Delete removes a clip and re-derives layout (reflow closes the gap a
// visual clip leaves behind).
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshotLocked()
	for i, c := range next {
		if c.ID == id {
			s.commitLocked(append(next[:i], next[i+1:]...))
			return nil
		}
	}
	return fmt.Errorf("%w: unknown clip %s", ErrInvalidEdit, id)
}

// Split replaces a clip with two children cut at splitTime, a timeline
// instant strictly inside the clip's visible window. Within SplitEpsilon
// of either edge the operation is refused and the list is untouched.
// The first child keeps the original head trim; the second keeps the
// original tail trim; both keep placements consistent with the trim
// invariant. Returns the two children.
func (s *Store) Split(id string, splitTime float64) (Clip, Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshotLocked()
	idx := -1
	for i, c := range next {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Clip{}, Clip{}, fmt.Errorf("%w: unknown clip %s", ErrInvalidEdit, id)
	}

	orig := next[idx]
	if splitTime <= orig.StartTime+SplitEpsilon || splitTime >= orig.EndTime-SplitEpsilon {
		return Clip{}, Clip{}, fmt.Errorf("%w: split at %.3f too close to clip edge [%.3f, %.3f]", ErrInvalidEdit, splitTime, orig.StartTime, orig.EndTime)
	}

	offset := splitTime - orig.StartTime

	first := orig
	first.ID = uuid.NewString()
	first.TrimEnd = orig.AssetDuration - (orig.TrimStart + offset)
	first.EndTime = first.StartTime + first.VisibleLength()

	second := orig
	second.ID = uuid.NewString()
	second.TrimStart = orig.TrimStart + offset
	second.StartTime = splitTime
	second.EndTime = second.StartTime + second.VisibleLength()

	if err := first.Validate(); err != nil {
		return Clip{}, Clip{}, err
	}
	if err := second.Validate(); err != nil {
		return Clip{}, Clip{}, err
	}

	next[idx] = first
	next = append(next[:idx+1], append([]Clip{second}, next[idx+1:]...)...)
	s.commitLocked(next)

	a, _ := s.getLocked(first.ID)
	b, _ := s.getLocked(second.ID)
	return a, b, nil
}

// SetStartTime moves a clip to a new timeline start, keeping its visible
// length. Visual clips are then reflowed (the move expresses a reorder),
// audio clips re-layered.
func (s *Store) SetStartTime(id string, start float64) error {
	return s.mutate(id, func(c *Clip) {
		c.StartTime = start
		c.EndTime = start + c.VisibleLength()
	})
}

// SetTrimStart changes the seconds trimmed from the asset head. The
// clip's end moves to keep invariant 2; its timeline start is unchanged.
func (s *Store) SetTrimStart(id string, trim float64) error {
	return s.mutate(id, func(c *Clip) {
		c.TrimStart = trim
		c.EndTime = c.StartTime + c.VisibleLength()
	})
}

// SetTrimEnd changes the seconds trimmed from the asset tail.
func (s *Store) SetTrimEnd(id string, trim float64) error {
	return s.mutate(id, func(c *Clip) {
		c.TrimEnd = trim
		c.EndTime = c.StartTime + c.VisibleLength()
	})
}

// SetGain updates a clip's linear volume multiplier.
func (s *Store) SetGain(id string, gain float64) error {
	if gain < 0 || gain > 1 {
		return fmt.Errorf("%w: gain %.3f outside [0,1]", ErrInvalidEdit, gain)
	}
	return s.mutate(id, func(c *Clip) { c.Gain = gain })
}

func (s *Store) mutate(id string, apply func(*Clip)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshotLocked()
	for i := range next {
		if next[i].ID != id {
			continue
		}
		apply(&next[i])
		if err := next[i].Validate(); err != nil {
			return err
		}
		s.commitLocked(next)
		return nil
	}
	return fmt.Errorf("%w: unknown clip %s", ErrInvalidEdit, id)
}

// commitLocked re-derives layout over the replacement list and swaps it
// in. Layout results are merged back in canonical list order so that the
// layering tie-break stays stable across edits.
func (s *Store) commitLocked(next []Clip) {
	laid := LayerTracks(Reflow(next))
	byID := make(map[string]Clip, len(laid))
	for _, c := range laid {
		byID[c.ID] = c
	}
	for i := range next {
		next[i] = byID[next[i].ID]
	}
	s.clips = next
	s.gen++
}

func (s *Store) snapshotLocked() []Clip {
	out := make([]Clip, len(s.clips))
	copy(out, s.clips)
	return out
}

func (s *Store) getLocked(id string) (Clip, bool) {
	for _, c := range s.clips {
		if c.ID == id {
			return c, true
		}
	}
	return Clip{}, false
}
