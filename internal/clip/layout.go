package clip

import "sort"

// Reflow packs the visual (video/image) clips sequentially from time 0
// with no gaps or overlaps, preserving their relative order (stable sort
// by StartTime, ties broken by ID). Audio clips pass through unchanged.
// The input is not modified; the result is in visual-cursor order
// followed by the untouched audio clips. Idempotent.
func Reflow(clips []Clip) []Clip {
	visual := make([]Clip, 0, len(clips))
	audio := make([]Clip, 0, len(clips))
	for _, c := range clips {
		if c.Visual() {
			visual = append(visual, c)
		} else {
			audio = append(audio, c)
		}
	}

	sort.SliceStable(visual, func(i, j int) bool {
		if visual[i].StartTime != visual[j].StartTime {
			return visual[i].StartTime < visual[j].StartTime
		}
		return visual[i].ID < visual[j].ID
	})

	cursor := 0.0
	for i := range visual {
		visual[i].StartTime = cursor
		visual[i].EndTime = cursor + visual[i].VisibleLength()
		visual[i].Track = 0
		cursor = visual[i].EndTime
	}

	return append(visual, audio...)
}

// LayerTracks assigns each audio clip a track index so that no two clips
// on the same track overlap in time. Greedy first-fit interval
// partitioning: clips are taken in StartTime order (stable, so ties keep
// their original list order) and dropped into the first track whose last
// clip ends at or before the candidate's start.
//
// This is not a minimum-track assignment across arbitrary re-orderings,
// but it is deterministic and a fixed point on its own output, which
// keeps layer numbers stable across small edits. Visual clips pass
// through unchanged.
func LayerTracks(clips []Clip) []Clip {
	audio := make([]Clip, 0, len(clips))
	visual := make([]Clip, 0, len(clips))
	for _, c := range clips {
		if c.Kind == KindAudio {
			audio = append(audio, c)
		} else {
			visual = append(visual, c)
		}
	}

	sort.SliceStable(audio, func(i, j int) bool {
		return audio[i].StartTime < audio[j].StartTime
	})

	// lastEnd[k] is the EndTime of the most recent clip placed on track k.
	var lastEnd []float64
	for i := range audio {
		placed := false
		for k := range lastEnd {
			if lastEnd[k] <= audio[i].StartTime {
				audio[i].Track = k
				lastEnd[k] = audio[i].EndTime
				placed = true
				break
			}
		}
		if !placed {
			audio[i].Track = len(lastEnd)
			lastEnd = append(lastEnd, audio[i].EndTime)
		}
	}

	return append(visual, audio...)
}
