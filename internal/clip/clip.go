package clip

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind distinguishes the three media types a clip can reference.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// ErrInvalidEdit is returned when a mutation would violate a clip
// invariant. The store rejects such edits as no-ops.
var ErrInvalidEdit = errors.New("invalid edit")

// Clip is a placed reference to a media asset: which slice of the asset
// plays (trims) and where it sits on the shared timeline.
//
// Two invariants hold after every store mutation:
//
//  1. TrimStart >= 0, TrimEnd >= 0, TrimStart+TrimEnd < AssetDuration
//  2. EndTime-StartTime == AssetDuration-TrimStart-TrimEnd
//
// EndTime is always derived from the trims, never set independently.
type Clip struct {
	ID            string  `json:"id"`
	Kind          Kind    `json:"kind"`
	SourceRef     string  `json:"sourceRef"`
	AssetDuration float64 `json:"assetDuration"` // seconds; nominal for images
	TrimStart     float64 `json:"trimStart"`
	TrimEnd       float64 `json:"trimEnd"`
	StartTime     float64 `json:"startTime"`
	EndTime       float64 `json:"endTime"`
	Track         int     `json:"track"`        // audio layer index; visual clips stay on 0
	Gain          float64 `json:"gain"`         // linear volume in [0,1], audio/video only
	PlaybackRate  float64 `json:"playbackRate"` // video only
}

// New creates a clip for the given asset with no trims, placed at time 0.
// The caller hands it to Store.Add, which assigns its final placement.
func New(kind Kind, sourceRef string, assetDuration float64) Clip {
	return Clip{
		ID:            uuid.NewString(),
		Kind:          kind,
		SourceRef:     sourceRef,
		AssetDuration: assetDuration,
		EndTime:       assetDuration,
		Gain:          1.0,
		PlaybackRate:  1.0,
	}
}

// VisibleLength is the played portion of the asset after trimming.
func (c Clip) VisibleLength() float64 {
	return c.AssetDuration - c.TrimStart - c.TrimEnd
}

// Contains reports whether t falls inside the clip's half-open
// timeline window [StartTime, EndTime).
func (c Clip) Contains(t float64) bool {
	return t >= c.StartTime && t < c.EndTime
}

// Visual reports whether the clip renders on the visual track.
func (c Clip) Visual() bool {
	return c.Kind == KindVideo || c.Kind == KindImage
}

// Overlaps reports whether two clips' timeline windows intersect.
func (c Clip) Overlaps(o Clip) bool {
	return c.StartTime < o.EndTime && o.StartTime < c.EndTime
}

// Validate checks both clip invariants.
func (c Clip) Validate() error {
	if c.AssetDuration <= 0 {
		return fmt.Errorf("%w: asset duration %.3f must be positive", ErrInvalidEdit, c.AssetDuration)
	}
	if c.TrimStart < 0 || c.TrimEnd < 0 {
		return fmt.Errorf("%w: negative trim (%.3f, %.3f)", ErrInvalidEdit, c.TrimStart, c.TrimEnd)
	}
	if c.TrimStart+c.TrimEnd >= c.AssetDuration {
		return fmt.Errorf("%w: trims %.3f+%.3f consume asset of %.3fs", ErrInvalidEdit, c.TrimStart, c.TrimEnd, c.AssetDuration)
	}
	if diff := (c.EndTime - c.StartTime) - c.VisibleLength(); diff > timeEpsilon || diff < -timeEpsilon {
		return fmt.Errorf("%w: placement %.3f-%.3f does not match visible length %.3f", ErrInvalidEdit, c.StartTime, c.EndTime, c.VisibleLength())
	}
	return nil
}

// timeEpsilon absorbs float64 rounding when comparing derived times.
const timeEpsilon = 1e-9
