package engine

import "errors"

// ErrScheduleRejected means a clip start was attempted for an instant
// already in the past relative to the output clock, typically because a
// slow decode resolved after the playhead left the clip's window. The
// attempt is abandoned; the clip is retried on the next tick if still
// in-window.
var ErrScheduleRejected = errors.New("schedule time already passed")
