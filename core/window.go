package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow indicates a generation window whose end does not lie after
// its start.
var ErrInvalidWindow = errors.New("invalid time window: end must be after start")

// TimeWindow bounds the timestamps of a generated batch. Start is inclusive,
// End is exclusive.
type TimeWindow struct {
	Start time.Time `json:"start" bson:"start"`
	End   time.Time `json:"end" bson:"end"`
}

// NewTimeWindow builds a window of the given duration ending at the given time.
func NewTimeWindow(end time.Time, span time.Duration) TimeWindow {
	return TimeWindow{Start: end.Add(-span), End: end}
}

// Validate returns ErrInvalidWindow when End is not strictly after Start.
func (w TimeWindow) Validate() error {
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w (start=%s end=%s)", ErrInvalidWindow,
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// Duration returns the window span.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t lies inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
