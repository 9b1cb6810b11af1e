package models

import (
	"strings"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewInterval builds a UTC interval and rejects zero instants or Start >= End.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start.UTC(), End: end.UTC()}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// ParseInterval parses two RFC 3339 instants.
func ParseInterval(start, end string) (Interval, error) {
	s, err := time.Parse(time.RFC3339, strings.TrimSpace(start))
	if err != nil {
		return Interval{}, InvalidIntervalf("start %q is not an RFC 3339 timestamp", start)
	}
	e, err := time.Parse(time.RFC3339, strings.TrimSpace(end))
	if err != nil {
		return Interval{}, InvalidIntervalf("end %q is not an RFC 3339 timestamp", end)
	}
	return NewInterval(s, e)
}

func (i Interval) Validate() error {
	if i.Start.IsZero() || i.End.IsZero() {
		return InvalidIntervalf("start and end are required")
	}
	if !i.Start.Before(i.End) {
		return InvalidIntervalf("start %s must be before end %s",
			i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
	}
	return nil
}

// Overlaps reports whether the two ranges share at least one instant.
// Touching ranges (a.End == b.Start) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) String() string {
	return "[" + i.Start.Format(time.RFC3339) + ", " + i.End.Format(time.RFC3339) + ")"
}
