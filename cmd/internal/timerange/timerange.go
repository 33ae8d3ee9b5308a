package timerange

import (
	"errors"
	"strings"
	"time"
)

const (
	DateLayout     = "01/02/2006"
	ClockLayout    = "03:04 PM"
	DateTimeLayout = "2006-01-02 15:04:05"
)

var clockLayouts = []string{ClockLayout, "3:04 PM", "03:04PM", "3:04PM"}

var (
	ErrInvalidDate  = errors.New("invalid date, expected MM/DD/YYYY")
	ErrInvalidClock = errors.New("invalid time, expected hh:mm A")
	ErrEmptyRange   = errors.New("range end equals its start")
	ErrInverted     = errors.New("range end is before its start")
)

// Range is an interval [From, To) on a single calendar day.
type Range struct {
	From time.Time
	To   time.Time
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ParseClock parses a 12-hour wall-clock time. The returned value carries
// only hour and minute on the zero date.
func ParseClock(s string) (time.Time, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidClock
}

// Combine places a wall-clock time on the given date.
func Combine(date, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
}

// Build parses date, from and to and returns the resulting range. It does
// not check ordering, see Validate.
func Build(date, from, to string) (Range, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Range{}, err
	}
	f, err := ParseClock(from)
	if err != nil {
		return Range{}, err
	}
	t, err := ParseClock(to)
	if err != nil {
		return Range{}, err
	}
	return Range{From: Combine(d, f), To: Combine(d, t)}, nil
}

// Validate rejects inverted ranges before empty ones.
func (r Range) Validate() error {
	if r.To.Before(r.From) {
		return ErrInverted
	}
	if r.To.Equal(r.From) {
		return ErrEmptyRange
	}
	return nil
}

func (r Range) Duration() time.Duration {
	return r.To.Sub(r.From)
}

// Overlaps reports whether r and o intersect. Ranges that only touch at an
// endpoint do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.From.Before(o.To) && o.From.Before(r.To)
}

// Conflicts reports whether candidate overlaps any of the existing ranges.
func Conflicts(candidate Range, existing []Range) bool {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return true
		}
	}
	return false
}

func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// StartsAfter reports whether the range starts after now. The range's wall
// clock is read in loc.
func (r Range) StartsAfter(now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	f := r.From
	start := time.Date(f.Year(), f.Month(), f.Day(), f.Hour(), f.Minute(), 0, 0, loc)
	return start.After(now)
}
