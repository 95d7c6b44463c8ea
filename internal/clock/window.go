package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the length of the daily cycle windows recur on.
const MinutesPerDay = 1440

// Window is a named interval recurring daily, in minutes of day.
// Start and End are both inclusive.
type Window struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
	Start int    `json:"start_minute"`
	End   int    `json:"end_minute"`
}

// Validate checks 0 <= Start < End <= 1440.
func (w Window) Validate() error {
	if w.Kind == "" {
		return fmt.Errorf("window %q: kind is required", w.Label)
	}
	if w.Start < 0 || w.End > MinutesPerDay || w.Start >= w.End {
		return fmt.Errorf("window %q: invalid range %s-%s", w.Kind, FormatMinute(w.Start), FormatMinute(w.End))
	}
	return nil
}

// Contains reports whether minute m of the day falls inside the window.
func (w Window) Contains(m int) bool {
	return w.Start <= m && m <= w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s-%s", w.Kind, FormatMinute(w.Start), FormatMinute(w.End))
}

// ParseHHMM converts "HH:MM" into a minute of day. "24:00" is accepted as 1440.
func ParseHHMM(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:MM", s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || hours > 24 || (hours == 24 && minutes != 0) {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return hours*60 + minutes, nil
}

// FormatMinute renders a minute of day as "HH:MM".
func FormatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// NewWindow builds and validates a window from "HH:MM" bounds.
func NewWindow(kind, label, start, end string) (Window, error) {
	s, err := ParseHHMM(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseHHMM(end)
	if err != nil {
		return Window{}, err
	}
	w := Window{Kind: kind, Label: label, Start: s, End: e}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// MustWindow is NewWindow for static configuration; it panics on a malformed window.
func MustWindow(kind, label, start, end string) Window {
	w, err := NewWindow(kind, label, start, end)
	if err != nil {
		panic(err)
	}
	return w
}

// MinuteOfDay returns the minute of day of t in t's own location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// DateKey is the period key for once-per-day scopes.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
