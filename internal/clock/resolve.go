package clock

import "time"

// Resolution is the outcome of resolving a timestamp against a set of windows.
type Resolution struct {
	Active           *Window `json:"active"`
	Next             *Window `json:"next"`
	MinutesUntilNext int     `json:"minutes_until_next"`
}

// Resolve reports which window is active at now, or the next one to open.
// When windows overlap the first match in configured order wins.
func Resolve(now time.Time, windows []Window) Resolution {
	m := MinuteOfDay(now)

	for i := range windows {
		if windows[i].Contains(m) {
			w := windows[i]
			return Resolution{Active: &w}
		}
	}

	var res Resolution
	best := MinutesPerDay + 1
	for i := range windows {
		d := (windows[i].Start - m + MinutesPerDay) % MinutesPerDay
		if d < best {
			best = d
			w := windows[i]
			res.Next = &w
		}
	}
	if res.Next != nil {
		res.MinutesUntilNext = best
	}
	return res
}

// Find returns the configured window of the given kind.
func Find(windows []Window, kind string) (Window, bool) {
	for _, w := range windows {
		if w.Kind == kind {
			return w, true
		}
	}
	return Window{}, false
}
