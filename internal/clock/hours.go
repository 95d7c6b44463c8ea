package clock

import (
	"fmt"
	"time"
)

// OperatingHours is the gate's open span. Closed time is the wraparound
// between Close and the next day's Open, so it does not go through Resolve.
type OperatingHours struct {
	Open  int `json:"open_minute"`
	Close int `json:"close_minute"`
}

// NewOperatingHours parses "HH:MM" bounds; Close may be "24:00".
func NewOperatingHours(open, close string) (OperatingHours, error) {
	o, err := ParseHHMM(open)
	if err != nil {
		return OperatingHours{}, err
	}
	c, err := ParseHHMM(close)
	if err != nil {
		return OperatingHours{}, err
	}
	if o >= c {
		return OperatingHours{}, fmt.Errorf("operating hours %s-%s: open must be before close", open, close)
	}
	return OperatingHours{Open: o, Close: c}, nil
}

// IsWithinOperatingHours is inclusive at both ends.
func IsWithinOperatingHours(now time.Time, hours OperatingHours) bool {
	m := MinuteOfDay(now)
	return hours.Open <= m && m <= hours.Close
}

func (h OperatingHours) String() string {
	return fmt.Sprintf("%s-%s", FormatMinute(h.Open), FormatMinute(h.Close))
}
