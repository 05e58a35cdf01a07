package internal

import (
	"strings"
	"time"
)

// DisplayTimeLayout is the wall-clock format shown next to messages
const DisplayTimeLayout = "3:04 PM"

var displayLayouts = []string{
	DisplayTimeLayout,
	"3:04:05 PM",
	"3:04PM",
	"15:04",
	"15:04:05",
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now
func SystemClock() Clock {
	return systemClock{}
}

// FormatDisplayTime renders t as "10:32 AM"
func FormatDisplayTime(t time.Time) string {
	return t.Format(DisplayTimeLayout)
}

// ParseTimeOfDay parses a display timestamp against a fixed date and returns
// the offset from midnight. Dates are never part of the result.
func ParseTimeOfDay(s string) (time.Duration, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	for _, layout := range displayLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return timeOfDay(t), true
		}
	}
	return 0, false
}

func timeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
