package lifecycle

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// DefaultSessionMinutes is used when a slot has no explicit end.
	DefaultSessionMinutes = 60
)

// ParseDate validates a YYYY-MM-DD string.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, date, loc)
}

// ParseClock validates an HH:MM string.
func ParseClock(hhmm string) (time.Time, error) {
	return time.Parse(TimeLayout, hhmm)
}

// Combine joins a date and a wall-clock time in loc.
func Combine(date, hhmm string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+hhmm, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, hhmm, err)
	}
	return t, nil
}

// AddMinutes returns hhmm shifted by minutes. The result must stay within
// the same day.
func AddMinutes(hhmm string, minutes int) (string, error) {
	t, err := ParseClock(hhmm)
	if err != nil {
		return "", err
	}
	end := t.Add(time.Duration(minutes) * time.Minute)
	if end.Day() != t.Day() {
		return "", fmt.Errorf("%s plus %d minutes crosses midnight", hhmm, minutes)
	}
	return end.Format(TimeLayout), nil
}

// MinutesBetween returns end-start in minutes for two HH:MM values.
func MinutesBetween(start, end string) (int, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, err
	}
	return int(e.Sub(s) / time.Minute), nil
}
