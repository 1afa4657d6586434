package locale

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// LoadLocation resolves tz, falling back to DefaultTimezone when tz is empty.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return loc, nil
}

// DateIn returns the calendar date of now as seen from loc, formatted YYYY-MM-DD.
func DateIn(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}
