package shared

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDay parses a calendar date in loc and returns it as UTC midnight.
// Full RFC3339 timestamps are accepted and reduced to their date in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}
	if len(value) > len(DateLayout) {
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, err
		}
		value = parsed.In(loc).Format(DateLayout)
	}
	parsed, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
}
