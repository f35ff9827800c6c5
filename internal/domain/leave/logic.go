package leave

import (
	"errors"
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// DateOnly drops the clock part of t, keeping its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CountDays returns the inclusive calendar-day count between from and to.
// It is the only place numberOfDays is derived.
func CountDays(from, to time.Time) (int, error) {
	from, to = DateOnly(from), DateOnly(to)
	if to.Before(from) {
		return 0, errors.New("end date before start date")
	}
	return int(to.Sub(from).Hours()/24) + 1, nil
}

// Overlaps reports whether two inclusive date ranges share at least one calendar day.
func Overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !DateOnly(aFrom).After(DateOnly(bTo)) && !DateOnly(bFrom).After(DateOnly(aTo))
}

// firstConflict picks the earliest applied active request overlapping [from, to].
func firstConflict(requests []LeaveRequest, from, to time.Time) (LeaveRequest, bool) {
	matches := make([]LeaveRequest, 0, len(requests))
	for _, r := range requests {
		if r.Active() && Overlaps(r.FromDate, r.ToDate, from, to) {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return LeaveRequest{}, false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].AppliedOn.Equal(matches[j].AppliedOn) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].AppliedOn.Before(matches[j].AppliedOn)
	})
	return matches[0], true
}
