package leave

import (
	"testing"
	"time"
)

func TestCountDays(t *testing.T) {
	start := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	days, err := CountDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 1 {
		t.Fatalf("expected 1 day, got %v", days)
	}

	end = time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC)
	days, err = CountDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestCountDaysIgnoresClockAndZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	start := time.Date(2025, 3, 10, 23, 30, 0, 0, ist)
	end := time.Date(2025, 3, 12, 0, 15, 0, 0, ist)

	days, err := CountDays(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestCountDaysAcrossLeapDay(t *testing.T) {
	days, err := CountDays(time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days != 3 {
		t.Fatalf("expected 3 days, got %v", days)
	}
}

func TestCountDaysInvalid(t *testing.T) {
	start := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 9, 0, 0, 0, 0, time.UTC)

	_, err := CountDays(start, end)
	if err == nil {
		t.Fatal("expected error for invalid range")
	}
}

func TestOverlaps(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC) }
	cases := []struct {
		name             string
		aFrom, aTo       time.Time
		bFrom, bTo       time.Time
		expectedOverlaps bool
	}{
		{"identical", d(10), d(12), d(10), d(12), true},
		{"shared boundary day", d(10), d(12), d(12), d(14), true},
		{"contained", d(10), d(20), d(12), d(13), true},
		{"adjacent", d(10), d(12), d(13), d(14), false},
		{"before", d(1), d(2), d(10), d(12), false},
	}
	for _, tc := range cases {
		if got := Overlaps(tc.aFrom, tc.aTo, tc.bFrom, tc.bTo); got != tc.expectedOverlaps {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.expectedOverlaps, got)
		}
		if got := Overlaps(tc.bFrom, tc.bTo, tc.aFrom, tc.aTo); got != tc.expectedOverlaps {
			t.Fatalf("%s (swapped): expected %v, got %v", tc.name, tc.expectedOverlaps, got)
		}
	}
}

func TestFirstConflictPrefersEarliestApplied(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC) }
	requests := []LeaveRequest{
		{ID: "b", FromDate: d(10), ToDate: d(11), Status: StatusApproved, AppliedOn: d(2)},
		{ID: "a", FromDate: d(12), ToDate: d(12), Status: StatusPending, AppliedOn: d(1)},
		{ID: "c", FromDate: d(10), ToDate: d(12), Status: StatusRejected, AppliedOn: d(1)},
	}

	got, ok := firstConflict(requests, d(9), d(12))
	if !ok {
		t.Fatal("expected a conflict")
	}
	if got.ID != "a" {
		t.Fatalf("expected earliest applied request a, got %s", got.ID)
	}

	if _, ok := firstConflict(requests, d(20), d(21)); ok {
		t.Fatal("did not expect a conflict")
	}
}
